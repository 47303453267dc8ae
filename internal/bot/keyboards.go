package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/groupasks/askbot/internal/domain"
	"github.com/groupasks/askbot/internal/repo"
)

// Callback data prefixes. Kept short because Telegram caps callback data at
// 64 bytes and assignment ids are 36-character UUIDs.
const (
	cbToggleAssignee = "ak:t:"  // + user id
	cbPickerNext     = "ak:n"   //
	cbSubmitAsk      = "ak:y"   //
	cbCancelAsk      = "ak:c"   //
	cbDoneClick      = "ak:d:"  // + assignment id
	cbDoneConfirm    = "ak:dy:" // + assignment id
	cbDoneCancel     = "ak:dn"  //
	cbMenuNewAsk     = "menu:new"
	cbMenuMyAsks     = "menu:my"
	cbMenuAllAsks    = "menu:all"
)

// mainMenu is the inline keyboard shown on /start.
func mainMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("New ask", cbMenuNewAsk),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("My asks", cbMenuMyAsks),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("All open asks", cbMenuAllAsks),
		),
	)
}

// assigneePicker renders one button per roster member, check-marked when
// selected, plus Next/Cancel controls.
func assigneePicker(roster []domain.User, selected map[int64]struct{}) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(roster)+1)
	for _, u := range roster {
		label := u.DisplayName
		if _, ok := selected[u.UserID]; ok {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbToggleAssignee, u.UserID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Next ➡️", cbPickerNext),
		tgbotapi.NewInlineKeyboardButtonData("Cancel", cbCancelAsk),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// askCreationConfirm is the final submit/cancel step of the new-ask flow.
func askCreationConfirm() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Create", cbSubmitAsk),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", cbCancelAsk),
		),
	)
}

// assignmentsList renders one Done button per open assignment, numbered to
// match the message text above it.
func assignmentsList(assignments []repo.OpenAssignment) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(assignments))
	for i, a := range assignments {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("Done #%d", i+1),
				cbDoneClick+a.AssignmentID,
			),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// confirmDone asks for confirmation before marking one assignment done.
func confirmDone(assignmentID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, done ✅", cbDoneConfirm+assignmentID),
			tgbotapi.NewInlineKeyboardButtonData("No", cbDoneCancel),
		),
	)
}
