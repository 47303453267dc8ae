package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/groupasks/askbot/internal/access"
	"github.com/groupasks/askbot/internal/services"
)

// privateOnlyHint is sent when a user tries an interactive flow from a group
// chat. Assignee selection carries per-user state that must not be visible
// to other participants, so those flows only run one-to-one.
const privateOnlyHint = "Please message me directly to use this. Open a private chat with me and send /start."

// Bot is the Telegram front end. It translates updates into service calls
// and renders the results as messages and inline keyboards.
type Bot struct {
	api      *tgbotapi.BotAPI
	gate     *access.Gate
	roster   *services.RosterService
	asks     *services.AskService
	sessions *sessionStore
	version  string
}

// New wires the bot against its collaborators.
func New(api *tgbotapi.BotAPI, gate *access.Gate, roster *services.RosterService, asks *services.AskService, version string) *Bot {
	return &Bot{
		api:      api,
		gate:     gate,
		roster:   roster,
		asks:     asks,
		sessions: newSessionStore(),
		version:  version,
	}
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	log.Info().Str("username", b.api.Self.UserName).Msg("bot polling started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	}
}

// registerSender upserts the interacting user into the roster. Every entry
// point does this so the roster stays current without a separate sign-up.
func (b *Bot) registerSender(ctx context.Context, from *tgbotapi.User) {
	name := services.ResolveDisplayName(from.FirstName, from.LastName, from.UserName, from.ID)
	if _, err := b.roster.Register(ctx, from.ID, name); err != nil {
		log.Error().Err(err).Int64("user_id", from.ID).Msg("roster register failed")
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	if !b.gate.ChatAllowed(msg.Chat.ID) {
		return
	}
	b.registerSender(ctx, msg.From)

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// Plain text only matters while a private conversation is collecting
	// the ask text.
	if msg.Chat.IsPrivate() {
		if s := b.sessions.get(msg.From.ID); s != nil && s.State == stateCollectingText {
			b.onAskText(ctx, msg, s)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, "Askbot is online.", mainMenu())
	case "health":
		b.send(msg.Chat.ID, "OK")
	case "version":
		b.send(msg.Chat.ID, b.version)
	case "ask":
		if !b.requirePrivate(msg) {
			return
		}
		b.startNewAsk(ctx, msg.Chat.ID, msg.From.ID)
	case "myasks":
		if !b.requirePrivate(msg) {
			return
		}
		b.showMyAssignments(ctx, msg.Chat.ID, msg.From.ID)
	case "allasks":
		if !b.requirePrivate(msg) {
			return
		}
		b.showAllOpenAsks(ctx, msg.Chat.ID, msg.From.ID)
	}
}

// requirePrivate redirects group-chat attempts at interactive flows and
// reports whether the message came from a private chat.
func (b *Bot) requirePrivate(msg *tgbotapi.Message) bool {
	if msg.Chat.IsPrivate() {
		return true
	}
	b.send(msg.Chat.ID, privateOnlyHint)
	return false
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	if !b.gate.ChatAllowed(chatID) {
		return
	}
	b.registerSender(ctx, cq.From)

	data := cq.Data
	switch {
	case data == cbMenuNewAsk:
		b.answer(cq, "")
		if !cq.Message.Chat.IsPrivate() {
			b.send(chatID, privateOnlyHint)
			return
		}
		b.startNewAsk(ctx, chatID, cq.From.ID)

	case data == cbMenuMyAsks:
		b.answer(cq, "")
		if !cq.Message.Chat.IsPrivate() {
			b.send(chatID, privateOnlyHint)
			return
		}
		b.showMyAssignments(ctx, chatID, cq.From.ID)

	case data == cbMenuAllAsks:
		b.answer(cq, "")
		if !cq.Message.Chat.IsPrivate() {
			b.send(chatID, privateOnlyHint)
			return
		}
		b.showAllOpenAsks(ctx, chatID, cq.From.ID)

	case strings.HasPrefix(data, cbToggleAssignee):
		b.onToggleAssignee(ctx, cq, strings.TrimPrefix(data, cbToggleAssignee))

	case data == cbPickerNext:
		b.onPickerNext(cq)

	case data == cbSubmitAsk:
		b.answer(cq, "")
		b.onSubmitAsk(ctx, cq)

	case data == cbCancelAsk:
		b.answer(cq, "")
		b.sessions.clear(cq.From.ID)
		b.edit(chatID, cq.Message.MessageID, "Ask creation cancelled.", nil)

	case strings.HasPrefix(data, cbDoneConfirm):
		b.answer(cq, "")
		b.onDoneConfirm(ctx, cq, strings.TrimPrefix(data, cbDoneConfirm))

	case strings.HasPrefix(data, cbDoneClick):
		b.answer(cq, "")
		id := strings.TrimPrefix(data, cbDoneClick)
		b.editMarkup(chatID, cq.Message.MessageID, confirmDone(id))

	case data == cbDoneCancel:
		b.answer(cq, "")
		b.refreshAssignments(ctx, chatID, cq.Message.MessageID, cq.From.ID, "")

	default:
		b.answer(cq, "Coming soon")
	}
}

// --- new-ask conversation ---

func (b *Bot) startNewAsk(ctx context.Context, chatID, userID int64) {
	roster, err := b.roster.Roster(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load roster")
		b.send(chatID, "Something went wrong. Please try again later.")
		return
	}
	// The requester cannot be their own assignee; hide them from the picker.
	pickable := roster[:0:0]
	for _, u := range roster {
		if u.UserID != userID {
			pickable = append(pickable, u)
		}
	}
	if len(pickable) == 0 {
		b.send(chatID, "Nobody else has started the bot yet. Ask them to send /start to the bot first!")
		return
	}

	s := b.sessions.begin(userID)
	b.reply(chatID, "Who should I ask? Select one or more people:", assigneePicker(pickable, s.Selected))
}

func (b *Bot) onToggleAssignee(ctx context.Context, cq *tgbotapi.CallbackQuery, rawID string) {
	s := b.sessions.get(cq.From.ID)
	if s == nil || s.State != statePickingAssignees {
		b.answer(cq, "")
		return
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		b.answer(cq, "")
		return
	}
	s.toggle(id)
	b.answer(cq, "")

	roster, err := b.roster.Roster(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load roster")
		return
	}
	pickable := roster[:0:0]
	for _, u := range roster {
		if u.UserID != cq.From.ID {
			pickable = append(pickable, u)
		}
	}
	b.editMarkup(cq.Message.Chat.ID, cq.Message.MessageID, assigneePicker(pickable, s.Selected))
}

func (b *Bot) onPickerNext(cq *tgbotapi.CallbackQuery) {
	s := b.sessions.get(cq.From.ID)
	if s == nil || s.State != statePickingAssignees {
		b.answer(cq, "")
		return
	}
	if len(s.Selected) == 0 {
		b.alert(cq, "Please select at least one person!")
		return
	}
	b.answer(cq, "")
	s.State = stateCollectingText
	b.edit(cq.Message.Chat.ID, cq.Message.MessageID, "What would you like them to do? Please type your request:", nil)
}

func (b *Bot) onAskText(ctx context.Context, msg *tgbotapi.Message, s *askSession) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		b.send(msg.Chat.ID, "Please enter some text for your request.")
		return
	}
	if len([]rune(text)) > services.MaxAskTextRunes {
		b.send(msg.Chat.ID, "Please keep your request under 1000 characters.")
		return
	}
	s.Text = text
	s.State = stateConfirming

	roster, err := b.roster.Roster(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load roster")
		b.send(msg.Chat.ID, "Something went wrong. Please try again later.")
		return
	}
	names := make(map[int64]string, len(roster))
	for _, u := range roster {
		names[u.UserID] = u.DisplayName
	}
	picked := make([]string, 0, len(s.Order))
	for _, id := range s.Order {
		if n, ok := names[id]; ok {
			picked = append(picked, n)
		}
	}

	summary := fmt.Sprintf("Ask %d people to: %s\n\nAssignees: %s",
		len(picked), text, strings.Join(picked, ", "))
	b.reply(msg.Chat.ID, summary, askCreationConfirm())
}

func (b *Bot) onSubmitAsk(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	s := b.sessions.get(cq.From.ID)
	if s == nil || s.State != stateConfirming || s.Text == "" || len(s.Order) == 0 {
		b.edit(chatID, cq.Message.MessageID, "Error: missing information. Please start over with /ask.", nil)
		b.sessions.clear(cq.From.ID)
		return
	}

	scope := b.gate.EffectiveChatScope(chatID)
	_, notified, err := b.asks.CreateAsk(ctx, scope, cq.From.ID, s.Text, s.Order)
	if err != nil {
		log.Error().Err(err).Int64("user_id", cq.From.ID).Msg("create ask")
		b.edit(chatID, cq.Message.MessageID, "Error creating ask. Please try again later.", nil)
		b.sessions.clear(cq.From.ID)
		return
	}

	b.edit(chatID, cq.Message.MessageID,
		fmt.Sprintf("✅ Ask created! Notified %d of %d people.\n\nYour request: %s",
			notified, len(s.Order), s.Text), nil)
	b.sessions.clear(cq.From.ID)
}

// --- assignment views ---

func (b *Bot) showMyAssignments(ctx context.Context, chatID, userID int64) {
	assignments, err := b.asks.ListMyOpenAssignments(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("list assignments")
		b.send(chatID, "Something went wrong. Please try again later.")
		return
	}
	if len(assignments) == 0 {
		b.send(chatID, "You have no open assignments! 🎉")
		return
	}
	b.reply(chatID, formatAssignments(assignments), assignmentsList(assignments))
}

func (b *Bot) showAllOpenAsks(ctx context.Context, chatID, userID int64) {
	scope := b.gate.EffectiveChatScope(chatID)
	asks, err := b.asks.ListAllOpenAsks(ctx, scope)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("list open asks")
		b.send(chatID, "Something went wrong. Please try again later.")
		return
	}
	if len(asks) == 0 {
		b.send(chatID, "No open asks! Everyone's on top of things! 🎉")
		return
	}
	b.send(chatID, formatOpenAsks(asks))
}

func (b *Bot) onDoneConfirm(ctx context.Context, cq *tgbotapi.CallbackQuery, assignmentID string) {
	res, err := b.asks.CompleteAssignment(ctx, assignmentID, cq.From.ID, time.Now().UTC())
	if err != nil {
		log.Warn().Err(err).Str("assignment_id", assignmentID).Int64("user_id", cq.From.ID).Msg("complete assignment")
		b.alert(cq, "Could not update that assignment. Please try again.")
		return
	}
	header := "✅ Marked as done!"
	if res.Closed {
		header = "✅ Marked as done! That ask is now complete."
	}
	b.refreshAssignments(ctx, cq.Message.Chat.ID, cq.Message.MessageID, cq.From.ID, header)
}

// refreshAssignments re-renders the assignments message in place, with an
// optional header line above the list.
func (b *Bot) refreshAssignments(ctx context.Context, chatID int64, messageID int, userID int64, header string) {
	assignments, err := b.asks.ListMyOpenAssignments(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("list assignments")
		return
	}
	if len(assignments) == 0 {
		text := "You have no more open assignments! 🎉"
		if header != "" {
			text = header + "\n\n" + text
		}
		b.edit(chatID, messageID, text, nil)
		return
	}
	text := formatAssignments(assignments)
	if header != "" {
		text = header + "\n\n" + text
	}
	kb := assignmentsList(assignments)
	b.edit(chatID, messageID, text, &kb)
}

// --- low-level send helpers ---

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Info().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

func (b *Bot) reply(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		log.Info().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		log.Info().Err(err).Int64("chat_id", chatID).Msg("edit failed")
	}
}

func (b *Bot) editMarkup(chatID int64, messageID int, kb tgbotapi.InlineKeyboardMarkup) {
	if _, err := b.api.Send(tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, kb)); err != nil {
		log.Info().Err(err).Int64("chat_id", chatID).Msg("edit markup failed")
	}
}

func (b *Bot) answer(cq *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, text)); err != nil {
		log.Info().Err(err).Msg("callback answer failed")
	}
}

func (b *Bot) alert(cq *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallbackWithAlert(cq.ID, text)); err != nil {
		log.Info().Err(err).Msg("callback alert failed")
	}
}
