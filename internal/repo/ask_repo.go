// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Ask and
// AskAssignee models.
//
// Functions:
//
//   - CreateAskWithAssignees(ctx, db, chatScope, requesterID, requesterName, text, assignees)
//     Atomically inserts an Ask row and one AskAssignee row per assignee.
//
//   - ListOpenAssignments(ctx, db, userID) -> []OpenAssignment, error
//     Returns a user's open assignments on open asks, most recent ask first.
//
//   - MarkAssignmentDone(ctx, db, assignmentID, actorID, now) -> *AssignmentDone, error
//     Transitions one assignment open → done, enforcing actor ownership.
//
//   - CloseAskIfComplete(ctx, db, askID, now) -> (bool, error)
//     Closes the ask when no open assignments remain; reports whether a
//     closure occurred on this call.
//
//   - ListOpenAsks(ctx, db, chatScope) -> []OpenAsk, error
//     Fan-out view of all open asks in a chat scope with per-assignee status.
//
// The write functions are designed to be composed inside a single GORM
// transaction by the service layer (see services.AskService), which is what
// makes the "mark done, then maybe close" sequence linearizable per ask.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/groupasks/askbot/internal/domain"
)

// Assignee pairs an assignee identifier with the display-name snapshot to
// store on the AskAssignee row.
type Assignee struct {
	UserID int64
	Name   string
}

// OpenAssignment is one row of the "my open assignments" view.
type OpenAssignment struct {
	AssignmentID  string `json:"assignment_id"`
	AskID         string `json:"ask_id"`
	Text          string `json:"text"`
	RequesterName string `json:"requester_name"`
}

// AssigneeStatus is one (name, status) pair within an OpenAsk view.
type AssigneeStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// OpenAsk is one row of the "all open asks" fan-out view.
type OpenAsk struct {
	AskID         string           `json:"ask_id"`
	Text          string           `json:"text"`
	RequesterName string           `json:"requester_name"`
	Assignees     []AssigneeStatus `json:"assignees"`
}

// AssignmentDone carries the ask context needed to notify the requester
// after an assignment transitions to done.
type AssignmentDone struct {
	AskID         string
	RequesterID   int64
	RequesterName string
	Text          string
}

// CreateAskWithAssignees inserts a new open Ask and one open AskAssignee row
// per assignee. All rows are written inside one transaction: either the ask
// and all its assignments are persisted, or none are, so readers never see a
// partial ask. Assignee rows keep the caller's slice order.
func CreateAskWithAssignees(ctx context.Context, db *gorm.DB, chatScope, requesterID int64, requesterName, text string, assignees []Assignee) (*domain.Ask, error) {
	ask := &domain.Ask{
		ID:            uuid.NewString(),
		ChatScope:     chatScope,
		RequesterID:   requesterID,
		RequesterName: requesterName,
		Text:          text,
		Status:        domain.AskStatusOpen,
		CreatedAt:     time.Now().UTC(),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ask).Error; err != nil {
			return err
		}
		for i, a := range assignees {
			row := &domain.AskAssignee{
				ID:           uuid.NewString(),
				AskID:        ask.ID,
				AssigneeID:   a.UserID,
				AssigneeName: a.Name,
				Position:     i,
				Status:       domain.AssigneeStatusOpen,
				CreatedAt:    ask.CreatedAt,
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ask, nil
}

// ListOpenAssignments returns all open assignments for userID whose owning
// ask is also still open, ordered by ask creation time descending. The open
// filter on both rows is defensive: the closure invariant already guarantees
// an open assignment never sits on a closed ask.
func ListOpenAssignments(ctx context.Context, db *gorm.DB, userID int64) ([]OpenAssignment, error) {
	var out []OpenAssignment
	err := db.WithContext(ctx).
		Table("ask_assignees aa").
		Select("aa.id AS assignment_id, a.id AS ask_id, a.text, a.requester_name").
		Joins("JOIN asks a ON a.id = aa.ask_id").
		Where("aa.assignee_id = ? AND aa.status = ? AND a.status = ?",
			userID, domain.AssigneeStatusOpen, domain.AskStatusOpen).
		Order("a.created_at DESC, aa.position ASC").
		Scan(&out).Error
	return out, err
}

// MarkAssignmentDone transitions the assignment to done and stamps done_at.
// The guarded UPDATE only matches a row that exists, is still open, and
// belongs to actorID: a missing, foreign, or already-done assignment yields
// ErrNotFound with the row untouched. The store enforces this even when
// called directly, independent of any upstream access checks.
//
// On success it returns the owning ask's id, requester, and text so the
// caller can compose the completion notification.
func MarkAssignmentDone(ctx context.Context, db *gorm.DB, assignmentID string, actorID int64, now time.Time) (*AssignmentDone, error) {
	res := db.WithContext(ctx).
		Model(&domain.AskAssignee{}).
		Where("id = ? AND assignee_id = ? AND status = ?",
			assignmentID, actorID, domain.AssigneeStatusOpen).
		Updates(map[string]any{
			"status":  domain.AssigneeStatusDone,
			"done_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var done AssignmentDone
	err := db.WithContext(ctx).
		Table("asks a").
		Select("a.id AS ask_id, a.requester_id, a.requester_name, a.text").
		Joins("JOIN ask_assignees aa ON aa.ask_id = a.id").
		Where("aa.id = ?", assignmentID).
		Scan(&done).Error
	if err != nil {
		return nil, err
	}
	return &done, nil
}

// CloseAskIfComplete closes the ask iff no open assignments remain. The
// conditional UPDATE is additionally guarded on status = 'open', so checking
// an already-closed ask is a no-op: closed_at is stamped at most once and the
// returned closure signal fires at most once per ask.
func CloseAskIfComplete(ctx context.Context, db *gorm.DB, askID string, now time.Time) (bool, error) {
	var open int64
	err := db.WithContext(ctx).
		Model(&domain.AskAssignee{}).
		Where("ask_id = ? AND status = ?", askID, domain.AssigneeStatusOpen).
		Count(&open).Error
	if err != nil {
		return false, err
	}
	if open > 0 {
		return false, nil
	}

	res := db.WithContext(ctx).
		Model(&domain.Ask{}).
		Where("id = ? AND status = ?", askID, domain.AskStatusOpen).
		Updates(map[string]any{
			"status":    domain.AskStatusClosed,
			"closed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListOpenAsks returns every open ask in chatScope with its assignees and
// their statuses, most recent ask first. Assignee rows stay grouped under
// their ask in insertion order.
func ListOpenAsks(ctx context.Context, db *gorm.DB, chatScope int64) ([]OpenAsk, error) {
	var rows []struct {
		AskID         string
		Text          string
		RequesterName string
		AssigneeName  string
		Status        string
	}
	err := db.WithContext(ctx).
		Table("asks a").
		Select("a.id AS ask_id, a.text, a.requester_name, aa.assignee_name, aa.status").
		Joins("JOIN ask_assignees aa ON aa.ask_id = a.id").
		Where("a.chat_scope = ? AND a.status = ?", chatScope, domain.AskStatusOpen).
		Order("a.created_at DESC, a.id ASC, aa.position ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]OpenAsk, 0, len(rows))
	index := make(map[string]int, len(rows))
	for _, r := range rows {
		i, ok := index[r.AskID]
		if !ok {
			out = append(out, OpenAsk{
				AskID:         r.AskID,
				Text:          r.Text,
				RequesterName: r.RequesterName,
			})
			i = len(out) - 1
			index[r.AskID] = i
		}
		out[i].Assignees = append(out[i].Assignees, AssigneeStatus{
			Name:   r.AssigneeName,
			Status: r.Status,
		})
	}
	return out, nil
}

// GetAsk fetches a single ask by id, or ErrNotFound.
func GetAsk(ctx context.Context, db *gorm.DB, id string) (*domain.Ask, error) {
	var a domain.Ask
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}
