// Package services – AskService
//
// This file implements AskService, the application-level component that owns
// the ask lifecycle: creation with multiple assignees, per-assignee completion,
// and automatic closure once every assignee has confirmed. It validates input,
// enforces the roster-membership rule for assignees, and keeps the
// done-transition and the closure check inside one database transaction so
// that concurrent completions of the same ask produce exactly one closure.
//
// Notifications are advisory: they are dispatched after the transaction has
// committed, never retried, and a delivery failure never fails the mutation
// that triggered it.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// ask/user identifiers.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/groupasks/askbot/internal/domain"
	"github.com/groupasks/askbot/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MaxAskTextRunes caps ask text length (after trimming).
const MaxAskTextRunes = 1000

// MaxAssignees caps how many assignees a single ask may address.
const MaxAssignees = 10

// Notifier delivers a direct message to a user, best effort. Implementations
// must swallow delivery failures (logging them) and report only whether the
// message reached its target; see notify.Dispatcher.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) bool
}

// Completion is the outcome of CompleteAssignment, carrying everything the
// transport needs to render UI text: whether this completion closed the ask,
// and the ask's requester and text.
type Completion struct {
	Closed        bool
	AskID         string
	RequesterID   int64
	RequesterName string
	Text          string
}

// AskService coordinates the ask lifecycle over the persistent store.
type AskService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Roster resolves assignee identifiers to registered users.
	Roster *RosterService
	// Notifier dispatches lifecycle notifications. May be nil in tests;
	// all dispatch is best effort either way.
	Notifier Notifier
}

// NewAskService constructs an AskService.
func NewAskService(db *gorm.DB, roster *RosterService, n Notifier) *AskService {
	return &AskService{DB: db, Roster: roster, Notifier: n}
}

// CreateAsk creates a new open ask in chatScope addressed to assigneeIDs.
//
// Validation:
//   - text is trimmed; empty yields ErrEmptyText, more than 1000 runes
//     yields ErrTextTooLong.
//   - assigneeIDs are deduplicated and the requester is silently dropped
//     from the set; an empty remainder yields ErrNoAssignees, more than
//     MaxAssignees yields ErrTooManyAssignees.
//   - every assignee must be on the roster; unknown identifiers yield
//     ErrUnknownAssignee.
//
// The requester's and each assignee's display names are snapshotted onto the
// stored rows at creation time. After the rows have committed, one direct
// message per assignee is attempted; the returned count reports how many
// were delivered.
func (s *AskService) CreateAsk(ctx context.Context, chatScope, requesterID int64, text string, assigneeIDs []int64) (*domain.Ask, int, error) {
	tr := otel.Tracer("services/AskService")
	ctx, span := tr.Start(ctx, "CreateAsk",
		trace.WithAttributes(
			attribute.Int64("chat.scope", chatScope),
			attribute.Int64("user.id", requesterID),
			attribute.Int("assignees", len(assigneeIDs)),
		),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, 0, ErrEmptyText
	}
	if utf8.RuneCountInString(text) > MaxAskTextRunes {
		return nil, 0, ErrTextTooLong
	}

	// Dedupe and drop the requester; order of first appearance is kept so
	// assignee rows land in the order the caller picked them.
	seen := make(map[int64]struct{}, len(assigneeIDs))
	ids := make([]int64, 0, len(assigneeIDs))
	for _, id := range assigneeIDs {
		if id == requesterID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, 0, ErrNoAssignees
	}
	if len(ids) > MaxAssignees {
		return nil, 0, ErrTooManyAssignees
	}

	requester, err := s.Roster.Get(ctx, requesterID)
	if err != nil {
		return nil, 0, err
	}

	roster, err := s.Roster.Roster(ctx)
	if err != nil {
		return nil, 0, err
	}
	names := make(map[int64]string, len(roster))
	for _, u := range roster {
		names[u.UserID] = u.DisplayName
	}

	assignees := make([]repo.Assignee, 0, len(ids))
	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %d", ErrUnknownAssignee, id)
		}
		assignees = append(assignees, repo.Assignee{UserID: id, Name: name})
	}

	ask, err := repo.CreateAskWithAssignees(ctx, s.DB, chatScope, requesterID, requester.DisplayName, text, assignees)
	if err != nil {
		return nil, 0, err
	}

	// Dispatch after commit; never inside the transaction.
	notified := 0
	if s.Notifier != nil {
		msg := fmt.Sprintf("%s asked you: %s", requester.DisplayName, text)
		for _, a := range assignees {
			if s.Notifier.Notify(ctx, a.UserID, msg) {
				notified++
			}
		}
	}
	return ask, notified, nil
}

// CompleteAssignment records that actorID finished the given assignment, then
// re-evaluates the owning ask and closes it when no open assignments remain.
//
// Both steps run inside one store transaction, which is what makes the
// closure check linearizable per ask: when the last two open assignments are
// completed concurrently, exactly one caller observes Closed == true.
//
// A missing, already-done, or foreign assignment fails with
// ErrAssignmentNotFound and leaves the row untouched.
//
// After commit, the requester is notified that the actor finished (flagging
// full completion when this call closed the ask).
func (s *AskService) CompleteAssignment(ctx context.Context, assignmentID string, actorID int64, now time.Time) (*Completion, error) {
	tr := otel.Tracer("services/AskService")
	ctx, span := tr.Start(ctx, "CompleteAssignment",
		trace.WithAttributes(
			attribute.String("assignment.id", assignmentID),
			attribute.Int64("user.id", actorID),
		),
	)
	defer span.End()

	var out Completion
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		done, err := repo.MarkAssignmentDone(ctx, tx, assignmentID, actorID, now)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrAssignmentNotFound
			}
			return err
		}
		closed, err := repo.CloseAskIfComplete(ctx, tx, done.AskID, now)
		if err != nil {
			return err
		}
		out = Completion{
			Closed:        closed,
			AskID:         done.AskID,
			RequesterID:   done.RequesterID,
			RequesterName: done.RequesterName,
			Text:          done.Text,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Notifier != nil {
		actorName := fmt.Sprintf("User %d", actorID)
		if actor, err := s.Roster.Get(ctx, actorID); err == nil {
			actorName = actor.DisplayName
		}
		msg := fmt.Sprintf("%s marked done: %s", actorName, out.Text)
		if out.Closed {
			msg += " (Ask completed!)"
		}
		s.Notifier.Notify(ctx, out.RequesterID, msg)
	}
	return &out, nil
}

// ListMyOpenAssignments returns userID's open assignments on open asks,
// most recent ask first.
func (s *AskService) ListMyOpenAssignments(ctx context.Context, userID int64) ([]repo.OpenAssignment, error) {
	tr := otel.Tracer("services/AskService")
	ctx, span := tr.Start(ctx, "ListMyOpenAssignments",
		trace.WithAttributes(attribute.Int64("user.id", userID)),
	)
	defer span.End()

	return repo.ListOpenAssignments(ctx, s.DB, userID)
}

// ListAllOpenAsks returns every open ask in chatScope with per-assignee
// statuses, a fan-out view of everyone's outstanding obligations.
func (s *AskService) ListAllOpenAsks(ctx context.Context, chatScope int64) ([]repo.OpenAsk, error) {
	tr := otel.Tracer("services/AskService")
	ctx, span := tr.Start(ctx, "ListAllOpenAsks",
		trace.WithAttributes(attribute.Int64("chat.scope", chatScope)),
	)
	defer span.End()

	return repo.ListOpenAsks(ctx, s.DB, chatScope)
}
