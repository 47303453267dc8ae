// Package notify delivers lifecycle notifications (new ask, assignee done,
// ask closed) to users as direct messages over the chat transport.
//
// Delivery is advisory: an ask is valid and durable even if zero
// notifications succeed. A user who has blocked the bot, never started a
// conversation with it, or is otherwise unreachable is an expected outcome:
// logged at info level, never surfaced to the caller, never retried, and
// never allowed to hold a store transaction open (callers dispatch after
// commit).
package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Sender is the abstract "send direct message" capability consumed from the
// chat transport, keyed by user identifier. It may fail with a
// target-unreachable condition.
type Sender interface {
	SendMessage(ctx context.Context, userID int64, text string) error
}

// Dispatcher wraps a Sender with the best-effort delivery policy.
type Dispatcher struct {
	Sender Sender
}

// NewDispatcher constructs a Dispatcher over the given transport.
func NewDispatcher(s Sender) *Dispatcher {
	return &Dispatcher{Sender: s}
}

// Notify attempts direct delivery of text to userID and reports whether it
// succeeded. Failures are logged and swallowed.
func (d *Dispatcher) Notify(ctx context.Context, userID int64, text string) bool {
	if d == nil || d.Sender == nil {
		return false
	}
	if err := d.Sender.SendMessage(ctx, userID, text); err != nil {
		log.Info().
			Int64("user_id", userID).
			Err(err).
			Msg("could not notify user")
		return false
	}
	return true
}

// Fanout attempts delivery to every target independently and returns how many
// succeeded. One failure never aborts the loop.
func (d *Dispatcher) Fanout(ctx context.Context, targets []int64, text string) int {
	delivered := 0
	for _, t := range targets {
		if d.Notify(ctx, t, text) {
			delivered++
		}
	}
	return delivered
}
