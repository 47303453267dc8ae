// Package access implements the authorization checks gating which chats and
// contexts may read or mutate asks.
//
// Two independent checks compose at every bot entry point:
//
//   - Chat-scope allowlist: when a configured allowlist of chat ids is
//     non-empty, updates originating from a chat outside it are silently
//     dropped with no user-visible error, so the bot's presence is not leaked.
//     An empty allowlist means unrestricted.
//
//   - Private-context restriction: ask creation and browsing require a
//     one-to-one chat between the user and the bot, because assignee
//     selection carries per-user interactive state that must not be visible
//     to other group members. Group-context attempts are redirected with an
//     instructional message, never a raw error.
//
// The web API substitutes a time-boxed signed session token for the
// private-context check (see the auth package).
package access

import "github.com/rs/zerolog/log"

// Gate evaluates chat-scope and context rules.
type Gate struct {
	allowed map[int64]struct{}

	// PrimaryChatScope, when non-zero, is the chat scope newly created
	// asks are recorded under regardless of where the creating
	// interaction happened.
	PrimaryChatScope int64
}

// NewGate builds a Gate from the configured allowlist. A nil or empty slice
// disables chat restrictions.
func NewGate(allowedChats []int64, primary int64) *Gate {
	g := &Gate{PrimaryChatScope: primary}
	if len(allowedChats) > 0 {
		g.allowed = make(map[int64]struct{}, len(allowedChats))
		for _, id := range allowedChats {
			g.allowed[id] = struct{}{}
		}
	}
	return g
}

// ChatAllowed reports whether an update from chatID may be processed at all.
// Rejections are logged and otherwise silent.
func (g *Gate) ChatAllowed(chatID int64) bool {
	if g.allowed == nil {
		return true
	}
	if _, ok := g.allowed[chatID]; ok {
		return true
	}
	log.Info().Int64("chat_id", chatID).Msg("dropping update from unlisted chat")
	return false
}

// EffectiveChatScope returns the scope to record an ask under: the primary
// chat when one is configured, otherwise the fallback (typically the
// requester's own chat).
func (g *Gate) EffectiveChatScope(fallback int64) int64 {
	if g.PrimaryChatScope != 0 {
		return g.PrimaryChatScope
	}
	return fallback
}
