// Package services defines the business logic for the ask lifecycle and the
// roster of known users. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/transport layer.
package services

import "errors"

// Validation errors surfaced verbatim to the caller.
var (
	// ErrEmptyText is returned when an ask is created with no text left
	// after trimming whitespace.
	ErrEmptyText = errors.New("ask text is empty")

	// ErrTextTooLong is returned when ask text exceeds the 1000 character
	// limit.
	ErrTextTooLong = errors.New("ask text too long")

	// ErrNoAssignees is returned when an ask would end up with zero
	// assignees (empty input, or only the requester was supplied).
	ErrNoAssignees = errors.New("at least one assignee required")

	// ErrTooManyAssignees is returned when more than the allowed number of
	// assignees are supplied.
	ErrTooManyAssignees = errors.New("too many assignees")

	// ErrUnknownAssignee is returned when an assignee identifier does not
	// belong to any registered user.
	ErrUnknownAssignee = errors.New("unknown assignee")
)

// Lookup errors. These deliberately do not distinguish "does not exist" from
// "not yours": both surface as not-found so callers cannot probe for other
// users' assignments.
var (
	// ErrAssignmentNotFound indicates that the assignment does not exist,
	// is already done, or does not belong to the acting user.
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrAskNotFound indicates that the requested ask does not exist.
	ErrAskNotFound = errors.New("ask not found")

	// ErrUserNotFound indicates that a referenced user has never
	// interacted with the bot.
	ErrUserNotFound = errors.New("user not found")
)
