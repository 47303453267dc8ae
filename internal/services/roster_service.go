// Package services – RosterService
//
// This file implements the RosterService, the directory of users known to
// the bot. Users are upserted on every observed interaction (message, button
// press, web session creation); the display name is refreshed each time while
// the original registration timestamp is preserved. There is no removal path.
//
// It also hosts ResolveDisplayName, the single place where a raw chat-platform
// identity is turned into the display name stored on roster rows and snapshot
// columns.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/groupasks/askbot/internal/domain"
)

// UserRepo defines the repository contract required by RosterService.
type UserRepo interface {
	// UpsertUser inserts or refreshes a user row keyed by external id.
	UpsertUser(ctx context.Context, db *gorm.DB, userID int64, displayName string) (*domain.User, error)

	// GetUser fetches a user by external id.
	GetUser(ctx context.Context, db *gorm.DB, userID int64) (*domain.User, error)

	// ListRoster returns all registered users ordered by display name.
	ListRoster(ctx context.Context, db *gorm.DB) ([]domain.User, error)
}

// RosterService maintains the set of known users.
type RosterService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the user repository used by this service.
	Repo UserRepo
}

// NewRosterService constructs a RosterService.
func NewRosterService(db *gorm.DB, r UserRepo) *RosterService {
	return &RosterService{DB: db, Repo: r}
}

// Register inserts or updates a user by identifier, always refreshing the
// display name and preserving the original created_at on repeat registration.
func (s *RosterService) Register(ctx context.Context, userID int64, displayName string) (*domain.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = ResolveDisplayName("", "", "", userID)
	}
	return s.Repo.UpsertUser(ctx, s.DB, userID, displayName)
}

// Get returns a registered user or ErrUserNotFound.
func (s *RosterService) Get(ctx context.Context, userID int64) (*domain.User, error) {
	u, err := s.Repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// Roster returns all registered users ordered by display name.
func (s *RosterService) Roster(ctx context.Context) ([]domain.User, error) {
	return s.Repo.ListRoster(ctx, s.DB)
}

// ResolveDisplayName derives a display name from the identity fields the chat
// platform provides, in fixed priority order: "First Last", else "First",
// else "@username", else "User <id>". The derivation is deterministic so the
// bot and the web front end store the same name for the same identity.
func ResolveDisplayName(firstName, lastName, username string, userID int64) string {
	full := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
	if full != "" {
		return full
	}
	if u := strings.TrimSpace(username); u != "" {
		return "@" + u
	}
	return fmt.Sprintf("User %d", userID)
}
