// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model
// (the roster of group members known to the bot).
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/groupasks/askbot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// UpsertUser inserts or updates a user by their external identifier.
// DisplayName is always refreshed; CreatedAt is preserved on repeat
// registration. There is no capability to remove a user.
//
// The insert-or-update runs as one ON CONFLICT statement: the bot poller and
// the web session handler can register the same user at the same moment, and
// neither may fail on the unique index.
func UpsertUser(ctx context.Context, db *gorm.DB, userID int64, displayName string) (*domain.User, error) {
	row := domain.User{
		UserID:      userID,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"display_name": displayName}),
		}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}

	// Re-read so the caller gets the canonical row (original id and
	// created_at when the insert hit the conflict path).
	var u domain.User
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser fetches a user by their external identifier, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, userID int64) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListRoster returns all registered users ordered by display name. It returns
// an empty slice if nobody has interacted with the bot yet.
func ListRoster(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Order("display_name asc").
		Find(&out).Error
	return out, err
}

// CountUsers returns the total number of registered users.
func CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error
	return total, err
}

// Users adapts the free functions above to the repository interface expected
// by the roster service, keeping services decoupled from this package's
// function set while reusing it unchanged.
type Users struct{}

// UpsertUser proxies UpsertUser.
func (Users) UpsertUser(ctx context.Context, db *gorm.DB, userID int64, displayName string) (*domain.User, error) {
	return UpsertUser(ctx, db, userID, displayName)
}

// GetUser proxies GetUser.
func (Users) GetUser(ctx context.Context, db *gorm.DB, userID int64) (*domain.User, error) {
	return GetUser(ctx, db, userID)
}

// ListRoster proxies ListRoster.
func (Users) ListRoster(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	return ListRoster(ctx, db)
}
