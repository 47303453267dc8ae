// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/groupasks/askbot/internal/domain"
)

// OpenAsksStats returns aggregate metadata for the open asks within a chat
// scope: the total number of rows and the greatest CreatedAt among them.
// When the scope has no open asks, the returned count is 0 and maxCreatedAt
// is nil.
func OpenAsksStats(ctx context.Context, db *gorm.DB, chatScope int64) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).
		Model(&domain.Ask{}).
		Where("chat_scope = ? AND status = ?", chatScope, domain.AskStatusOpen)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

// RosterStats returns the user count and the greatest CreatedAt among
// registered users, for conditional roster responses.
func RosterStats(ctx context.Context, db *gorm.DB) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.User{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
