// Package domain defines the persistence models for users, asks, and
// per-assignee completion records. These types are mapped with GORM and
// form the core data layer of the askbot application.
package domain

import "time"

// Ask status values. An ask is open until every assignee has confirmed
// completion, at which point it transitions to closed exactly once.
const (
	AskStatusOpen   = "open"
	AskStatusClosed = "closed"
)

// Assignee status values. Each assignment transitions open → done at most
// once; there is no un-done path.
const (
	AssigneeStatusOpen = "open"
	AssigneeStatusDone = "done"
)

// User is a member of the group known to the bot. Identity is externally
// issued (Telegram user id or web session); the system never generates it.
// Users are upserted on every observed interaction: DisplayName may change
// across upserts, UserID never does. There is no deletion path.
type User struct {
	ID          uint      `json:"-"            gorm:"primaryKey"`
	UserID      int64     `json:"user_id"      gorm:"not null;uniqueIndex:ux_users_user_id"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(255);not null"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Ask is a request from one user to one or more other users, tracked until
// every assignee confirms completion.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - ChatScope: the conversational context the ask is visible within.
//   - RequesterID / RequesterName: who asked. RequesterName is a snapshot
//     taken at creation time, not a live join; later renames do not alter
//     historic asks.
//   - Text: the request body, 1–1000 characters after trimming.
//   - Status: "open" or "closed" (enforced by DB constraint).
//   - ClosedAt: set iff Status is "closed".
type Ask struct {
	ID            string     `json:"id"             gorm:"type:char(36);primaryKey"`
	ChatScope     int64      `json:"chat_scope"     gorm:"not null;index:idx_asks_chat_status,priority:1"`
	RequesterID   int64      `json:"requester_id"   gorm:"not null;index"`
	RequesterName string     `json:"requester_name" gorm:"type:varchar(255);not null"`
	Text          string     `json:"text"           gorm:"type:text;not null"`
	Status        string     `json:"status"         gorm:"type:varchar(16);not null;check:status IN ('open','closed');index:idx_asks_chat_status,priority:2"`
	CreatedAt     time.Time  `json:"created_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

// TableName returns the database table name for Ask.
func (Ask) TableName() string { return "asks" }

// AskAssignee is one assignee's tracked obligation within an Ask. There is
// exactly one row per (ask, assignee) pair; an ask with assignees {A, B}
// has exactly two rows. AssigneeName is a creation-time snapshot, matching
// RequesterName semantics on Ask. Position records the order the requester
// picked assignees in; list views sort by it, since random UUID ids carry
// no insertion order.
//
// Invariant: DoneAt is set iff Status is "done". The owning Ask is closed
// iff every one of its AskAssignee rows is done; this is re-evaluated after
// every done-transition, not merely at creation.
type AskAssignee struct {
	ID           string     `json:"id"            gorm:"type:char(36);primaryKey"`
	AskID        string     `json:"ask_id"        gorm:"type:char(36);not null;index"`
	AssigneeID   int64      `json:"assignee_id"   gorm:"not null;index:idx_assignees_user_status,priority:1"`
	AssigneeName string     `json:"assignee_name" gorm:"type:varchar(255);not null"`
	Position     int        `json:"position"      gorm:"not null;default:0"`
	Status       string     `json:"status"        gorm:"type:varchar(16);not null;check:status IN ('open','done');index:idx_assignees_user_status,priority:2"`
	DoneAt       *time.Time `json:"done_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`

	// Ask is the owning request. Assignee rows are cascade-deleted if
	// their ask is removed.
	Ask Ask `json:"-" gorm:"foreignKey:AskID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for AskAssignee.
func (AskAssignee) TableName() string { return "ask_assignees" }
