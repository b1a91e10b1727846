// Package domain defines the persistence model for guestbook wishes.
// The Wish type is mapped with GORM for the relational backend and carries
// plain JSON tags so the key-value and file backends can reuse it verbatim.
package domain

import (
	"time"
)

// DefaultName is stored when a wish is submitted without a display name.
const DefaultName = "Anonymous"

// Wish is one guestbook entry. Wishes are immutable after creation; the only
// mutation the system supports is a hard delete by the admin.
//
// Fields:
//   - ID: server-assigned UUID primary key (char(36)). Opaque and content-free.
//   - Name: display name, trimmed, bounded, defaults to "Anonymous".
//   - Message: free text, trimmed, never stored empty.
//   - CreatedAt: insertion timestamp assigned by the store; the sole display
//     ordering key (descending, ties broken by ID).
type Wish struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(80);not null;default:'Anonymous'"`
	Message   string    `json:"message"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_wishes_created_at"`
}

// TableName returns the database table name for Wish.
func (Wish) TableName() string { return "wishes" }

// TypingSignal is an ephemeral presence event fanned out over the broadcast
// channel. It is never persisted; clients expire it after a short timeout if
// no follow-up arrives.
type TypingSignal struct {
	Name     string    `json:"name"`
	IsTyping bool      `json:"typing"`
	At       time.Time `json:"at"`
}
