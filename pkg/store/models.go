package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence. Inbox and sent rows are keyed by
// (owner, message id) so the same message id can exist once per side.
type InboxModel struct {
	OwnerID      string         `gorm:"primaryKey"`
	ID           string         `gorm:"primaryKey"`
	Snapshot     datatypes.JSON `gorm:"type:jsonb;not null"`
	Sender       datatypes.JSON `gorm:"type:jsonb;not null"`
	Receiver     datatypes.JSON `gorm:"type:jsonb;not null"`
	Message      string
	Status       string `gorm:"not null;index"`
	Read         bool   `gorm:"not null;index"`
	OriginItemID string
	SentAt       time.Time `gorm:"not null;index"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

// SentModel deliberately has no read flag and no sender columns; those are
// scrubbed before the row is written.
type SentModel struct {
	OwnerID      string         `gorm:"primaryKey"`
	ID           string         `gorm:"primaryKey"`
	Snapshot     datatypes.JSON `gorm:"type:jsonb;not null"`
	Receiver     datatypes.JSON `gorm:"type:jsonb;not null"`
	Message      string
	OriginItemID string
	SentAt       time.Time `gorm:"not null;index"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type ReferenceModel struct {
	ID           string         `gorm:"primaryKey"`
	OwnerID      string         `gorm:"not null;index"`
	Title        string         `gorm:"not null"`
	Category     string
	Topic        string
	Authors      datatypes.JSON `gorm:"type:jsonb"`
	Abstract     string         `gorm:"type:text"`
	DOI          string
	Tags         datatypes.JSON `gorm:"type:jsonb"`
	FullTextKey  string
	InsightsKey  string
	IsFavorite   bool      `gorm:"not null"`
	IsBookmarked bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time
}

type TaskModel struct {
	ID        string `gorm:"primaryKey"`
	OwnerID   string `gorm:"not null;index"`
	Title     string `gorm:"not null"`
	Notes     string
	Done      bool      `gorm:"not null;index"`
	Deadline  time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}
