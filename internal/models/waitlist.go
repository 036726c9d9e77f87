package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WaitlistEntry is one prospective user's signup. Email is stored normalized
// (trimmed, lower-cased) and is unique across the collection. The same struct
// is persisted by the SQL and the Mongo repositories.
type WaitlistEntry struct {
	ID         string     `gorm:"type:text;primaryKey" bson:"_id"`
	Email      string     `gorm:"not null;uniqueIndex:idx_waitlisters_email" bson:"email"`
	Name       string     `gorm:"not null;size:100" bson:"name"`
	Phone      *string    `gorm:"size:20" bson:"phone,omitempty"`
	Notified   bool       `gorm:"not null;default:false;index:idx_waitlisters_notified" bson:"notified"`
	NotifiedAt *time.Time `bson:"notifiedAt,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;index:idx_waitlisters_created_at,sort:desc" bson:"createdAt"`
}

func (WaitlistEntry) TableName() string {
	return "waitlisters"
}

func (w *WaitlistEntry) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return nil
}
