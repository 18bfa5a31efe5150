package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShareState is derived from the share's timestamps and counters, never
// stored.
type ShareState string

const (
	ShareActive    ShareState = "active"
	ShareExpired   ShareState = "expired"
	ShareExhausted ShareState = "exhausted"
)

type FileShare struct {
	ID                  uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	FileID              uuid.UUID  `json:"fileId" gorm:"type:uuid;not null;index"`
	File                *File      `json:"file,omitempty" gorm:"foreignKey:FileID"`
	ShareCode           string     `json:"shareCode" gorm:"uniqueIndex;not null"`
	CreatedAt           time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	ExpiresAt           *time.Time `json:"expiresAt"`
	IsPasswordProtected bool       `json:"isPasswordProtected" gorm:"default:false"`
	PasswordHash        *string    `json:"-"`
	DownloadCount       int        `json:"downloadCount" gorm:"not null;default:0"`
	MaxDownloads        *int       `json:"maxDownloads"`
	CreatedByID         uuid.UUID  `json:"createdById" gorm:"type:uuid;not null;index"`
}

func (s *FileShare) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// State reports whether the share can still be redeemed at the given time.
// Password verification is a separate concern handled on redemption.
func (s *FileShare) State(now time.Time) ShareState {
	if s.ExpiresAt != nil && s.ExpiresAt.Before(now) {
		return ShareExpired
	}
	if s.MaxDownloads != nil && s.DownloadCount >= *s.MaxDownloads {
		return ShareExhausted
	}
	return ShareActive
}
