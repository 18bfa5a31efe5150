package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File is a stored object's metadata record. StorageKey references the blob
// in the object store and is independent of the display name. Name is kept
// unique within the (owner, directory) scope by the upload path.
type File struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string     `json:"name" gorm:"not null;index"`
	ContentType string     `json:"contentType"`
	Size        int64      `json:"size" gorm:"not null"`
	StorageKey  string     `json:"-" gorm:"not null"`
	OwnerID     uuid.UUID  `json:"ownerId" gorm:"type:uuid;not null;index"`
	DirectoryID *uuid.UUID `json:"directoryId" gorm:"type:uuid;index"`
	Description string     `json:"description"`
	IsPublic    bool       `json:"isPublic" gorm:"default:false"`
	UploadedAt  time.Time  `json:"uploadedAt" gorm:"autoCreateTime"`

	// Denormalized copies of the latest analysis, kept in sync by the
	// enrichment pipeline. Tags is comma-joined.
	AiSummary      string     `json:"aiSummary"`
	AiCategory     string     `json:"aiCategory"`
	AiTags         string     `json:"aiTags"`
	LastAnalyzedAt *time.Time `json:"lastAnalyzedAt"`

	Shares   []FileShare     `json:"-" gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE"`
	Analysis *AnalysisResult `json:"-" gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE"`
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
