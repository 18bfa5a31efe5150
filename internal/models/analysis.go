package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnalysisResult holds the outcome of one AI analysis run for a file. The
// pipeline replaces the previous row on re-analysis, so at most one row
// exists per file.
type AnalysisResult struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	FileID           uuid.UUID `json:"fileId" gorm:"type:uuid;not null;uniqueIndex"`
	Summary          string    `json:"summary"`
	Category         string    `json:"category"`
	Tags             string    `json:"tags"` // comma-joined
	Confidence       float64   `json:"confidence"`
	Language         string    `json:"language"`
	AnalyzedAt       time.Time `json:"analyzedAt" gorm:"autoCreateTime"`
	ExtractedContent string    `json:"-"`
}

func (a *AnalysisResult) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
