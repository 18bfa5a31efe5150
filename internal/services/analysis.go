package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimbusdrive/nimbus-server/internal/ai"
	"github.com/nimbusdrive/nimbus-server/internal/extract"
	"github.com/nimbusdrive/nimbus-server/internal/models"
	"github.com/nimbusdrive/nimbus-server/internal/repositories"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	// maxAnalysisInput caps the text handed to the AI provider.
	maxAnalysisInput = 8000
	// maxStoredExtract caps the raw extracted text kept on the result row.
	maxStoredExtract = 5000
)

// AnalysisService orchestrates the enrichment pipeline: blob download, text
// extraction, the AI call and idempotent persistence of the result. Any
// failure leaves the file's AI fields untouched.
type AnalysisService struct {
	db        *gorm.DB
	store     repositories.ObjectStore
	extractor extract.Extractor
	analyzer  ai.Analyzer
	logger    *zap.Logger
	group     singleflight.Group
}

func NewAnalysisService(db *gorm.DB, store repositories.ObjectStore, extractor extract.Extractor, analyzer ai.Analyzer, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		db:        db,
		store:     store,
		extractor: extractor,
		analyzer:  analyzer,
		logger:    logger,
	}
}

// Analyze runs the pipeline for a file. Unsupported document types are a
// silent no-op. Concurrent calls for the same file share one run.
func (s *AnalysisService) Analyze(ctx context.Context, fileID uuid.UUID) error {
	var file models.File
	err := s.db.WithContext(ctx).First(&file, "id = ?", fileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if !s.extractor.Supports(file.ContentType, file.Name) {
		s.logger.Debug("file type not supported for analysis, skipping",
			zap.String("file_id", fileID.String()),
			zap.String("content_type", file.ContentType),
		)
		return nil
	}

	_, err, _ = s.group.Do(fileID.String(), func() (interface{}, error) {
		return nil, s.analyze(ctx, &file)
	})
	return err
}

// Reanalyze verifies ownership first and reports success as a boolean
// instead of an error; failures are logged here.
func (s *AnalysisService) Reanalyze(ctx context.Context, fileID, owner uuid.UUID) bool {
	var file models.File
	err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", fileID, owner).First(&file).Error
	if err != nil {
		return false
	}
	if err := s.Analyze(ctx, fileID); err != nil {
		s.logger.Error("re-analysis failed",
			zap.String("file_id", fileID.String()),
			zap.Error(err),
		)
		return false
	}
	return true
}

// GetAnalysis returns the stored result for a file the requester can see.
func (s *AnalysisService) GetAnalysis(ctx context.Context, fileID, requester uuid.UUID) (*models.AnalysisResult, error) {
	var file models.File
	err := s.db.WithContext(ctx).
		Where("id = ? AND (owner_id = ? OR is_public = ?)", fileID, requester, true).
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var result models.AnalysisResult
	err = s.db.WithContext(ctx).Where("file_id = ?", fileID).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *AnalysisService) analyze(ctx context.Context, file *models.File) error {
	blob, err := s.store.Get(ctx, file.StorageKey)
	if err != nil {
		s.logger.Error("analysis: blob download failed",
			zap.String("file_id", file.ID.String()),
			zap.Error(err),
		)
		return &ExternalServiceError{Service: "object-store", Op: "get", Err: err}
	}
	defer blob.Close()

	text, err := s.extractor.Extract(blob, file.Name, file.ContentType)
	if err != nil {
		s.logger.Error("analysis: text extraction failed",
			zap.String("file_id", file.ID.String()),
			zap.Error(err),
		)
		return err
	}

	cleaned := cleanText(text)
	if cleaned == "" {
		s.logger.Debug("analysis: no text extracted, skipping",
			zap.String("file_id", file.ID.String()))
		return nil
	}

	analysis, err := s.analyzer.Analyze(ctx, truncateRunes(cleaned, maxAnalysisInput), file.Name, file.ContentType)
	if err != nil {
		s.logger.Error("analysis: AI call failed",
			zap.String("file_id", file.ID.String()),
			zap.Error(err),
		)
		return &ExternalServiceError{Service: "ai-provider", Op: "analyze", Err: err}
	}

	now := time.Now()
	tags := strings.Join(analysis.Tags, ",")
	result := models.AnalysisResult{
		FileID:           file.ID,
		Summary:          analysis.Summary,
		Category:         analysis.Category,
		Tags:             tags,
		Confidence:       analysis.Confidence,
		Language:         analysis.Language,
		AnalyzedAt:       now,
		ExtractedContent: truncateRunes(cleaned, maxStoredExtract),
	}

	// Replace, never merge: one result row per file.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", file.ID).Delete(&models.AnalysisResult{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&result).Error; err != nil {
			return err
		}
		return tx.Model(&models.File{}).Where("id = ?", file.ID).Updates(map[string]interface{}{
			"ai_summary":       analysis.Summary,
			"ai_category":      analysis.Category,
			"ai_tags":          tags,
			"last_analyzed_at": now,
		}).Error
	})
	if err != nil {
		return err
	}

	s.logger.Info("file analyzed",
		zap.String("file_id", file.ID.String()),
		zap.String("category", analysis.Category),
		zap.Float64("confidence", analysis.Confidence),
	)
	return nil
}

// cleanText collapses runs of whitespace so prompts and stored extracts stay
// dense.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
