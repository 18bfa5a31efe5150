package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimbusdrive/nimbus-server/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	shareCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	shareCodeLength   = 10
	shareCodeRetries  = 5
)

// ShareService creates and redeems expiring, password-protected,
// download-limited links to single files.
type ShareService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewShareService(db *gorm.DB, logger *zap.Logger) *ShareService {
	return &ShareService{db: db, logger: logger}
}

// CreateShareInput carries the optional constraints for a new share.
type CreateShareInput struct {
	ExpiresAt         *time.Time
	PasswordProtected bool
	Password          string
	MaxDownloads      *int
}

// CreateShare issues a share link for a file the owner holds.
func (s *ShareService) CreateShare(ctx context.Context, fileID, owner uuid.UUID, in CreateShareInput) (*models.FileShare, error) {
	var file models.File
	err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", fileID, owner).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if in.PasswordProtected && strings.TrimSpace(in.Password) == "" {
		return nil, &ValidationError{Reason: "password-protected share requires a password"}
	}

	var passwordHash *string
	if in.PasswordProtected {
		h := hashSharePassword(in.Password)
		passwordHash = &h
	}

	code, err := s.uniqueShareCode(ctx)
	if err != nil {
		return nil, err
	}

	share := models.FileShare{
		FileID:              fileID,
		ShareCode:           code,
		ExpiresAt:           in.ExpiresAt,
		IsPasswordProtected: in.PasswordProtected,
		PasswordHash:        passwordHash,
		MaxDownloads:        in.MaxDownloads,
		CreatedByID:         owner,
	}
	if err := s.db.WithContext(ctx).Create(&share).Error; err != nil {
		return nil, err
	}

	s.logger.Info("share link created",
		zap.String("share_id", share.ID.String()),
		zap.String("file_id", fileID.String()),
	)
	return &share, nil
}

// ShareInfo returns the public-facing description of a share code so a
// visitor can see what the link points at before entering a password.
// Expired and exhausted shares still resolve to ErrNotFound.
func (s *ShareService) ShareInfo(ctx context.Context, code string) (*models.FileShare, error) {
	var share models.FileShare
	err := s.db.WithContext(ctx).Preload("File").Where("share_code = ?", code).First(&share).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if share.State(time.Now()) != models.ShareActive {
		return nil, ErrNotFound
	}
	return &share, nil
}

// Redeem resolves a share code to its file, or ErrNotFound when the code is
// unknown, the share is expired or exhausted, or the password doesn't match.
// The download counter is NOT incremented here; callers do that only after
// the content was actually served, so failed transfers aren't counted.
func (s *ShareService) Redeem(ctx context.Context, code, password string) (*models.File, error) {
	var share models.FileShare
	err := s.db.WithContext(ctx).Preload("File").Where("share_code = ?", code).First(&share).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if share.State(time.Now()) != models.ShareActive {
		return nil, ErrNotFound
	}
	if share.IsPasswordProtected {
		if password == "" || share.PasswordHash == nil || !verifySharePassword(password, *share.PasswordHash) {
			return nil, ErrNotFound
		}
	}
	if share.File == nil {
		return nil, ErrNotFound
	}
	return share.File, nil
}

// IncrementDownload bumps the counter for a served download. Unknown codes
// are silently ignored.
func (s *ShareService) IncrementDownload(ctx context.Context, code string) error {
	return s.db.WithContext(ctx).Model(&models.FileShare{}).
		Where("share_code = ?", code).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
}

// DeleteShare removes a share the owner created.
func (s *ShareService) DeleteShare(ctx context.Context, shareID, owner uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND created_by_id = ?", shareID, owner).
		Delete(&models.FileShare{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListShares returns all shares the owner created, newest first.
func (s *ShareService) ListShares(ctx context.Context, owner uuid.UUID) ([]models.FileShare, error) {
	var shares []models.FileShare
	err := s.db.WithContext(ctx).Preload("File").
		Where("created_by_id = ?", owner).
		Order("created_at DESC").
		Find(&shares).Error
	return shares, err
}

// uniqueShareCode draws random codes until one is free. Collisions are
// already negligible at 62^10; the check turns negligible into verified.
func (s *ShareService) uniqueShareCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < shareCodeRetries; attempt++ {
		code, err := randomShareCode()
		if err != nil {
			return "", err
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.FileShare{}).Where("share_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique share code after %d attempts", shareCodeRetries)
}

func randomShareCode() (string, error) {
	b := make([]byte, shareCodeLength)
	max := big.NewInt(int64(len(shareCodeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = shareCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

func hashSharePassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func verifySharePassword(password, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(hashSharePassword(password)), []byte(storedHash)) == 1
}
