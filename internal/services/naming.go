package services

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nimbusdrive/nimbus-server/internal/models"
	"gorm.io/gorm"
)

// resolveFileName returns a display name free in the (owner, directory)
// scope. A taken base name gets a numbered suffix before the extension:
// "report.pdf" -> "report (1).pdf" -> "report (2).pdf". The loop is
// unbounded; an adversary pre-creating every suffix can keep it searching,
// which matches the accepted behavior of the upload path.
func resolveFileName(tx *gorm.DB, owner uuid.UUID, directoryID *uuid.UUID, base string) (string, error) {
	taken, err := fileNameTaken(tx, owner, directoryID, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, counter, ext)
		taken, err := fileNameTaken(tx, owner, directoryID, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
}

func fileNameTaken(tx *gorm.DB, owner uuid.UUID, directoryID *uuid.UUID, name string) (bool, error) {
	var count int64
	q := tx.Model(&models.File{}).Where("owner_id = ? AND name = ?", owner, name)
	if directoryID == nil {
		q = q.Where("directory_id IS NULL")
	} else {
		q = q.Where("directory_id = ?", *directoryID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
