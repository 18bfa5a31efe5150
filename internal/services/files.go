package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimbusdrive/nimbus-server/internal/models"
	"github.com/nimbusdrive/nimbus-server/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FileService is the hierarchy engine: file and directory CRUD scoped to an
// owner, with tree-integrity and storage-accounting guarantees.
type FileService struct {
	db     *gorm.DB
	store  repositories.ObjectStore
	logger *zap.Logger
	locks  *ownerLocks
}

func NewFileService(db *gorm.DB, store repositories.ObjectStore, logger *zap.Logger) *FileService {
	return &FileService{db: db, store: store, logger: logger, locks: newOwnerLocks()}
}

// UploadInput describes one incoming file. Size must be known up front so
// the quota check can run before any blob write.
type UploadInput struct {
	Owner       uuid.UUID
	DirectoryID *uuid.UUID
	Name        string
	ContentType string
	Size        int64
	Description string
	IsPublic    bool
	Body        io.Reader
}

// SearchResult bundles matches across both entity kinds.
type SearchResult struct {
	Files       []models.File      `json:"files"`
	Directories []models.Directory `json:"directories"`
}

// ListFiles returns the owner's files directly inside directoryID (nil means
// root), newest first.
func (s *FileService) ListFiles(ctx context.Context, owner uuid.UUID, directoryID *uuid.UUID) ([]models.File, error) {
	var files []models.File
	q := s.db.WithContext(ctx).Where("owner_id = ?", owner)
	q = whereParent(q, "directory_id", directoryID)
	if err := q.Order("uploaded_at DESC").Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// ListDirectories returns the owner's directories directly under parentID
// (nil means root), alphabetical.
func (s *FileService) ListDirectories(ctx context.Context, owner uuid.UUID, parentID *uuid.UUID) ([]models.Directory, error) {
	var dirs []models.Directory
	q := s.db.WithContext(ctx).Where("owner_id = ?", owner)
	q = whereParent(q, "parent_id", parentID)
	if err := q.Order("name ASC").Find(&dirs).Error; err != nil {
		return nil, err
	}
	return dirs, nil
}

// AllFiles returns every file the owner has, across all directories, newest
// first.
func (s *FileService) AllFiles(ctx context.Context, owner uuid.UUID) ([]models.File, error) {
	var files []models.File
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("uploaded_at DESC").
		Find(&files).Error
	return files, err
}

// GetFile resolves a file visible to the requester: their own, or a public
// one.
func (s *FileService) GetFile(ctx context.Context, id, requester uuid.UUID) (*models.File, error) {
	var file models.File
	err := s.db.WithContext(ctx).
		Where("id = ? AND (owner_id = ? OR is_public = ?)", id, requester, true).
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// GetDirectory resolves a directory visible to the requester.
func (s *FileService) GetDirectory(ctx context.Context, id, requester uuid.UUID) (*models.Directory, error) {
	var dir models.Directory
	err := s.db.WithContext(ctx).
		Where("id = ? AND (owner_id = ? OR is_public = ?)", id, requester, true).
		First(&dir).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dir, nil
}

// CreateDirectory inserts a new node. Duplicate names among siblings are
// permitted; only blank names are rejected.
func (s *FileService) CreateDirectory(ctx context.Context, name string, owner uuid.UUID, parentID *uuid.UUID) (*models.Directory, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Reason: "directory name must not be blank"}
	}
	if parentID != nil {
		if _, err := s.ownedDirectory(ctx, *parentID, owner); err != nil {
			return nil, err
		}
	}
	dir := models.Directory{Name: name, OwnerID: owner, ParentID: parentID}
	if err := s.db.WithContext(ctx).Create(&dir).Error; err != nil {
		return nil, err
	}
	s.logger.Info("directory created",
		zap.String("directory_id", dir.ID.String()),
		zap.String("owner_id", owner.String()),
	)
	return &dir, nil
}

// RenameFile updates the display name in place. The storage key is
// untouched.
func (s *FileService) RenameFile(ctx context.Context, id uuid.UUID, newName string, owner uuid.UUID) error {
	if strings.TrimSpace(newName) == "" {
		return &ValidationError{Reason: "file name must not be blank"}
	}
	res := s.db.WithContext(ctx).Model(&models.File{}).
		Where("id = ? AND owner_id = ?", id, owner).
		Update("name", newName)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *FileService) RenameDirectory(ctx context.Context, id uuid.UUID, newName string, owner uuid.UUID) error {
	if strings.TrimSpace(newName) == "" {
		return &ValidationError{Reason: "directory name must not be blank"}
	}
	res := s.db.WithContext(ctx).Model(&models.Directory{}).
		Where("id = ? AND owner_id = ?", id, owner).
		Update("name", newName)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Upload stores a blob and records its metadata. Order matters: quota check,
// then blob write, then record insert plus quota charge. A blob failure
// aborts with no record and no charge.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (*models.File, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, &ValidationError{Reason: "file name must not be blank"}
	}
	if in.DirectoryID != nil {
		if _, err := s.ownedDirectory(ctx, *in.DirectoryID, in.Owner); err != nil {
			return nil, err
		}
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", in.Owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if user.StorageUsed+in.Size > user.StorageLimit {
		return nil, &QuotaExceededError{Used: user.StorageUsed, Limit: user.StorageLimit, Requested: in.Size}
	}

	name, err := resolveFileName(s.db.WithContext(ctx), in.Owner, in.DirectoryID, in.Name)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s_%s", in.Owner, uuid.New(), name)
	if err := s.store.Put(ctx, key, in.Body, in.Size, in.ContentType); err != nil {
		return nil, &ExternalServiceError{Service: "object-store", Op: "put", Err: err}
	}

	file := models.File{
		Name:        name,
		ContentType: in.ContentType,
		Size:        in.Size,
		StorageKey:  key,
		OwnerID:     in.Owner,
		DirectoryID: in.DirectoryID,
		Description: in.Description,
		IsPublic:    in.IsPublic,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&file).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", in.Owner).
			UpdateColumn("storage_used", gorm.Expr("storage_used + ?", in.Size)).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("file uploaded",
		zap.String("file_id", file.ID.String()),
		zap.String("owner_id", in.Owner.String()),
		zap.Int64("size", in.Size),
	)
	return &file, nil
}

// DeleteFile removes the blob (best effort), reclaims quota and drops the
// record along with its shares and analysis result.
func (s *FileService) DeleteFile(ctx context.Context, id, owner uuid.UUID) error {
	var file models.File
	err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, owner).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return s.removeFile(ctx, &file)
}

func (s *FileService) removeFile(ctx context.Context, file *models.File) error {
	// A failed blob delete must not block the metadata delete; storage drift
	// is reconciled out of band.
	if err := s.store.Delete(ctx, file.StorageKey); err != nil {
		s.logger.Warn("blob delete failed, continuing with metadata delete",
			zap.String("storage_key", file.StorageKey),
			zap.Error(err),
		)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.User{}).
			Where("id = ?", file.OwnerID).
			UpdateColumn("storage_used",
				gorm.Expr("CASE WHEN storage_used >= ? THEN storage_used - ? ELSE 0 END", file.Size, file.Size)).Error
		if err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", file.ID).Delete(&models.FileShare{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", file.ID).Delete(&models.AnalysisResult{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.File{}, "id = ?", file.ID).Error
	})
}

// DeleteDirectory removes the directory and everything below it:
// subdirectories depth-first, then the files directly inside, then the
// directory itself.
func (s *FileService) DeleteDirectory(ctx context.Context, id, owner uuid.UUID) error {
	mu := s.locks.forOwner(owner)
	mu.Lock()
	defer mu.Unlock()
	return s.deleteDirectoryTree(ctx, id, owner)
}

func (s *FileService) deleteDirectoryTree(ctx context.Context, id, owner uuid.UUID) error {
	var dir models.Directory
	err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, owner).First(&dir).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var subdirs []models.Directory
	if err := s.db.WithContext(ctx).Where("parent_id = ? AND owner_id = ?", id, owner).Find(&subdirs).Error; err != nil {
		return err
	}
	for _, sub := range subdirs {
		if err := s.deleteDirectoryTree(ctx, sub.ID, owner); err != nil {
			return err
		}
	}

	var files []models.File
	if err := s.db.WithContext(ctx).Where("directory_id = ? AND owner_id = ?", id, owner).Find(&files).Error; err != nil {
		return err
	}
	for i := range files {
		if err := s.removeFile(ctx, &files[i]); err != nil {
			return err
		}
	}

	return s.db.WithContext(ctx).Delete(&models.Directory{}, "id = ?", id).Error
}

// MoveFile reparents a file. The target directory, when set, must resolve to
// one the owner holds.
func (s *FileService) MoveFile(ctx context.Context, id uuid.UUID, targetDirectoryID *uuid.UUID, owner uuid.UUID) error {
	var file models.File
	err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, owner).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if targetDirectoryID != nil {
		if _, err := s.ownedDirectory(ctx, *targetDirectoryID, owner); err != nil {
			return err
		}
	}
	return s.db.WithContext(ctx).Model(&file).Update("directory_id", targetDirectoryID).Error
}

// MoveDirectory reparents a directory after walking the target's ancestor
// chain to rule out a cycle. The walk stops at root or at the first missing
// ancestor, tolerating a sparse or concurrently mutated tree.
func (s *FileService) MoveDirectory(ctx context.Context, id uuid.UUID, targetParentID *uuid.UUID, owner uuid.UUID) error {
	mu := s.locks.forOwner(owner)
	mu.Lock()
	defer mu.Unlock()

	var dir models.Directory
	err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, owner).First(&dir).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if targetParentID != nil {
		target, err := s.ownedDirectory(ctx, *targetParentID, owner)
		if err != nil {
			return err
		}
		cur := target
		for {
			if cur.ID == id {
				return ErrCycle
			}
			if cur.ParentID == nil {
				break
			}
			var parent models.Directory
			err := s.db.WithContext(ctx).Where("id = ?", *cur.ParentID).First(&parent).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			if err != nil {
				return err
			}
			cur = &parent
		}
	}

	return s.db.WithContext(ctx).Model(&dir).Update("parent_id", targetParentID).Error
}

// BatchDelete applies single-item deletes independently and tallies the
// outcomes. One failure never aborts the rest.
func (s *FileService) BatchDelete(ctx context.Context, fileIDs, directoryIDs []uuid.UUID, owner uuid.UUID) (successCount, failCount int) {
	for _, id := range fileIDs {
		if err := s.DeleteFile(ctx, id, owner); err != nil {
			s.logger.Debug("batch delete: file skipped", zap.String("file_id", id.String()), zap.Error(err))
			failCount++
		} else {
			successCount++
		}
	}
	for _, id := range directoryIDs {
		if err := s.DeleteDirectory(ctx, id, owner); err != nil {
			s.logger.Debug("batch delete: directory skipped", zap.String("directory_id", id.String()), zap.Error(err))
			failCount++
		} else {
			successCount++
		}
	}
	return successCount, failCount
}

// BatchMove applies single-item moves independently. A directory equal to
// the target counts as a failure without touching the tree.
func (s *FileService) BatchMove(ctx context.Context, fileIDs, directoryIDs []uuid.UUID, targetID *uuid.UUID, owner uuid.UUID) (successCount, failCount int) {
	if targetID != nil {
		if _, err := s.ownedDirectory(ctx, *targetID, owner); err != nil {
			return 0, len(fileIDs) + len(directoryIDs)
		}
	}
	for _, id := range fileIDs {
		if err := s.MoveFile(ctx, id, targetID, owner); err != nil {
			failCount++
		} else {
			successCount++
		}
	}
	for _, id := range directoryIDs {
		if targetID != nil && *targetID == id {
			failCount++
			continue
		}
		if err := s.MoveDirectory(ctx, id, targetID, owner); err != nil {
			failCount++
		} else {
			successCount++
		}
	}
	return successCount, failCount
}

// Search does a case-insensitive substring match over file names and
// descriptions and directory names, scoped to the owner.
func (s *FileService) Search(ctx context.Context, term string, owner uuid.UUID) (*SearchResult, error) {
	like := "%" + strings.ToLower(term) + "%"
	result := &SearchResult{}

	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", owner, like, like).
		Order("uploaded_at DESC").
		Find(&result.Files).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Where("owner_id = ? AND LOWER(name) LIKE ?", owner, like).
		Order("name ASC").
		Find(&result.Directories).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PresignDownload returns a temporary URL for a file visible to the
// requester.
func (s *FileService) PresignDownload(ctx context.Context, id, requester uuid.UUID, expires time.Duration) (string, *models.File, error) {
	file, err := s.GetFile(ctx, id, requester)
	if err != nil {
		return "", nil, err
	}
	url, err := s.store.PresignGet(ctx, file.StorageKey, expires)
	if err != nil {
		return "", nil, &ExternalServiceError{Service: "object-store", Op: "presign", Err: err}
	}
	return url, file, nil
}

// PresignFor returns a temporary URL for a file the caller already holds.
// Redeemed share links use this path, where the visitor isn't the owner.
func (s *FileService) PresignFor(ctx context.Context, file *models.File, expires time.Duration) (string, error) {
	url, err := s.store.PresignGet(ctx, file.StorageKey, expires)
	if err != nil {
		return "", &ExternalServiceError{Service: "object-store", Op: "presign", Err: err}
	}
	return url, nil
}

// StorageUsage reports the owner's byte accounting.
func (s *FileService) StorageUsage(ctx context.Context, owner uuid.UUID) (used, limit int64, err error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, ErrNotFound
		}
		return 0, 0, err
	}
	return user.StorageUsed, user.StorageLimit, nil
}

func (s *FileService) ownedDirectory(ctx context.Context, id, owner uuid.UUID) (*models.Directory, error) {
	var dir models.Directory
	err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, owner).First(&dir).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dir, nil
}

func whereParent(q *gorm.DB, column string, id *uuid.UUID) *gorm.DB {
	if id == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *id)
}
