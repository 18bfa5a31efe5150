package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/nimbusdrive/nimbus-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadResolvesNameCollisions(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	user := newTestUser(t, svc.db, 1<<30)

	first := uploadNamed(t, svc, user.ID, nil, "report.pdf", 10)
	second := uploadNamed(t, svc, user.ID, nil, "report.pdf", 10)
	third := uploadNamed(t, svc, user.ID, nil, "report.pdf", 10)

	assert.Equal(t, "report.pdf", first.Name)
	assert.Equal(t, "report (1).pdf", second.Name)
	assert.Equal(t, "report (2).pdf", third.Name)
}

func TestUploadSameNameDifferentDirectories(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	user := newTestUser(t, svc.db, 1<<30)

	dir, err := svc.CreateDirectory(context.Background(), "docs", user.ID, nil)
	require.NoError(t, err)

	inRoot := uploadNamed(t, svc, user.ID, nil, "notes.txt", 5)
	inDir := uploadNamed(t, svc, user.ID, &dir.ID, "notes.txt", 5)

	assert.Equal(t, "notes.txt", inRoot.Name)
	assert.Equal(t, "notes.txt", inDir.Name)
}

func TestUploadChargesQuota(t *testing.T) {
	svc, db, _ := newTestFileService(t)
	user := newTestUser(t, db, 1<<30)

	uploadNamed(t, svc, user.ID, nil, "a.bin", 100)
	uploadNamed(t, svc, user.ID, nil, "b.bin", 250)

	assert.Equal(t, int64(350), storageUsed(t, db, user.ID))
}

func TestUploadRefusedBeforeBlobWrite(t *testing.T) {
	svc, db, store := newTestFileService(t)
	user := newTestUser(t, db, 100)

	_, err := svc.Upload(context.Background(), UploadInput{
		Owner: user.ID,
		Name:  "big.bin",
		Size:  101,
	})

	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, int64(100), quotaErr.Limit)
	// The blob store must not have been touched.
	assert.Equal(t, 0, store.putCount())
	assert.Equal(t, int64(0), storageUsed(t, db, user.ID))
}

func TestUploadExactlyAtLimit(t *testing.T) {
	svc, db, _ := newTestFileService(t)
	user := newTestUser(t, db, 100)

	uploadNamed(t, svc, user.ID, nil, "fits.bin", 100)
	assert.Equal(t, int64(100), storageUsed(t, db, user.ID))

	_, err := svc.Upload(context.Background(), UploadInput{Owner: user.ID, Name: "more.bin", Size: 1})
	var quotaErr *QuotaExceededError
	assert.ErrorAs(t, err, &quotaErr)
}

func TestUploadBlobFailureLeavesNoRecord(t *testing.T) {
	svc, db, store := newTestFileService(t)
	user := newTestUser(t, db, 1<<30)
	store.failPut = errors.New("bucket unavailable")

	_, err := svc.Upload(context.Background(), UploadInput{Owner: user.ID, Name: "x.txt", Size: 1})

	var extErr *ExternalServiceError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, int64(0), countRows[models.File](t, db, "owner_id = ?", user.ID))
	assert.Equal(t, int64(0), storageUsed(t, db, user.ID))
}

func TestDeleteFileReclaimsQuota(t *testing.T) {
	svc, db, store := newTestFileService(t)
	user := newTestUser(t, db, 1<<30)

	file := uploadNamed(t, svc, user.ID, nil, "gone.bin", 500)
	require.NoError(t, svc.DeleteFile(context.Background(), file.ID, user.ID))

	assert.Equal(t, int64(0), storageUsed(t, db, user.ID))
	exists, _ := store.Exists(context.Background(), file.StorageKey)
	assert.False(t, exists)
}

func TestDeleteFileSurvivesBlobFailure(t *testing.T) {
	svc, db, store := newTestFileService(t)
	user := newTestUser(t, db, 1<<30)

	file := uploadNamed(t, svc, user.ID, nil, "stuck.bin", 50)
	store.failDelete = errors.New("connection reset")

	require.NoError(t, svc.DeleteFile(context.Background(), file.ID, user.ID))
	assert.Equal(t, int64(0), countRows[models.File](t, db, "id = ?", file.ID))
	assert.Equal(t, int64(0), storageUsed(t, db, user.ID))
}

func TestQuotaDecrementClampsAtZero(t *testing.T) {
	svc, db, _ := newTestFileService(t)
	user := newTestUser(t, db, 1<<30)

	file := uploadNamed(t, svc, user.ID, nil, "drifted.bin", 100)
	// Simulate accounting drift: the counter reads lower than the file size.
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).
		UpdateColumn("storage_used", 40).Error)

	require.NoError(t, svc.DeleteFile(context.Background(), file.ID, user.ID))
	assert.Equal(t, int64(0), storageUsed(t, db, user.ID))
}

func TestDeleteDirectoryRemovesSubtree(t *testing.T) {
	svc, db, _ := newTestFileService(t)
	user := newTestUser(t, db, 1<<30)
	ctx := context.Background()

	root, err := svc.CreateDirectory(ctx, "root", user.ID, nil)
	require.NoError(t, err)
	child, err := svc.CreateDirectory(ctx, "child", user.ID, &root.ID)
	require.NoError(t, err)
	grandchild, err := svc.CreateDirectory(ctx, "grandchild", user.ID, &child.ID)
	require.NoError(t, err)

	uploadNamed(t, svc, user.ID, &root.ID, "a.txt", 10)
	uploadNamed(t, svc, user.ID, &child.ID, "b.txt", 20)
	uploadNamed(t, svc, user.ID, &grandchild.ID, "c.txt", 30)
	outside := uploadNamed(t, svc, user.ID, nil, "keep.txt", 5)

	require.NoError(t, svc.DeleteDirectory(ctx, root.ID, user.ID))

	assert.Equal(t, int64(0), countRows[models.Directory](t, db, "owner_id = ?", user.ID))
	assert.Equal(t, int64(1), countRows[models.File](t, db, "owner_id = ?", user.ID))
	assert.Equal(t, int64(5), storageUsed(t, db, user.ID))

	kept, err := svc.GetFile(ctx, outside.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep.txt", kept.Name)
}

func TestMoveDirectoryIntoItselfRejected(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	user := newTestUser(t, svc.db, 1<<30)
	ctx := context.Background()

	dir, err := svc.CreateDirectory(ctx, "loop", user.ID, nil)
	require.NoError(t, err)

	err = svc.MoveDirectory(ctx, dir.ID, &dir.ID, user.ID)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestMoveDirectoryIntoDescendantRejected(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	user := newTestUser(t, svc.db, 1<<30)
	ctx := context.Background()

	a, err := svc.CreateDirectory(ctx, "a", user.ID, nil)
	require.NoError(t, err)
	b, err := svc.CreateDirectory(ctx, "b", user.ID, &a.ID)
	require.NoError(t, err)
	c, err := svc.CreateDirectory(ctx, "c", user.ID, &b.ID)
	require.NoError(t, err)

	err = svc.MoveDirectory(ctx, a.ID, &c.ID, user.ID)
	assert.ErrorIs(t, err, ErrCycle)

	// The legal direction still works.
	require.NoError(t, svc.MoveDirectory(ctx, c.ID, nil, user.ID))
	moved, err := svc.GetDirectory(ctx, c.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)
}

func TestMoveFileToRootAndBack(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	user := newTestUser(t, svc.db, 1<<30)
	ctx := context.Background()

	dir, err := svc.CreateDirectory(ctx, "inbox", user.ID, nil)
	require.NoError(t, err)
	file := uploadNamed(t, svc, user.ID, &dir.ID, "memo.txt", 1)

	require.NoError(t, svc.MoveFile(ctx, file.ID, nil, user.ID))
	got, err := svc.GetFile(ctx, file.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DirectoryID)

	require.NoError(t, svc.MoveFile(ctx, file.ID, &dir.ID, user.ID))
	got, err = svc.GetFile(ctx, file.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DirectoryID)
	assert.Equal(t, dir.ID, *got.DirectoryID)
}

func TestMoveFileToForeignDirectoryRejected(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	owner := newTestUser(t, svc.db, 1<<30)
	other := newTestUser(t, svc.db, 1<<30)
	ctx := context.Background()

	theirs, err := svc.CreateDirectory(ctx, "theirs", other.ID, nil)
	require.NoError(t, err)
	file := uploadNamed(t, svc, owner.ID, nil, "mine.txt", 1)

	err = svc.MoveFile(ctx, file.ID, &theirs.ID, owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBatchDeleteTalliesPerItem(t *testing.T) {
	svc, db, _ := newTestFileService(t)
	user := newTestUser(t, db, 1<<30)
	ctx := context.Background()

	file := uploadNamed(t, svc, user.ID, nil, "real.txt", 1)
	missing := uuid.New()

	success, fail := svc.BatchDelete(ctx, []uuid.UUID{file.ID, missing}, nil, user.ID)
	assert.Equal(t, 1, success)
	assert.Equal(t, 1, fail)
	assert.Equal(t, int64(0), countRows[models.File](t, db, "owner_id = ?", user.ID))
}

func TestBatchMoveUnknownTargetFailsAll(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	user := newTestUser(t, svc.db, 1<<30)
	ctx := context.Background()

	f1 := uploadNamed(t, svc, user.ID, nil, "one.txt", 1)
	f2 := uploadNamed(t, svc, user.ID, nil, "two.txt", 1)
	bogus := uuid.New()

	success, fail := svc.BatchMove(ctx, []uuid.UUID{f1.ID, f2.ID}, nil, &bogus, user.ID)
	assert.Equal(t, 0, success)
	assert.Equal(t, 2, fail)
}

func TestBatchMoveSkipsDirectoryEqualToTarget(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	user := newTestUser(t, svc.db, 1<<30)
	ctx := context.Background()

	target, err := svc.CreateDirectory(ctx, "target", user.ID, nil)
	require.NoError(t, err)
	other, err := svc.CreateDirectory(ctx, "other", user.ID, nil)
	require.NoError(t, err)

	success, fail := svc.BatchMove(ctx, nil, []uuid.UUID{target.ID, other.ID}, &target.ID, user.ID)
	assert.Equal(t, 1, success)
	assert.Equal(t, 1, fail)

	moved, err := svc.GetDirectory(ctx, other.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, target.ID, *moved.ParentID)
}

func TestRenameValidation(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	user := newTestUser(t, svc.db, 1<<30)
	ctx := context.Background()

	file := uploadNamed(t, svc, user.ID, nil, "old.txt", 1)

	var vErr *ValidationError
	assert.ErrorAs(t, svc.RenameFile(ctx, file.ID, "   ", user.ID), &vErr)
	assert.ErrorIs(t, svc.RenameFile(ctx, uuid.New(), "new.txt", user.ID), ErrNotFound)

	require.NoError(t, svc.RenameFile(ctx, file.ID, "new.txt", user.ID))
	got, err := svc.GetFile(ctx, file.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new.txt", got.Name)
	assert.Equal(t, file.StorageKey, got.StorageKey)
}

func TestOwnershipConflatedWithAbsence(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	owner := newTestUser(t, svc.db, 1<<30)
	stranger := newTestUser(t, svc.db, 1<<30)
	ctx := context.Background()

	file := uploadNamed(t, svc, owner.ID, nil, "private.txt", 1)

	_, err := svc.GetFile(ctx, file.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteFile(ctx, file.ID, stranger.ID), ErrNotFound)
}

func TestPublicFileVisibleToStranger(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	owner := newTestUser(t, svc.db, 1<<30)
	stranger := newTestUser(t, svc.db, 1<<30)
	ctx := context.Background()

	pub := uploadNamed(t, svc, owner.ID, nil, "public.txt", 4)
	require.NoError(t, svc.db.Model(&models.File{}).Where("id = ?", pub.ID).
		UpdateColumn("is_public", true).Error)

	got, err := svc.GetFile(ctx, pub.ID, stranger.ID)
	require.NoError(t, err)
	assert.Equal(t, "public.txt", got.Name)
}

func TestSearchMatchesNamesAndDescriptions(t *testing.T) {
	svc, db, _ := newTestFileService(t)
	user := newTestUser(t, db, 1<<30)
	ctx := context.Background()

	uploadNamed(t, svc, user.ID, nil, "Quarterly Report.pdf", 1)
	plain := uploadNamed(t, svc, user.ID, nil, "misc.bin", 1)
	require.NoError(t, db.Model(&models.File{}).Where("id = ?", plain.ID).
		UpdateColumn("description", "the quarterly numbers").Error)
	_, err := svc.CreateDirectory(ctx, "Reports 2026", user.ID, nil)
	require.NoError(t, err)

	result, err := svc.Search(ctx, "QUARTER", user.ID)
	require.NoError(t, err)
	assert.Len(t, result.Files, 2)
	assert.Len(t, result.Directories, 0)

	result, err = svc.Search(ctx, "report", user.ID)
	require.NoError(t, err)
	assert.Len(t, result.Files, 1)
	assert.Len(t, result.Directories, 1)
}
