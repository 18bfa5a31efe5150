package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimbusdrive/nimbus-server/internal/models"
	"github.com/nimbusdrive/nimbus-server/internal/repositories"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Each test gets its own named in-memory database; cache=shared keeps it
	// alive across the pool's connections.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, limit int64) *models.User {
	t.Helper()
	user := &models.User{
		Username:     "u-" + uuid.NewString()[:8],
		Email:        uuid.NewString()[:8] + "@example.com",
		Password:     "irrelevant",
		StorageLimit: limit,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// memStore is an in-memory ObjectStore that records every call so tests can
// assert on write ordering.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	deletes int

	failPut    error
	failDelete error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut != nil {
		return m.failPut
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.puts++
	return nil
}

func (m *memStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key: " + key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return m.failDelete
	}
	delete(m.objects, key)
	m.deletes++
	return nil
}

func (m *memStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://store.test/get/" + key, nil
}

func (m *memStore) PresignPut(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://store.test/put/" + key, nil
}

func (m *memStore) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

var _ repositories.ObjectStore = (*memStore)(nil)

func newTestFileService(t *testing.T) (*FileService, *gorm.DB, *memStore) {
	t.Helper()
	db := newTestDB(t)
	store := newMemStore()
	return NewFileService(db, store, zap.NewNop()), db, store
}

func uploadNamed(t *testing.T, svc *FileService, owner uuid.UUID, dir *uuid.UUID, name string, size int64) *models.File {
	t.Helper()
	file, err := svc.Upload(context.Background(), UploadInput{
		Owner:       owner,
		DirectoryID: dir,
		Name:        name,
		ContentType: "text/plain",
		Size:        size,
		Body:        strings.NewReader(strings.Repeat("x", int(size))),
	})
	require.NoError(t, err)
	return file
}

func storageUsed(t *testing.T, db *gorm.DB, owner uuid.UUID) int64 {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, "id = ?", owner).Error)
	return user.StorageUsed
}

func countRows[T any](t *testing.T, db *gorm.DB, cond string, args ...any) int64 {
	t.Helper()
	var model T
	var n int64
	q := db.Model(&model)
	if cond != "" {
		q = q.Where(cond, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
