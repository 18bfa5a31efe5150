package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimbusdrive/nimbus-server/internal/api/middleware"
	"github.com/nimbusdrive/nimbus-server/internal/models"
	"github.com/nimbusdrive/nimbus-server/internal/repositories"
	"github.com/nimbusdrive/nimbus-server/internal/services"
	"github.com/nimbusdrive/nimbus-server/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (f *fakeStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.objects[key] = data
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return io.NopCloser(bytes.NewReader(f.objects[key])), nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error { return nil }

func (f *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStore) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://store.test/" + key, nil
}

func (f *fakeStore) PresignPut(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://store.test/" + key, nil
}

var _ repositories.ObjectStore = (*fakeStore)(nil)

type shareFixture struct {
	handler *ShareHandler
	files   *services.FileService
	shares  *services.ShareService
	db      *gorm.DB
	owner   uuid.UUID
	file    *models.File
}

func newShareFixture(t *testing.T) *shareFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))

	user := &models.User{
		Username:     "owner",
		Email:        "owner@example.com",
		Password:     "irrelevant",
		StorageLimit: 1 << 30,
	}
	require.NoError(t, db.Create(user).Error)

	logger := zap.NewNop()
	files := services.NewFileService(db, newFakeStore(), logger)
	shares := services.NewShareService(db, logger)

	file, err := files.Upload(context.Background(), services.UploadInput{
		Owner:       user.ID,
		Name:        "handbook.pdf",
		ContentType: "application/pdf",
		Size:        9,
		Body:        strings.NewReader("%PDF-1.4\n"),
	})
	require.NoError(t, err)

	return &shareFixture{
		handler: NewShareHandler(shares, files, logger),
		files:   files,
		shares:  shares,
		db:      db,
		owner:   user.ID,
		file:    file,
	}
}

func decodePayload(t *testing.T, rec *httptest.ResponseRecorder) utils.Payload {
	t.Helper()
	var payload utils.Payload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestShareCreateAndPublicDownload(t *testing.T) {
	fx := newShareFixture(t)

	body := fmt.Sprintf(`{"fileId":%q,"passwordProtected":true,"password":"letmein"}`, fx.file.ID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shares", strings.NewReader(body))
	req = req.WithContext(middleware.WithOwner(req.Context(), fx.owner))
	rec := httptest.NewRecorder()
	fx.handler.Create(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var share models.FileShare
	require.NoError(t, fx.db.First(&share, "file_id = ?", fx.file.ID).Error)

	// Metadata lookup needs no session and no password.
	req = httptest.NewRequest(http.MethodGet, "/share/"+share.ShareCode, nil)
	req.SetPathValue("code", share.ShareCode)
	rec = httptest.NewRecorder()
	fx.handler.Info(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodePayload(t, rec)
	data := payload.Data.(map[string]any)
	assert.Equal(t, "handbook.pdf", data["fileName"])
	assert.Equal(t, true, data["isPasswordProtected"])

	// Download with the wrong password stays a 404.
	req = httptest.NewRequest(http.MethodPost, "/share/"+share.ShareCode+"/download",
		strings.NewReader(`{"password":"wrong"}`))
	req.SetPathValue("code", share.ShareCode)
	rec = httptest.NewRecorder()
	fx.handler.Download(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// And the counter is untouched by the failure.
	require.NoError(t, fx.db.First(&share, "id = ?", share.ID).Error)
	assert.Equal(t, 0, share.DownloadCount)

	// The right password yields a URL and counts the download.
	req = httptest.NewRequest(http.MethodPost, "/share/"+share.ShareCode+"/download",
		strings.NewReader(`{"password":"letmein"}`))
	req.SetPathValue("code", share.ShareCode)
	rec = httptest.NewRecorder()
	fx.handler.Download(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	payload = decodePayload(t, rec)
	data = payload.Data.(map[string]any)
	assert.Contains(t, data["url"], "https://store.test/")

	require.NoError(t, fx.db.First(&share, "id = ?", share.ID).Error)
	assert.Equal(t, 1, share.DownloadCount)
}

func TestShareCreateRejectsMissingFileID(t *testing.T) {
	fx := newShareFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/shares", strings.NewReader(`{}`))
	req = req.WithContext(middleware.WithOwner(req.Context(), fx.owner))
	rec := httptest.NewRecorder()
	fx.handler.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShareInfoUnknownCode(t *testing.T) {
	fx := newShareFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/share/doesnotexist", nil)
	req.SetPathValue("code", "doesnotexist")
	rec := httptest.NewRecorder()
	fx.handler.Info(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShareDownloadUnprotectedNeedsNoBody(t *testing.T) {
	fx := newShareFixture(t)

	share, err := fx.shares.CreateShare(context.Background(), fx.file.ID, fx.owner, services.CreateShareInput{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/share/"+share.ShareCode+"/download", nil)
	req.SetPathValue("code", share.ShareCode)
	rec := httptest.NewRecorder()
	fx.handler.Download(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
