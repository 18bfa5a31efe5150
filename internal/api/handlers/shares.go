package handlers

import (
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/nimbusdrive/nimbus-server/internal/api/middleware"
	"github.com/nimbusdrive/nimbus-server/internal/services"
	"github.com/nimbusdrive/nimbus-server/internal/utils"
	"go.uber.org/zap"
)

type ShareHandler struct {
	shares *services.ShareService
	files  *services.FileService
	logger *zap.Logger
}

func NewShareHandler(shares *services.ShareService, files *services.FileService, logger *zap.Logger) *ShareHandler {
	return &ShareHandler{shares: shares, files: files, logger: logger}
}

type createShareInput struct {
	FileID            string     `json:"fileId"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
	PasswordProtected bool       `json:"passwordProtected"`
	Password          string     `json:"password,omitempty"`
	MaxDownloads      *int       `json:"maxDownloads,omitempty"`
}

func (in createShareInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FileID, validation.Required),
		validation.Field(&in.MaxDownloads, validation.Min(1)),
	)
}

// POST /api/v1/shares
// Create godoc
// @Summary Create a share link for a file
// @Description Issues a share code with optional expiry, password protection, and download cap.
// @Tags Shares
// @Accept json
// @Produce json
// @Success 201 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/shares [post]
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())

	var input createShareInput
	if err := decodeJSON(r, &input); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid input"})
		return
	}
	if err := input.Validate(); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: err.Error()})
		return
	}
	fileID, err := uuid.Parse(input.FileID)
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid file id"})
		return
	}

	share, err := h.shares.CreateShare(r.Context(), fileID, owner, services.CreateShareInput{
		ExpiresAt:         input.ExpiresAt,
		PasswordProtected: input.PasswordProtected,
		Password:          input.Password,
		MaxDownloads:      input.MaxDownloads,
	})
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusCreated, utils.Payload{Success: true, Message: "Share created", Data: share})
}

// GET /api/v1/shares
func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	shares, err := h.shares.ListShares(r.Context(), owner)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Shares retrieved", Data: shares})
}

// DELETE /api/v1/shares/{id}
func (h *ShareHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid share id"})
		return
	}

	if err := h.shares.DeleteShare(r.Context(), id, owner); err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Share revoked"})
}

// GET /share/{code} (public, no auth)
// Info godoc
// @Summary Describe a share link
// @Description Public endpoint. Returns the file name, size, and whether a password is required.
// @Tags Shares
// @Produce json
// @Param code path string true "Share code"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /share/{code} [get]
func (h *ShareHandler) Info(w http.ResponseWriter, r *http.Request) {
	share, err := h.shares.ShareInfo(r.Context(), r.PathValue("code"))
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	data := map[string]any{
		"shareCode":           share.ShareCode,
		"isPasswordProtected": share.IsPasswordProtected,
		"expiresAt":           share.ExpiresAt,
	}
	if share.File != nil {
		data["fileName"] = share.File.Name
		data["contentType"] = share.File.ContentType
		data["size"] = share.File.Size
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Share retrieved", Data: data})
}

// POST /share/{code}/download (public, no auth)
// Download godoc
// @Summary Redeem a share link
// @Description Public endpoint. Verifies the password when the share is protected, returns a presigned URL, and counts the download.
// @Tags Shares
// @Accept json
// @Produce json
// @Param code path string true "Share code"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /share/{code}/download [post]
func (h *ShareHandler) Download(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	var input struct {
		Password string `json:"password"`
	}
	// An empty body is fine for unprotected shares.
	_ = decodeJSON(r, &input)

	file, err := h.shares.Redeem(r.Context(), code, input.Password)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	url, err := h.files.PresignFor(r.Context(), file, 15*time.Minute)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	// Count the download only once the URL is actually handed out.
	if err := h.shares.IncrementDownload(r.Context(), code); err != nil {
		h.logger.Warn("download counter not updated", zap.String("code", code), zap.Error(err))
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Download URL generated",
		Data: map[string]any{
			"url":          url,
			"filename":     file.Name,
			"content_type": file.ContentType,
		},
	})
}
