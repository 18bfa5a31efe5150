package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nimbusdrive/nimbus-server/internal/api/middleware"
	"github.com/nimbusdrive/nimbus-server/internal/config"
	"github.com/nimbusdrive/nimbus-server/internal/services"
	"github.com/nimbusdrive/nimbus-server/internal/utils"
	"go.uber.org/zap"
)

type FileHandler struct {
	files    *services.FileService
	analysis *services.AnalysisService
	logger   *zap.Logger
}

func NewFileHandler(files *services.FileService, analysis *services.AnalysisService, logger *zap.Logger) *FileHandler {
	return &FileHandler{files: files, analysis: analysis, logger: logger}
}

// POST /api/v1/files/upload
// Upload godoc
// @Summary Upload one or more files
// @Description Upload multiple files into an optional directory; name collisions get a numbered suffix.
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Files to upload" style(form) explode(true)
// @Param directoryId formData string false "Target directory id"
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/files/upload [post]
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{Success: false, Message: "Unauthorized"})
		return
	}

	if err := r.ParseMultipartForm(config.Envs.MaxUploadSize); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid file upload form"})
		return
	}

	formFiles := r.MultipartForm.File["files"]
	if len(formFiles) == 0 {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "No files provided"})
		return
	}

	directoryID, err := parseOptionalUUID(r.FormValue("directoryId"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid directory id"})
		return
	}
	description := r.FormValue("description")
	isPublic := r.FormValue("isPublic") == "true"

	// Reject the whole batch early when the combined size cannot fit.
	var totalSize int64
	for _, f := range formFiles {
		totalSize += f.Size
	}
	used, limit, err := h.files.StorageUsage(r.Context(), owner)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	if used+totalSize > limit {
		utils.JSONResponse(w, http.StatusRequestEntityTooLarge, utils.Payload{Success: false, Message: "Selected files exceed your storage limit"})
		return
	}

	type uploadResult struct {
		Name    string `json:"name"`
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
		ID      string `json:"id,omitempty"`
	}
	results := make([]uploadResult, 0, len(formFiles))
	successCount, failCount := 0, 0

	for _, handler := range formFiles {
		src, err := handler.Open()
		if err != nil {
			results = append(results, uploadResult{Name: handler.Filename, Error: "could not read file"})
			failCount++
			continue
		}

		file, err := h.files.Upload(r.Context(), services.UploadInput{
			Owner:       owner,
			DirectoryID: directoryID,
			Name:        handler.Filename,
			ContentType: handler.Header.Get("Content-Type"),
			Size:        handler.Size,
			Description: description,
			IsPublic:    isPublic,
			Body:        src,
		})
		src.Close()
		if err != nil {
			h.logger.Warn("upload failed", zap.String("name", handler.Filename), zap.Error(err))
			results = append(results, uploadResult{Name: handler.Filename, Error: err.Error()})
			failCount++
			continue
		}
		results = append(results, uploadResult{Name: file.Name, Success: true, ID: file.ID.String()})
		successCount++

		// Analysis runs in the background; the upload response never waits
		// on the AI provider.
		if h.analysis != nil {
			go func(id uuid.UUID) {
				if err := h.analysis.Analyze(context.Background(), id); err != nil {
					h.logger.Warn("background analysis failed", zap.String("file_id", id.String()), zap.Error(err))
				}
			}(file.ID)
		}
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: successCount > 0,
		Message: "Upload processed",
		Data: map[string]any{
			"successCount": successCount,
			"failCount":    failCount,
			"results":      results,
		},
	})
}

// GET /api/v1/files?directoryId=
// List godoc
// @Summary List files in a directory
// @Tags Files
// @Produce json
// @Param directoryId query string false "Directory id; omit for root"
// @Success 200 {object} utils.Payload
// @Router /api/v1/files [get]
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	directoryID, err := parseOptionalUUID(r.URL.Query().Get("directoryId"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid directory id"})
		return
	}

	files, err := h.files.ListFiles(r.Context(), owner, directoryID)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Files retrieved", Data: files})
}

// GET /api/v1/files/{id}
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid file id"})
		return
	}

	file, err := h.files.GetFile(r.Context(), id, owner)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "File retrieved", Data: file})
}

// PATCH /api/v1/files/{id}/rename
func (h *FileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid file id"})
		return
	}

	var input struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &input); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid input"})
		return
	}

	if err := h.files.RenameFile(r.Context(), id, input.Name, owner); err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "File renamed"})
}

// PATCH /api/v1/files/{id}/move
func (h *FileHandler) Move(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid file id"})
		return
	}

	var input struct {
		DirectoryID string `json:"directoryId"`
	}
	if err := decodeJSON(r, &input); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid input"})
		return
	}
	target, err := parseOptionalUUID(input.DirectoryID)
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid directory id"})
		return
	}

	if err := h.files.MoveFile(r.Context(), id, target, owner); err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "File moved"})
}

// DELETE /api/v1/files/{id}
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid file id"})
		return
	}

	if err := h.files.DeleteFile(r.Context(), id, owner); err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "File deleted"})
}

// GET /api/v1/files/{id}/download
// Download godoc
// @Summary Generate a presigned download URL
// @Tags Files
// @Produce json
// @Param id path string true "File id"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/files/{id}/download [get]
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid file id"})
		return
	}

	url, file, err := h.files.PresignDownload(r.Context(), id, owner, 15*time.Minute)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Presigned download URL generated",
		Data: map[string]any{
			"url":          url,
			"filename":     file.Name,
			"content_type": file.ContentType,
		},
	})
}

// GET /api/v1/search?q=
func (h *FileHandler) Search(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	term := r.URL.Query().Get("q")
	if term == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Missing search term"})
		return
	}

	result, err := h.files.Search(r.Context(), term, owner)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Search complete", Data: result})
}

// GET /api/v1/storage
func (h *FileHandler) Usage(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	used, limit, err := h.files.StorageUsage(r.Context(), owner)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Storage usage retrieved",
		Data:    map[string]int64{"used": used, "limit": limit},
	})
}
