package handlers

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/nimbusdrive/nimbus-server/internal/api/middleware"
	"github.com/nimbusdrive/nimbus-server/internal/services"
	"github.com/nimbusdrive/nimbus-server/internal/utils"
	"go.uber.org/zap"
)

type DirectoryHandler struct {
	files  *services.FileService
	logger *zap.Logger
}

func NewDirectoryHandler(files *services.FileService, logger *zap.Logger) *DirectoryHandler {
	return &DirectoryHandler{files: files, logger: logger}
}

type createDirectoryInput struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

func (in createDirectoryInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
	)
}

// POST /api/v1/directories
// Create godoc
// @Summary Create a directory
// @Tags Directories
// @Accept json
// @Produce json
// @Success 201 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/directories [post]
func (h *DirectoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())

	var input createDirectoryInput
	if err := decodeJSON(r, &input); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid input"})
		return
	}
	if err := input.Validate(); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: err.Error()})
		return
	}
	parentID, err := parseOptionalUUID(input.ParentID)
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid parent id"})
		return
	}

	dir, err := h.files.CreateDirectory(r.Context(), input.Name, owner, parentID)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusCreated, utils.Payload{Success: true, Message: "Directory created", Data: dir})
}

// GET /api/v1/directories?parentId=
func (h *DirectoryHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	parentID, err := parseOptionalUUID(r.URL.Query().Get("parentId"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid parent id"})
		return
	}

	dirs, err := h.files.ListDirectories(r.Context(), owner, parentID)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Directories retrieved", Data: dirs})
}

// GET /api/v1/directories/{id}
func (h *DirectoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid directory id"})
		return
	}

	dir, err := h.files.GetDirectory(r.Context(), id, owner)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Directory retrieved", Data: dir})
}

// PATCH /api/v1/directories/{id}/rename
func (h *DirectoryHandler) Rename(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid directory id"})
		return
	}

	var input struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &input); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid input"})
		return
	}

	if err := h.files.RenameDirectory(r.Context(), id, input.Name, owner); err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Directory renamed"})
}

// PATCH /api/v1/directories/{id}/move
// Move godoc
// @Summary Move a directory under a new parent
// @Description Moving a directory into itself or one of its descendants is rejected.
// @Tags Directories
// @Accept json
// @Produce json
// @Param id path string true "Directory id"
// @Success 200 {object} utils.Payload
// @Failure 409 {object} utils.Payload
// @Router /api/v1/directories/{id}/move [patch]
func (h *DirectoryHandler) Move(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid directory id"})
		return
	}

	var input struct {
		ParentID string `json:"parentId"`
	}
	if err := decodeJSON(r, &input); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid input"})
		return
	}
	target, err := parseOptionalUUID(input.ParentID)
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid parent id"})
		return
	}

	if err := h.files.MoveDirectory(r.Context(), id, target, owner); err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Directory moved"})
}

// DELETE /api/v1/directories/{id}
func (h *DirectoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid directory id"})
		return
	}

	if err := h.files.DeleteDirectory(r.Context(), id, owner); err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Directory deleted"})
}
