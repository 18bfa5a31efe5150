package handlers

import (
	"net/http"

	"github.com/nimbusdrive/nimbus-server/internal/api/middleware"
	"github.com/nimbusdrive/nimbus-server/internal/utils"
	"go.uber.org/zap"
)

type batchInput struct {
	Operation    string   `json:"operation"`
	FileIDs      []string `json:"fileIds"`
	DirectoryIDs []string `json:"directoryIds"`
	DirectoryID  string   `json:"directoryId,omitempty"`
}

// POST /api/v1/files/batch
// Batch godoc
// @Summary Run a batch operation over files and directories
// @Description Supported operations are "delete" and "move". Each item is processed independently; the response carries success and failure counts for the batch.
// @Tags Files
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/files/batch [post]
func (h *FileHandler) Batch(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{Success: false, Message: "Unauthorized"})
		return
	}

	var input batchInput
	if err := decodeJSON(r, &input); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid input"})
		return
	}
	if len(input.FileIDs) == 0 && len(input.DirectoryIDs) == 0 {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "No items selected"})
		return
	}

	fileIDs, err := parseUUIDs(input.FileIDs)
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid file id in batch"})
		return
	}
	directoryIDs, err := parseUUIDs(input.DirectoryIDs)
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid directory id in batch"})
		return
	}

	var successCount, failCount int
	switch input.Operation {
	case "delete":
		successCount, failCount = h.files.BatchDelete(r.Context(), fileIDs, directoryIDs, owner)
	case "move":
		target, perr := parseOptionalUUID(input.DirectoryID)
		if perr != nil {
			utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid target directory id"})
			return
		}
		successCount, failCount = h.files.BatchMove(r.Context(), fileIDs, directoryIDs, target, owner)
	default:
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Unknown batch operation"})
		return
	}

	h.logger.Info("batch operation complete",
		zap.String("operation", input.Operation),
		zap.Int("success", successCount),
		zap.Int("fail", failCount))

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: failCount == 0,
		Message: "Batch operation processed",
		Data: map[string]int{
			"successCount": successCount,
			"failCount":    failCount,
		},
	})
}
