package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/nimbusdrive/nimbus-server/internal/api/middleware"
	"github.com/nimbusdrive/nimbus-server/internal/models"
	"github.com/nimbusdrive/nimbus-server/internal/services"
	"github.com/nimbusdrive/nimbus-server/internal/utils"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type AIHandler struct {
	analysis *services.AnalysisService
	files    *services.FileService
	logger   *zap.Logger
}

func NewAIHandler(analysis *services.AnalysisService, files *services.FileService, logger *zap.Logger) *AIHandler {
	return &AIHandler{analysis: analysis, files: files, logger: logger}
}

// POST /api/v1/ai/analyze/{id}
// Reanalyze godoc
// @Summary Re-run AI analysis for a file
// @Tags AI
// @Produce json
// @Param id path string true "File id"
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/ai/analyze/{id} [post]
func (h *AIHandler) Reanalyze(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid file id"})
		return
	}

	ok := h.analysis.Reanalyze(r.Context(), id, owner)
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: ok,
		Message: lo.Ternary(ok, "Analysis complete", "Analysis failed"),
	})
}

// GET /api/v1/ai/analysis/{id}
func (h *AIHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid file id"})
		return
	}

	result, err := h.analysis.GetAnalysis(r.Context(), id, owner)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Analysis retrieved", Data: result})
}

// GET /api/v1/ai/categories
// Categories godoc
// @Summary Count the owner's files per AI-assigned category
// @Tags AI
// @Produce json
// @Success 200 {object} utils.Payload
// @Router /api/v1/ai/categories [get]
func (h *AIHandler) Categories(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	files, err := h.files.AllFiles(r.Context(), owner)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	analyzed := lo.Filter(files, func(f models.File, _ int) bool { return f.AiCategory != "" })
	counts := lo.CountValuesBy(analyzed, func(f models.File) string { return f.AiCategory })

	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Categories retrieved", Data: counts})
}

// GET /api/v1/ai/tags
func (h *AIHandler) Tags(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFromContext(r.Context())
	files, err := h.files.AllFiles(r.Context(), owner)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	tags := lo.FlatMap(files, func(f models.File, _ int) []string {
		if f.AiTags == "" {
			return nil
		}
		parts := strings.Split(f.AiTags, ",")
		return lo.FilterMap(parts, func(p string, _ int) (string, bool) {
			t := strings.TrimSpace(p)
			return t, t != ""
		})
	})
	counts := lo.CountValues(tags)

	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Tags retrieved", Data: counts})
}
