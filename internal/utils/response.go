package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nimbusdrive/nimbus-server/internal/services"
)

type Payload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSONResponse sends a JSON response with given status, success flag, and payload
func JSONResponse(w http.ResponseWriter, status int, payload Payload) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ServiceError maps a service-layer error to an HTTP response.
func ServiceError(w http.ResponseWriter, err error) {
	var (
		validation *services.ValidationError
		quota      *services.QuotaExceededError
		external   *services.ExternalServiceError
	)
	switch {
	case errors.Is(err, services.ErrNotFound):
		JSONResponse(w, http.StatusNotFound, Payload{Success: false, Message: "Not found"})
	case errors.As(err, &validation):
		JSONResponse(w, http.StatusBadRequest, Payload{Success: false, Message: validation.Reason})
	case errors.As(err, &quota):
		JSONResponse(w, http.StatusRequestEntityTooLarge, Payload{Success: false, Message: "Storage quota exceeded"})
	case errors.Is(err, services.ErrCycle):
		JSONResponse(w, http.StatusConflict, Payload{Success: false, Message: "Move would create a directory cycle"})
	case errors.As(err, &external):
		JSONResponse(w, http.StatusBadGateway, Payload{Success: false, Message: "Upstream service failure"})
	default:
		JSONResponse(w, http.StatusInternalServerError, Payload{Success: false, Message: "Internal server error"})
	}
}
