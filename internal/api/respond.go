package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Freeeeeet/medbook/internal/service"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// serviceErrors maps domain errors to a status and a stable error code
var serviceErrors = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrConflict, http.StatusConflict, "conflict"},
	{service.ErrPastSlot, http.StatusUnprocessableEntity, "past"},
	{service.ErrNotOffered, http.StatusUnprocessableEntity, "not_offered"},
	{service.ErrInvalidConsultationType, http.StatusUnprocessableEntity, "invalid_consultation_type"},
	{service.ErrDoctorNotFound, http.StatusNotFound, "not_found"},
	{service.ErrBookingNotFound, http.StatusNotFound, "not_found"},
	{service.ErrRuleNotFound, http.StatusNotFound, "not_found"},
	{service.ErrOverrideNotFound, http.StatusNotFound, "not_found"},
	{service.ErrNotOwner, http.StatusForbidden, "forbidden"},
	{service.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{service.ErrNotStarted, http.StatusConflict, "not_started"},
	{service.ErrInvalidSchedule, http.StatusBadRequest, "validation"},
	{service.ErrInvalidDoctor, http.StatusBadRequest, "validation"},
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			jsonError(w, m.status, m.code, err.Error())
			return
		}
	}

	h.logger.Error("Request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	jsonError(w, http.StatusInternalServerError, "internal", "")
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}
