// Package handlers provides HTTP handlers for circuit simulation,
// measurement sampling, persistence and export.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/blochd/internal/modules/circuits"
	"github.com/aristath/blochd/internal/modules/engine"
	"github.com/aristath/blochd/internal/modules/measurement"
)

// Handler handles circuit HTTP requests
type Handler struct {
	service *circuits.Service
	repo    *circuits.Repository
	log     zerolog.Logger
}

// NewHandler creates a new circuit handler
func NewHandler(service *circuits.Service, repo *circuits.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		repo:    repo,
		log:     log.With().Str("handler", "circuits").Logger(),
	}
}

// HandleSimulate handles POST /api/circuits/simulate
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	var req circuits.SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Simulate(req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"snapshots":   result.Snapshots,
			"fingerprint": result.Fingerprint,
			"cached":      result.Cached,
			"steps":       len(result.Snapshots),
			"focus_qubit": req.Focus(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleMeasure handles POST /api/circuits/measure
func (h *Handler) HandleMeasure(w http.ResponseWriter, r *http.Request) {
	var req circuits.MeasureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Measure(req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response := map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleValidate handles POST /api/circuits/validate
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req circuits.SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result := map[string]interface{}{"valid": true}
	if err := h.service.Validate(req); err != nil {
		result["valid"] = false
		result["error"] = err.Error()
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// ExportRequest wraps a circuit with the desired output format.
type ExportRequest struct {
	circuits.SimulateRequest
	Format string `json:"format,omitempty"`
}

// HandleExport handles POST /api/circuits/export
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.Validate(req.SimulateRequest); err != nil {
		h.writeError(w, err)
		return
	}

	content, contentType, err := circuits.Export(req.SimulateRequest, req.Format)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(content)); err != nil {
		h.log.Error().Err(err).Msg("Failed to write export response")
	}
}

// HandleSave handles POST /api/circuits
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var circuit circuits.SavedCircuit
	if err := json.NewDecoder(r.Body).Decode(&circuit); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Reject definitions that would fail to simulate.
	if err := h.service.Validate(circuit.Request()); err != nil {
		h.writeError(w, err)
		return
	}

	saved, err := h.repo.Save(circuit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": saved,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleList handles GET /api/circuits
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.repo.List(limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"circuits": list,
			"count":    len(list),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGet handles GET /api/circuits/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	circuit, err := h.repo.Get(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if circuit == nil {
		http.Error(w, "Circuit not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": circuit,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleDelete handles DELETE /api/circuits/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existed, err := h.repo.Delete(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !existed {
		http.Error(w, "Circuit not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"deleted": id},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeError maps domain errors to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsResourceLimit(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case engine.IsValidation(err), isSamplingError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg("Internal error")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func isSamplingError(err error) bool {
	for _, target := range []error{
		measurement.ErrInvalidBasis,
		measurement.ErrInvalidShotCount,
		measurement.ErrShotCountExceeded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
