// Package handlers exposes the thin HTTP surface over the matching and
// alerting services.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/thalanet/bloodmatch/internal/alerting"
	"github.com/thalanet/bloodmatch/internal/config"
	"github.com/thalanet/bloodmatch/internal/intake"
	"github.com/thalanet/bloodmatch/internal/matching"
	"github.com/thalanet/bloodmatch/internal/model"
	"github.com/thalanet/bloodmatch/internal/pool"
	"github.com/thalanet/bloodmatch/internal/predictor"
	"github.com/thalanet/bloodmatch/internal/registry"
)

// HTTPHandler serves the service's REST endpoints
type HTTPHandler struct {
	cfg       config.MatchingConfig
	logger    *slog.Logger
	matcher   *matching.Matcher
	manager   *alerting.Manager
	buffer    *intake.Buffer
	donors    *pool.Store
	predictor predictor.Provider
	registry  *registry.Client
}

// NewHTTPHandler creates the HTTP handler
func NewHTTPHandler(
	cfg config.MatchingConfig,
	matcher *matching.Matcher,
	manager *alerting.Manager,
	buffer *intake.Buffer,
	donors *pool.Store,
	availability predictor.Provider,
	banks *registry.Client,
	logger *slog.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		cfg:       cfg,
		logger:    logger,
		matcher:   matcher,
		manager:   manager,
		buffer:    buffer,
		donors:    donors,
		predictor: availability,
		registry:  banks,
	}
}

// RegisterRoutes registers all routes on the router
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.health).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/matches", h.findMatches).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/matches/emergency", h.findEmergencyMatches).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/requests", h.submitRequest).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/alerts", h.listAlerts).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/alerts/export", h.exportAlerts).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/alerts/stats", h.alertStats).Methods(http.MethodGet)
	if h.registry != nil {
		router.HandleFunc("/api/v1/stock", h.nearbyStock).Methods(http.MethodGet)
	}
}

func (h *HTTPHandler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"donor_pool": h.donors.Size(),
		"timestamp":  time.Now().UTC(),
	})
}

// findMatches ranks donors for a patient request supplied in the body
func (h *HTTPHandler) findMatches(w http.ResponseWriter, r *http.Request) {
	var patient model.PatientRequest
	if err := json.NewDecoder(r.Body).Decode(&patient); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	maxMatches := h.cfg.MaxMatches
	if v := r.URL.Query().Get("max_matches"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxMatches = n
		}
	}
	minScore := h.cfg.MinScore
	if v := r.URL.Query().Get("min_score"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			minScore = f
		}
	}

	donors := h.donors.Snapshot()
	predictor.Annotate(donors, h.predictor)

	matches, err := h.matcher.FindMatches(&patient, donors, maxMatches, minScore)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"patient_id":  patient.PatientID,
		"matches":     matches,
		"match_count": len(matches),
	})
}

// findEmergencyMatches runs the emergency triage for a request in the body
func (h *HTTPHandler) findEmergencyMatches(w http.ResponseWriter, r *http.Request) {
	var request model.EmergencyRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	donors := h.donors.Snapshot()
	predictor.Annotate(donors, h.predictor)

	triage, err := h.matcher.FindEmergencyMatches(&request, donors)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, triage)
}

// submitRequest buffers an emergency request for the next processing pass
func (h *HTTPHandler) submitRequest(w http.ResponseWriter, r *http.Request) {
	var request model.EmergencyRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := model.ValidateRequest(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if request.Timestamp.IsZero() {
		request.Timestamp = time.Now()
	}

	h.buffer.Add(request)
	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"request_id": request.RequestID,
		"queued":     true,
	})
}

func (h *HTTPHandler) listAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.manager.ActiveAlerts()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (h *HTTPHandler) exportAlerts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.manager.ExportState())
}

// nearbyStock proxies a blood bank stock lookup to the external registry
func (h *HTTPHandler) nearbyStock(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bloodType := model.BloodType(q.Get("blood_type"))

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid lat")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid lon")
		return
	}
	radiusKm := 50.0
	if v := q.Get("radius_km"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			radiusKm = f
		}
	}

	banks, err := h.registry.NearbyStock(r.Context(), bloodType, lat, lon, radiusKm)
	if err != nil {
		h.logger.Error("registry stock lookup failed", "error", err)
		h.writeError(w, http.StatusBadGateway, "registry lookup failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"blood_type": bloodType,
		"banks":      banks,
		"count":      len(banks),
	})
}

func (h *HTTPHandler) alertStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.manager.Stats())
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
