package httphandler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/patientreg/internal/application"
	"github.com/ericfisherdev/patientreg/internal/domain/model"
)

// Handler is the HTTP driving adapter that serves the REST API used by the
// form and console views. Every tab-scoped route acts on the registry of the
// tab named in the path.
type Handler struct {
	tabs   *application.TabManager
	logger *slog.Logger

	// heartbeat is the interval between keep-alive comments on event streams.
	heartbeat time.Duration
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(tabs *application.TabManager, logger *slog.Logger) *Handler {
	return &Handler{
		tabs:      tabs,
		logger:    logger,
		heartbeat: 25 * time.Second,
	}
}

// RegisterAPIRoutes registers all API routes on the provided mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("POST /api/v1/tabs", h.OpenTab)
	mux.HandleFunc("DELETE /api/v1/tabs/{tab}", h.CloseTab)
	mux.HandleFunc("POST /api/v1/tabs/{tab}/patients", h.SubmitPatient)
	mux.HandleFunc("GET /api/v1/tabs/{tab}/patients", h.ListPatients)
	mux.HandleFunc("GET /api/v1/tabs/{tab}/patients/cached", h.CachedPatients)
	mux.HandleFunc("POST /api/v1/tabs/{tab}/query", h.RunQuery)
	mux.HandleFunc("GET /api/v1/tabs/{tab}/events", h.Events)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request id, logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	RegisterAPIRoutes(mux, h)
	return ApplyMiddleware(mux, logger)
}

// OpenTab starts a new tab session and returns its id.
func (h *Handler) OpenTab(w http.ResponseWriter, _ *http.Request) {
	tab := h.tabs.Open()
	writeJSON(w, http.StatusCreated, TabResponse{
		TabID:    tab.ID,
		OpenedAt: tab.OpenedAt.Format(time.RFC3339),
	})
}

// CloseTab ends a tab session.
func (h *Handler) CloseTab(w http.ResponseWriter, r *http.Request) {
	if err := h.tabs.Close(r.PathValue("tab")); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitPatient registers a new patient through the tab's registry.
func (h *Handler) SubmitPatient(w http.ResponseWriter, r *http.Request) {
	tab, err := h.tabs.Get(r.PathValue("tab"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	var req SubmitPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	age, err := parseAgeField(req.Age)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	p, err := tab.Registry.SubmitRecord(r.Context(), model.PatientInput{
		Name:    req.Name,
		Age:     age,
		Gender:  req.Gender,
		Contact: req.Contact,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPatientResponse(p))
}

// parseAgeField accepts a JSON number or a JSON string holding an integer.
func parseAgeField(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, &model.ValidationError{Field: "age", Reason: "is required"}
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, &model.ValidationError{Field: "age", Reason: "must be a non-negative integer"}
		}
		return application.ParseAge(s)
	}

	return application.ParseAge(string(raw))
}

// ListPatients re-reads the full table into the tab's cache and returns it.
// With ?broadcast=true the refreshed list is also sent to every other tab.
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	tab, err := h.tabs.Get(r.PathValue("tab"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	broadcast, _ := strconv.ParseBool(r.URL.Query().Get("broadcast"))

	var patients []model.Patient
	if broadcast {
		patients, err = tab.Registry.RefreshAndBroadcast(r.Context())
	} else {
		patients, err = tab.Registry.Refresh(r.Context())
	}
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, PatientListResponse{
		State:    string(tab.Registry.State()),
		Patients: toPatientResponses(patients),
	})
}

// CachedPatients returns the tab's cached list without touching the store.
func (h *Handler) CachedPatients(w http.ResponseWriter, r *http.Request) {
	tab, err := h.tabs.Get(r.PathValue("tab"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, PatientListResponse{
		State:    string(tab.Registry.State()),
		Patients: toPatientResponses(tab.Registry.Snapshot()),
	})
}

// RunQuery runs a console statement. Clients sending Accept: text/csv receive
// the result set as a CSV attachment instead of JSON.
func (h *Handler) RunQuery(w http.ResponseWriter, r *http.Request) {
	tab, err := h.tabs.Get(r.PathValue("tab"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Statement) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: "invalid statement: must not be empty", Kind: "validation", Field: "statement",
		})
		return
	}

	rs, err := tab.Registry.RunQuery(r.Context(), req.Statement)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/csv") {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="query-results.csv"`)
		w.WriteHeader(http.StatusOK)
		if err := application.WriteCSV(w, rs.Columns, rs.Rows); err != nil {
			h.logger.Error("failed to write csv export", "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, toQueryResponse(rs))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Time:     time.Now().UTC().Format(time.RFC3339),
		OpenTabs: h.tabs.Count(),
	})
}
