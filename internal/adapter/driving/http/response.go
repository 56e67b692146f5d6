package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/patientreg/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps the error taxonomy onto HTTP status codes. Messages of
// user-correctable errors are returned verbatim so the UI can show them.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		verr *model.ValidationError
		berr *model.BlockedOperationError
		qerr *model.QueryError
		serr *model.StorageError
	)

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Error(), Kind: "validation", Field: verr.Field})
	case errors.As(err, &berr):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: berr.Error(), Kind: "blocked"})
	case errors.As(err, &qerr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: qerr.Error(), Kind: "query"})
	case errors.As(err, &serr):
		logger.Error("storage failure", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: serr.Error(), Kind: "storage"})
	case errors.Is(err, model.ErrTabNotFound):
		writeError(w, http.StatusNotFound, "tab not found")
	default:
		logger.Error("unexpected error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}

// PatientResponse is the JSON representation of a patient.
type PatientResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Age          int    `json:"age"`
	Gender       string `json:"gender"`
	Contact      string `json:"contact"`
	RegisteredAt string `json:"registered_at"`
}

// PatientListResponse is the JSON body of the patient list endpoints.
type PatientListResponse struct {
	State    string            `json:"state"`
	Patients []PatientResponse `json:"patients"`
}

// SubmitPatientRequest is the JSON body for the submit endpoint. Age accepts
// either a JSON number or a numeric string, as form fields arrive as text.
type SubmitPatientRequest struct {
	Name    string          `json:"name"`
	Age     json.RawMessage `json:"age"`
	Gender  string          `json:"gender"`
	Contact string          `json:"contact"`
}

// QueryRequest is the JSON body for the console query endpoint.
type QueryRequest struct {
	Statement string `json:"statement"`
}

// QueryResponse is the JSON representation of a result set.
type QueryResponse struct {
	Columns      []string         `json:"columns"`
	Rows         []map[string]any `json:"rows"`
	RowsAffected int64            `json:"rows_affected"`
}

// TabResponse is returned when a tab is opened.
type TabResponse struct {
	TabID    string `json:"tab_id"`
	OpenedAt string `json:"opened_at"`
}

// ChangeEventResponse is the data payload of a server-sent change event.
type ChangeEventResponse struct {
	Kind     string            `json:"kind"`
	Added    *PatientResponse  `json:"added,omitempty"`
	Patients []PatientResponse `json:"patients"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Time     string `json:"time"`
	OpenTabs int    `json:"open_tabs"`
}

// toPatientResponse converts a domain Patient to its JSON response representation.
func toPatientResponse(p model.Patient) PatientResponse {
	return PatientResponse{
		ID:           p.ID,
		Name:         p.Name,
		Age:          p.Age,
		Gender:       string(p.Gender),
		Contact:      p.Contact,
		RegisteredAt: p.RegisteredAt.UTC().Format(time.RFC3339Nano),
	}
}

func toPatientResponses(ps []model.Patient) []PatientResponse {
	resp := make([]PatientResponse, 0, len(ps))
	for _, p := range ps {
		resp = append(resp, toPatientResponse(p))
	}
	return resp
}

func toQueryResponse(rs model.ResultSet) QueryResponse {
	columns := rs.Columns
	if columns == nil {
		columns = []string{}
	}
	rows := make([]map[string]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		rows = append(rows, row)
	}
	return QueryResponse{Columns: columns, Rows: rows, RowsAffected: rs.RowsAffected}
}

func toChangeEventResponse(ev model.ChangeEvent) ChangeEventResponse {
	resp := ChangeEventResponse{
		Kind:     string(ev.Kind),
		Patients: toPatientResponses(ev.Snapshot),
	}
	if ev.Added != nil {
		added := toPatientResponse(*ev.Added)
		resp.Added = &added
	}
	return resp
}
