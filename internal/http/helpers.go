package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finease/internal/auth"
	"finease/internal/core"
	"finease/internal/view"
)

type contextKey string

const identityKey contextKey = "identity"

const dateLayout = "2006-01-02"

// Error codes returned in JSON error bodies.
const (
	codeValidation       = "validation_error"
	codeNotAuthenticated = "not_authenticated"
	codeNotOwner         = "not_owner"
	codeNotFound         = "not_found"
	codeInternal         = "internal_error"
)

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string, fields []string) {
	writeJSON(w, status, errorResponse{Error: errorBody{
		Code:    code,
		Message: message,
		Fields:  fields,
	}})
}

// writeServiceError maps domain errors onto HTTP status codes and the JSON
// error body.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, codeValidation, verr.Error(), verr.Fields)
	case errors.Is(err, core.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, codeNotAuthenticated, "not authenticated", nil)
	case errors.Is(err, core.ErrNotOwner):
		writeError(w, http.StatusForbidden, codeNotOwner, "record belongs to another owner", nil)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "record not found", nil)
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error", nil)
	}
}

func identityFrom(r *http.Request) auth.Identity {
	id, _ := r.Context().Value(identityKey).(auth.Identity)
	return id
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// parseMonth interprets the month query parameter: empty or "all" means no
// filtering, otherwise a number between 1 and 12.
func parseMonth(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "all" {
		return view.AllMonths, nil
	}
	m, err := strconv.Atoi(raw)
	if err != nil || m < 1 || m > 12 {
		return 0, &core.ValidationError{Fields: []string{"month"}}
	}
	return m, nil
}

// parseSort interprets the sort query parameter, defaulting to date
// descending when absent.
func parseSort(raw string) (view.SortKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return view.DateDesc, nil
	}
	key := view.SortKey(raw)
	if !key.IsValid() {
		return "", &core.ValidationError{Fields: []string{"sort"}}
	}
	return key, nil
}

// sanitizeInput removes control characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

type recordPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
	CreatedAt   string `json:"createdAt"`
}

func toRecordPayload(r core.TransactionRecord) recordPayload {
	return recordPayload{
		ID:          r.ID,
		Title:       r.Title,
		Amount:      r.Amount.String(),
		Kind:        string(r.Kind),
		Category:    r.Category,
		Description: r.Description,
		Date:        r.OccurredAt.Format(dateLayout),
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toRecordPayloads(records []core.TransactionRecord) []recordPayload {
	out := make([]recordPayload, 0, len(records))
	for _, r := range records {
		out = append(out, toRecordPayload(r))
	}
	return out
}

type summaryPayload struct {
	TotalIncome  string `json:"totalIncome"`
	TotalExpense string `json:"totalExpense"`
	TotalBalance string `json:"totalBalance"`
}

func toSummaryPayload(s core.Summary) summaryPayload {
	return summaryPayload{
		TotalIncome:  s.TotalIncome.String(),
		TotalExpense: s.TotalExpense.String(),
		TotalBalance: s.TotalBalance.String(),
	}
}

type chartPointPayload struct {
	Label   string `json:"label"`
	Month   int    `json:"month"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
}

func toChartPayload(points []core.ChartPoint) []chartPointPayload {
	out := make([]chartPointPayload, 0, len(points))
	for _, p := range points {
		out = append(out, chartPointPayload{
			Label:   p.Label,
			Month:   p.Month,
			Income:  p.Income.String(),
			Expense: p.Expense.String(),
		})
	}
	return out
}
