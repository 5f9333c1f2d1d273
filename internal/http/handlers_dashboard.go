package http

import (
	"net/http"

	"finease/internal/core"
	"finease/internal/export"
	applog "finease/internal/log"
	"finease/internal/view"
)

type dashboardResponse struct {
	Summary summaryPayload      `json:"summary"`
	Records []recordPayload     `json:"records"`
	Chart   []chartPointPayload `json:"chart"`
	Month   string              `json:"month"`
	Sort    string              `json:"sort"`
}

type reportResponse struct {
	Rows []reportRowPayload `json:"rows"`
}

type reportRowPayload struct {
	Month   string `json:"month"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Balance string `json:"balance"`
}

// handleDashboard returns the aggregate view for the caller: totals over
// all records plus the filtered, sorted record list and chart series.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	monthRaw := r.URL.Query().Get("month")
	month, err := parseMonth(monthRaw)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sortKey, err := parseSort(r.URL.Query().Get("sort"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	owner := identityFrom(r).OwnerID
	key := owner + "|" + monthRaw + "|" + string(sortKey)

	if cached, ok := s.dashCache.Get(key); ok {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "dashboard cache hit",
			applog.FieldOwnerID, owner, applog.FieldMonth, month, applog.FieldSortKey, string(sortKey))
		writeJSON(w, http.StatusOK, cached)
		return
	}

	records, err := s.gateway.List(r.Context(), owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Totals always cover the full record set; only the visible list and
	// chart are filtered and sorted.
	projected := view.Project(records, month, sortKey)
	resp := dashboardResponse{
		Summary: toSummaryPayload(core.Summarize(records)),
		Records: toRecordPayloads(projected),
		Chart:   toChartPayload(core.ChartSeries(projected)),
		Month:   monthLabel(month),
		Sort:    string(sortKey),
	}

	s.dashCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleReport returns the caller's per-month aggregate rows.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	owner := identityFrom(r).OwnerID
	records, err := s.gateway.List(r.Context(), owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	rows := export.MonthlyReport(records)
	resp := reportResponse{Rows: make([]reportRowPayload, 0, len(rows))}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, reportRowPayload{
			Month:   export.MonthName(row.Month),
			Income:  row.Income.String(),
			Expense: row.Expense.String(),
			Balance: row.Balance.String(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func monthLabel(month int) string {
	if month == view.AllMonths {
		return "all"
	}
	return export.MonthName(month)
}
