package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"finease/internal/core"
	"finease/internal/engine"
	applog "finease/internal/log"
	"finease/internal/view"
)

type streamErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type streamViewPayload struct {
	OwnerID string              `json:"ownerId"`
	Seq     uint64              `json:"seq"`
	Summary summaryPayload      `json:"summary"`
	Records []recordPayload     `json:"records"`
	Chart   []chartPointPayload `json:"chart"`
	Error   *streamErrorPayload `json:"error,omitempty"`
}

// handleStream serves the live dashboard over server-sent events. Each
// connection runs its own engine attached to the caller's records; every
// published view becomes one "view" event.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, codeInternal, "streaming unsupported", nil)
		return
	}

	month, err := parseMonth(r.URL.Query().Get("month"))
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
	eng := engine.New(s.gateway)
	if err := eng.Attach(r.Context(), owner); err != nil {
		writeServiceError(w, err)
		return
	}
	defer eng.Detach()

	logger := applog.FromContext(r.Context())
	logger.InfoContext(r.Context(), "stream attached", applog.FieldOwnerID, owner)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	var lastSeq uint64
	var lastDegraded bool
	first := true

	for {
		// Grab the change signal before reading the view so a publish
		// in between still wakes the loop.
		ch := eng.Changed()
		v := eng.View()

		degraded := v.StreamErr != nil
		if first || v.Seq != lastSeq || degraded != lastDegraded {
			s.writeViewEvent(w, v, month, sortKey)
			flusher.Flush()
			lastSeq = v.Seq
			lastDegraded = degraded
			first = false
		}

		select {
		case <-r.Context().Done():
			logger.InfoContext(r.Context(), "stream detached", applog.FieldOwnerID, owner, applog.FieldSeq, lastSeq)
			return
		case <-ch:
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func (s *Server) writeViewEvent(w http.ResponseWriter, v engine.View, month int, sortKey view.SortKey) {
	// The chart follows the filtered list, same as the dashboard handler;
	// only the summary covers the full record set.
	projected := view.Project(v.Records, month, sortKey)
	payload := streamViewPayload{
		OwnerID: v.OwnerID,
		Seq:     v.Seq,
		Summary: toSummaryPayload(v.Summary),
		Records: toRecordPayloads(projected),
		Chart:   toChartPayload(core.ChartSeries(projected)),
	}
	if v.StreamErr != nil {
		payload.Error = &streamErrorPayload{
			Kind:    string(v.StreamErr.Kind),
			Message: v.StreamErr.Message,
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: view\ndata: %s\n\n", data)
}
