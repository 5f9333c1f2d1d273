package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finease/internal/core"
)

type createRecordRequest struct {
	Title       string `json:"title"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type updateRecordRequest struct {
	Title       *string `json:"title"`
	Amount      *string `json:"amount"`
	Kind        *string `json:"kind"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "malformed JSON body", nil)
		return
	}

	// Unparsable amount and date become zero values; Validate then reports
	// them together with any other bad field in one response.
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		amount = decimal.Zero
	}
	occurredAt, _ := time.Parse(dateLayout, strings.TrimSpace(req.Date))

	rec := core.TransactionRecord{
		Title:       sanitizeInput(req.Title),
		Amount:      amount,
		Kind:        core.Kind(strings.TrimSpace(req.Kind)),
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		OccurredAt:  occurredAt,
	}

	owner := identityFrom(r).OwnerID
	id, err := s.records.CreateRecord(r.Context(), owner, rec)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.dashCache.DeletePrefix(owner + "|")

	rec.ID = id
	rec.OwnerID = owner
	writeJSON(w, http.StatusCreated, toRecordPayload(rec))
}

func (s *Server) handleRecordByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/records/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, codeNotFound, "record not found", nil)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getRecord(w, r, id)
	case http.MethodPatch:
		s.updateRecord(w, r, id)
	case http.MethodDelete:
		s.deleteRecord(w, r, id)
	default:
		w.Header().Set("Allow", "GET, PATCH, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request, id string) {
	owner := identityFrom(r).OwnerID
	rec, err := s.records.GetRecord(r.Context(), id, owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordPayload(rec))
}

func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request, id string) {
	var req updateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "malformed JSON body", nil)
		return
	}

	patch, err := toPatch(req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	owner := identityFrom(r).OwnerID
	if err := s.records.UpdateRecord(r.Context(), id, owner, patch); err != nil {
		writeServiceError(w, err)
		return
	}

	s.dashCache.DeletePrefix(owner + "|")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request, id string) {
	owner := identityFrom(r).OwnerID
	if err := s.records.DeleteRecord(r.Context(), id, owner); err != nil {
		writeServiceError(w, err)
		return
	}

	s.dashCache.DeletePrefix(owner + "|")
	w.WriteHeader(http.StatusNoContent)
}

// toPatch converts the wire-level partial update into a domain patch,
// rejecting values that cannot even be parsed.
func toPatch(req updateRecordRequest) (core.RecordPatch, error) {
	var patch core.RecordPatch
	var badFields []string

	if req.Title != nil {
		title := sanitizeInput(*req.Title)
		patch.Title = &title
	}
	if req.Amount != nil {
		amount, err := core.ParseAmount(*req.Amount)
		if err != nil {
			badFields = append(badFields, core.FieldAmount)
		} else {
			patch.Amount = &amount
		}
	}
	if req.Kind != nil {
		kind := core.Kind(strings.TrimSpace(*req.Kind))
		patch.Kind = &kind
	}
	if req.Category != nil {
		category := sanitizeInput(*req.Category)
		patch.Category = &category
	}
	if req.Description != nil {
		description := sanitizeInput(*req.Description)
		patch.Description = &description
	}
	if req.Date != nil {
		occurredAt, err := time.Parse(dateLayout, strings.TrimSpace(*req.Date))
		if err != nil {
			badFields = append(badFields, core.FieldOccurredAt)
		} else {
			patch.OccurredAt = &occurredAt
		}
	}

	if len(badFields) > 0 {
		return core.RecordPatch{}, &core.ValidationError{Fields: badFields}
	}
	return patch, nil
}
