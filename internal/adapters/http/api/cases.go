// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cprtrace/cprtrace/internal/adapters/repository"
	service "github.com/cprtrace/cprtrace/internal/app"
	"github.com/cprtrace/cprtrace/internal/domain/model"
)

// CaseDependencies defines the interface for case submission and
// review retrieval.
type CaseDependencies interface {
	Submit(ctx context.Context, c model.CaseSnapshot) error
	Report(ctx context.Context, caseID string) (repository.Review, error)
	Recent(ctx context.Context, n int) ([]repository.Review, error)
}

// CasesHandler handles case submission and review listing.
type CasesHandler struct {
	deps     CaseDependencies
	maxLimit int
}

// NewCasesHandler creates a new cases handler.
func NewCasesHandler(deps CaseDependencies, maxLimit int) *CasesHandler {
	return &CasesHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleCases handles POST /cases and GET /cases?limit=N requests.
func (h *CasesHandler) HandleCases(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleSubmit(w, r)
	case http.MethodGet:
		h.handleRecent(w, r)
	default:
		http.NotFound(w, r)
	}
}

// handleSubmit queues a case snapshot for asynchronous review.
func (h *CasesHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_case"
	var req caseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	err := h.deps.Submit(r.Context(), req.toSnapshot())
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
	case errors.Is(err, service.ErrDuplicateCase):
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// handleRecent handles GET /cases?limit=N requests.
func (h *CasesHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_recent"
	limitStr := r.URL.Query().Get("limit")
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	reviews, err := h.deps.Recent(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// HandleCaseReport handles GET /cases/{case_id}/report requests.
func (h *CasesHandler) HandleCaseReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_case_report"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameters after /cases/
	path := strings.TrimPrefix(r.URL.Path, "/cases/")
	caseID, rest, found := strings.Cut(path, "/")
	if caseID == "" || !found || rest != "report" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	review, err := h.deps.Report(r.Context(), caseID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, review)
}
