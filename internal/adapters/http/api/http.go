// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cprtrace/cprtrace/internal/adapters/repository"
	"github.com/cprtrace/cprtrace/internal/domain/model"
	"github.com/cprtrace/cprtrace/internal/domain/report"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Evaluate runs the review pipeline synchronously without storing
	// anything.
	Evaluate(ctx context.Context, c model.CaseSnapshot) (report.Report, error)

	// Submit queues a case for async review. Duplicate and
	// backpressure conditions surface as sentinel errors.
	Submit(ctx context.Context, c model.CaseSnapshot) error

	// Read operations expose completed reviews.
	Report(ctx context.Context, caseID string) (repository.Review, error)
	Recent(ctx context.Context, n int) ([]repository.Review, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	evaluateHandler *EvaluateHandler
	casesHandler    *CasesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxRecentLimit int) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		evaluateHandler: NewEvaluateHandler(deps),
		casesHandler:    NewCasesHandler(deps, maxRecentLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/evaluate", MetricsMiddleware(s.evaluateHandler.HandleEvaluate, "evaluate"))
	mux.HandleFunc("/cases", MetricsMiddleware(s.casesHandler.HandleCases, "cases"))
	mux.HandleFunc("/cases/", MetricsMiddleware(s.casesHandler.HandleCaseReport, "case_report"))
}

// calibrationPayload is one observer's paired clock reading.
type calibrationPayload struct {
	Key       string `json:"key"`
	Reference string `json:"reference"`
}

// observationPayload is a tagged variant: a direct value, or up to
// three observer-submitted candidates keyed "1", "2", "3". Times are
// RFC3339; the literal "II" marks a procedure deliberately skipped.
type observationPayload struct {
	Value     *string           `json:"value,omitempty"`
	Observers map[string]string `json:"observers,omitempty"`
}

// interruptionPayload is one CPR-interruption span in MMSS stopwatch
// codes.
type interruptionPayload struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason,omitempty"`
}

// caseRequest mirrors the wire schema for POST /cases and POST /evaluate.
type caseRequest struct {
	CaseID               string                        `json:"case_id"`
	Calibration          map[string]calibrationPayload `json:"calibration,omitempty"`
	Observations         map[string]observationPayload `json:"observations"`
	PrePadsInterruptions []interruptionPayload         `json:"pre_pads_interruptions,omitempty"`
	PreMCPRInterruptions []interruptionPayload         `json:"pre_mcpr_interruptions,omitempty"`
}

// observerFromKey maps the wire keys "1".."3" onto observers.
func observerFromKey(key string) (model.Observer, bool) {
	switch key {
	case "1":
		return model.Observer1, true
	case "2":
		return model.Observer2, true
	case "3":
		return model.Observer3, true
	}
	return 0, false
}

func (c caseRequest) validate() error {
	if strings.TrimSpace(c.CaseID) == "" {
		return errors.New("missing case_id")
	}
	for key := range c.Calibration {
		if _, ok := observerFromKey(key); !ok {
			return fmt.Errorf("invalid calibration observer %q; must be 1, 2 or 3", key)
		}
	}
	for key, obs := range c.Observations {
		if !model.EventKey(key).Valid() {
			return fmt.Errorf("unknown event %q", key)
		}
		if obs.Value != nil && len(obs.Observers) > 0 {
			return fmt.Errorf("event %q: value and observers are mutually exclusive", key)
		}
		for observerKey := range obs.Observers {
			if _, ok := observerFromKey(observerKey); !ok {
				return fmt.Errorf("event %q: invalid observer %q; must be 1, 2 or 3", key, observerKey)
			}
		}
	}
	return nil
}

// toSnapshot converts the wire representation into the domain snapshot.
// Unparseable times degrade to unset rather than failing the request;
// field-level recording errors are a review finding, not a transport
// error.
func (c caseRequest) toSnapshot() model.CaseSnapshot {
	snapshot := model.CaseSnapshot{
		CaseID:       strings.TrimSpace(c.CaseID),
		Calibration:  make(map[model.Observer]model.CalibrationPair, len(c.Calibration)),
		Observations: make(map[model.EventKey]model.Observation, len(c.Observations)),
	}

	for key, pair := range c.Calibration {
		observer, ok := observerFromKey(key)
		if !ok {
			continue
		}
		snapshot.Calibration[observer] = model.CalibrationPair{
			Key:       model.ParseTimePoint(pair.Key),
			Reference: model.ParseTimePoint(pair.Reference),
		}
	}

	for key, obs := range c.Observations {
		eventKey := model.EventKey(key)
		if obs.Value != nil {
			snapshot.Observations[eventKey] = model.DirectObservation(model.ParseTimePoint(*obs.Value))
			continue
		}
		snapshot.Observations[eventKey] = model.MultiObserverObservation(
			model.ParseTimePoint(obs.Observers["1"]),
			model.ParseTimePoint(obs.Observers["2"]),
			model.ParseTimePoint(obs.Observers["3"]),
		)
	}

	snapshot.PrePadsInterruptions = toIntervals(c.PrePadsInterruptions)
	snapshot.PreMCPRInterruptions = toIntervals(c.PreMCPRInterruptions)

	return snapshot
}

func toIntervals(payloads []interruptionPayload) []model.InterruptionInterval {
	if len(payloads) == 0 {
		return nil
	}
	intervals := make([]model.InterruptionInterval, len(payloads))
	for i, p := range payloads {
		intervals[i] = model.InterruptionInterval{
			Start:  p.Start,
			End:    p.End,
			Reason: p.Reason,
		}
	}
	return intervals
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound allows the API to translate upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
