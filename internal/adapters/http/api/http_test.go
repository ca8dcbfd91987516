package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cprtrace/cprtrace/internal/adapters/http/api"
	"github.com/cprtrace/cprtrace/internal/adapters/repository"
	service "github.com/cprtrace/cprtrace/internal/app"
	"github.com/cprtrace/cprtrace/internal/domain/model"
	"github.com/cprtrace/cprtrace/internal/domain/report"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDependencies struct {
	submitted  []model.CaseSnapshot
	submitErr  error
	evaluated  []model.CaseSnapshot
	reviews    map[string]repository.Review
	recent     []repository.Review
	recentErr  error
	evalReport report.Report
	evalErr    error
}

func (m *mockDependencies) Evaluate(_ context.Context, c model.CaseSnapshot) (report.Report, error) {
	m.evaluated = append(m.evaluated, c)
	if m.evalErr != nil {
		return report.Report{}, m.evalErr
	}
	r := m.evalReport
	r.CaseID = c.CaseID
	return r, nil
}

func (m *mockDependencies) Submit(_ context.Context, c model.CaseSnapshot) error {
	if m.submitErr != nil {
		return m.submitErr
	}
	m.submitted = append(m.submitted, c)
	return nil
}

func (m *mockDependencies) Report(_ context.Context, caseID string) (repository.Review, error) {
	rev, ok := m.reviews[caseID]
	if !ok {
		return repository.Review{}, repository.ErrNotFound
	}
	return rev, nil
}

func (m *mockDependencies) Recent(_ context.Context, n int) ([]repository.Review, error) {
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	if n > len(m.recent) {
		return m.recent, nil
	}
	return m.recent[:n], nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, 100)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

const sampleCaseBody = `{
	"case_id": "case-1",
	"calibration": {
		"1": {"key": "2026-03-14T10:00:05Z", "reference": "2026-03-14T10:00:00Z"}
	},
	"observations": {
		"judgment": {"value": "2026-03-14T10:02:00Z"},
		"cpr_start": {"observers": {"1": "2026-03-14T10:02:35Z"}},
		"pads": {"value": "2026-03-14T10:04:00Z"},
		"mcpr": {"observers": {"1": "II"}}
	},
	"pre_pads_interruptions": [
		{"start": "0100", "end": "0112", "reason": "rhythm check"}
	]
}`

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Then health endpoint should be accessible", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("And stats endpoint should be accessible", func() {
			req := httptest.NewRequest("GET", "/stats", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "started")
		})
	})
}

func TestCasesHandler_Submit(t *testing.T) {
	Convey("Given a cases endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When posting a valid case", func() {
			req := httptest.NewRequest("POST", "/cases", strings.NewReader(sampleCaseBody))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)

				var ack map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &ack), ShouldBeNil)
				So(ack["status"], ShouldEqual, "accepted")
				So(ack["duplicate"], ShouldEqual, false)
			})

			Convey("And the snapshot is converted faithfully", func() {
				So(len(deps.submitted), ShouldEqual, 1)
				snapshot := deps.submitted[0]
				So(snapshot.CaseID, ShouldEqual, "case-1")

				pair := snapshot.Calibration[model.Observer1]
				So(pair.Key.IsRecorded(), ShouldBeTrue)
				So(pair.Key.At.Sub(pair.Reference.At), ShouldEqual, 5*time.Second)

				judgment := snapshot.Observations[model.EventJudgment]
				So(judgment.Multi, ShouldBeFalse)
				So(judgment.Direct.IsRecorded(), ShouldBeTrue)

				cprStart := snapshot.Observations[model.EventCPRStart]
				So(cprStart.Multi, ShouldBeTrue)
				So(cprStart.Candidate(model.Observer1).IsRecorded(), ShouldBeTrue)

				mcpr := snapshot.Observations[model.EventMCPR]
				So(mcpr.Candidate(model.Observer1).State, ShouldEqual, model.StateSkipped)

				So(len(snapshot.PrePadsInterruptions), ShouldEqual, 1)
				So(snapshot.PrePadsInterruptions[0].Start, ShouldEqual, "0100")
			})
		})

		Convey("When posting malformed JSON", func() {
			req := httptest.NewRequest("POST", "/cases", strings.NewReader("{nope"))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When posting a case without case_id", func() {
			req := httptest.NewRequest("POST", "/cases", strings.NewReader(`{"observations":{}}`))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When posting a case with an unknown event", func() {
			body := `{"case_id": "case-2", "observations": {"teleport": {"value": "2026-03-14T10:00:00Z"}}}`
			req := httptest.NewRequest("POST", "/cases", strings.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "teleport")
			})
		})

		Convey("When posting an event with both value and observers", func() {
			body := `{"case_id": "case-3", "observations": {"pads": {"value": "2026-03-14T10:00:00Z", "observers": {"1": "2026-03-14T10:00:00Z"}}}}`
			req := httptest.NewRequest("POST", "/cases", strings.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the case was already submitted", func() {
			deps.submitErr = service.ErrDuplicateCase
			req := httptest.NewRequest("POST", "/cases", strings.NewReader(sampleCaseBody))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the duplicate is acknowledged", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var ack map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &ack), ShouldBeNil)
				So(ack["status"], ShouldEqual, "duplicate")
				So(ack["duplicate"], ShouldEqual, true)
			})
		})

		Convey("When the queue is saturated", func() {
			deps.submitErr = service.ErrBackpressure
			req := httptest.NewRequest("POST", "/cases", strings.NewReader(sampleCaseBody))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then backpressure is signaled", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			})
		})
	})
}

func TestEvaluateHandler(t *testing.T) {
	Convey("Given an evaluate endpoint", t, func() {
		deps := &mockDependencies{
			evalReport: report.Report{ManualCCF: "83.3"},
		}
		mux := newMux(deps)

		Convey("When posting a valid case", func() {
			req := httptest.NewRequest("POST", "/evaluate", strings.NewReader(sampleCaseBody))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the report is returned without storing", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var r report.Report
				So(json.Unmarshal(w.Body.Bytes(), &r), ShouldBeNil)
				So(r.CaseID, ShouldEqual, "case-1")
				So(r.ManualCCF, ShouldEqual, "83.3")
				So(len(deps.submitted), ShouldEqual, 0)
			})
		})

		Convey("When using the wrong method", func() {
			req := httptest.NewRequest("GET", "/evaluate", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestCasesHandler_Report(t *testing.T) {
	Convey("Given a case report endpoint", t, func() {
		deps := &mockDependencies{
			reviews: map[string]repository.Review{
				"case-1": {
					ReviewID:   "rev-1",
					CaseID:     "case-1",
					ReviewedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
					Report:     report.Report{CaseID: "case-1", ManualCCF: "83.3"},
				},
			},
		}
		mux := newMux(deps)

		Convey("When fetching an existing review", func() {
			req := httptest.NewRequest("GET", "/cases/case-1/report", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the review is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var rev repository.Review
				So(json.Unmarshal(w.Body.Bytes(), &rev), ShouldBeNil)
				So(rev.ReviewID, ShouldEqual, "rev-1")
				So(rev.Report.ManualCCF, ShouldEqual, "83.3")
			})
		})

		Convey("When fetching an unknown case", func() {
			req := httptest.NewRequest("GET", "/cases/case-404/report", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the path is malformed", func() {
			req := httptest.NewRequest("GET", "/cases/case-1/extra", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestCasesHandler_Recent(t *testing.T) {
	Convey("Given a recent reviews endpoint", t, func() {
		deps := &mockDependencies{
			recent: []repository.Review{
				{ReviewID: "rev-b", CaseID: "case-b"},
				{ReviewID: "rev-a", CaseID: "case-a"},
			},
		}
		mux := newMux(deps)

		Convey("When listing with a valid limit", func() {
			req := httptest.NewRequest("GET", "/cases?limit=10", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the reviews are returned most recent first", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var reviews []repository.Review
				So(json.Unmarshal(w.Body.Bytes(), &reviews), ShouldBeNil)
				So(len(reviews), ShouldEqual, 2)
				So(reviews[0].CaseID, ShouldEqual, "case-b")
			})
		})

		Convey("When the limit is missing", func() {
			req := httptest.NewRequest("GET", "/cases", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the limit exceeds the maximum", func() {
			req := httptest.NewRequest("GET", "/cases?limit=1000", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "limit_exceeded")
			})
		})
	})
}
