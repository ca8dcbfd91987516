// Package report derives the review metrics report from corrected
// instants and interruption totals: named delays, compression times
// and chest-compression fractions.
package report

import (
	"fmt"
	"time"

	"github.com/cprtrace/cprtrace/internal/domain/chronology"
	"github.com/cprtrace/cprtrace/internal/domain/model"
)

// Day-rollover correction bounds. A computed duration more negative
// than half a day is assumed to have crossed midnight unflagged.
const (
	rolloverThreshold = -12 * time.Hour
	day               = 24 * time.Hour
)

// CCF sentinel strings. Insufficient data and a broken time base are
// distinct conditions and render differently on the review form.
const (
	CCFNotAvailable = "N/A"
	CCFTimeError    = "time error"
)

// ValueState qualifies a computed number.
type ValueState string

const (
	// ValueOK means Seconds carries a usable signed value.
	ValueOK ValueState = "ok"
	// ValueUnavailable means an input instant was missing.
	ValueUnavailable ValueState = "unavailable"
	// ValueNotPerformed means a dependent procedure was explicitly skipped.
	ValueNotPerformed ValueState = "not_performed"
)

// Seconds is a signed second count together with its state. Negative
// values are returned as-is so the host can flag implausible results.
type Seconds struct {
	State   ValueState `json:"state"`
	Seconds int        `json:"seconds"`
}

// OK wraps a usable value.
func OK(seconds int) Seconds { return Seconds{State: ValueOK, Seconds: seconds} }

// Unavailable marks a value whose inputs were missing.
func Unavailable() Seconds { return Seconds{State: ValueUnavailable} }

// NotPerformed marks a value suppressed by a skipped procedure.
func NotPerformed() Seconds { return Seconds{State: ValueNotPerformed} }

// Report is the full metrics report for one case snapshot. It is a
// pure function of the snapshot: identical input produces a
// byte-identical report.
type Report struct {
	CaseID string `json:"case_id"`

	JudgmentToCPRStart    Seconds `json:"judgment_to_cpr_start"`
	JudgmentToPads        Seconds `json:"judgment_to_pads"`
	JudgmentToVentilation Seconds `json:"judgment_to_ventilation"`
	JudgmentToAirway      Seconds `json:"judgment_to_airway"`
	JudgmentToMedication  Seconds `json:"judgment_to_medication"`

	PrePadsInterruptionSeconds int `json:"pre_pads_interruption_seconds"`
	PreMCPRInterruptionSeconds int `json:"pre_mcpr_interruption_seconds"`

	PreAedCompression   Seconds `json:"pre_aed_compression"`
	PreMCPRCompression  Seconds `json:"pre_mcpr_compression"`
	PostMCPRCompression Seconds `json:"post_mcpr_compression"`

	ManualCCF  string `json:"manual_ccf"`
	OverallCCF string `json:"overall_ccf"`

	Violations        []chronology.Violation `json:"violations"`
	MissingRequired   []model.EventKey       `json:"missing_required"`
	NegativeDurations []string               `json:"negative_durations"`
}

// requiredEvents are the fields a complete review needs regardless of
// which optional procedures were performed.
var requiredEvents = []model.EventKey{
	model.EventFound,
	model.EventContact,
	model.EventJudgment,
	model.EventCPRStart,
	model.EventPowerOn,
	model.EventPads,
	model.EventAEDOff,
}

// Calculator combines corrected instants and interruption totals into
// a Report. It is stateless and safe for concurrent use.
type Calculator struct{}

// NewCalculator creates a Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// SafeDuration computes end minus start in whole seconds with
// day-rollover correction. The state carries through: a skipped
// endpoint yields not-performed, a missing one unavailable.
func SafeDuration(start, end model.TimePoint) Seconds {
	if start.State == model.StateSkipped || end.State == model.StateSkipped {
		return NotPerformed()
	}
	if !start.IsRecorded() || !end.IsRecorded() {
		return Unavailable()
	}
	diff := end.At.Sub(start.At)
	if diff < rolloverThreshold {
		diff += day
	}
	// Integer division truncates toward zero for negatives too.
	return OK(int(diff / time.Second))
}

// Compute assembles the report. Violations are carried through as
// given; they never suppress a metric.
func (c *Calculator) Compute(
	caseID string,
	points map[model.EventKey]model.TimePoint,
	prePadsSeconds, preMCPRSeconds int,
	violations []chronology.Violation,
) Report {
	judgment := points[model.EventJudgment]
	pads := points[model.EventPads]
	mcpr := points[model.EventMCPR]
	aedOff := points[model.EventAEDOff]
	mcprSkipped := mcpr.State == model.StateSkipped

	r := Report{
		CaseID: caseID,

		JudgmentToCPRStart:    SafeDuration(judgment, points[model.EventCPRStart]),
		JudgmentToPads:        SafeDuration(judgment, pads),
		JudgmentToVentilation: SafeDuration(judgment, points[model.EventVentilation]),
		JudgmentToAirway:      SafeDuration(judgment, points[model.EventAirway]),
		JudgmentToMedication:  SafeDuration(judgment, points[model.EventMedication]),

		PrePadsInterruptionSeconds: prePadsSeconds,
		PreMCPRInterruptionSeconds: preMCPRSeconds,

		Violations: violations,
	}

	r.PreAedCompression = minus(r.JudgmentToPads, prePadsSeconds)

	// The pre-MCPR leg runs from the pads to the MCPR setup, or all
	// the way to AED off when no machine was used.
	preMCPREnd := mcpr
	if mcprSkipped {
		preMCPREnd = aedOff
	}
	r.PreMCPRCompression = minus(SafeDuration(pads, preMCPREnd), preMCPRSeconds)

	if mcprSkipped {
		r.PostMCPRCompression = NotPerformed()
	} else {
		r.PostMCPRCompression = SafeDuration(mcpr, aedOff)
	}

	manualEnd := mcpr
	if mcprSkipped {
		manualEnd = aedOff
	}
	r.ManualCCF = fraction(
		[]Seconds{r.PreAedCompression, r.PreMCPRCompression},
		SafeDuration(judgment, manualEnd),
	)

	// The overall variant spans pads to AED off; when no machine was
	// used the post-MCPR leg simply contributes nothing.
	overallNumerator := []Seconds{r.PreMCPRCompression}
	if !mcprSkipped {
		overallNumerator = append(overallNumerator, r.PostMCPRCompression)
	}
	r.OverallCCF = fraction(overallNumerator, safeDurationIgnoringSkip(pads, aedOff))

	for _, key := range requiredEvents {
		if points[key].State == model.StateUnset {
			r.MissingRequired = append(r.MissingRequired, key)
		}
	}

	r.NegativeDurations = negatives(r)

	return r
}

// minus subtracts an interruption total from a computed duration,
// preserving non-OK states.
func minus(d Seconds, interruptionSeconds int) Seconds {
	if d.State != ValueOK {
		return d
	}
	return OK(d.Seconds - interruptionSeconds)
}

// fraction renders a compression fraction percentage with one decimal
// place, or a sentinel when it cannot be computed.
func fraction(numerators []Seconds, denominator Seconds) string {
	sum := 0
	for _, n := range numerators {
		if n.State != ValueOK {
			return CCFNotAvailable
		}
		sum += n.Seconds
	}
	if denominator.State != ValueOK {
		return CCFNotAvailable
	}
	if denominator.Seconds <= 0 {
		return CCFTimeError
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(denominator.Seconds)*100)
}

// safeDurationIgnoringSkip treats skipped endpoints as unavailable.
// The overall CCF denominator runs pads to AED off and a skip marker
// on either is form noise, not a meaningful "not performed".
func safeDurationIgnoringSkip(start, end model.TimePoint) Seconds {
	d := SafeDuration(start, end)
	if d.State == ValueNotPerformed {
		return Unavailable()
	}
	return d
}

// negatives names every computed value that came out negative, for the
// host to flag as clinically implausible.
func negatives(r Report) []string {
	named := []struct {
		name  string
		value Seconds
	}{
		{"judgment_to_cpr_start", r.JudgmentToCPRStart},
		{"judgment_to_pads", r.JudgmentToPads},
		{"judgment_to_ventilation", r.JudgmentToVentilation},
		{"judgment_to_airway", r.JudgmentToAirway},
		{"judgment_to_medication", r.JudgmentToMedication},
		{"pre_aed_compression", r.PreAedCompression},
		{"pre_mcpr_compression", r.PreMCPRCompression},
		{"post_mcpr_compression", r.PostMCPRCompression},
	}
	var out []string
	for _, n := range named {
		if n.value.State == ValueOK && n.value.Seconds < 0 {
			out = append(out, n.name)
		}
	}
	return out
}
