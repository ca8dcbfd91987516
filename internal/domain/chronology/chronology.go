// Package chronology checks corrected instants against the fixed
// precedence graph of resuscitation events.
package chronology

import (
	"time"

	"github.com/cprtrace/cprtrace/internal/domain/model"
)

// Default tolerance for the ROSC / AED-off equality check.
const defaultROSCTolerance = 1000 * time.Millisecond

// Violation flags one event whose corrected instant breaks an ordering
// rule. Violations are a presentation concern: metrics still compute
// from the available instants.
type Violation struct {
	Event model.EventKey `json:"event"`
	Rule  string         `json:"rule"`
}

// Validator evaluates the precedence graph over a corrected-instant
// map. It is stateless; a single Validator may be shared freely.
type Validator struct {
	roscTolerance time.Duration
}

// New creates a Validator with configuration options.
func New(opts ...Option) *Validator {
	v := &Validator{
		roscTolerance: defaultROSCTolerance,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// orderingRule requires event to occur at or after prior.
type orderingRule struct {
	prior model.EventKey
	event model.EventKey
	rule  string
}

var orderingRules = []orderingRule{
	{model.EventFound, model.EventContact, "contact before patient found"},
	{model.EventContact, model.EventJudgment, "judgment before patient contact"},
	{model.EventJudgment, model.EventCPRStart, "CPR start before judgment"},
	{model.EventJudgment, model.EventPowerOn, "AED power-on before judgment"},
	{model.EventPowerOn, model.EventPads, "pads attached before AED power-on"},
	{model.EventJudgment, model.EventVentilation, "first ventilation before judgment"},
	{model.EventJudgment, model.EventAirway, "airway placement before judgment"},
	{model.EventCPRStart, model.EventMCPR, "mechanical CPR before manual CPR start"},
	{model.EventJudgment, model.EventMedication, "first medication before judgment"},
}

// Violations evaluates every rule of the precedence graph. A rule with
// an unresolved endpoint is vacuously satisfied: missing data is a
// completeness concern, not an ordering one.
func (v *Validator) Violations(points map[model.EventKey]model.TimePoint) []Violation {
	var out []Violation

	for _, r := range orderingRules {
		if breaksOrdering(points[r.prior], points[r.event]) {
			out = append(out, Violation{Event: r.event, Rule: r.rule})
		}
	}

	// AED-off follows mechanical CPR setup, or the pads when no
	// mechanical CPR was performed.
	aedOffPrior := model.EventMCPR
	if points[model.EventMCPR].State == model.StateSkipped {
		aedOffPrior = model.EventPads
	}
	if breaksOrdering(points[aedOffPrior], points[model.EventAEDOff]) {
		out = append(out, Violation{Event: model.EventAEDOff, Rule: "AED off before " + string(aedOffPrior)})
	}

	// ROSC is recorded at AED removal; the two instants must agree
	// within tolerance in either direction.
	rosc := points[model.EventROSC]
	aedOff := points[model.EventAEDOff]
	if rosc.IsRecorded() && aedOff.IsRecorded() {
		diff := rosc.At.Sub(aedOff.At)
		if diff < 0 {
			diff = -diff
		}
		if diff > v.roscTolerance {
			out = append(out, Violation{Event: model.EventROSC, Rule: "ROSC does not match AED off"})
		}
	}

	// The first shock falls strictly between pads attachment and AED off.
	shock := points[model.EventFirstShock]
	pads := points[model.EventPads]
	if shock.IsRecorded() && pads.IsRecorded() && !shock.At.After(pads.At) {
		out = append(out, Violation{Event: model.EventFirstShock, Rule: "first shock not after pads"})
	}
	if shock.IsRecorded() && aedOff.IsRecorded() && !shock.At.Before(aedOff.At) {
		out = append(out, Violation{Event: model.EventFirstShock, Rule: "first shock not before AED off"})
	}

	return out
}

// IsViolation reports whether the given event is flagged by any rule.
func (v *Validator) IsViolation(key model.EventKey, points map[model.EventKey]model.TimePoint) bool {
	for _, violation := range v.Violations(points) {
		if violation.Event == key {
			return true
		}
	}
	return false
}

// breaksOrdering reports a violation when both endpoints are recorded
// and the event precedes its required prior. Equal instants are fine:
// rescuers log to whole seconds and simultaneous entries are common.
func breaksOrdering(prior, event model.TimePoint) bool {
	if !prior.IsRecorded() || !event.IsRecorded() {
		return false
	}
	return event.At.Before(prior.At)
}
