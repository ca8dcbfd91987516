// Package model contains domain models passed between layers.
package model

import "time"

// SentinelNotApplicable marks "procedure not performed" on the wire.
// Distinct from an empty value, which means "not yet recorded".
const SentinelNotApplicable = "II"

// Observer identifies one of up to three rescuers submitting candidate times.
// Observer 1 has the highest resolution priority.
type Observer int

// Observer identities in priority order.
const (
	Observer1 Observer = iota + 1
	Observer2
	Observer3
)

// Observers lists all observer identities in resolution priority order.
var Observers = [3]Observer{Observer1, Observer2, Observer3}

// State is the three-valued recording state of a single time field.
type State int

const (
	// StateUnset means the field was never filled in (or was unparsable).
	StateUnset State = iota
	// StateSkipped means the procedure was explicitly marked not performed.
	StateSkipped
	// StateRecorded means the field carries an absolute instant.
	StateRecorded
)

// TimePoint is one time field together with its recording state.
// At is meaningful only when State is StateRecorded.
type TimePoint struct {
	State State
	At    time.Time
}

// Unset returns a TimePoint for a field that was never filled in.
func Unset() TimePoint { return TimePoint{State: StateUnset} }

// Skipped returns a TimePoint for a procedure marked not performed.
func Skipped() TimePoint { return TimePoint{State: StateSkipped} }

// Recorded returns a TimePoint carrying the given instant.
func Recorded(at time.Time) TimePoint { return TimePoint{State: StateRecorded, At: at} }

// IsRecorded reports whether the point carries an instant.
func (tp TimePoint) IsRecorded() bool { return tp.State == StateRecorded }

// ParseTimePoint maps a raw wire value onto the three-valued state.
// Empty means unset, the not-applicable sentinel means skipped, anything
// else is parsed as RFC3339. Unparsable values degrade to unset rather
// than erroring.
func ParseTimePoint(raw string) TimePoint {
	switch raw {
	case "":
		return Unset()
	case SentinelNotApplicable:
		return Skipped()
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return Unset()
	}
	return Recorded(at)
}

// Observation is a tagged variant: either a single direct time field
// (calibration-exempt) or up to three observer-submitted candidates.
type Observation struct {
	Multi      bool
	Direct     TimePoint
	Candidates [3]TimePoint // indexed by Observer-1
}

// DirectObservation wraps a single direct time field.
func DirectObservation(tp TimePoint) Observation {
	return Observation{Direct: tp}
}

// MultiObserverObservation wraps three observer candidates in priority order.
func MultiObserverObservation(o1, o2, o3 TimePoint) Observation {
	return Observation{Multi: true, Candidates: [3]TimePoint{o1, o2, o3}}
}

// Candidate returns the candidate submitted by the given observer.
func (o Observation) Candidate(obs Observer) TimePoint {
	return o.Candidates[obs-1]
}

// CalibrationPair holds one rescuer's device reading paired with the
// AED-displayed reading for the same real event.
type CalibrationPair struct {
	Key       TimePoint
	Reference TimePoint
}

// InterruptionInterval is one CPR-interruption span. Start and End are
// 4-digit minute-second codes (MMSS) on the rescuer's stopwatch.
type InterruptionInterval struct {
	Start  string
	End    string
	Reason string
}

// EventKey names a resuscitation event on the timeline.
type EventKey string

// Resuscitation timeline events.
const (
	EventFound       EventKey = "found"
	EventContact     EventKey = "contact"
	EventJudgment    EventKey = "judgment"
	EventCPRStart    EventKey = "cpr_start"
	EventPowerOn     EventKey = "power_on"
	EventPads        EventKey = "pads"
	EventFirstShock  EventKey = "first_shock"
	EventVentilation EventKey = "ventilation"
	EventAirway      EventKey = "airway"
	EventMCPR        EventKey = "mcpr"
	EventMedication  EventKey = "medication"
	EventAEDOff      EventKey = "aed_off"
	EventROSC        EventKey = "rosc"
)

// EventKeys lists every timeline event in rough clinical order.
var EventKeys = []EventKey{
	EventFound,
	EventContact,
	EventJudgment,
	EventCPRStart,
	EventPowerOn,
	EventPads,
	EventFirstShock,
	EventVentilation,
	EventAirway,
	EventMCPR,
	EventMedication,
	EventAEDOff,
	EventROSC,
}

// Valid reports whether k names a known timeline event.
func (k EventKey) Valid() bool {
	for _, known := range EventKeys {
		if k == known {
			return true
		}
	}
	return false
}

// CaseSnapshot is one full snapshot of a case record as supplied by the
// host. The engine recomputes everything from it on each invocation and
// never mutates it.
type CaseSnapshot struct {
	CaseID               string
	Calibration          map[Observer]CalibrationPair
	Observations         map[EventKey]Observation
	PrePadsInterruptions []InterruptionInterval
	PreMCPRInterruptions []InterruptionInterval
}
