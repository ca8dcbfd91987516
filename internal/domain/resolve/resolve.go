// Package resolve converts raw observations into corrected absolute
// instants using per-observer clock offsets.
package resolve

import (
	"github.com/cprtrace/cprtrace/internal/domain/calibration"
	"github.com/cprtrace/cprtrace/internal/domain/model"
)

// Resolver applies the observer-priority fallback chain and clock
// correction to a single observation. Resolution is deterministic and
// total: the same observation and calibration always yield the same
// result, and no input can make it error.
type Resolver struct {
	strictOffsets bool
}

// New creates a Resolver with configuration options.
func New(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve produces the corrected time point for one observation.
//
// Direct observations are calibration-exempt and pass through as-is.
// Multi-observer observations are evaluated in priority order 1, 2, 3:
// a skipped candidate anywhere short-circuits the whole observation to
// skipped, otherwise the first recorded candidate wins and its
// observer's offset is subtracted from the raw instant.
//
// A winning observer without a usable offset is corrected by zero.
// That reproduces the behavior of legacy review sheets, where an empty
// calibration row silently meant "no drift"; WithStrictOffsets rejects
// such candidates from observers 2 and 3 instead. Observer 1 is always
// returned uncorrected when no calibration exists, since the reviewer
// treats the primary recorder's clock as the working timeline.
func (r *Resolver) Resolve(obs model.Observation, offsets *calibration.Store) model.TimePoint {
	if !obs.Multi {
		return obs.Direct
	}

	// The "procedure skipped" sentinel wins over every candidate: it
	// does not fall through to the next observer.
	for _, observer := range model.Observers {
		if obs.Candidate(observer).State == model.StateSkipped {
			return model.Skipped()
		}
	}

	for _, observer := range model.Observers {
		candidate := obs.Candidate(observer)
		if !candidate.IsRecorded() {
			continue
		}
		offset, ok := offsets.Offset(observer)
		if !ok {
			if r.strictOffsets && observer != model.Observer1 {
				return model.Unset()
			}
			offset = 0
		}
		return model.Recorded(candidate.At.Add(-offset))
	}

	return model.Unset()
}

// ResolveAll resolves every known timeline event of a snapshot into a
// corrected-instant map. Events absent from the snapshot resolve to
// unset.
func (r *Resolver) ResolveAll(snapshot model.CaseSnapshot) map[model.EventKey]model.TimePoint {
	offsets := calibration.New(snapshot.Calibration)
	points := make(map[model.EventKey]model.TimePoint, len(model.EventKeys))
	for _, key := range model.EventKeys {
		obs, found := snapshot.Observations[key]
		if !found {
			points[key] = model.Unset()
			continue
		}
		points[key] = r.Resolve(obs, offsets)
	}
	return points
}
