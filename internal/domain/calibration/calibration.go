// Package calibration derives per-observer clock offsets from paired
// device readings. The AED clock is the reference; each rescuer's
// personal device reading for the same real event yields that
// rescuer's offset.
package calibration

import (
	"time"

	"github.com/cprtrace/cprtrace/internal/domain/model"
)

// Store answers offset lookups over one case's calibration map.
// It holds no derived state: every Offset call recomputes from the
// pairs so edits to the case record are always reflected.
type Store struct {
	pairs map[model.Observer]model.CalibrationPair
}

// New creates a Store over the given calibration pairs. A nil map is
// treated as a case with no calibration at all.
func New(pairs map[model.Observer]model.CalibrationPair) *Store {
	return &Store{pairs: pairs}
}

// Offset returns the observer's clock offset, key minus reference.
// A positive offset means the observer's device runs ahead of the AED.
// ok is false when the observer has no pair or either side of the pair
// is not a recorded instant.
func (s *Store) Offset(obs model.Observer) (offset time.Duration, ok bool) {
	pair, found := s.pairs[obs]
	if !found {
		return 0, false
	}
	if !pair.Key.IsRecorded() || !pair.Reference.IsRecorded() {
		return 0, false
	}
	return pair.Key.At.Sub(pair.Reference.At), true
}
