// Package chronology checks corrected instants against the fixed
// precedence graph of resuscitation events.
package chronology

import "time"

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithROSCTolerance sets how far apart the ROSC and AED-off instants
// may be before the pair is flagged.
func WithROSCTolerance(tolerance time.Duration) Option {
	return func(v *Validator) {
		if tolerance > 0 {
			v.roscTolerance = tolerance
		}
	}
}
