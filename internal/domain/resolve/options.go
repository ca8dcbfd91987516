// Package resolve converts raw observations into corrected absolute
// instants using per-observer clock offsets.
package resolve

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithStrictOffsets controls the missing-offset policy for observers 2
// and 3. When strict, a winning candidate from an uncalibrated
// secondary observer resolves to unset instead of being passed through
// with a zero offset.
func WithStrictOffsets(strict bool) Option {
	return func(r *Resolver) {
		r.strictOffsets = strict
	}
}
