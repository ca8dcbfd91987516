// Package interruption totals CPR-interruption interval lists.
package interruption

import "github.com/cprtrace/cprtrace/internal/domain/model"

// Boundary codes are 4-digit minute-second strings, e.g. "1106" for
// 11 minutes 6 seconds on the rescuer's stopwatch.
const boundaryDigits = 4

// TotalSeconds sums the elapsed seconds across the given intervals.
// Only intervals whose end lies after their start contribute; reversed
// or empty intervals add zero. That is accepted form noise, not an
// error the engine reports. The engine enforces no interval count cap.
func TotalSeconds(intervals []model.InterruptionInterval) int {
	total := 0
	for _, interval := range intervals {
		start := boundarySeconds(interval.Start)
		end := boundarySeconds(interval.End)
		if end > start {
			total += end - start
		}
	}
	return total
}

// boundarySeconds parses an MMSS code into seconds. Anything other
// than exactly four digits is treated as zero.
func boundarySeconds(code string) int {
	if len(code) != boundaryDigits {
		return 0
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return 0
		}
	}
	minutes := int(code[0]-'0')*10 + int(code[1]-'0')
	seconds := int(code[2]-'0')*10 + int(code[3]-'0')
	return minutes*60 + seconds
}
