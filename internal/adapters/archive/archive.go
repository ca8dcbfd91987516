// Package archive persists completed reviews to SQLite so they
// survive restarts. The in-memory store stays the read path for the
// API; the archive is a durable record for audit.
package archive

import (
	"context"

	"github.com/cprtrace/cprtrace/internal/adapters/repository"
)

// Archive defines the durable review record operations.
// The concrete *SQLiteArchive type satisfies this interface; code that
// depends on the archive can accept Archive to enable mock injection
// in tests.
type Archive interface {
	// Close closes the database connection.
	Close() error

	// Put stores a review, replacing any earlier record for the case.
	Put(ctx context.Context, r repository.Review) error

	// Get retrieves the archived review for a case.
	// Returns repository.ErrNotFound when absent.
	Get(ctx context.Context, caseID string) (repository.Review, error)

	// ListRecent returns up to limit reviews, most recently archived first.
	ListRecent(ctx context.Context, limit int) ([]repository.Review, error)

	// Count returns the number of archived reviews.
	Count(ctx context.Context) (int64, error)
}
