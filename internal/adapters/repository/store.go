// Package repository defines the completed-review store interface and
// errors.
package repository

import (
	"context"
	"time"

	"github.com/cprtrace/cprtrace/internal/domain/report"
)

// Review is one completed case review.
type Review struct {
	ReviewID   string        `json:"review_id"`
	CaseID     string        `json:"case_id"`
	ReviewedAt time.Time     `json:"reviewed_at"`
	Report     report.Report `json:"report"`
}

// Store provides read/write access to completed reviews.
type Store interface {
	// Put stores a review, replacing any earlier review of the same case.
	Put(ctx context.Context, r Review) error

	// Get returns the review for a case.
	// Returns ErrNotFound if the case has not been reviewed.
	Get(ctx context.Context, caseID string) (Review, error)

	// Recent returns up to n reviews, most recently stored first.
	Recent(ctx context.Context, n int) ([]Review, error)

	// Count returns the number of reviews held.
	Count(ctx context.Context) int
}
