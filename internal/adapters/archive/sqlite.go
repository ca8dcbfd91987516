package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cprtrace/cprtrace/internal/adapters/repository"
	"github.com/cprtrace/cprtrace/internal/domain/report"

	_ "modernc.org/sqlite"
)

// SQLiteArchive implements Archive over a WAL-mode SQLite database.
type SQLiteArchive struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database and initializes the schema.
func New(path string) (*SQLiteArchive, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	a := &SQLiteArchive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return a, nil
}

// Close closes the database connection.
func (a *SQLiteArchive) Close() error { return a.db.Close() }

func (a *SQLiteArchive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reviews (
		case_id     TEXT PRIMARY KEY,
		review_id   TEXT NOT NULL,
		reviewed_at TEXT NOT NULL,
		manual_ccf  TEXT NOT NULL,
		overall_ccf TEXT NOT NULL,
		violations  INTEGER NOT NULL DEFAULT 0,
		report      TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_reviewed_at ON reviews(reviewed_at);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Put stores a review, replacing any earlier record for the case.
func (a *SQLiteArchive) Put(ctx context.Context, r repository.Review) error {
	body, err := json.Marshal(r.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO reviews (case_id, review_id, reviewed_at, manual_ccf, overall_ccf, violations, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(case_id) DO UPDATE SET
			review_id   = excluded.review_id,
			reviewed_at = excluded.reviewed_at,
			manual_ccf  = excluded.manual_ccf,
			overall_ccf = excluded.overall_ccf,
			violations  = excluded.violations,
			report      = excluded.report`,
		r.CaseID,
		r.ReviewID,
		r.ReviewedAt.UTC().Format(time.RFC3339Nano),
		r.Report.ManualCCF,
		r.Report.OverallCCF,
		len(r.Report.Violations),
		string(body),
	)
	return err
}

// Get retrieves the archived review for a case.
func (a *SQLiteArchive) Get(ctx context.Context, caseID string) (repository.Review, error) {
	row := a.db.QueryRowContext(ctx,
		`SELECT case_id, review_id, reviewed_at, report FROM reviews WHERE case_id = ?`, caseID,
	)
	return scanReview(row)
}

// ListRecent returns up to limit reviews, most recently archived first.
func (a *SQLiteArchive) ListRecent(ctx context.Context, limit int) ([]repository.Review, error) {
	if limit < 1 {
		return nil, repository.ErrInvalidLimit
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT case_id, review_id, reviewed_at, report
		 FROM reviews ORDER BY reviewed_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of archived reviews.
func (a *SQLiteArchive) Count(ctx context.Context) (int64, error) {
	var n int64
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews`).Scan(&n)
	return n, err
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (repository.Review, error) {
	var r repository.Review
	var reviewedAt, body string
	if err := row.Scan(&r.CaseID, &r.ReviewID, &reviewedAt, &body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.Review{}, repository.ErrNotFound
		}
		return repository.Review{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, reviewedAt)
	if err != nil {
		return repository.Review{}, fmt.Errorf("parse reviewed_at: %w", err)
	}
	r.ReviewedAt = at

	var rep report.Report
	if err := json.Unmarshal([]byte(body), &rep); err != nil {
		return repository.Review{}, fmt.Errorf("unmarshal report: %w", err)
	}
	r.Report = rep
	return r, nil
}
