package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/ernie/nextup/internal/domain"
	"github.com/ernie/nextup/internal/namegen"
	_ "modernc.org/sqlite"
)

// formatTimestamp converts time.Time to SQLite-compatible UTC ISO8601 string
// The Z suffix ensures the Go sqlite driver parses it back as UTC
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

//go:embed schema.sql
var schema string

// Store provides database access. Each exported mutation runs as a single
// transaction, so a court's queue positions and scores are never observed
// half-applied.
type Store struct {
	db    *sql.DB
	names *namegen.Generator
}

// New creates a new Store with the given database path. The generator
// supplies default court names and court ids.
func New(dbPath string, names *namegen.Generator) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable foreign keys, WAL mode for better performance, and busy timeout for concurrency
	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	// Create tables
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, names: names}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Court methods ---

// CreateCourt creates a court with a fresh id. An empty customName gets a
// generated "Adjective Noun" name. Scores start 0/0 with the default target;
// last_activity starts equal to created_at.
func (s *Store) CreateCourt(ctx context.Context, customName string) (*domain.Court, error) {
	name := domain.NormalizeName(customName)
	if name == "" {
		name = s.names.CourtName()
	}
	now := time.Now().UTC()
	ts := formatTimestamp(now)

	// Ensure id uniqueness by retrying on conflict
	for attempts := 0; attempts < 5; attempts++ {
		id, err := s.names.CourtID()
		if err != nil {
			return nil, fmt.Errorf("generating court id: %w", err)
		}

		_, err = s.db.ExecContext(ctx, `
			INSERT INTO courts (id, name, good_score, bad_score, target_score, created_at, last_activity)
			VALUES (?, ?, 0, 0, ?, ?, ?)
		`, id, name, domain.DefaultTargetScore, ts, ts)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint") {
				continue
			}
			return nil, err
		}

		return &domain.Court{
			ID:           id,
			Name:         name,
			TargetScore:  domain.DefaultTargetScore,
			CreatedAt:    now,
			LastActivity: now,
		}, nil
	}
	return nil, fmt.Errorf("failed to generate unique court id after 5 attempts")
}

// GetCourt returns a court by id, or nil if it doesn't exist.
func (s *Store) GetCourt(ctx context.Context, id string) (*domain.Court, error) {
	var c domain.Court
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, good_score, bad_score, target_score, created_at, last_activity
		FROM courts WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.GoodScore, &c.BadScore, &c.TargetScore, &c.CreatedAt, &c.LastActivity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCourts returns all courts as summaries, most recently active first.
func (s *Store) ListCourts(ctx context.Context) ([]domain.CourtSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, last_activity, created_at
		FROM courts ORDER BY last_activity DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courts []domain.CourtSummary
	for rows.Next() {
		var c domain.CourtSummary
		if err := rows.Scan(&c.ID, &c.Name, &c.LastActivity, &c.CreatedAt); err != nil {
			return nil, err
		}
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

// DeleteCourt removes a court and, via the cascade, all of its queue
// entries. Deleting a nonexistent id is a no-op.
func (s *Store) DeleteCourt(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM courts WHERE id = ?`, id)
	return err
}

// ReapIdleCourts deletes every court whose last activity is strictly before
// the cutoff and returns how many were removed. The single DELETE keeps the
// sweep atomic with respect to in-flight court mutations.
func (s *Store) ReapIdleCourts(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM courts WHERE last_activity < ?
	`, formatTimestamp(cutoff))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// touchCourt bumps a court's last_activity inside an open transaction.
// Mutations call this; reads never do.
func touchCourt(ctx context.Context, tx *sql.Tx, courtID string, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE courts SET last_activity = ? WHERE id = ?
	`, formatTimestamp(now), courtID)
	return err
}

// --- Queue methods ---

// GetQueue returns the court's player names ordered by position.
func (s *Store) GetQueue(ctx context.Context, courtID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM queue_entries WHERE court_id = ? ORDER BY position ASC
	`, courtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNames(rows)
}

// queueNames reads the ordered queue inside an open transaction so the
// returned snapshot matches the mutation committed with it.
func queueNames(ctx context.Context, tx *sql.Tx, courtID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT name FROM queue_entries WHERE court_id = ? ORDER BY position ASC
	`, courtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNames(rows)
}

func collectNames(rows *sql.Rows) ([]string, error) {
	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// JoinQueue adds a player to the back of a court's queue and returns the new
// ordered queue. The stored name keeps its normalized casing; uniqueness
// within the court is case-insensitive.
func (s *Store) JoinQueue(ctx context.Context, courtID, rawName string) ([]string, error) {
	name := domain.NormalizeName(rawName)
	if name == "" {
		return nil, domain.ErrEmptyName
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM courts WHERE id = ?`, courtID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, domain.ErrCourtNotFound
	}
	if err != nil {
		return nil, err
	}

	err = tx.QueryRowContext(ctx, `
		SELECT 1 FROM queue_entries WHERE court_id = ? AND clean_name = ?
	`, courtID, domain.FoldName(name)).Scan(&exists)
	if err == nil {
		return nil, domain.ErrAlreadyQueued
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	// Positions are assigned monotonically within the transaction;
	// compaction on leave/advance never reorders waiting players.
	var maxPos int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(position), 0) FROM queue_entries WHERE court_id = ?
	`, courtID).Scan(&maxPos); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO queue_entries (court_id, name, clean_name, position, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, courtID, name, domain.FoldName(name), maxPos+1, formatTimestamp(now)); err != nil {
		return nil, err
	}

	if err := touchCourt(ctx, tx, courtID, now); err != nil {
		return nil, err
	}

	queue, err := queueNames(ctx, tx, courtID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return queue, nil
}

// LeaveQueue removes a player by name and closes the gap: every entry behind
// the removed one moves up a position.
func (s *Store) LeaveQueue(ctx context.Context, courtID, rawName string) ([]string, error) {
	name := domain.NormalizeName(rawName)
	if name == "" {
		return nil, domain.ErrEmptyName
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var removedPos int
	err = tx.QueryRowContext(ctx, `
		SELECT position FROM queue_entries WHERE court_id = ? AND clean_name = ?
	`, courtID, domain.FoldName(name)).Scan(&removedPos)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNameNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM queue_entries WHERE court_id = ? AND clean_name = ?
	`, courtID, domain.FoldName(name)); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE queue_entries SET position = position - 1 WHERE court_id = ? AND position > ?
	`, courtID, removedPos); err != nil {
		return nil, err
	}

	if err := touchCourt(ctx, tx, courtID, now); err != nil {
		return nil, err
	}

	queue, err := queueNames(ctx, tx, courtID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return queue, nil
}

// AdvanceQueue dequeues the front entry and returns its name plus the new
// queue. An empty queue is not an error: next is nil and nothing is touched.
func (s *Store) AdvanceQueue(ctx context.Context, courtID string) (*domain.AdvanceResult, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	var name string
	var pos int
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, position FROM queue_entries
		WHERE court_id = ? ORDER BY position ASC LIMIT 1
	`, courtID).Scan(&id, &name, &pos)
	if err == sql.ErrNoRows {
		return &domain.AdvanceResult{Next: nil, Queue: []string{}}, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_entries WHERE id = ?`, id); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE queue_entries SET position = position - 1 WHERE court_id = ? AND position > ?
	`, courtID, pos); err != nil {
		return nil, err
	}

	if err := touchCourt(ctx, tx, courtID, now); err != nil {
		return nil, err
	}

	queue, err := queueNames(ctx, tx, courtID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return &domain.AdvanceResult{Next: &name, Queue: queue}, nil
}

// --- Score methods ---

// GetScores returns the court's scoreboard. A missing court reads as the
// zero scoreboard; callers that need existence check the court directly.
func (s *Store) GetScores(ctx context.Context, courtID string) (domain.Scores, error) {
	var sc domain.Scores
	err := s.db.QueryRowContext(ctx, `
		SELECT good_score, bad_score, target_score FROM courts WHERE id = ?
	`, courtID).Scan(&sc.Good, &sc.Bad, &sc.TargetScore)
	if err == sql.ErrNoRows {
		return domain.Scores{TargetScore: domain.DefaultTargetScore}, nil
	}
	if err != nil {
		return domain.Scores{}, err
	}
	return sc, nil
}

// clampScore floors a score write at zero. Negative inputs are clamped,
// never rejected.
func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// UpdateScores sets the provided fields, clamped at zero, and leaves omitted
// fields unchanged. Activity is touched only when a value actually changed.
func (s *Store) UpdateScores(ctx context.Context, courtID string, good, bad *int) (domain.Scores, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Scores{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var sc domain.Scores
	err = tx.QueryRowContext(ctx, `
		SELECT good_score, bad_score, target_score FROM courts WHERE id = ?
	`, courtID).Scan(&sc.Good, &sc.Bad, &sc.TargetScore)
	if err == sql.ErrNoRows {
		return domain.Scores{TargetScore: domain.DefaultTargetScore}, nil
	}
	if err != nil {
		return domain.Scores{}, err
	}

	changed := false
	if good != nil {
		if v := clampScore(*good); v != sc.Good {
			sc.Good = v
			changed = true
		}
	}
	if bad != nil {
		if v := clampScore(*bad); v != sc.Bad {
			sc.Bad = v
			changed = true
		}
	}

	if changed {
		if _, err := tx.ExecContext(ctx, `
			UPDATE courts SET good_score = ?, bad_score = ? WHERE id = ?
		`, sc.Good, sc.Bad, courtID); err != nil {
			return domain.Scores{}, err
		}
		if err := touchCourt(ctx, tx, courtID, now); err != nil {
			return domain.Scores{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Scores{}, fmt.Errorf("committing transaction: %w", err)
	}
	return sc, nil
}

// ResetScores zeroes both scores and keeps the target score as-is.
func (s *Store) ResetScores(ctx context.Context, courtID string) (domain.Scores, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Scores{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var sc domain.Scores
	err = tx.QueryRowContext(ctx, `
		SELECT target_score FROM courts WHERE id = ?
	`, courtID).Scan(&sc.TargetScore)
	if err == sql.ErrNoRows {
		return domain.Scores{TargetScore: domain.DefaultTargetScore}, nil
	}
	if err != nil {
		return domain.Scores{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE courts SET good_score = 0, bad_score = 0 WHERE id = ?
	`, courtID); err != nil {
		return domain.Scores{}, err
	}
	if err := touchCourt(ctx, tx, courtID, now); err != nil {
		return domain.Scores{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Scores{}, fmt.Errorf("committing transaction: %w", err)
	}
	return sc, nil
}

// SetTargetScore writes the target score, clamped to at least 1. The upper
// bound and the "locked once play started" rule live at the boundary; the
// store always accepts the write.
func (s *Store) SetTargetScore(ctx context.Context, courtID string, target int) (domain.Scores, error) {
	if target < 1 {
		target = 1
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Scores{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var sc domain.Scores
	err = tx.QueryRowContext(ctx, `
		SELECT good_score, bad_score FROM courts WHERE id = ?
	`, courtID).Scan(&sc.Good, &sc.Bad)
	if err == sql.ErrNoRows {
		return domain.Scores{TargetScore: domain.DefaultTargetScore}, nil
	}
	if err != nil {
		return domain.Scores{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE courts SET target_score = ? WHERE id = ?
	`, target, courtID); err != nil {
		return domain.Scores{}, err
	}
	if err := touchCourt(ctx, tx, courtID, now); err != nil {
		return domain.Scores{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Scores{}, fmt.Errorf("committing transaction: %w", err)
	}
	sc.TargetScore = target
	return sc, nil
}
