package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// WorkoutSet is a finished set of repetitions.
type WorkoutSet struct {
	ID         string        `json:"id"`
	Movement   string        `json:"movement"`
	Reps       int           `json:"reps"`
	Duration   time.Duration `json:"duration_ns"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	CreatedAt  time.Time     `json:"created_at"`
}

// SetFilter narrows List. Zero fields match everything.
type SetFilter struct {
	Movement string
	Since    time.Time
	Limit    int
}

// MovementTotals aggregates the stored sets of one movement.
type MovementTotals struct {
	Movement string        `json:"movement"`
	Sets     int           `json:"sets"`
	Reps     int           `json:"reps"`
	BestSet  int           `json:"best_set"`
	Duration time.Duration `json:"duration_ns"`
}

// SetRepository provides access to finished sets.
type SetRepository struct {
	db *sql.DB
}

// Sets returns the set repository for this store.
func (s *Store) Sets() *SetRepository {
	return &SetRepository{db: s.db}
}

// Create inserts a set, assigning an ID when empty.
func (r *SetRepository) Create(ws *WorkoutSet) error {
	if ws.ID == "" {
		ws.ID = uuid.NewString()
	}
	ws.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(
		`INSERT INTO workout_sets (id, movement, reps, duration_ms, started_at, finished_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ws.ID, ws.Movement, ws.Reps, ws.Duration.Milliseconds(),
		ws.StartedAt.UTC(), ws.FinishedAt.UTC(), ws.CreatedAt,
	)
	return err
}

// GetByID retrieves a set by its ID.
func (r *SetRepository) GetByID(id string) (*WorkoutSet, error) {
	row := r.db.QueryRow(
		`SELECT id, movement, reps, duration_ms, started_at, finished_at, created_at
		 FROM workout_sets WHERE id = ?`,
		id,
	)

	ws, err := scanSet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ws, nil
}

// List returns sets matching filter, newest first.
func (r *SetRepository) List(filter SetFilter) ([]*WorkoutSet, error) {
	query := `SELECT id, movement, reps, duration_ms, started_at, finished_at, created_at
		 FROM workout_sets WHERE 1 = 1`
	var args []any

	if filter.Movement != "" {
		query += ` AND movement = ?`
		args = append(args, filter.Movement)
	}
	if !filter.Since.IsZero() {
		query += ` AND finished_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY finished_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []*WorkoutSet
	for rows.Next() {
		ws, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, ws)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sets, nil
}

// Delete removes a set by its ID.
func (r *SetRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM workout_sets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// Totals aggregates all stored sets per movement, ordered by movement.
func (r *SetRepository) Totals() ([]MovementTotals, error) {
	rows, err := r.db.Query(
		`SELECT movement, COUNT(*), COALESCE(SUM(reps), 0), COALESCE(MAX(reps), 0), COALESCE(SUM(duration_ms), 0)
		 FROM workout_sets GROUP BY movement ORDER BY movement`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []MovementTotals
	for rows.Next() {
		var t MovementTotals
		var ms int64
		if err := rows.Scan(&t.Movement, &t.Sets, &t.Reps, &t.BestSet, &ms); err != nil {
			return nil, err
		}
		t.Duration = time.Duration(ms) * time.Millisecond
		totals = append(totals, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return totals, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSet(row rowScanner) (*WorkoutSet, error) {
	ws := &WorkoutSet{}
	var ms int64
	if err := row.Scan(&ws.ID, &ws.Movement, &ws.Reps, &ms, &ws.StartedAt, &ws.FinishedAt, &ws.CreatedAt); err != nil {
		return nil, err
	}
	ws.Duration = time.Duration(ms) * time.Millisecond
	return ws, nil
}
