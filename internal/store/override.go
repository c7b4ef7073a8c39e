package store

import (
	"database/sql"
	"errors"
	"time"
)

// Override holds the stored rule adjustments for one movement. Nil fields
// keep the built-in value.
type Override struct {
	Movement        string    `json:"movement"`
	Target          *float64  `json:"target,omitempty"`
	SecondaryTarget *float64  `json:"secondary_target,omitempty"`
	Tolerance       *float64  `json:"tolerance,omitempty"`
	MinTorso        *float64  `json:"min_torso,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// OverrideRepository provides access to movement overrides.
type OverrideRepository struct {
	db *sql.DB
}

// Overrides returns the override repository for this store.
func (s *Store) Overrides() *OverrideRepository {
	return &OverrideRepository{db: s.db}
}

// Get retrieves the override for a movement.
func (r *OverrideRepository) Get(movement string) (*Override, error) {
	o, err := scanOverride(r.db.QueryRow(
		`SELECT movement, target, secondary_target, tolerance, min_torso, updated_at
		 FROM movement_overrides WHERE movement = ?`,
		movement,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

// List returns all overrides ordered by movement.
func (r *OverrideRepository) List() ([]*Override, error) {
	rows, err := r.db.Query(
		`SELECT movement, target, secondary_target, tolerance, min_torso, updated_at
		 FROM movement_overrides ORDER BY movement`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []*Override
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return overrides, nil
}

// Upsert inserts or replaces the override for o.Movement.
func (r *OverrideRepository) Upsert(o *Override) error {
	o.UpdatedAt = time.Now().UTC()

	_, err := r.db.Exec(
		`INSERT INTO movement_overrides (movement, target, secondary_target, tolerance, min_torso, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(movement) DO UPDATE SET
			target = excluded.target,
			secondary_target = excluded.secondary_target,
			tolerance = excluded.tolerance,
			min_torso = excluded.min_torso,
			updated_at = excluded.updated_at`,
		o.Movement, nullFloat(o.Target), nullFloat(o.SecondaryTarget),
		nullFloat(o.Tolerance), nullFloat(o.MinTorso), o.UpdatedAt,
	)
	return err
}

// Delete removes the override for a movement.
func (r *OverrideRepository) Delete(movement string) error {
	result, err := r.db.Exec(`DELETE FROM movement_overrides WHERE movement = ?`, movement)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func scanOverride(row rowScanner) (*Override, error) {
	o := &Override{}
	var target, secondary, tolerance, minTorso sql.NullFloat64
	if err := row.Scan(&o.Movement, &target, &secondary, &tolerance, &minTorso, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Target = floatPtr(target)
	o.SecondaryTarget = floatPtr(secondary)
	o.Tolerance = floatPtr(tolerance)
	o.MinTorso = floatPtr(minTorso)
	return o, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
