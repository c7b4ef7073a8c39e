package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Recording describes a stored landmark sequence. Frames are kept in a
// separate table and loaded with Frames.
type Recording struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Movement   string    `json:"movement"`
	FPS        int       `json:"fps"`
	FrameCount int       `json:"frame_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordingRepository provides access to recordings and their frames.
type RecordingRepository struct {
	db *sql.DB
}

// Recordings returns the recording repository for this store.
func (s *Store) Recordings() *RecordingRepository {
	return &RecordingRepository{db: s.db}
}

// Create inserts a recording and its frames in a single transaction. A null
// frame is stored as JSON null.
func (r *RecordingRepository) Create(rec *Recording, frames []json.RawMessage) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.FrameCount = len(frames)
	rec.CreatedAt = time.Now().UTC()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO recordings (id, name, movement, fps, frame_count, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Movement, rec.FPS, rec.FrameCount, rec.CreatedAt,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO recording_frames (recording_id, frame_index, data) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, data := range frames {
		if len(data) == 0 {
			data = json.RawMessage("null")
		}
		if _, err := stmt.Exec(rec.ID, i, string(data)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves a recording header by its ID.
func (r *RecordingRepository) GetByID(id string) (*Recording, error) {
	rec, err := scanRecording(r.db.QueryRow(
		`SELECT id, name, movement, fps, frame_count, created_at FROM recordings WHERE id = ?`,
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List returns all recording headers, newest first.
func (r *RecordingRepository) List() ([]*Recording, error) {
	rows, err := r.db.Query(
		`SELECT id, name, movement, fps, frame_count, created_at FROM recordings ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recs, nil
}

// Frames returns the frames of a recording in order.
func (r *RecordingRepository) Frames(id string) ([]json.RawMessage, error) {
	if _, err := r.GetByID(id); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(
		`SELECT data FROM recording_frames WHERE recording_id = ? ORDER BY frame_index`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []json.RawMessage
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		frames = append(frames, json.RawMessage(data))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frames, nil
}

// Delete removes a recording; its frames cascade.
func (r *RecordingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func scanRecording(row rowScanner) (*Recording, error) {
	rec := &Recording{}
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Movement, &rec.FPS, &rec.FrameCount, &rec.CreatedAt); err != nil {
		return nil, err
	}
	return rec, nil
}
