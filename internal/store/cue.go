package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session events a cue can be bound to.
const (
	EventRep         = "rep"
	EventFormBroken  = "form_broken"
	EventSetFinished = "set_finished"
)

// ValidEvent reports whether event is one of the cue events.
func ValidEvent(event string) bool {
	switch event {
	case EventRep, EventFormBroken, EventSetFinished:
		return true
	}
	return false
}

// Cue binds a session event to a plugin action. An empty Movement matches
// every movement.
type Cue struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	Movement   string          `json:"movement"`
	PluginName string          `json:"plugin"`
	ActionName string          `json:"action"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CueRepository provides CRUD operations for cues.
type CueRepository struct {
	db *sql.DB
}

// Cues returns the cue repository for this store.
func (s *Store) Cues() *CueRepository {
	return &CueRepository{db: s.db}
}

const cueColumns = `id, event, movement, plugin_name, action_name, config, enabled, created_at`

// Create inserts a new cue, assigning an ID when empty.
func (r *CueRepository) Create(c *Cue) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(
		`INSERT INTO cues (`+cueColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Event, c.Movement, c.PluginName, c.ActionName,
		string(configOrEmpty(c.Config)), boolToInt(c.Enabled), c.CreatedAt,
	)
	return err
}

// GetByID retrieves a cue by its ID.
func (r *CueRepository) GetByID(id string) (*Cue, error) {
	c, err := scanCue(r.db.QueryRow(`SELECT `+cueColumns+` FROM cues WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// List retrieves all cues, newest first.
func (r *CueRepository) List() ([]*Cue, error) {
	return r.query(`SELECT ` + cueColumns + ` FROM cues ORDER BY created_at DESC`)
}

// ListForEvent returns the enabled cues for event that match movement or
// apply to every movement.
func (r *CueRepository) ListForEvent(event, movement string) ([]*Cue, error) {
	return r.query(
		`SELECT `+cueColumns+` FROM cues
		 WHERE event = ? AND enabled = 1 AND (movement = '' OR movement = ?)
		 ORDER BY created_at`,
		event, movement,
	)
}

func (r *CueRepository) query(query string, args ...any) ([]*Cue, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cues []*Cue
	for rows.Next() {
		c, err := scanCue(rows)
		if err != nil {
			return nil, err
		}
		cues = append(cues, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cues, nil
}

// Update updates an existing cue.
func (r *CueRepository) Update(c *Cue) error {
	result, err := r.db.Exec(
		`UPDATE cues SET event = ?, movement = ?, plugin_name = ?, action_name = ?, config = ?, enabled = ?
		 WHERE id = ?`,
		c.Event, c.Movement, c.PluginName, c.ActionName,
		string(configOrEmpty(c.Config)), boolToInt(c.Enabled), c.ID,
	)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// Delete removes a cue by its ID.
func (r *CueRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM cues WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func scanCue(row rowScanner) (*Cue, error) {
	c := &Cue{}
	var config string
	var enabled int
	if err := row.Scan(&c.ID, &c.Event, &c.Movement, &c.PluginName, &c.ActionName, &config, &enabled, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Config = json.RawMessage(config)
	c.Enabled = enabled != 0
	return c, nil
}

func configOrEmpty(config json.RawMessage) json.RawMessage {
	if len(config) == 0 {
		return json.RawMessage("{}")
	}
	return config
}
