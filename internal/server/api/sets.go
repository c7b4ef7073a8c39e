package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/formcheck/internal/store"
)

// SetHandler serves the history of finished sets.
//
//	GET    /api/sets?movement=&since=&limit=
//	GET    /api/sets/stats
//	GET    /api/sets/{id}
//	DELETE /api/sets/{id}
type SetHandler struct {
	store *store.Store
}

// NewSetHandler creates a new SetHandler with the given store.
func NewSetHandler(s *store.Store) *SetHandler {
	return &SetHandler{store: s}
}

func (h *SetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r, "/api/sets")

	switch {
	case len(parts) == 0:
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.list(w, r)
	case len(parts) == 1 && parts[0] == "stats":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.stats(w, r)
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, parts[0])
		case http.MethodDelete:
			h.delete(w, r, parts[0])
		default:
			methodNotAllowed(w)
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type setResponse struct {
	ID         string  `json:"id"`
	Movement   string  `json:"movement"`
	Reps       int     `json:"reps"`
	Seconds    float64 `json:"seconds"`
	StartedAt  string  `json:"started_at"`
	FinishedAt string  `json:"finished_at"`
}

type listSetsResponse struct {
	Sets []setResponse `json:"sets"`
}

type totalsResponse struct {
	Movement string  `json:"movement"`
	Sets     int     `json:"sets"`
	Reps     int     `json:"reps"`
	BestSet  int     `json:"best_set"`
	Seconds  float64 `json:"seconds"`
}

type statsResponse struct {
	Movements []totalsResponse `json:"movements"`
	Sets      int              `json:"sets"`
	Reps      int              `json:"reps"`
}

func toSetResponse(ws *store.WorkoutSet) setResponse {
	return setResponse{
		ID:         ws.ID,
		Movement:   ws.Movement,
		Reps:       ws.Reps,
		Seconds:    ws.Duration.Seconds(),
		StartedAt:  formatTime(ws.StartedAt),
		FinishedAt: formatTime(ws.FinishedAt),
	}
}

// parseSetFilter reads movement, since (RFC 3339) and limit from the query.
func parseSetFilter(r *http.Request) (store.SetFilter, error) {
	q := r.URL.Query()
	var filter store.SetFilter

	slug, err := movementSlug(q.Get("movement"))
	if err != nil {
		return filter, err
	}
	filter.Movement = slug

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("since must be an RFC 3339 time")
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("limit must be a non-negative integer")
		}
		filter.Limit = n
	}
	return filter, nil
}

func (h *SetHandler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSetFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sets, err := h.store.Sets().List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sets")
		return
	}

	response := listSetsResponse{Sets: make([]setResponse, 0, len(sets))}
	for _, ws := range sets {
		response.Sets = append(response.Sets, toSetResponse(ws))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *SetHandler) stats(w http.ResponseWriter, r *http.Request) {
	totals, err := h.store.Sets().Totals()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	response := statsResponse{Movements: make([]totalsResponse, 0, len(totals))}
	for _, t := range totals {
		response.Movements = append(response.Movements, totalsResponse{
			Movement: t.Movement,
			Sets:     t.Sets,
			Reps:     t.Reps,
			BestSet:  t.BestSet,
			Seconds:  t.Duration.Seconds(),
		})
		response.Sets += t.Sets
		response.Reps += t.Reps
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *SetHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	ws, err := h.store.Sets().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Set not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get set")
		return
	}
	writeJSON(w, http.StatusOK, toSetResponse(ws))
}

func (h *SetHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sets().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Set not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete set")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
