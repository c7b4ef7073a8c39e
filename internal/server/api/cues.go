package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/formcheck/internal/movement"
	"github.com/ayusman/formcheck/internal/plugin"
	"github.com/ayusman/formcheck/internal/store"
)

// CueHandler handles HTTP requests for cue resources. A cue binds a session
// event to a plugin action.
type CueHandler struct {
	store   *store.Store
	plugins *plugin.Manager
}

// NewCueHandler creates a new CueHandler. When plugins is nil, plugin and
// action names are not checked against the discovered plugins.
func NewCueHandler(s *store.Store, plugins *plugin.Manager) *CueHandler {
	return &CueHandler{store: s, plugins: plugins}
}

// ServeHTTP routes /api/cues and /api/cues/{id}.
func (h *CueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r, "/api/cues")

	switch len(parts) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			methodNotAllowed(w)
		}
	case 1:
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			methodNotAllowed(w)
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type createCueRequest struct {
	Event      string          `json:"event"`
	Movement   string          `json:"movement"`
	PluginName string          `json:"plugin"`
	ActionName string          `json:"action"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type updateCueRequest struct {
	Event      string          `json:"event"`
	Movement   *string         `json:"movement"`
	PluginName string          `json:"plugin"`
	ActionName string          `json:"action"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type cueResponse struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	Movement   string          `json:"movement"`
	PluginName string          `json:"plugin"`
	ActionName string          `json:"action"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listCuesResponse struct {
	Cues []cueResponse `json:"cues"`
}

func toCueResponse(c *store.Cue) cueResponse {
	config := c.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	return cueResponse{
		ID:         c.ID,
		Event:      c.Event,
		Movement:   c.Movement,
		PluginName: c.PluginName,
		ActionName: c.ActionName,
		Config:     config,
		Enabled:    c.Enabled,
		CreatedAt:  formatTime(c.CreatedAt),
	}
}

// movementSlug normalizes a movement name. Empty means any movement.
func movementSlug(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	t, err := movement.ParseType(name)
	if err != nil {
		return "", err
	}
	return t.Slug(), nil
}

// checkCue validates the cue fields, returning a client error message.
func (h *CueHandler) checkCue(c *store.Cue) string {
	if !store.ValidEvent(c.Event) {
		return "event must be one of rep, form_broken, set_finished"
	}
	if c.PluginName == "" {
		return "plugin is required"
	}
	if c.ActionName == "" {
		return "action is required"
	}
	if len(c.Config) > 0 && !json.Valid(c.Config) {
		return "config must be JSON"
	}
	if h.plugins == nil {
		return ""
	}
	p, err := h.plugins.Get(c.PluginName)
	if err != nil {
		return "Plugin not found"
	}
	if !p.Manifest.HasAction(c.ActionName) {
		return "Plugin does not provide action " + c.ActionName
	}
	return ""
}

func (h *CueHandler) list(w http.ResponseWriter, r *http.Request) {
	cues, err := h.store.Cues().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list cues")
		return
	}

	response := listCuesResponse{Cues: make([]cueResponse, 0, len(cues))}
	for _, c := range cues {
		response.Cues = append(response.Cues, toCueResponse(c))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *CueHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	cue, err := h.store.Cues().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Cue not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get cue")
		return
	}
	writeJSON(w, http.StatusOK, toCueResponse(cue))
}

func (h *CueHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createCueRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	slug, err := movementSlug(req.Movement)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cue := &store.Cue{
		Event:      req.Event,
		Movement:   slug,
		PluginName: req.PluginName,
		ActionName: req.ActionName,
		Config:     req.Config,
		Enabled:    true,
	}
	if req.Enabled != nil {
		cue.Enabled = *req.Enabled
	}
	if msg := h.checkCue(cue); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.Cues().Create(cue); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create cue")
		return
	}
	writeJSON(w, http.StatusCreated, toCueResponse(cue))
}

func (h *CueHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	cue, err := h.store.Cues().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Cue not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get cue")
		return
	}

	var req updateCueRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Event != "" {
		cue.Event = req.Event
	}
	if req.Movement != nil {
		slug, err := movementSlug(*req.Movement)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		cue.Movement = slug
	}
	if req.PluginName != "" {
		cue.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		cue.ActionName = req.ActionName
	}
	if req.Config != nil {
		cue.Config = req.Config
	}
	if req.Enabled != nil {
		cue.Enabled = *req.Enabled
	}
	if msg := h.checkCue(cue); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.Cues().Update(cue); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update cue")
		return
	}
	writeJSON(w, http.StatusOK, toCueResponse(cue))
}

func (h *CueHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Cues().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Cue not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete cue")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
