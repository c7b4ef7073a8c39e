package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/formcheck/internal/movement"
	"github.com/ayusman/formcheck/internal/replay"
	"github.com/ayusman/formcheck/internal/store"
)

// RecordingHandler stores landmark recordings and replays them through the
// current rules.
//
//	GET    /api/recordings
//	POST   /api/recordings
//	GET    /api/recordings/{id}
//	DELETE /api/recordings/{id}
//	POST   /api/recordings/{id}/replay[?movement=]
type RecordingHandler struct {
	store *store.Store
	rules func() *movement.RuleSet
}

// NewRecordingHandler creates a RecordingHandler. rules is called for each
// replay so rule changes apply immediately.
func NewRecordingHandler(s *store.Store, rules func() *movement.RuleSet) *RecordingHandler {
	return &RecordingHandler{store: s, rules: rules}
}

type createRecordingRequest struct {
	Name     string            `json:"name"`
	Movement string            `json:"movement"`
	FPS      int               `json:"fps"`
	Frames   []json.RawMessage `json:"frames"`
}

type recordingResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Movement   string            `json:"movement"`
	FPS        int               `json:"fps"`
	FrameCount int               `json:"frame_count"`
	CreatedAt  string            `json:"created_at"`
	Frames     []json.RawMessage `json:"frames,omitempty"`
}

type listRecordingsResponse struct {
	Recordings []recordingResponse `json:"recordings"`
}

func toRecordingResponse(rec *store.Recording) recordingResponse {
	return recordingResponse{
		ID:         rec.ID,
		Name:       rec.Name,
		Movement:   rec.Movement,
		FPS:        rec.FPS,
		FrameCount: rec.FrameCount,
		CreatedAt:  formatTime(rec.CreatedAt),
	}
}

func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r, "/api/recordings")

	switch {
	case len(parts) == 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, parts[0])
		case http.MethodDelete:
			h.delete(w, r, parts[0])
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 2 && parts[1] == "replay":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.replay(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *RecordingHandler) list(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.Recordings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recordings")
		return
	}

	response := listRecordingsResponse{Recordings: make([]recordingResponse, 0, len(recs))}
	for _, rec := range recs {
		response.Recordings = append(response.Recordings, toRecordingResponse(rec))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *RecordingHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRecordingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	t, err := movement.ParseType(req.Movement)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Decoding validates every frame before anything is stored.
	rec, err := replay.FromRaw(t, req.FPS, req.Frames)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored := &store.Recording{Name: req.Name, Movement: t.Slug(), FPS: rec.FPS}
	if err := h.store.Recordings().Create(stored, req.Frames); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create recording")
		return
	}
	writeJSON(w, http.StatusCreated, toRecordingResponse(stored))
}

func (h *RecordingHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.store.Recordings().GetByID(id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	frames, err := h.store.Recordings().Frames(id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	response := toRecordingResponse(rec)
	response.Frames = frames
	writeJSON(w, http.StatusOK, response)
}

func (h *RecordingHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Recordings().Delete(id); err != nil {
		h.writeLookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordingHandler) replay(w http.ResponseWriter, r *http.Request, id string) {
	meta, err := h.store.Recordings().GetByID(id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	frames, err := h.store.Recordings().Frames(id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	t, err := movement.ParseType(meta.Movement)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Stored recording has an unknown movement")
		return
	}
	rec, err := replay.FromRaw(t, meta.FPS, frames)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Stored recording is unreadable")
		return
	}

	var opts []replay.Option
	if name := r.URL.Query().Get("movement"); name != "" {
		as, err := movement.ParseType(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts = append(opts, replay.WithMovement(as))
	}

	result, err := replay.Run(r.Context(), h.rules(), rec, opts...)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RecordingHandler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Recording not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to load recording")
}
