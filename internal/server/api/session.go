package api

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/app"
	"github.com/ayusman/formcheck/internal/movement"
)

// SessionHandler controls the live session.
//
//	GET  /api/session
//	POST /api/session/{start|stop|toggle|reset}
//	PUT  /api/session/movement   {"movement": "push-up"}
type SessionHandler struct {
	app *app.App
}

// NewSessionHandler creates a new SessionHandler for a.
func NewSessionHandler(a *app.App) *SessionHandler {
	return &SessionHandler{app: a}
}

type selectMovementRequest struct {
	Movement string `json:"movement"`
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r, "/api/session")

	if len(parts) == 0 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, h.app.Status())
		return
	}
	if len(parts) > 1 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	if parts[0] == "movement" {
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		h.selectMovement(w, r)
		return
	}

	var op func() (app.Status, error)
	switch parts[0] {
	case "start":
		op = h.app.StartAnalysis
	case "stop":
		op = h.app.StopAnalysis
	case "toggle":
		op = h.app.ToggleAnalysis
	case "reset":
		op = h.app.Reset
	default:
		writeError(w, http.StatusNotFound, "Unknown session command")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	st, err := op()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *SessionHandler) selectMovement(w http.ResponseWriter, r *http.Request) {
	var req selectMovementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	st, err := h.app.SelectMovement(req.Movement)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// CameraHandler starts and stops the capture pipeline.
//
//	POST /api/camera/{start|stop}
type CameraHandler struct {
	app *app.App
}

// NewCameraHandler creates a new CameraHandler for a.
func NewCameraHandler(a *app.App) *CameraHandler {
	return &CameraHandler{app: a}
}

func (h *CameraHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r, "/api/camera")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var (
		st  app.Status
		err error
	)
	switch parts[0] {
	case "start":
		st, err = h.app.StartCamera()
	case "stop":
		st, err = h.app.StopCamera()
	default:
		writeError(w, http.StatusNotFound, "Unknown camera command")
		return
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// writeAppError maps application errors to status codes.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, movement.ErrUnknownMovement), errors.Is(err, movement.ErrInvalidSpec):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.WithError(err).Error("Request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
