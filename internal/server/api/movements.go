package api

import (
	"net/http"

	"github.com/ayusman/formcheck/internal/app"
	"github.com/ayusman/formcheck/internal/movement"
)

// MovementHandler exposes the form rules and their overrides.
//
//	GET    /api/movements
//	GET    /api/movements/{slug}
//	PUT    /api/movements/{slug}   override, e.g. {"tolerance": 15}
//	DELETE /api/movements/{slug}   back to the built-in rule
type MovementHandler struct {
	app *app.App
}

// NewMovementHandler creates a new MovementHandler for a.
func NewMovementHandler(a *app.App) *MovementHandler {
	return &MovementHandler{app: a}
}

type movementResponse struct {
	Slug   string        `json:"slug"`
	Name   string        `json:"name"`
	Active bool          `json:"active"`
	Spec   movement.Spec `json:"spec"`
}

type listMovementsResponse struct {
	Movements []movementResponse `json:"movements"`
}

func (h *MovementHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r, "/api/movements")

	switch len(parts) {
	case 0:
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.list(w, r)
	case 1:
		t, err := movement.ParseType(parts[0])
		if err != nil {
			writeError(w, http.StatusNotFound, "Movement not found")
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, t)
		case http.MethodPut:
			h.update(w, r, t)
		case http.MethodDelete:
			h.reset(w, r, t)
		default:
			methodNotAllowed(w)
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *MovementHandler) response(spec movement.Spec) movementResponse {
	return movementResponse{
		Slug:   spec.Type.Slug(),
		Name:   spec.Type.String(),
		Active: h.app.Status().Movement == spec.Type,
		Spec:   spec,
	}
}

func (h *MovementHandler) list(w http.ResponseWriter, r *http.Request) {
	specs := h.app.Rules().Specs()
	response := listMovementsResponse{Movements: make([]movementResponse, 0, len(specs))}
	for _, spec := range specs {
		response.Movements = append(response.Movements, h.response(spec))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *MovementHandler) get(w http.ResponseWriter, r *http.Request, t movement.Type) {
	spec, err := h.app.Rules().Spec(t)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.response(spec))
}

func (h *MovementHandler) update(w http.ResponseWriter, r *http.Request, t movement.Type) {
	var o movement.Override
	if !decodeJSON(w, r, &o) {
		return
	}

	spec, err := h.app.UpdateMovement(t, o)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.response(spec))
}

func (h *MovementHandler) reset(w http.ResponseWriter, r *http.Request, t movement.Type) {
	spec, err := h.app.UpdateMovement(t, movement.Override{})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.response(spec))
}
