// Package httpapi exposes the session controller over HTTP for the booth
// front end.
//
// The API is a thin command surface: GET /api/state returns the current
// [session.Snapshot], and POST /api/commands/{name} invokes one controller
// command and returns the snapshot after it ran. Command names mirror the
// controller: next, prev, record, stop, delete, skip, cut, play, endplay,
// submit.
//
// Error mapping:
//
//   - 400 — malformed request body.
//   - 409 — the command is illegal right now (wrong phase, missing
//     recording, nothing to submit). The body names the reason; state is
//     unchanged.
//   - 502 — a capability behind the booth failed (capture device, analysis
//     service, collection server).
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/korralabs/recbooth/internal/session"
	"github.com/korralabs/recbooth/internal/submit"
	"github.com/korralabs/recbooth/pkg/capture"
)

// maxBodySize caps command request bodies.
const maxBodySize = 1 << 16

// Handler routes front-end requests to a [session.Controller].
type Handler struct {
	ctrl      *session.Controller
	selection *Selection
}

// New creates a Handler for ctrl. selection must be the same [Selection]
// the controller was configured with, so the cut command can stage bounds
// before toggling; pass nil when trimming is not exposed.
func New(ctrl *session.Controller, selection *Selection) *Handler {
	return &Handler{ctrl: ctrl, selection: selection}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", h.state)
	mux.HandleFunc("POST /api/commands/{command}", h.command)
}

// state returns the session snapshot. It never mutates anything.
func (h *Handler) state(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// cutRequest is the optional body of the cut command. When present, the
// bounds become the active selection before the toggle runs.
type cutRequest struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (h *Handler) command(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var err error
	switch cmd := r.PathValue("command"); cmd {
	case "next":
		err = h.ctrl.MoveNext(ctx)
	case "prev":
		err = h.ctrl.MovePrevious()
	case "record":
		err = h.ctrl.BeginCapture(ctx)
	case "stop":
		err = h.ctrl.EndCapture(ctx)
	case "delete":
		err = h.ctrl.Delete()
	case "skip":
		err = h.ctrl.ToggleSkip(ctx)
	case "cut":
		err = h.cut(r)
	case "play":
		err = h.ctrl.BeginPlayback()
	case "endplay":
		err = h.ctrl.EndPlayback()
	case "submit":
		err = h.ctrl.Submit(ctx)
	default:
		writeError(w, http.StatusNotFound, "unknown command "+cmd)
		return
	}

	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// cut stages the selection bounds from the request body, when one is sent,
// then toggles the trim region.
func (h *Handler) cut(r *http.Request) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errBadBody
	}
	if len(raw) > 0 {
		var req cutRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errBadBody
		}
		if req.End < req.Start || req.Start < 0 {
			return errBadBody
		}
		if h.selection != nil {
			h.selection.Set(req.Start, req.End)
		}
	}
	return h.ctrl.ToggleCut()
}

// errBadBody marks a body the handler could not use; mapped to 400.
var errBadBody = errors.New("httpapi: malformed request body")

// writeCommandError maps a controller error to a status code.
func writeCommandError(w http.ResponseWriter, err error) {
	var (
		constraintErr *capture.ConstraintError
		rejectedErr   *submit.RejectedError
	)
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, errBadBody):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrIllegalTransition),
		errors.Is(err, session.ErrNothingToSubmit),
		errors.Is(err, session.ErrTokenSkipped),
		errors.Is(err, session.ErrNoRecording),
		errors.Is(err, session.ErrNoSelection):
		status = http.StatusConflict
	case errors.Is(err, capture.ErrPermissionDenied),
		errors.As(err, &constraintErr),
		errors.As(err, &rejectedErr):
		status = http.StatusBadGateway
	}
	writeError(w, status, err.Error())
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
	}
}
