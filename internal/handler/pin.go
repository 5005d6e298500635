package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/choreboss/internal/authz"
	"github.com/dukerupert/choreboss/internal/tracker"
)

// PINHandler answers "may this PIN do that?" without doing it, so a screen
// can gate a button before the real request.
type PINHandler struct {
	svc    *tracker.Service
	logger *slog.Logger
}

func NewPINHandler(svc *tracker.Service, logger *slog.Logger) *PINHandler {
	return &PINHandler{svc: svc, logger: logger}
}

type verifyPINRequest struct {
	Context  string `json:"context"`
	PIN      string `json:"pin"`
	ChoreID  int64  `json:"chore_id"`
	PersonID int64  `json:"person_id"`
}

type verifyPINResponse struct {
	Status string `json:"status"`
}

// Verify always answers 200 with success or failure. Unknown contexts and
// missing subjects are failures, not client errors.
func (h *PINHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyPINRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	status := "failure"
	if action, ok := authz.ParseAction(req.Context); ok {
		err := h.svc.Authorize(r.Context(), authz.Request{
			Action:   action,
			PIN:      req.PIN,
			ChoreID:  req.ChoreID,
			PersonID: req.PersonID,
		})
		switch {
		case err == nil:
			status = "success"
		case !errors.Is(err, tracker.ErrUnauthorized):
			h.logger.Error("verify pin", "context", req.Context, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, verifyPINResponse{Status: status})
}
