package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/choreboss/internal/auth"
	"github.com/dukerupert/choreboss/internal/tracker"
)

type ChoreHandler struct {
	svc    *tracker.Service
	logger *slog.Logger
}

func NewChoreHandler(svc *tracker.Service, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{svc: svc, logger: logger}
}

type createChoreRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type choreRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AssignedTo  *int64 `json:"assigned_to"`
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	chores, err := h.svc.Chores(r.Context())
	if err != nil {
		writeError(w, h.logger, "list chores", err)
		return
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	c, err := h.svc.Chore(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "get chore", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ChoreHandler) Completions(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	completions, err := h.svc.Completions(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "list completions", err)
		return
	}
	writeJSON(w, http.StatusOK, completions)
}

// Create adds an unassigned chore. Any household member may do this, so no
// PIN is checked.
func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createChoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	c, err := h.svc.AddChore(r.Context(), tracker.ChoreInput{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	})
	if err != nil {
		writeError(w, h.logger, "create chore", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req choreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	ctx := r.Context()
	c, err := h.svc.UpdateChore(ctx, auth.PIN(ctx), id, tracker.ChoreUpdate{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		writeError(w, h.logger, "update chore", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	ctx := r.Context()
	if err := h.svc.DeleteChore(ctx, auth.PIN(ctx), id); err != nil {
		writeError(w, h.logger, "delete chore", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Complete marks the chore done by its current assignee and hands it on.
func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	ctx := r.Context()
	c, err := h.svc.CompleteChore(ctx, auth.PIN(ctx), id)
	if err != nil {
		writeError(w, h.logger, "complete chore", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
