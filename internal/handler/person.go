package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/choreboss/internal/auth"
	"github.com/dukerupert/choreboss/internal/rotation"
	"github.com/dukerupert/choreboss/internal/tracker"
)

const birthdayLayout = "2006-01-02"

type PersonHandler struct {
	svc    *tracker.Service
	logger *slog.Logger
}

func NewPersonHandler(svc *tracker.Service, logger *slog.Logger) *PersonHandler {
	return &PersonHandler{svc: svc, logger: logger}
}

type personRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Birthday  string `json:"birthday"`
	PIN       string `json:"pin"`
	IsAdmin   bool   `json:"is_admin"`
}

func (req personRequest) birthday() (time.Time, error) {
	if req.Birthday == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(birthdayLayout, req.Birthday)
	if err != nil {
		return time.Time{}, &tracker.ValidationError{Field: "birthday", Message: "must be YYYY-MM-DD"}
	}
	return t, nil
}

type pinChangeRequest struct {
	CurrentPIN string `json:"current_pin"`
	NewPIN     string `json:"new_pin"`
	ConfirmPIN string `json:"confirm_pin"`
}

type sequenceRequest struct {
	Sequence int `json:"sequence"`
}

type reorderRequest struct {
	Order []rotation.Assignment `json:"order"`
}

func (h *PersonHandler) List(w http.ResponseWriter, r *http.Request) {
	people, err := h.svc.People(r.Context())
	if err != nil {
		writeError(w, h.logger, "list people", err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

func (h *PersonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := h.svc.Person(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "get person", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Next reports who follows the person in the rotation.
func (h *PersonHandler) Next(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	next, err := h.svc.NextPerson(r.Context(), &id)
	if err != nil {
		writeError(w, h.logger, "next person", err)
		return
	}
	if next == nil {
		writeMessage(w, http.StatusNotFound, "roster is empty")
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// Create adds a person. The very first admin can be created without a PIN.
func (h *PersonHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	birthday, err := req.birthday()
	if err != nil {
		writeError(w, h.logger, "create person", err)
		return
	}

	ctx := r.Context()
	p, err := h.svc.AddPerson(ctx, auth.PIN(ctx), tracker.PersonInput{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Birthday:  birthday,
		PIN:       req.PIN,
		IsAdmin:   req.IsAdmin,
	})
	if err != nil {
		writeError(w, h.logger, "create person", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *PersonHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req personRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	birthday, err := req.birthday()
	if err != nil {
		writeError(w, h.logger, "update person", err)
		return
	}

	ctx := r.Context()
	p, err := h.svc.UpdatePerson(ctx, auth.PIN(ctx), id, tracker.PersonUpdate{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Birthday:  birthday,
		IsAdmin:   req.IsAdmin,
	})
	if err != nil {
		writeError(w, h.logger, "update person", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ChangePIN needs the person's current PIN in the body; no header PIN is
// consulted.
func (h *PersonHandler) ChangePIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req pinChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.svc.ChangePIN(r.Context(), id, req.CurrentPIN, req.NewPIN, req.ConfirmPIN); err != nil {
		writeError(w, h.logger, "change pin", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PersonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	ctx := r.Context()
	if err := h.svc.DeletePerson(ctx, auth.PIN(ctx), id); err != nil {
		writeError(w, h.logger, "delete person", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateSequence moves one person to a new rotation position.
func (h *PersonHandler) UpdateSequence(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req sequenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	ctx := r.Context()
	people, err := h.svc.UpdateSequence(ctx, auth.PIN(ctx), id, req.Sequence)
	if err != nil {
		writeError(w, h.logger, "update sequence", err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

// Reorder replaces the whole rotation order in one request.
func (h *PersonHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	ctx := r.Context()
	people, err := h.svc.Reorder(ctx, auth.PIN(ctx), req.Order)
	if err != nil {
		writeError(w, h.logger, "reorder", err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}
