package species

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"speciesdesk/internal/notify"
	"speciesdesk/internal/workflow"
)

// editEntry is one cached edit dialog and the recorder collecting its toasts
// between requests.
type editEntry struct {
	session  *workflow.EditSession
	recorder *notify.Recorder
}

type sessionResponse struct {
	Session string                    `json:"session"`
	Species string                    `json:"species"`
	State   workflow.State            `json:"state"`
	Fields  map[string]workflow.Field `json:"fields"`
}

type submitResponse struct {
	sessionResponse
	Outcome workflow.Outcome        `json:"outcome"`
	Toasts  []workflow.Notification `json:"toasts"`
	Refresh bool                    `json:"refresh"`
}

type setFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func snapshot(id string, e *editEntry) sessionResponse {
	return sessionResponse{
		Session: id,
		Species: e.session.Record().ID,
		State:   e.session.State(),
		Fields:  e.session.Fields(),
	}
}

func (h *Handler) handleOpenEdit(w http.ResponseWriter, r *http.Request) {
	record, ok := h.lookup(w, r)
	if !ok {
		return
	}
	rec := &notify.Recorder{}
	entry := &editEntry{
		session:  h.controller(rec, actingUser(r)).Edit(record, actingUser(r)),
		recorder: rec,
	}
	if err := entry.session.Open(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	id := uuid.NewString()
	h.sessions.Set(id, entry, cache.DefaultExpiration)
	h.logger.Debug("edit session opened", zap.String("session", id), zap.String("species_id", record.ID))
	writeJSON(w, http.StatusCreated, snapshot(id, entry))
}

// entry resolves the {session} route variable. Sessions are only visible to
// the user who opened them.
func (h *Handler) entry(w http.ResponseWriter, r *http.Request) (string, *editEntry, bool) {
	id := mux.Vars(r)["session"]
	v, found := h.sessions.Get(id)
	if !found {
		writeError(w, http.StatusNotFound, "edit session not found")
		return "", nil, false
	}
	e := v.(*editEntry)
	if e.session.ActingUser() != actingUser(r) {
		writeError(w, http.StatusNotFound, "edit session not found")
		return "", nil, false
	}
	return id, e, true
}

func (h *Handler) handleSetField(w http.ResponseWriter, r *http.Request) {
	id, e, ok := h.entry(w, r)
	if !ok {
		return
	}
	var req setFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if _, err := e.session.Set(req.Field, req.Value); err != nil {
		h.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot(id, e))
}

func (h *Handler) handleReopen(w http.ResponseWriter, r *http.Request) {
	id, e, ok := h.entry(w, r)
	if !ok {
		return
	}
	if err := e.session.Open(); err != nil {
		h.sessionError(w, err)
		return
	}
	h.sessions.Set(id, e, cache.DefaultExpiration)
	writeJSON(w, http.StatusOK, snapshot(id, e))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, e, ok := h.entry(w, r)
	if !ok {
		return
	}
	outcome, err := e.session.Submit(r.Context())
	if err != nil {
		h.sessionError(w, err)
		return
	}
	toasts, refresh := e.recorder.Drain()
	writeJSON(w, outcomeStatus(outcome), submitResponse{
		sessionResponse: snapshot(id, e),
		Outcome:         outcome,
		Toasts:          toasts,
		Refresh:         refresh,
	})
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, e, ok := h.entry(w, r)
	if !ok {
		return
	}
	if err := e.session.Cancel(); err != nil {
		h.sessionError(w, err)
		return
	}
	h.sessions.Delete(id)
	writeJSON(w, http.StatusOK, snapshot(id, e))
}

func (h *Handler) sessionError(w http.ResponseWriter, err error) {
	var unknown workflow.ErrUnknownField
	switch {
	case errors.As(err, &unknown):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, workflow.ErrNotOpen), errors.Is(err, workflow.ErrSubmitting):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
