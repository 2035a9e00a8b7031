package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/yndnr/cryptsess/internal/core/domain"
)

func (h *Handler) current(w http.ResponseWriter, r *http.Request) *Current {
	cur := CurrentFrom(r.Context())
	if cur == nil {
		h.log.WithContext(r.Context()).Error("session route served without session middleware", "path", r.URL.Path)
		WriteDomainError(w, r, domain.ErrInternal)
	}
	return cur
}

func view(cur *Current) SessionView {
	state := domain.StateExisting
	if cur.Fresh {
		state = domain.StateFresh
	}
	return SessionView{
		SessionID: cur.ID,
		State:     state.String(),
		Rejected:  cur.Rejected,
		Data:      cur.Data,
	}
}

// GetSession handles GET /session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	cur := h.current(w, r)
	if cur == nil {
		return
	}
	h.writeJSON(w, r, http.StatusOK, view(cur))
}

// PutSession handles PUT /session. The raw body replaces the payload; it is
// stored when the request completes.
func (h *Handler) PutSession(w http.ResponseWriter, r *http.Request) {
	cur := h.current(w, r)
	if cur == nil {
		return
	}

	body := io.Reader(r.Body)
	if h.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteDomainError(w, r, domain.ErrPayloadTooLarge)
			return
		}
		WriteDomainError(w, r, domain.ErrInvalidRequest)
		return
	}

	cur.Data = data
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSession handles DELETE /session.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	cur := h.current(w, r)
	if cur == nil {
		return
	}

	cur.Destroyed = true
	cur.Data = nil
	if !cur.Fresh {
		h.manager.Destroy(r.Context(), cur.ID)
	}
	h.cookie.Expire(w)
	w.WriteHeader(http.StatusNoContent)
}

// RegenerateSession handles POST /session/regenerate: the payload moves to
// a new identifier and the old record is destroyed.
func (h *Handler) RegenerateSession(w http.ResponseWriter, r *http.Request) {
	cur := h.current(w, r)
	if cur == nil {
		return
	}

	newID, ok := h.manager.Regenerate(r.Context(), cur.ID, cur.Data, !cur.Fresh)
	if !ok {
		WriteDomainError(w, r, domain.ErrUnableToSave)
		return
	}

	cur.ID = newID
	cur.Fresh = false
	cur.Rejected = false
	h.cookie.Write(w, newID)
	h.writeJSON(w, r, http.StatusOK, view(cur))
}
