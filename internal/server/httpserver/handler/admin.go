package handler

import (
	"net/http"
	"time"
)

// TriggerGC handles POST /admin/gc.
func (h *Handler) TriggerGC(w http.ResponseWriter, r *http.Request) {
	if h.gc == nil {
		WriteError(w, r, http.StatusNotFound, "CS-SYS-4040", "gc endpoint disabled")
		return
	}

	n, err := h.gc(r.Context())
	if err != nil {
		h.log.WithContext(r.Context()).Error("manual gc failed", "removed", n, "error", err)
		WriteDomainError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, GCResult{
		Removed:     n,
		TriggeredAt: time.Now().UTC().Format(time.RFC3339),
	})
}
