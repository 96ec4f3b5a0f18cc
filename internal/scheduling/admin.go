package scheduling

import (
	"net/http"
	"strconv"

	"github.com/wolfman30/appointment-scheduler/internal/http/middleware"
)

// RecentRequests handles GET /admin/requests. Returns the newest audit
// entries, most recent first.
func (h *Handler) RecentRequests(w http.ResponseWriter, r *http.Request) {
	if h.auditStore == nil {
		http.Error(w, "request log is not configured", http.StatusServiceUnavailable)
		return
	}

	limit := int32(50)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed <= 0 || parsed > 500 {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = int32(parsed)
	}

	if subject, ok := middleware.AdminSubject(r.Context()); ok {
		h.logger.Info("request log queried", "admin", subject, "limit", limit)
	}

	entries, err := h.auditStore.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list requests", "error", err)
		http.Error(w, "failed to list requests", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"requests": entries,
		"count":    len(entries),
	})
}
