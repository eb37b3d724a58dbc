package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cardvault/card-service/internal/models"
)

// AdminListAuditLogs returns audit entries matching the optional query
// filters (user_id, action, entity_type, from, to), newest first.
func (h *Handler) AdminListAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.AuditFilter{}

	if s := q.Get("user_id"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			filter.UserID = &v
		}
	}
	if s := q.Get("action"); s != "" {
		filter.Action = &s
	}
	if s := q.Get("entity_type"); s != "" {
		filter.EntityType = &s
	}
	if s := q.Get("from"); s != "" {
		if v, err := time.Parse(time.RFC3339, s); err == nil {
			filter.From = &v
		}
	}
	if s := q.Get("to"); s != "" {
		if v, err := time.Parse(time.RFC3339, s); err == nil {
			filter.To = &v
		}
	}

	entries, err := h.audit.Search(r.Context(), filter, pageFromQuery(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// MyAuditLogs returns the authenticated user's own audit trail.
func (h *Handler) MyAuditLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOr401(w, r)
	if !ok {
		return
	}

	entries, err := h.audit.ListForUser(r.Context(), userID, pageFromQuery(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}
