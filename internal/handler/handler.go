package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cardvault/card-service/internal/middleware"
	"github.com/cardvault/card-service/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Handler adapts the services to HTTP. It stays thin: decode, call, encode.
type Handler struct {
	cards *service.CardService
	auth  *service.AuthService
	audit *service.AuditService
	log   *logrus.Logger
}

// NewHandler initializes a new handler
func NewHandler(cards *service.CardService, auth *service.AuthService, audit *service.AuditService, log *logrus.Logger) *Handler {
	return &Handler{cards: cards, auth: auth, audit: audit, log: log}
}

// requestMeta builds the explicit request context passed into the services.
func requestMeta(r *http.Request) service.RequestMeta {
	meta := service.RequestMeta{
		IPAddress: clientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
	}
	if id, ok := middleware.UserID(r.Context()); ok {
		meta.UserID = &id
	}
	return meta
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

func userIDOr401(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

func pageFromQuery(r *http.Request) service.Page {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return service.Page{Limit: limit, Offset: offset}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			h.log.WithError(err).Error("Failed to encode response")
		}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var opErr *service.OperationError
	switch {
	case errors.Is(err, service.ErrCardNotFound), errors.Is(err, service.ErrUserNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &opErr):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": opErr.Reason})
	case errors.Is(err, service.ErrInsufficientFunds):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrNotAuthenticated), errors.Is(err, service.ErrInvalidCredentials):
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	default:
		h.log.WithError(err).Error("Internal error")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
