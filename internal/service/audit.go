package service

import (
	"context"

	"github.com/cardvault/card-service/internal/models"
	"github.com/sirupsen/logrus"
)

// RequestMeta carries the ambient facts about the request that triggered an
// action. The surrounding transport layer fills it in explicitly; the core
// never reaches into globals for them. Zero values degrade to "unknown".
type RequestMeta struct {
	UserID    *int64
	IPAddress string
	UserAgent string
}

// AuditService is the append-only ledger of sensitive actions. Log is
// best-effort: a failed write is reported to the process log and never to the
// caller, so audit trouble cannot abort the business operation it describes.
type AuditService struct {
	store AuditStore
	clock Clock
	log   *logrus.Logger
}

// NewAuditService initializes a new audit service
func NewAuditService(store AuditStore, clock Clock, log *logrus.Logger) *AuditService {
	return &AuditService{store: store, clock: clock, log: log}
}

// Log appends one audit entry describing an action. entityID may be nil for
// actions with no single subject. Errors never propagate.
func (s *AuditService) Log(ctx context.Context, meta RequestMeta, action, entityType string, entityID *int64, details string) {
	entry := &models.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		UserID:     meta.UserID,
		IPAddress:  orUnknown(meta.IPAddress),
		UserAgent:  orUnknown(meta.UserAgent),
		CreatedAt:  s.clock.Now(),
	}

	if err := s.store.CreateAuditLog(ctx, entry); err != nil {
		s.log.WithFields(logrus.Fields{
			"action":      action,
			"entity_type": entityType,
			"error":       err,
		}).Error("Failed to save audit log")
		return
	}

	s.log.WithFields(logrus.Fields{
		"action":      action,
		"entity_type": entityType,
	}).Debug("Audit log saved")
}

// List returns audit entries, newest first.
func (s *AuditService) List(ctx context.Context, page Page) ([]*models.AuditLog, error) {
	return s.store.ListAuditLogs(ctx, models.AuditFilter{}, page)
}

// ListForUser returns audit entries recorded for one acting user.
func (s *AuditService) ListForUser(ctx context.Context, userID int64, page Page) ([]*models.AuditLog, error) {
	return s.store.ListAuditLogs(ctx, models.AuditFilter{UserID: &userID}, page)
}

// Search returns audit entries matching the filter. An open time range
// defaults to the month ending now.
func (s *AuditService) Search(ctx context.Context, filter models.AuditFilter, page Page) ([]*models.AuditLog, error) {
	if filter.To == nil {
		to := s.clock.Now()
		filter.To = &to
	}
	if filter.From == nil {
		from := filter.To.AddDate(0, -1, 0)
		filter.From = &from
	}
	return s.store.ListAuditLogs(ctx, filter, page)
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
