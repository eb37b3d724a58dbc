package repository

import (
	"context"
	"fmt"

	"github.com/cardvault/card-service/internal/models"
	"github.com/cardvault/card-service/internal/service"
)

// CreateAuditLog appends one audit row. It deliberately uses the connection
// pool directly: the write commits on its own, independent of whatever
// business transaction triggered it.
func (r *Repository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (action, entity_type, entity_id, details, user_id,
			ip_address, user_agent, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		entry.Action, entry.EntityType, entry.EntityID, entry.Details, entry.UserID,
		entry.IPAddress, entry.UserAgent, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// ListAuditLogs retrieves audit rows matching the filter, newest first.
func (r *Repository) ListAuditLogs(ctx context.Context, filter models.AuditFilter, page service.Page) ([]*models.AuditLog, error) {
	query := `
		SELECT id, action, COALESCE(entity_type, ''), entity_id, details, user_id,
			ip_address, user_agent, created_at
		FROM audit_logs WHERE 1=1`
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.Action != nil {
		args = append(args, *filter.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filter.EntityType != nil {
		args = append(args, *filter.EntityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	limit, offset := limitOffset(page)
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditLog
	for rows.Next() {
		entry := &models.AuditLog{}
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.EntityType, &entry.EntityID,
			&entry.Details, &entry.UserID, &entry.IPAddress, &entry.UserAgent, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
