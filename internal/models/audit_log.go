package models

import "time"

// Audit action codes.
const (
	ActionUserRegistered    = "USER_REGISTERED"
	ActionUserLogin         = "USER_LOGIN"
	ActionCardCreated       = "CARD_CREATED"
	ActionCardBlocked       = "CARD_BLOCKED"
	ActionCardActivated     = "CARD_ACTIVATED"
	ActionCardExpired       = "CARD_EXPIRED"
	ActionCardDeleted       = "CARD_DELETED"
	ActionTransferCompleted = "TRANSFER_COMPLETED"
	ActionTransferFailed    = "TRANSFER_FAILED"
	ActionBalanceChecked    = "BALANCE_CHECKED"
	ActionAdminAction       = "ADMIN_ACTION"
)

// Audit entity types.
const (
	EntityUser            = "User"
	EntityBankCard        = "BankCard"
	EntityCardTransaction = "CardTransaction"
)

// AuditLog is an append-only record of a sensitive action. Rows are never
// updated or deleted by normal operation.
type AuditLog struct {
	ID         int64     `json:"id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityID   *int64    `json:"entity_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	UserID     *int64    `json:"user_id,omitempty"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditFilter collects the optional predicates for audit log search. Nil
// fields are not applied.
type AuditFilter struct {
	UserID     *int64
	Action     *string
	EntityType *string
	From       *time.Time
	To         *time.Time
}
