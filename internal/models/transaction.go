package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the final state of a card transaction.
type TransactionStatus string

const (
	TransactionSuccess TransactionStatus = "SUCCESS"
	TransactionFailed  TransactionStatus = "FAILED"
	TransactionPending TransactionStatus = "PENDING"
)

// CardTransaction is an immutable record of a balance movement between two
// cards. FromCardID or ToCardID may be nil for flows that do not originate
// from a card. Rows are append-only; no field is ever updated.
type CardTransaction struct {
	ID         int64             `json:"id"`
	FromCardID *int64            `json:"from_card_id,omitempty"`
	ToCardID   *int64            `json:"to_card_id,omitempty"`
	Amount     decimal.Decimal   `json:"amount"`
	Status     TransactionStatus `json:"status"`
	Date       time.Time         `json:"transaction_date"`
}
