package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus is the lifecycle state of a bank card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// Card represents an issued bank card. NumberEncrypted and CVVEncrypted hold
// AES-GCM blobs; NumberMasked is the only number representation that ever
// leaves the service.
type Card struct {
	ID              int64           `json:"id"`
	NumberEncrypted string          `json:"-"`
	NumberMasked    string          `json:"card_number_masked"`
	Holder          string          `json:"card_holder"`
	ExpiryDate      time.Time       `json:"expiry_date"`
	CVVEncrypted    string          `json:"-"`
	Status          CardStatus      `json:"status"`
	Balance         decimal.Decimal `json:"balance"`
	UserID          int64           `json:"user_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsExpired reports whether the card's expiry date lies strictly in the past,
// at date granularity.
func (c *Card) IsExpired(now time.Time) bool {
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	ey, em, ed := c.ExpiryDate.Date()
	expiry := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return expiry.Before(today)
}

// IsBeforeExpiry reports whether now's date is strictly before the expiry
// date. Reactivation requires this; the expiry day itself is already too late.
func (c *Card) IsBeforeExpiry(now time.Time) bool {
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	ey, em, ed := c.ExpiryDate.Date()
	expiry := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return today.Before(expiry)
}

// IsActive reports whether the card can take part in transfers. The expiry
// check guards against a stored status that lags behind the calendar.
func (c *Card) IsActive(now time.Time) bool {
	return c.Status == CardStatusActive && !c.IsExpired(now)
}

// CardView is the external representation of a card; raw or decrypted values
// never appear here.
type CardView struct {
	ID           int64           `json:"id"`
	NumberMasked string          `json:"card_number_masked"`
	Holder       string          `json:"card_holder"`
	ExpiryDate   string          `json:"expiry_date"` // Format: YYYY-MM-DD
	Status       CardStatus      `json:"status"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CardFilter collects the optional predicates for card search. Nil fields are
// not applied.
type CardFilter struct {
	UserID     *int64
	Status     *CardStatus
	MinBalance *decimal.Decimal
	MaxBalance *decimal.Decimal
}
