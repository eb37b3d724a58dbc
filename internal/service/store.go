package service

import (
	"context"
	"time"

	"github.com/cardvault/card-service/internal/models"
	"github.com/shopspring/decimal"
)

// Page bounds a listing query.
type Page struct {
	Limit  int
	Offset int
}

// CardStore is the durable card record store. Implementations must provide
// transactional read-modify-write via WithinTx.
type CardStore interface {
	CreateCard(ctx context.Context, card *models.Card) error
	FindCardByID(ctx context.Context, id int64) (*models.Card, error)
	FindCardByIDAndUser(ctx context.Context, id, userID int64) (*models.Card, error)
	// TransitionCardStatus moves a card from one status to another as a
	// single compare-and-set. It reports false when the card was no longer
	// in the expected status, so racing callers cannot double-apply a
	// transition or double-log it.
	TransitionCardStatus(ctx context.Context, id int64, from, to models.CardStatus, updatedAt time.Time) (bool, error)
	DeleteCard(ctx context.Context, id int64) error
	ListCards(ctx context.Context, filter models.CardFilter, page Page) ([]*models.Card, error)
	TotalBalanceByUser(ctx context.Context, userID int64) (decimal.Decimal, error)
	FindCardsExpiringBefore(ctx context.Context, date time.Time) ([]*models.Card, error)

	// WithinTx runs fn inside one atomic, isolated unit of work. If fn
	// returns an error the unit of work is rolled back in full.
	WithinTx(ctx context.Context, fn func(tx TransferTx) error) error
}

// TransferTx is the view of the store inside a transfer unit of work.
type TransferTx interface {
	// LockCardPair row-locks both cards, always acquiring the locks in
	// ascending id order regardless of argument order, and returns them in
	// argument order. A missing card is returned as nil, not an error.
	LockCardPair(ctx context.Context, firstID, secondID int64) (*models.Card, *models.Card, error)
	UpdateBalance(ctx context.Context, cardID int64, balance decimal.Decimal, updatedAt time.Time) error
	CreateTransaction(ctx context.Context, tx *models.CardTransaction) error
}

// AuditStore persists audit records. Its writes run outside any caller
// transaction: rollback of a business operation never undoes an audit row.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
	ListAuditLogs(ctx context.Context, filter models.AuditFilter, page Page) ([]*models.AuditLog, error)
}

// UserStore is the user record store consumed by auth and ownership checks.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Clock supplies the current time; tests substitute a fixed one.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }
