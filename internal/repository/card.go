package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cardvault/card-service/internal/models"
	"github.com/cardvault/card-service/internal/service"
	"github.com/shopspring/decimal"
)

const cardColumns = `id, card_number_encrypted, card_number_masked, card_holder,
		expiry_date, cvv_encrypted, status, balance, user_id, created_at, updated_at`

func scanCard(row interface{ Scan(...any) error }) (*models.Card, error) {
	card := &models.Card{}
	err := row.Scan(&card.ID, &card.NumberEncrypted, &card.NumberMasked, &card.Holder,
		&card.ExpiryDate, &card.CVVEncrypted, &card.Status, &card.Balance,
		&card.UserID, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return card, nil
}

// CreateCard inserts a new card and fills in its generated id.
func (r *Repository) CreateCard(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO bank_cards (card_number_encrypted, card_number_masked, card_holder,
			expiry_date, cvv_encrypted, status, balance, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		card.NumberEncrypted, card.NumberMasked, card.Holder, card.ExpiryDate,
		card.CVVEncrypted, card.Status, card.Balance, card.UserID,
		card.CreatedAt, card.UpdatedAt).Scan(&card.ID)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// FindCardByID retrieves a card by id.
func (r *Repository) FindCardByID(ctx context.Context, id int64) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank_cards WHERE id = $1`
	card, err := scanCard(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, service.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	return card, nil
}

// FindCardByIDAndUser retrieves a card by id scoped to its owner.
func (r *Repository) FindCardByIDAndUser(ctx context.Context, id, userID int64) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank_cards WHERE id = $1 AND user_id = $2`
	card, err := scanCard(r.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, service.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	return card, nil
}

// TransitionCardStatus updates the status only if the card still holds the
// expected one. Zero rows affected means another writer got there first (or
// the card is gone); callers treat that as a no-op, not an error.
func (r *Repository) TransitionCardStatus(ctx context.Context, id int64, from, to models.CardStatus, updatedAt time.Time) (bool, error) {
	query := `UPDATE bank_cards SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to, updatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to update card status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update card status: %w", err)
	}
	return n > 0, nil
}

// DeleteCard removes a card row permanently.
func (r *Repository) DeleteCard(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bank_cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return service.ErrCardNotFound
	}
	return nil
}

// ListCards retrieves cards matching the filter, ordered by id. Each non-nil
// filter field adds one predicate to the WHERE clause.
func (r *Repository) ListCards(ctx context.Context, filter models.CardFilter, page service.Page) ([]*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank_cards WHERE 1=1`
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.MinBalance != nil {
		args = append(args, *filter.MinBalance)
		query += fmt.Sprintf(" AND balance >= $%d", len(args))
	}
	if filter.MaxBalance != nil {
		args = append(args, *filter.MaxBalance)
		query += fmt.Sprintf(" AND balance <= $%d", len(args))
	}

	limit, offset := limitOffset(page)
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// TotalBalanceByUser sums the balances of all cards owned by a user.
func (r *Repository) TotalBalanceByUser(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(balance), 0) FROM bank_cards WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum balances: %w", err)
	}
	return total, nil
}

// FindCardsExpiringBefore retrieves cards whose expiry date is strictly
// before the given date.
func (r *Repository) FindCardsExpiringBefore(ctx context.Context, date time.Time) ([]*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank_cards WHERE expiry_date < $1::date ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to find expiring cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// transferTx is the transactional view used by the transfer engine.
type transferTx struct {
	tx *sql.Tx
}

// LockCardPair row-locks both cards with SELECT ... FOR UPDATE, always in
// ascending id order so that two opposite-direction transfers over the same
// pair cannot deadlock. Results come back in argument order; a missing card
// is a nil entry.
func (t *transferTx) LockCardPair(ctx context.Context, firstID, secondID int64) (*models.Card, *models.Card, error) {
	ids := []int64{firstID, secondID}
	if secondID < firstID {
		ids[0], ids[1] = secondID, firstID
	}

	locked := make(map[int64]*models.Card, 2)
	for _, id := range ids {
		if _, done := locked[id]; done {
			continue
		}
		query := `SELECT ` + cardColumns + ` FROM bank_cards WHERE id = $1 FOR UPDATE`
		card, err := scanCard(t.tx.QueryRowContext(ctx, query, id))
		if err == sql.ErrNoRows {
			locked[id] = nil
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to lock card %d: %w", id, err)
		}
		locked[id] = card
	}
	return locked[firstID], locked[secondID], nil
}

// UpdateBalance sets a card's balance inside the transfer transaction.
func (t *transferTx) UpdateBalance(ctx context.Context, cardID int64, balance decimal.Decimal, updatedAt time.Time) error {
	query := `UPDATE bank_cards SET balance = $2, updated_at = $3 WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, cardID, balance, updatedAt); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

// CreateTransaction appends a card transaction row inside the transfer
// transaction and fills in its generated id.
func (t *transferTx) CreateTransaction(ctx context.Context, txn *models.CardTransaction) error {
	query := `
		INSERT INTO card_transactions (from_card_id, to_card_id, amount, status, transaction_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := t.tx.QueryRowContext(ctx, query,
		txn.FromCardID, txn.ToCardID, txn.Amount, txn.Status, txn.Date).Scan(&txn.ID)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}
