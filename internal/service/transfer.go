package service

import (
	"context"
	"fmt"

	"github.com/cardvault/card-service/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Transfer atomically moves amount from one of the user's cards to another.
// Either both balance mutations and the SUCCESS transaction record commit
// together, or nothing does. Every failed attempt leaves exactly one
// TRANSFER_FAILED audit entry; the audit write survives the rollback because
// the audit store runs in its own unit of work.
func (s *CardService) Transfer(ctx context.Context, meta RequestMeta, fromCardID, toCardID int64, amount decimal.Decimal, userID int64) error {
	txn, err := s.runTransfer(ctx, fromCardID, toCardID, amount, userID)
	if err != nil {
		s.audit.Log(ctx, meta, models.ActionTransferFailed, "", nil,
			fmt.Sprintf("Transfer failed: from %d to %d, amount: %s, user: %d, error: %s",
				fromCardID, toCardID, amount, userID, err))
		return err
	}

	s.audit.Log(ctx, meta, models.ActionTransferCompleted, models.EntityCardTransaction, &txn.ID,
		fmt.Sprintf("Transfer from card %d to card %d, amount: %s, user: %d",
			fromCardID, toCardID, amount, userID))

	s.log.WithFields(logrus.Fields{
		"from_card_id": fromCardID,
		"to_card_id":   toCardID,
		"amount":       amount.String(),
		"user_id":      userID,
	}).Info("Transfer completed")
	return nil
}

func (s *CardService) runTransfer(ctx context.Context, fromCardID, toCardID int64, amount decimal.Decimal, userID int64) (*models.CardTransaction, error) {
	if fromCardID == toCardID {
		return nil, &OperationError{Reason: "source and destination cards must differ"}
	}

	var txn *models.CardTransaction
	err := s.cards.WithinTx(ctx, func(tx TransferTx) error {
		from, to, err := tx.LockCardPair(ctx, fromCardID, toCardID)
		if err != nil {
			return fmt.Errorf("failed to lock cards: %w", err)
		}
		if from == nil || from.UserID != userID {
			return fmt.Errorf("source card: %w", ErrCardNotFound)
		}
		if to == nil || to.UserID != userID {
			return fmt.Errorf("destination card: %w", ErrCardNotFound)
		}

		now := s.clock.Now()
		if !from.IsActive(now) {
			return &OperationError{Reason: "source card is not active"}
		}
		if !to.IsActive(now) {
			return &OperationError{Reason: "destination card is not active"}
		}
		if amount.Sign() <= 0 {
			return &OperationError{Reason: "transfer amount must be positive"}
		}
		if from.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		if err := tx.UpdateBalance(ctx, from.ID, from.Balance.Sub(amount), now); err != nil {
			return fmt.Errorf("failed to debit source card: %w", err)
		}
		if err := tx.UpdateBalance(ctx, to.ID, to.Balance.Add(amount), now); err != nil {
			return fmt.Errorf("failed to credit destination card: %w", err)
		}

		txn = &models.CardTransaction{
			FromCardID: &from.ID,
			ToCardID:   &to.ID,
			Amount:     amount,
			Status:     models.TransactionSuccess,
			Date:       now,
		}
		return tx.CreateTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}
