package service

import (
	"context"
	"fmt"

	"github.com/cardvault/card-service/internal/cardutil"
	"github.com/cardvault/card-service/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const cardNumberLength = 16

// CardService implements card issuance, lifecycle transitions, and balance
// reporting. Raw card numbers and CVVs exist only transiently inside IssueCard;
// everything returned across the service boundary is masked.
type CardService struct {
	cards  CardStore
	users  UserStore
	audit  *AuditService
	cipher *cardutil.Cipher
	rnd    cardutil.Rand
	clock  Clock
	log    *logrus.Logger

	validityYears int
	numberPrefix  string
}

// NewCardService initializes a new card service
func NewCardService(cards CardStore, users UserStore, audit *AuditService, cipher *cardutil.Cipher,
	rnd cardutil.Rand, clock Clock, log *logrus.Logger, validityYears int, numberPrefix string) *CardService {
	return &CardService{
		cards:         cards,
		users:         users,
		audit:         audit,
		cipher:        cipher,
		rnd:           rnd,
		clock:         clock,
		log:           log,
		validityYears: validityYears,
		numberPrefix:  numberPrefix,
	}
}

// IssueCard creates a new ACTIVE card with zero balance for the given user.
// Any cipher failure aborts the whole operation before persistence.
func (s *CardService) IssueCard(ctx context.Context, meta RequestMeta, holder string, userID int64) (*models.Card, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	number, err := cardutil.GenerateCardNumber(s.rnd, s.numberPrefix, cardNumberLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate card number: %w", err)
	}
	cvv, err := cardutil.GenerateCVV(s.rnd)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CVV: %w", err)
	}

	numberEncrypted, err := s.cipher.Encrypt(number)
	if err != nil {
		return nil, &EncryptionError{Err: err}
	}
	cvvEncrypted, err := s.cipher.Encrypt(cvv)
	if err != nil {
		return nil, &EncryptionError{Err: err}
	}

	now := s.clock.Now()
	card := &models.Card{
		NumberEncrypted: numberEncrypted,
		NumberMasked:    cardutil.MaskNumber(number),
		Holder:          holder,
		ExpiryDate:      cardutil.ExpiryDate(now, s.validityYears),
		CVVEncrypted:    cvvEncrypted,
		Status:          models.CardStatusActive,
		Balance:         decimal.Zero,
		UserID:          user.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.cards.CreateCard(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	s.audit.Log(ctx, meta, models.ActionCardCreated, models.EntityBankCard, &card.ID,
		fmt.Sprintf("Card created for user %s (ID: %d). Holder: %s", user.Username, user.ID, holder))

	s.log.WithFields(logrus.Fields{"card_id": card.ID, "user_id": user.ID}).Info("Card issued")
	return card, nil
}

// GetUserCard returns one card scoped to its owner.
func (s *CardService) GetUserCard(ctx context.Context, cardID, userID int64) (*models.Card, error) {
	return s.cards.FindCardByIDAndUser(ctx, cardID, userID)
}

// ListUserCards returns the owner's cards matching the filter. The user id in
// the filter is forced to the caller.
func (s *CardService) ListUserCards(ctx context.Context, userID int64, filter models.CardFilter, page Page) ([]*models.Card, error) {
	filter.UserID = &userID
	return s.cards.ListCards(ctx, filter, page)
}

// ListCards returns cards matching the filter across all users (admin use).
func (s *CardService) ListCards(ctx context.Context, filter models.CardFilter, page Page) ([]*models.Card, error) {
	return s.cards.ListCards(ctx, filter, page)
}

// BlockCard blocks a card on behalf of its owner. Blocking a card that is not
// ACTIVE is a no-op: no status write, no audit entry.
func (s *CardService) BlockCard(ctx context.Context, meta RequestMeta, cardID, userID int64) error {
	card, err := s.cards.FindCardByIDAndUser(ctx, cardID, userID)
	if err != nil {
		return err
	}
	return s.block(ctx, meta, card, models.ActionCardBlocked, fmt.Sprintf("Card blocked by user %d", userID))
}

// BlockCardByAdmin blocks any card without an ownership check.
func (s *CardService) BlockCardByAdmin(ctx context.Context, meta RequestMeta, cardID int64) error {
	card, err := s.cards.FindCardByID(ctx, cardID)
	if err != nil {
		return err
	}
	return s.block(ctx, meta, card, models.ActionAdminAction, "Card blocked by administrator")
}

func (s *CardService) block(ctx context.Context, meta RequestMeta, card *models.Card, action, details string) error {
	if card.Status != models.CardStatusActive {
		return nil
	}

	blocked, err := s.cards.TransitionCardStatus(ctx, card.ID, models.CardStatusActive, models.CardStatusBlocked, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to block card: %w", err)
	}
	if !blocked {
		// Lost the race to a concurrent transition; that writer owns the
		// audit entry.
		return nil
	}

	s.audit.Log(ctx, meta, action, models.EntityBankCard, &card.ID, details)
	s.log.WithField("card_id", card.ID).Info("Card blocked")
	return nil
}

// ActivateCard reactivates a BLOCKED card on behalf of its owner. A card past
// its expiry date stays blocked: expiry takes precedence over reactivation.
func (s *CardService) ActivateCard(ctx context.Context, meta RequestMeta, cardID, userID int64) error {
	card, err := s.cards.FindCardByIDAndUser(ctx, cardID, userID)
	if err != nil {
		return err
	}
	return s.activate(ctx, meta, card, models.ActionCardActivated, fmt.Sprintf("Card activated by user %d", userID))
}

// ActivateCardByAdmin reactivates any BLOCKED, unexpired card.
func (s *CardService) ActivateCardByAdmin(ctx context.Context, meta RequestMeta, cardID int64) error {
	card, err := s.cards.FindCardByID(ctx, cardID)
	if err != nil {
		return err
	}
	return s.activate(ctx, meta, card, models.ActionAdminAction, "Card activated by administrator")
}

func (s *CardService) activate(ctx context.Context, meta RequestMeta, card *models.Card, action, details string) error {
	if card.Status != models.CardStatusBlocked {
		return nil
	}
	// Reactivation needs strictly-before: a card expiring today is already
	// beyond saving.
	if !card.IsBeforeExpiry(s.clock.Now()) {
		return &OperationError{Reason: "card is expired"}
	}

	activated, err := s.cards.TransitionCardStatus(ctx, card.ID, models.CardStatusBlocked, models.CardStatusActive, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to activate card: %w", err)
	}
	if !activated {
		return nil
	}

	s.audit.Log(ctx, meta, action, models.EntityBankCard, &card.ID, details)
	s.log.WithField("card_id", card.ID).Info("Card activated")
	return nil
}

// DeleteCard removes a card permanently (admin use). The audit entry is the
// only remaining trace of the card.
func (s *CardService) DeleteCard(ctx context.Context, meta RequestMeta, cardID int64) error {
	card, err := s.cards.FindCardByID(ctx, cardID)
	if err != nil {
		return err
	}

	if err := s.cards.DeleteCard(ctx, cardID); err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}

	s.audit.Log(ctx, meta, models.ActionCardDeleted, models.EntityBankCard, &cardID,
		fmt.Sprintf("Card deleted, user: %d", card.UserID))
	s.log.WithField("card_id", cardID).Info("Card deleted")
	return nil
}

// TotalBalance sums the balances of all cards owned by the user; zero if none.
func (s *CardService) TotalBalance(ctx context.Context, meta RequestMeta, userID int64) (decimal.Decimal, error) {
	total, err := s.cards.TotalBalanceByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum balances: %w", err)
	}

	s.audit.Log(ctx, meta, models.ActionBalanceChecked, "", nil,
		fmt.Sprintf("Total balance checked by user %d: %s", userID, total))
	return total, nil
}

// SweepExpiredCards marks every ACTIVE card whose expiry date has passed as
// EXPIRED and returns the cards it transitioned. The sweep is idempotent and
// never touches balances, so it is safe to run concurrently with transfers.
func (s *CardService) SweepExpiredCards(ctx context.Context) ([]*models.Card, error) {
	now := s.clock.Now()
	candidates, err := s.cards.FindCardsExpiringBefore(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired cards: %w", err)
	}

	var expired []*models.Card
	for _, card := range candidates {
		if card.Status != models.CardStatusActive {
			continue
		}
		moved, err := s.cards.TransitionCardStatus(ctx, card.ID, models.CardStatusActive, models.CardStatusExpired, now)
		if err != nil {
			return expired, fmt.Errorf("failed to expire card %d: %w", card.ID, err)
		}
		if !moved {
			// A concurrent sweep or block already transitioned this card.
			continue
		}

		s.audit.Log(ctx, RequestMeta{}, models.ActionCardExpired, models.EntityBankCard, &card.ID,
			fmt.Sprintf("Card expired automatically, user: %d", card.UserID))
		s.log.WithField("card_id", card.ID).Info("Card marked as expired")

		card.Status = models.CardStatusExpired
		card.UpdatedAt = now
		expired = append(expired, card)
	}
	return expired, nil
}

// ToDisplay converts a card to its external representation.
func (s *CardService) ToDisplay(card *models.Card) *models.CardView {
	return &models.CardView{
		ID:           card.ID,
		NumberMasked: card.NumberMasked,
		Holder:       card.Holder,
		ExpiryDate:   card.ExpiryDate.Format("2006-01-02"),
		Status:       card.Status,
		Balance:      card.Balance,
		CreatedAt:    card.CreatedAt,
		UpdatedAt:    card.UpdatedAt,
	}
}
