package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cardvault/card-service/internal/models"
	"github.com/shopspring/decimal"
)

// fixedClock is a controllable Clock for deterministic tests.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFixedClock(t time.Time) *fixedClock { return &fixedClock{t: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memStore is an in-memory CardStore/UserStore with per-card locks. WithinTx
// stages mutations and applies them only when the unit of work succeeds, so
// tests observe real rollback and real lock-ordering behavior.
type memStore struct {
	mu         sync.Mutex
	nextCardID int64
	nextTxnID  int64
	nextUserID int64
	cards      map[int64]*models.Card
	cardLocks  map[int64]*sync.Mutex
	txns       []*models.CardTransaction
	users      map[int64]*models.User
}

func newMemStore() *memStore {
	return &memStore{
		cards:     make(map[int64]*models.Card),
		cardLocks: make(map[int64]*sync.Mutex),
		users:     make(map[int64]*models.User),
	}
}

func (s *memStore) CreateCard(_ context.Context, card *models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCardID++
	card.ID = s.nextCardID
	cp := *card
	s.cards[card.ID] = &cp
	s.cardLocks[card.ID] = &sync.Mutex{}
	return nil
}

func (s *memStore) FindCardByID(_ context.Context, id int64) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok {
		return nil, ErrCardNotFound
	}
	cp := *card
	return &cp, nil
}

func (s *memStore) FindCardByIDAndUser(ctx context.Context, id, userID int64) (*models.Card, error) {
	card, err := s.FindCardByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if card.UserID != userID {
		return nil, ErrCardNotFound
	}
	return card, nil
}

func (s *memStore) TransitionCardStatus(_ context.Context, id int64, from, to models.CardStatus, updatedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok || card.Status != from {
		return false, nil
	}
	card.Status = to
	card.UpdatedAt = updatedAt
	return true, nil
}

func (s *memStore) DeleteCard(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[id]; !ok {
		return ErrCardNotFound
	}
	delete(s.cards, id)
	delete(s.cardLocks, id)
	return nil
}

func (s *memStore) ListCards(_ context.Context, filter models.CardFilter, _ Page) ([]*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Card
	for _, card := range s.cards {
		if filter.UserID != nil && card.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && card.Status != *filter.Status {
			continue
		}
		if filter.MinBalance != nil && card.Balance.LessThan(*filter.MinBalance) {
			continue
		}
		if filter.MaxBalance != nil && card.Balance.GreaterThan(*filter.MaxBalance) {
			continue
		}
		cp := *card
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) TotalBalanceByUser(_ context.Context, userID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, card := range s.cards {
		if card.UserID == userID {
			total = total.Add(card.Balance)
		}
	}
	return total, nil
}

func (s *memStore) FindCardsExpiringBefore(_ context.Context, date time.Time) ([]*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Card
	for _, card := range s.cards {
		cp := *card
		if cp.IsExpired(date) {
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx TransferTx) error) error {
	mtx := &memTx{store: s, balances: make(map[int64]decimal.Decimal), updated: make(map[int64]time.Time)}
	defer mtx.unlockAll()

	if err := fn(mtx); err != nil {
		return err
	}
	mtx.commit()
	return nil
}

func (s *memStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	user.ID = s.nextUserID
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memStore) FindUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *memStore) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

// memTx mirrors the Postgres unit of work: per-card locks acquired in
// ascending id order, staged writes applied only on commit.
type memTx struct {
	store    *memStore
	locked   []int64
	balances map[int64]decimal.Decimal
	updated  map[int64]time.Time
	txns     []*models.CardTransaction
}

func (t *memTx) LockCardPair(_ context.Context, firstID, secondID int64) (*models.Card, *models.Card, error) {
	ids := []int64{firstID, secondID}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if id == 0 || containsID(t.locked, id) {
			continue
		}
		t.store.mu.Lock()
		lock, ok := t.store.cardLocks[id]
		t.store.mu.Unlock()
		if !ok {
			continue
		}
		lock.Lock()
		t.locked = append(t.locked, id)
	}

	snapshot := func(id int64) *models.Card {
		t.store.mu.Lock()
		defer t.store.mu.Unlock()
		card, ok := t.store.cards[id]
		if !ok {
			return nil
		}
		cp := *card
		return &cp
	}
	return snapshot(firstID), snapshot(secondID), nil
}

func (t *memTx) UpdateBalance(_ context.Context, cardID int64, balance decimal.Decimal, updatedAt time.Time) error {
	t.balances[cardID] = balance
	t.updated[cardID] = updatedAt
	return nil
}

func (t *memTx) CreateTransaction(_ context.Context, txn *models.CardTransaction) error {
	t.store.mu.Lock()
	t.store.nextTxnID++
	txn.ID = t.store.nextTxnID
	t.store.mu.Unlock()
	t.txns = append(t.txns, txn)
	return nil
}

func (t *memTx) commit() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for id, balance := range t.balances {
		if card, ok := t.store.cards[id]; ok {
			card.Balance = balance
			card.UpdatedAt = t.updated[id]
		}
	}
	for _, txn := range t.txns {
		cp := *txn
		t.store.txns = append(t.store.txns, &cp)
	}
}

func (t *memTx) unlockAll() {
	for i := len(t.locked) - 1; i >= 0; i-- {
		t.store.mu.Lock()
		lock, ok := t.store.cardLocks[t.locked[i]]
		t.store.mu.Unlock()
		if ok {
			lock.Unlock()
		}
	}
	t.locked = nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// memAuditStore records audit entries; failNext injects one write failure.
type memAuditStore struct {
	mu       sync.Mutex
	entries  []*models.AuditLog
	failNext bool
}

func (s *memAuditStore) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return errors.New("audit store unavailable")
	}
	entry.ID = int64(len(s.entries) + 1)
	cp := *entry
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *memAuditStore) ListAuditLogs(_ context.Context, filter models.AuditFilter, _ Page) ([]*models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AuditLog
	for _, entry := range s.entries {
		if filter.UserID != nil && (entry.UserID == nil || *entry.UserID != *filter.UserID) {
			continue
		}
		if filter.Action != nil && entry.Action != *filter.Action {
			continue
		}
		if filter.EntityType != nil && entry.EntityType != *filter.EntityType {
			continue
		}
		if filter.From != nil && entry.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && entry.CreatedAt.After(*filter.To) {
			continue
		}
		cp := *entry
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memAuditStore) byAction(action string) []*models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AuditLog
	for _, entry := range s.entries {
		if entry.Action == action {
			out = append(out, entry)
		}
	}
	return out
}
