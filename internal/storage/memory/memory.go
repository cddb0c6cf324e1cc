// Package memory provides an in-process implementation of storage.Store.
// It is used for tests and for running the server without a database file.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store keeps everything in maps guarded by one RWMutex. Values are copied
// on the way in and out so callers never share memory with the store.
type Store struct {
	mu           sync.RWMutex
	groups       map[string]*models.Group
	transactions map[string]*models.Transaction
	settlements  map[string]*models.Settlement
	users        map[string]*models.User
	seq          int64 // insertion order, used for stable listings
	order        map[string]int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		groups:       make(map[string]*models.Group),
		transactions: make(map[string]*models.Transaction),
		settlements:  make(map[string]*models.Settlement),
		users:        make(map[string]*models.User),
		order:        make(map[string]int64),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) touch(id string) {
	s.seq++
	s.order[id] = s.seq
}

// CreateGroup stores a copy of group.
func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.groups[group.ID]; exists {
		return &errs.ConflictError{Entity: "group", ID: group.ID}
	}
	s.groups[group.ID] = copyGroup(group)
	s.touch(group.ID)
	return nil
}

// GetGroup returns a copy of the group.
func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, errs.NotFound("group", groupID)
	}
	return copyGroup(g), nil
}

// ListGroupsForMember returns the groups listing memberID, oldest first.
func (s *Store) ListGroupsForMember(ctx context.Context, memberID string) ([]*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Group
	for _, g := range s.groups {
		if g.HasMember(memberID) {
			out = append(out, copyGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.order[out[i].ID] < s.order[out[j].ID] })
	return out, nil
}

// AddGroupMembers appends members that are not yet in the group.
func (s *Store) AddGroupMembers(ctx context.Context, groupID string, members []models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return errs.NotFound("group", groupID)
	}
	for _, m := range members {
		if !g.HasMember(m.ID) {
			g.Members = append(g.Members, m)
		}
	}
	return nil
}

// SetGroupArchived flips the archived flag of a group.
func (s *Store) SetGroupArchived(ctx context.Context, groupID string, archived bool, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return errs.NotFound("group", groupID)
	}
	g.Archived = archived
	if archived {
		g.ArchivedAt = at
	}
	return nil
}

// CreateTransaction stores the transaction and its settlements under one lock.
func (s *Store) CreateTransaction(ctx context.Context, txn *models.Transaction, settlements []*models.Settlement) error {
	id, createdAt := txn.ID, txn.CreatedAt
	if id == "" {
		id = uuid.New().String()
	}
	if createdAt == 0 {
		createdAt = time.Now().Unix()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transactions[id]; exists {
		return &errs.ConflictError{Entity: "transaction", ID: id}
	}
	rows := make([]models.Settlement, len(settlements))
	for i, st := range settlements {
		row := *st
		if row.ID == "" {
			row.ID = uuid.New().String()
		}
		if _, exists := s.settlements[row.ID]; exists {
			return &errs.ConflictError{Entity: "settlement", ID: row.ID}
		}
		row.TransactionID = id
		if row.CreatedAt == 0 {
			row.CreatedAt = createdAt
		}
		rows[i] = row
	}

	txn.ID, txn.CreatedAt = id, createdAt
	stored := copyTransaction(txn)
	stored.Settlements = nil
	for i, st := range settlements {
		*st = rows[i]
		c := rows[i]
		s.settlements[c.ID] = &c
		s.touch(c.ID)
		stored.Settlements = append(stored.Settlements, &c)
	}
	s.transactions[id] = stored
	s.touch(id)
	txn.Settlements = settlements
	return nil
}

// GetTransaction returns a copy of the transaction with its settlements.
func (s *Store) GetTransaction(ctx context.Context, txnID string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[txnID]
	if !ok {
		return nil, errs.NotFound("transaction", txnID)
	}
	return copyTransaction(t), nil
}

// ListTransactionsByGroup returns the group's transactions, newest first.
func (s *Store) ListTransactionsByGroup(ctx context.Context, groupID string) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transaction
	for _, t := range s.transactions {
		if t.GroupID == groupID {
			out = append(out, copyTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.order[out[i].ID] > s.order[out[j].ID] })
	return out, nil
}

// DeleteTransaction removes a transaction and its settlements.
func (s *Store) DeleteTransaction(ctx context.Context, txnID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[txnID]
	if !ok {
		return errs.NotFound("transaction", txnID)
	}
	for _, st := range t.Settlements {
		delete(s.settlements, st.ID)
	}
	delete(s.transactions, txnID)
	return nil
}

// GetSettlement returns a copy of the settlement.
func (s *Store) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.settlements[settlementID]
	if !ok {
		return nil, errs.NotFound("settlement", settlementID)
	}
	c := *st
	return &c, nil
}

// ListSettlementsByGroup returns a snapshot of the group's settlements.
func (s *Store) ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	return s.filterSettlements(func(st *models.Settlement) bool { return st.GroupID == groupID }), nil
}

// ListSettlementsForParticipant returns settlements where participantID is a party.
func (s *Store) ListSettlementsForParticipant(ctx context.Context, participantID string) ([]*models.Settlement, error) {
	return s.filterSettlements(func(st *models.Settlement) bool {
		return st.DebtorID == participantID || st.CreditorID == participantID
	}), nil
}

func (s *Store) filterSettlements(keep func(*models.Settlement) bool) []*models.Settlement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Settlement
	for _, st := range s.settlements {
		if keep(st) {
			c := *st
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.order[out[i].ID] < s.order[out[j].ID] })
	return out
}

// MarkSettled settles a pending settlement under the write lock.
func (s *Store) MarkSettled(ctx context.Context, settlementID, settledBy string, settledAt int64, personalTxnID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.settlements[settlementID]
	if !ok {
		return errs.NotFound("settlement", settlementID)
	}
	if st.Status != models.StatusPending {
		return &errs.InvalidStateError{Entity: "settlement", ID: settlementID, State: string(st.Status)}
	}
	st.Status = models.StatusSettled
	st.SettledAt = settledAt
	st.SettledBy = settledBy
	st.PersonalTransactionID = personalTxnID
	return nil
}

// CreateUser stores a copy of user.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return &errs.ConflictError{Entity: "user", ID: user.Email}
		}
	}
	c := *user
	s.users[user.ID] = &c
	return nil
}

// GetUserByEmail returns nil, nil when no user matches.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

// GetUserByID returns nil, nil when no user matches.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func copyGroup(g *models.Group) *models.Group {
	c := *g
	c.Members = append([]models.Member(nil), g.Members...)
	return &c
}

// copyTransaction copies the transaction and its settlements. Stored
// transactions share settlement pointers with the settlement map, so
// repayments show up here. Callers hold the lock.
func copyTransaction(t *models.Transaction) *models.Transaction {
	c := *t
	c.SplitBetween = append([]string(nil), t.SplitBetween...)
	c.Settlements = make([]*models.Settlement, len(t.Settlements))
	for i, st := range t.Settlements {
		sc := *st
		c.Settlements[i] = &sc
	}
	return &c
}
