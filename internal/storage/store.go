// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/splitledger/internal/models"
)

// Store defines the persistence operations needed by the ledger.
// This abstraction allows swapping storage backends (SQLite, in-memory, ...)
// without changing the ledger or service layers.
//
// Missing entities are reported as *errs.NotFoundError.
type Store interface {
	GroupStore
	TransactionStore
	SettlementStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}

// GroupStore persists groups and their members.
type GroupStore interface {
	// CreateGroup persists a new group. ID and CreatedAt are populated when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its ordered members.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsForMember returns every group, archived or not, that lists
	// memberID as a member.
	ListGroupsForMember(ctx context.Context, memberID string) ([]*models.Group, error)

	// AddGroupMembers appends members to a group, skipping IDs already present.
	AddGroupMembers(ctx context.Context, groupID string, members []models.Member) error

	// SetGroupArchived flips the archived flag. It never touches transactions.
	SetGroupArchived(ctx context.Context, groupID string, archived bool, at int64) error
}

// TransactionStore persists transactions.
type TransactionStore interface {
	// CreateTransaction persists a transaction together with its settlements
	// in one atomic step. It fails with *errs.ConflictError when a
	// transaction with the same ID already exists.
	CreateTransaction(ctx context.Context, txn *models.Transaction, settlements []*models.Settlement) error

	// GetTransaction retrieves a transaction including its settlements.
	GetTransaction(ctx context.Context, txnID string) (*models.Transaction, error)

	// ListTransactionsByGroup returns the group's transactions, newest first,
	// including settlements.
	ListTransactionsByGroup(ctx context.Context, groupID string) ([]*models.Transaction, error)

	// DeleteTransaction removes a transaction and cascades to its settlements.
	DeleteTransaction(ctx context.Context, txnID string) error
}

// SettlementStore reads settlements and records repayments.
type SettlementStore interface {
	// GetSettlement retrieves a settlement by ID.
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)

	// ListSettlementsByGroup returns a point-in-time snapshot of every
	// settlement of a group, pending and settled.
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)

	// ListSettlementsForParticipant returns every settlement where
	// participantID is debtor or creditor, across groups and contacts.
	ListSettlementsForParticipant(ctx context.Context, participantID string) ([]*models.Settlement, error)

	// MarkSettled moves a pending settlement to settled. The check on the
	// current status and the update happen atomically: of two concurrent
	// calls exactly one succeeds and the other gets *errs.InvalidStateError.
	MarkSettled(ctx context.Context, settlementID, settledBy string, settledAt int64, personalTxnID string) error
}

// UserStore persists registered accounts for the auth edge.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns nil, nil when no user has this email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns nil, nil when the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
