package models

import "github.com/shopspring/decimal"

// SettlementStatus is the lifecycle state of a settlement.
type SettlementStatus string

const (
	StatusPending SettlementStatus = "pending"
	StatusSettled SettlementStatus = "settled"
)

// SettlementDirection describes a settlement from one user's point of view.
type SettlementDirection string

const (
	// DirectionOwedToUser: the user is the creditor.
	DirectionOwedToUser SettlementDirection = "owed_to_user"
	// DirectionOwedByUser: the user is the debtor.
	DirectionOwedByUser SettlementDirection = "owed_by_user"
	// DirectionNone: the user is not a party.
	DirectionNone SettlementDirection = "none"
)

// Settlement is a single debtor→creditor obligation derived from one
// transaction. It is created pending together with its transaction and
// moves to settled exactly once.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// TransactionID is the owning transaction.
	TransactionID string

	// GroupID mirrors the owning transaction's group, empty for contact
	// transactions.
	GroupID string

	// DebtorID is the participant who owes.
	DebtorID string

	// CreditorID is the participant who is owed (the transaction's payer).
	CreditorID string

	// Amount is the owed amount, never negative.
	Amount decimal.Decimal

	Status SettlementStatus

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64

	// SettledAt is the Unix timestamp of repayment, zero while pending.
	SettledAt int64

	// SettledBy is the user who recorded the repayment.
	SettledBy string

	// PersonalTransactionID optionally links the personal transaction that
	// recorded the repayment.
	PersonalTransactionID string
}

// Pending reports whether the settlement still counts towards balances.
func (s *Settlement) Pending() bool {
	return s.Status == StatusPending
}

// DirectionFor returns how the settlement looks to userID.
func (s *Settlement) DirectionFor(userID string) SettlementDirection {
	switch userID {
	case s.CreditorID:
		return DirectionOwedToUser
	case s.DebtorID:
		return DirectionOwedByUser
	}
	return DirectionNone
}

// Counterparty returns the other party of the settlement as seen by userID,
// or empty if userID is not a party.
func (s *Settlement) Counterparty(userID string) string {
	switch userID {
	case s.CreditorID:
		return s.DebtorID
	case s.DebtorID:
		return s.CreditorID
	}
	return ""
}
