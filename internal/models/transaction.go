package models

import "github.com/shopspring/decimal"

// TransactionKind distinguishes who a transaction is shared with.
type TransactionKind string

const (
	// KindPersonal is a record that involves only its creator. Personal
	// transactions carry no settlements; they are used, among other things,
	// to record an out-of-band repayment.
	KindPersonal TransactionKind = "personal"

	// KindContact is shared directly with one counterparty, outside any group.
	KindContact TransactionKind = "contact"

	// KindSplit is shared among members of a group.
	KindSplit TransactionKind = "split"
)

// Direction states what the payer's money went to.
type Direction string

const (
	// DirectionExpense means the payer paid for something on behalf of the
	// participants.
	DirectionExpense Direction = "expense"

	// DirectionRepayment means the payer repaid a debt to a counterparty.
	DirectionRepayment Direction = "repayment"
)

// Valid reports whether k is a known kind.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindPersonal, KindContact, KindSplit:
		return true
	}
	return false
}

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionExpense || d == DirectionRepayment
}

// Transaction is an amount paid by one participant and, for contact and
// split kinds, divided among participants.
type Transaction struct {
	// ID is the unique identifier for the transaction (UUID format).
	ID string

	// GroupID is set for split transactions only.
	GroupID string

	// Title is the human-readable name. Auto-generated from participants
	// when left empty.
	Title string

	// Amount is the total paid, always positive.
	Amount decimal.Decimal

	// Category is a free-form label such as "food" or "rent".
	Category string

	// PayerID is the participant who paid.
	PayerID string

	// CreatedBy is the user who recorded the transaction.
	CreatedBy string

	Kind      TransactionKind
	Direction Direction

	// Strategy is nil for personal transactions.
	Strategy SplitStrategy

	// SplitBetween is the ordered participant list the amount is divided among.
	SplitBetween []string

	// PayerShare is the payer's own portion of the split. The payer never
	// owes themselves, so this portion has no settlement.
	PayerShare decimal.Decimal

	// CreatedAt is the Unix timestamp when the transaction was recorded.
	CreatedAt int64

	// Settlements are the obligations derived from this transaction, in
	// participant order.
	Settlements []*Settlement
}

// SettledTotal returns the sum of all settlement amounts plus the payer's
// share. For a consistent split transaction it equals Amount.
func (t *Transaction) SettledTotal() decimal.Decimal {
	sum := t.PayerShare
	for _, s := range t.Settlements {
		sum = sum.Add(s.Amount)
	}
	return sum
}

// Involves reports whether userID paid for or takes part in the transaction.
func (t *Transaction) Involves(userID string) bool {
	if t.PayerID == userID || t.CreatedBy == userID {
		return true
	}
	for _, p := range t.SplitBetween {
		if p == userID {
			return true
		}
	}
	return false
}
