package calculator

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Obligation is the minimal view of a settlement needed for balance
// calculations: DebtorID owes CreditorID Amount.
type Obligation struct {
	DebtorID   string
	CreditorID string
	Amount     decimal.Decimal
	Settled    bool
}

// PairBalance is the netted position of a user against one counterparty.
type PairBalance struct {
	CounterpartyID string

	// Net is owed-to-user minus owed-by-user. Positive means the
	// counterparty owes the user.
	Net decimal.Decimal

	// YouOwe and OwedToYou are the non-negative magnitudes of Net; at most
	// one of them is non-zero.
	YouOwe    decimal.Decimal
	OwedToYou decimal.Decimal
}

// Settled reports whether the pair nets to exactly zero.
func (p PairBalance) Settled() bool {
	return p.Net.IsZero()
}

// GroupTotals is a user's decomposed position across a group.
// YouOwe and YoureOwed are kept apart: a user can owe one member and be owed
// by another at the same time.
type GroupTotals struct {
	// Counterparties lists only non-zero pairs, sorted by counterparty ID.
	Counterparties []PairBalance
	YouOwe         decimal.Decimal
	YoureOwed      decimal.Decimal
}

// DebtEdge represents a suggested transfer from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

// NetPair nets every pending obligation between userID and counterpartyID.
// Settled obligations are ignored entirely.
func NetPair(userID, counterpartyID string, obligations []Obligation) PairBalance {
	owedToUser := decimal.Zero
	owedByUser := decimal.Zero
	for _, o := range obligations {
		if o.Settled {
			continue
		}
		switch {
		case o.CreditorID == userID && o.DebtorID == counterpartyID:
			owedToUser = owedToUser.Add(o.Amount)
		case o.DebtorID == userID && o.CreditorID == counterpartyID:
			owedByUser = owedByUser.Add(o.Amount)
		}
	}
	return pairFromNet(counterpartyID, owedToUser.Sub(owedByUser))
}

// NetGroup nets userID against every other member of a group and sums the
// positive and negative nets separately. Counterparties that appear in the
// obligations but are no longer listed as members are included, so history
// survives membership changes.
func NetGroup(userID string, memberIDs []string, obligations []Obligation) GroupTotals {
	nets := make(map[string]decimal.Decimal)
	for _, id := range memberIDs {
		if id != userID {
			nets[id] = decimal.Zero
		}
	}
	for _, o := range obligations {
		if o.Settled || o.DebtorID == o.CreditorID {
			continue
		}
		switch userID {
		case o.CreditorID:
			nets[o.DebtorID] = nets[o.DebtorID].Add(o.Amount)
		case o.DebtorID:
			nets[o.CreditorID] = nets[o.CreditorID].Sub(o.Amount)
		}
	}

	totals := GroupTotals{YouOwe: decimal.Zero, YoureOwed: decimal.Zero}
	for id, net := range nets {
		if net.IsZero() {
			continue
		}
		pair := pairFromNet(id, net)
		totals.Counterparties = append(totals.Counterparties, pair)
		totals.YouOwe = totals.YouOwe.Add(pair.YouOwe)
		totals.YoureOwed = totals.YoureOwed.Add(pair.OwedToYou)
	}
	sort.Slice(totals.Counterparties, func(i, j int) bool {
		return totals.Counterparties[i].CounterpartyID < totals.Counterparties[j].CounterpartyID
	})
	return totals
}

func pairFromNet(counterpartyID string, net decimal.Decimal) PairBalance {
	p := PairBalance{
		CounterpartyID: counterpartyID,
		Net:            net,
		YouOwe:         decimal.Zero,
		OwedToYou:      decimal.Zero,
	}
	if net.IsPositive() {
		p.OwedToYou = net
	} else if net.IsNegative() {
		p.YouOwe = net.Neg()
	}
	return p
}

// SimplifyDebts reduces the pending obligations of a group to a short list
// of transfers that settles everyone.
//
// Algorithm:
//   - net balance per person = owed to them − owed by them
//   - creditors (net > 0) and debtors (net < 0) are each sorted by amount,
//     largest first, ties by ID
//   - greedy matching: the largest debtor pays the largest creditor the
//     smaller of the two amounts, until both lists are exhausted
func SimplifyDebts(obligations []Obligation) []DebtEdge {
	nets := make(map[string]decimal.Decimal)
	for _, o := range obligations {
		if o.Settled || o.DebtorID == o.CreditorID {
			continue
		}
		nets[o.CreditorID] = nets[o.CreditorID].Add(o.Amount)
		nets[o.DebtorID] = nets[o.DebtorID].Sub(o.Amount)
	}

	type position struct {
		id     string
		amount decimal.Decimal
	}
	var creditors, debtors []position
	for id, net := range nets {
		if net.IsPositive() {
			creditors = append(creditors, position{id, net})
		} else if net.IsNegative() {
			debtors = append(debtors, position{id, net.Neg()})
		}
	}
	byAmount := func(ps []position) func(i, j int) bool {
		return func(i, j int) bool {
			if c := ps[i].amount.Cmp(ps[j].amount); c != 0 {
				return c > 0
			}
			return ps[i].id < ps[j].id
		}
	}
	sort.Slice(creditors, byAmount(creditors))
	sort.Slice(debtors, byAmount(debtors))

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)
		if amount.IsPositive() {
			edges = append(edges, DebtEdge{From: debtors[i].id, To: creditors[j].id, Amount: amount})
		}

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		// Move to next debtor/creditor if fully settled
		if debtors[i].amount.IsZero() {
			i++
		}
		if creditors[j].amount.IsZero() {
			j++
		}
	}
	return edges
}
