package calculator

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/models"
)

// Tolerance is the reconciliation allowance for custom amounts: a custom
// split is accepted when it differs from the total by strictly less than
// one cent.
var Tolerance = decimal.New(1, -2)

// Share is one participant's portion of a split.
type Share struct {
	ParticipantID string
	Amount        decimal.Decimal
}

// Allocation is the result of a split, in participant order.
type Allocation []Share

// Total returns the sum of all shares.
func (a Allocation) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range a {
		sum = sum.Add(s.Amount)
	}
	return sum
}

// AmountFor returns the share of participant id.
func (a Allocation) AmountFor(id string) (decimal.Decimal, bool) {
	for _, s := range a {
		if s.ParticipantID == id {
			return s.Amount, true
		}
	}
	return decimal.Zero, false
}

// AsMap returns the allocation keyed by participant.
func (a Allocation) AsMap() map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(a))
	for _, s := range a {
		m[s.ParticipantID] = s.Amount
	}
	return m
}

// Calculate divides amount among participants using strategy.
//
// Every strategy works in whole cents and the result always sums to amount
// exactly:
//   - even: every participant gets the floor of amount/n in cents. The
//     leftover cents go one each to the first participants in list order, so
//     10.00 among 7 gives the first six 1.43 and the last 1.42.
//   - custom: the supplied amounts must be within Tolerance of amount. They
//     are used as weights for a largest-remainder split of amount, which
//     leaves amounts given in whole cents unchanged.
//   - share: amount*s_i/Σs floored to cents, leftover cents go to the largest
//     fractional remainders, ties broken by list order.
func Calculate(amount decimal.Decimal, participants []string, strategy models.SplitStrategy) (Allocation, error) {
	if err := validateInputs(amount, participants); err != nil {
		return nil, err
	}
	cents := amount.Shift(2).IntPart()

	var (
		alloc Allocation
		err   error
	)
	switch s := strategy.(type) {
	case models.EvenSplit:
		weights := make([]int64, len(participants))
		for i := range weights {
			weights[i] = 1
		}
		alloc = distribute(cents, participants, weights)
	case models.CustomSplit:
		alloc, err = splitCustom(amount, participants, s.Amounts)
	case models.ShareSplit:
		alloc, err = splitShares(cents, participants, s.Shares)
	case nil:
		return nil, errs.Validationf("strategy", "split strategy is required")
	default:
		return nil, errs.Validationf("strategy", "unsupported split strategy %q", strategy.Kind())
	}
	if err != nil {
		return nil, err
	}

	if total := alloc.Total(); !total.Equal(amount) {
		return nil, fmt.Errorf("%s split of %s allocated %s", strategy.Kind(), amount, total)
	}
	return alloc, nil
}

func validateInputs(amount decimal.Decimal, participants []string) error {
	if !amount.IsPositive() {
		return errs.Validationf("amount", "amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return errs.Validationf("amount", "amount must have at most 2 decimal places")
	}
	if len(participants) == 0 {
		return errs.Validationf("participants", "must have at least one participant")
	}
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p == "" {
			return errs.Validationf("participants", "participant id cannot be empty")
		}
		if seen[p] {
			return errs.Validationf("participants", "duplicate participant %q", p)
		}
		seen[p] = true
	}
	return nil
}

func splitCustom(amount decimal.Decimal, participants []string, amounts map[string]decimal.Decimal) (Allocation, error) {
	if err := checkKeys(participants, len(amounts), func(p string) bool { _, ok := amounts[p]; return ok }); err != nil {
		return nil, err
	}

	raw := decimal.Zero
	for _, p := range participants {
		a := amounts[p]
		if a.IsNegative() {
			return nil, errs.Validationf("custom_amounts", "amount for %q cannot be negative", p)
		}
		raw = raw.Add(a)
	}
	if raw.Sub(amount).Abs().GreaterThanOrEqual(Tolerance) {
		return nil, errs.Validation("custom split must sum to total")
	}

	places, err := customPlaces(amounts)
	if err != nil {
		return nil, err
	}
	weights := make([]int64, len(participants))
	for i, p := range participants {
		weights[i] = amounts[p].Shift(places).IntPart()
	}
	return distribute(amount.Shift(2).IntPart(), participants, weights), nil
}

// maxCustomPlaces bounds the precision of custom amounts so that their
// integer weights fit in an int64.
const maxCustomPlaces = 6

// customPlaces returns the smallest number of decimal places, at least 2,
// that turns every custom amount into an integer.
func customPlaces(amounts map[string]decimal.Decimal) (int32, error) {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	for places := int32(2); places <= maxCustomPlaces; places++ {
		exact := true
		for _, a := range amounts {
			if !a.Shift(places).IsInteger() {
				exact = false
				break
			}
		}
		if !exact {
			continue
		}
		if sum.Shift(places).GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
			return 0, errs.Validationf("custom_amounts", "custom amounts are too large")
		}
		return places, nil
	}
	return 0, errs.Validationf("custom_amounts", "custom amounts may have at most %d decimal places", maxCustomPlaces)
}

func splitShares(cents int64, participants []string, shares map[string]int64) (Allocation, error) {
	if err := checkKeys(participants, len(shares), func(p string) bool { _, ok := shares[p]; return ok }); err != nil {
		return nil, err
	}

	weights := make([]int64, len(participants))
	var total int64
	for i, p := range participants {
		s := shares[p]
		if s < 0 {
			return nil, errs.Validationf("shares", "share count for %q cannot be negative", p)
		}
		weights[i] = s
		total += s
	}
	if total == 0 {
		return nil, errs.Validation("total shares must be positive")
	}
	return distribute(cents, participants, weights), nil
}

// checkKeys verifies that a per-participant map covers exactly the
// participant list.
func checkKeys(participants []string, size int, has func(string) bool) error {
	for _, p := range participants {
		if !has(p) {
			return errs.Validationf("participants", "missing split value for %q", p)
		}
	}
	if size != len(participants) {
		return errs.Validationf("participants", "split values reference unknown participants")
	}
	return nil
}

// distribute splits cents proportionally to weights using the largest
// remainder method. Ties go to the earlier participant.
func distribute(cents int64, participants []string, weights []int64) Allocation {
	var totalWeight int64
	for _, w := range weights {
		totalWeight += w
	}
	total := decimal.NewFromInt(totalWeight)
	pool := decimal.NewFromInt(cents)

	base := make([]int64, len(weights))
	rems := make([]decimal.Decimal, len(weights))
	var assigned int64
	for i, w := range weights {
		q, r := pool.Mul(decimal.NewFromInt(w)).QuoRem(total, 0)
		base[i] = q.IntPart()
		rems[i] = r
		assigned += base[i]
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rems[order[a]].GreaterThan(rems[order[b]])
	})
	for k := int64(0); k < cents-assigned; k++ {
		base[order[k]]++
	}

	alloc := make(Allocation, len(participants))
	for i, p := range participants {
		alloc[i] = Share{ParticipantID: p, Amount: decimal.New(base[i], -2)}
	}
	return alloc
}
