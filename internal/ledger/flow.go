package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/models"
)

// DefaultCategory is used when a transaction is submitted without one.
const DefaultCategory = "general"

// SubmissionState is a step of the transaction submission flow.
type SubmissionState int

const (
	StateIdle SubmissionState = iota
	StateSubmitting
	StateCommitted
	StateFailed
)

func (s SubmissionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("SubmissionState(%d)", int(s))
}

// Submission tracks one attempt to record a transaction:
// Idle → Submitting → Committed | Failed. Committed and Failed are final.
type Submission struct {
	state SubmissionState

	// Transaction is set once the submission is committed.
	Transaction *models.Transaction

	// Err holds the failure of a failed submission.
	Err error
}

// NewSubmission returns an idle submission.
func NewSubmission() *Submission {
	return &Submission{state: StateIdle}
}

// State returns the current state.
func (s *Submission) State() SubmissionState {
	return s.state
}

// Begin moves an idle submission to Submitting.
func (s *Submission) Begin() error {
	return s.transition(StateIdle, StateSubmitting)
}

// Commit records the persisted transaction and finishes the submission.
func (s *Submission) Commit(txn *models.Transaction) error {
	if err := s.transition(StateSubmitting, StateCommitted); err != nil {
		return err
	}
	s.Transaction = txn
	return nil
}

// Fail records err and finishes the submission.
func (s *Submission) Fail(err error) error {
	if terr := s.transition(StateSubmitting, StateFailed); terr != nil {
		return terr
	}
	s.Err = err
	return nil
}

func (s *Submission) transition(from, to SubmissionState) error {
	if s.state != from {
		return fmt.Errorf("illegal submission transition %s -> %s", s.state, to)
	}
	s.state = to
	return nil
}

// NewTransaction is the input of Submit.
type NewTransaction struct {
	// ID is an optional client-chosen identifier. Resubmitting an ID that
	// was already recorded fails with *errs.ConflictError.
	ID string

	Kind      models.TransactionKind
	Direction models.Direction

	// GroupID is required for split transactions and must be empty otherwise.
	GroupID string

	Title    string
	Category string
	Amount   decimal.Decimal

	// PayerID defaults to the acting user.
	PayerID string

	// Participants is the ordered list the amount is divided among. For a
	// split it defaults to every group member. For a contact transaction it
	// holds exactly one participant besides the payer.
	Participants []string

	// Strategy defaults to an even split.
	Strategy models.SplitStrategy
}

// Submit validates in, computes the split and records the transaction with
// its settlements. The returned submission is Committed on success and
// Failed otherwise; the error is the failure cause.
func (l *Ledger) Submit(ctx context.Context, actorID string, in NewTransaction) (*Submission, error) {
	sub := NewSubmission()
	if err := sub.Begin(); err != nil {
		return sub, err
	}

	txn, err := l.submit(ctx, actorID, in)
	if err != nil {
		_ = sub.Fail(err)
		slog.Warn("Transaction submission failed",
			"actor_id", actorID,
			"kind", in.Kind,
			"group_id", in.GroupID,
			"error", err,
		)
		return sub, err
	}
	if err := sub.Commit(txn); err != nil {
		return sub, err
	}
	return sub, nil
}

func (l *Ledger) submit(ctx context.Context, actorID string, in NewTransaction) (*models.Transaction, error) {
	if actorID == "" {
		return nil, errs.Validationf("actor_id", "is required")
	}
	if !in.Kind.Valid() {
		return nil, errs.Validationf("kind", "unknown transaction kind %q", in.Kind)
	}
	if in.Direction == "" {
		in.Direction = models.DirectionExpense
	}
	if !in.Direction.Valid() {
		return nil, errs.Validationf("direction", "unknown direction %q", in.Direction)
	}
	if !in.Amount.IsPositive() {
		return nil, errs.Validationf("amount", "must be positive")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return nil, errs.Validationf("amount", "must have at most two decimal places")
	}
	if in.PayerID == "" {
		in.PayerID = actorID
	}
	if in.Category == "" {
		in.Category = DefaultCategory
	}

	txn := &models.Transaction{
		ID:        in.ID,
		GroupID:   in.GroupID,
		Title:     strings.TrimSpace(in.Title),
		Amount:    in.Amount,
		Category:  in.Category,
		PayerID:   in.PayerID,
		CreatedBy: actorID,
		Kind:      in.Kind,
		Direction: in.Direction,
		CreatedAt: l.now().Unix(),
	}

	switch in.Kind {
	case models.KindPersonal:
		return txn, l.submitPersonal(ctx, txn, in)
	case models.KindContact:
		return txn, l.submitContact(ctx, txn, in)
	default:
		return txn, l.submitSplit(ctx, txn, in)
	}
}

func (l *Ledger) submitPersonal(ctx context.Context, txn *models.Transaction, in NewTransaction) error {
	if in.GroupID != "" {
		return errs.Validationf("group_id", "must be empty for a personal transaction")
	}
	if in.Strategy != nil {
		return errs.Validationf("strategy", "a personal transaction is not split")
	}
	for _, p := range in.Participants {
		if p != in.PayerID {
			return errs.Validationf("participants", "a personal transaction involves only its payer")
		}
	}
	if txn.Title == "" {
		txn.Title = generateTitle(nil, time.Unix(txn.CreatedAt, 0).UTC())
	}
	return l.recordPersonal(ctx, txn)
}

func (l *Ledger) submitContact(ctx context.Context, txn *models.Transaction, in NewTransaction) error {
	if in.GroupID != "" {
		return errs.Validationf("group_id", "must be empty for a contact transaction")
	}
	var others []string
	for _, p := range in.Participants {
		if p != in.PayerID {
			others = append(others, p)
		}
	}
	if len(others) != 1 {
		return errs.Validationf("participants", "a contact transaction needs exactly one counterparty, got %d", len(others))
	}
	if txn.Title == "" {
		txn.Title = generateTitle(others, time.Unix(txn.CreatedAt, 0).UTC())
	}
	return l.split(ctx, txn, in.Participants, in.Strategy)
}

func (l *Ledger) submitSplit(ctx context.Context, txn *models.Transaction, in NewTransaction) error {
	if in.GroupID == "" {
		return errs.Validationf("group_id", "is required for a split transaction")
	}
	group, err := l.store.GetGroup(ctx, in.GroupID)
	if err != nil {
		return err
	}
	if group.Archived {
		return &errs.InvalidStateError{Entity: "group", ID: group.ID, State: "archived"}
	}
	if !group.HasMember(in.PayerID) {
		return errs.Validationf("payer_id", "%q is not a member of group %s", in.PayerID, group.ID)
	}

	participants := in.Participants
	if len(participants) == 0 {
		participants = group.MemberIDs()
	}
	for _, p := range participants {
		if !group.HasMember(p) {
			return errs.Validationf("participants", "%q is not a member of group %s", p, group.ID)
		}
	}

	if txn.Title == "" {
		names := make([]string, 0, len(participants))
		for _, m := range group.Members {
			if m.ID != in.PayerID && contains(participants, m.ID) {
				names = append(names, m.DisplayName)
			}
		}
		txn.Title = generateTitle(names, time.Unix(txn.CreatedAt, 0).UTC())
	}
	return l.split(ctx, txn, participants, in.Strategy)
}

func (l *Ledger) split(ctx context.Context, txn *models.Transaction, participants []string, strategy models.SplitStrategy) error {
	if strategy == nil {
		strategy = models.EvenSplit{}
	}
	alloc, err := calculator.Calculate(txn.Amount, participants, strategy)
	if err != nil {
		return err
	}
	txn.Strategy = strategy
	txn.SplitBetween = append([]string(nil), participants...)
	_, err = l.CreateSettlements(ctx, txn, alloc)
	return err
}

// generateTitle creates a title from the names the payer split with.
func generateTitle(names []string, at time.Time) string {
	if len(names) == 0 {
		return fmt.Sprintf("Expense - %s", at.Format("Jan 2, 2006"))
	}
	if len(names) <= 3 {
		return fmt.Sprintf("Split with %s", strings.Join(names, ", "))
	}
	return fmt.Sprintf("Split with %s and %d others",
		strings.Join(names[:2], ", "),
		len(names)-2,
	)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
