// Package ledger owns every state change of the settlement log and the
// balance queries computed from it.
//
// All writes go through Ledger: CreateSettlements is the only producer of
// settlements and RecordRepayment the only way one becomes settled.
// Identities are explicit parameters; nothing here reads request context
// values.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Ledger records transactions with their settlements and repayments.
type Ledger struct {
	store     storage.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPublisher sends ledger events to p. The default drops them.
func WithPublisher(p events.Publisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithMetrics records ledger counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a Ledger on top of store.
func New(store storage.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		publisher: events.Nop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateSettlements derives one pending settlement per non-payer share of
// alloc and persists them together with txn in one atomic step. The payer's
// own share becomes txn.PayerShare. Zero shares produce no settlement.
//
// A second call for a transaction ID that already exists fails with
// *errs.ConflictError and writes nothing.
func (l *Ledger) CreateSettlements(ctx context.Context, txn *models.Transaction, alloc calculator.Allocation) ([]*models.Settlement, error) {
	if len(alloc) == 0 {
		return nil, errs.Validation("allocation is empty")
	}
	if !alloc.Total().Equal(txn.Amount) {
		return nil, errs.Validationf("allocation", "shares sum to %s, transaction amount is %s",
			alloc.Total().StringFixed(2), txn.Amount.StringFixed(2))
	}
	if txn.CreatedAt == 0 {
		txn.CreatedAt = l.now().Unix()
	}

	payerShare, _ := alloc.AmountFor(txn.PayerID)
	txn.PayerShare = payerShare

	var settlements []*models.Settlement
	for _, share := range alloc {
		if share.ParticipantID == txn.PayerID || share.Amount.IsZero() {
			continue
		}
		settlements = append(settlements, &models.Settlement{
			GroupID:    txn.GroupID,
			DebtorID:   share.ParticipantID,
			CreditorID: txn.PayerID,
			Amount:     share.Amount,
			Status:     models.StatusPending,
			CreatedAt:  txn.CreatedAt,
		})
	}

	if err := l.store.CreateTransaction(ctx, txn, settlements); err != nil {
		return nil, err
	}
	l.metrics.SettlementsCreated(len(settlements))

	slog.Info("Settlements created",
		"transaction_id", txn.ID,
		"group_id", txn.GroupID,
		"count", len(settlements),
	)
	l.publishCreated(ctx, txn)
	return settlements, nil
}

// recordPersonal stores a personal transaction, which carries no settlements.
func (l *Ledger) recordPersonal(ctx context.Context, txn *models.Transaction) error {
	if txn.CreatedAt == 0 {
		txn.CreatedAt = l.now().Unix()
	}
	txn.PayerShare = txn.Amount
	if err := l.store.CreateTransaction(ctx, txn, nil); err != nil {
		return err
	}
	l.publishCreated(ctx, txn)
	return nil
}

// RecordRepayment moves a pending settlement to settled. settledBy is the
// user recording the repayment. personalTxnID optionally links the personal
// transaction that recorded the payment; it must exist and be personal.
//
// Settling twice fails with *errs.InvalidStateError. Of two concurrent calls
// on the same settlement exactly one succeeds.
func (l *Ledger) RecordRepayment(ctx context.Context, settlementID, settledBy, personalTxnID string) (*models.Settlement, error) {
	if settlementID == "" {
		return nil, errs.Validationf("settlement_id", "is required")
	}
	if settledBy == "" {
		return nil, errs.Validationf("settled_by", "is required")
	}

	if personalTxnID != "" {
		linked, err := l.store.GetTransaction(ctx, personalTxnID)
		if err != nil {
			return nil, err
		}
		if linked.Kind != models.KindPersonal {
			return nil, errs.Validationf("personal_transaction_id",
				"transaction %s is %s, not personal", personalTxnID, linked.Kind)
		}
	}

	err := l.store.MarkSettled(ctx, settlementID, settledBy, l.now().Unix(), personalTxnID)
	switch {
	case err == nil:
		l.metrics.Repayment("settled")
	case errs.IsInvalidState(err):
		l.metrics.Repayment("already_settled")
		return nil, err
	case errs.IsNotFound(err):
		l.metrics.Repayment("not_found")
		return nil, err
	default:
		l.metrics.Repayment("error")
		return nil, err
	}

	settlement, err := l.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload settlement: %w", err)
	}

	slog.Info("Repayment recorded",
		"settlement_id", settlementID,
		"settled_by", settledBy,
		"amount", settlement.Amount.StringFixed(2),
	)

	event := events.New(events.SettlementSettled, settledBy)
	event.SettlementID = settlement.ID
	event.TransactionID = settlement.TransactionID
	event.GroupID = settlement.GroupID
	event.Participants = []string{settlement.DebtorID, settlement.CreditorID}
	l.publish(ctx, event)

	return settlement, nil
}

// DeleteTransaction removes a transaction and its settlements. A transaction
// with any settled settlement is kept, since deleting it would erase a
// recorded repayment.
func (l *Ledger) DeleteTransaction(ctx context.Context, actorID, txnID string) error {
	if actorID == "" {
		return errs.Validationf("actor_id", "is required")
	}
	txn, err := l.store.GetTransaction(ctx, txnID)
	if err != nil {
		return err
	}
	for _, s := range txn.Settlements {
		if !s.Pending() {
			return &errs.InvalidStateError{Entity: "transaction", ID: txnID, State: "partially settled"}
		}
	}

	if err := l.store.DeleteTransaction(ctx, txnID); err != nil {
		return err
	}

	slog.Info("Transaction deleted", "transaction_id", txnID, "actor_id", actorID)

	event := events.New(events.TransactionDeleted, actorID)
	event.TransactionID = txnID
	event.GroupID = txn.GroupID
	event.Participants = txn.SplitBetween
	l.publish(ctx, event)
	return nil
}

func (l *Ledger) publishCreated(ctx context.Context, txn *models.Transaction) {
	event := events.New(events.TransactionCreated, txn.CreatedBy)
	event.TransactionID = txn.ID
	event.GroupID = txn.GroupID
	event.Participants = txn.SplitBetween
	l.publish(ctx, event)
}

// publish never fails the write that triggered it.
func (l *Ledger) publish(ctx context.Context, event *events.Event) {
	if err := l.publisher.Publish(ctx, event); err != nil {
		slog.Warn("Failed to publish ledger event",
			"type", event.Type,
			"transaction_id", event.TransactionID,
			"error", err,
		)
	}
}
