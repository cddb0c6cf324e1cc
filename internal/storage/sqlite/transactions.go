package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/models"
)

const transactionColumns = `id, group_id, title, amount, category, payer_id, created_by,
	kind, direction, strategy, payer_share, created_at`

// CreateTransaction persists a transaction, its participants and its
// settlements in a single database transaction.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, txn *models.Transaction, settlements []*models.Settlement) error {
	// Generated values reach txn and settlements only after the commit.
	id, createdAt := txn.ID, txn.CreatedAt
	if id == "" {
		id = uuid.New().String()
	}
	if createdAt == 0 {
		createdAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE id = ?", id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check transaction: %w", err)
	}
	if exists > 0 {
		return &errs.ConflictError{Entity: "transaction", ID: id}
	}

	var strategy sql.NullString
	if txn.Strategy != nil {
		strategy = nullString(string(txn.Strategy.Kind()))
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nullString(txn.GroupID), txn.Title, txn.Amount, txn.Category, txn.PayerID, txn.CreatedBy,
		string(txn.Kind), string(txn.Direction), strategy, txn.PayerShare, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	for i, p := range txn.SplitBetween {
		custom, shares := strategyValues(txn.Strategy, p)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_participants (transaction_id, participant_id, position, custom_amount, share_count)
			 VALUES (?, ?, ?, ?, ?)`,
			id, p, i, custom, shares,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	stored := make([]models.Settlement, len(settlements))
	for i, st := range settlements {
		row := *st
		if row.ID == "" {
			row.ID = uuid.New().String()
		}
		row.TransactionID = id
		if row.CreatedAt == 0 {
			row.CreatedAt = createdAt
		}
		stored[i] = row
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settlements (`+settlementColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.ID, row.TransactionID, nullString(row.GroupID), row.DebtorID, row.CreditorID, row.Amount,
			string(row.Status), i, row.CreatedAt, nullInt(row.SettledAt), nullString(row.SettledBy),
			nullString(row.PersonalTransactionID),
		)
		if err != nil {
			return fmt.Errorf("failed to insert settlement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	txn.ID, txn.CreatedAt = id, createdAt
	for i, st := range settlements {
		*st = stored[i]
	}
	txn.Settlements = settlements
	return nil
}

func strategyValues(strategy models.SplitStrategy, participantID string) (decimal.NullDecimal, sql.NullInt64) {
	switch st := strategy.(type) {
	case models.CustomSplit:
		if v, ok := st.Amounts[participantID]; ok {
			return decimal.NewNullDecimal(v), sql.NullInt64{}
		}
	case models.ShareSplit:
		if v, ok := st.Shares[participantID]; ok {
			return decimal.NullDecimal{}, sql.NullInt64{Int64: v, Valid: true}
		}
	}
	return decimal.NullDecimal{}, sql.NullInt64{}
}

// GetTransaction retrieves a transaction by ID with its participants and settlements.
func (s *SQLiteStore) GetTransaction(ctx context.Context, txnID string) (*models.Transaction, error) {
	txn, strategy, err := scanTransaction(s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, txnID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("transaction", txnID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	if err := s.loadDetails(ctx, txn, strategy); err != nil {
		return nil, err
	}
	return txn, nil
}

// ListTransactionsByGroup returns the group's transactions, newest first.
func (s *SQLiteStore) ListTransactionsByGroup(ctx context.Context, groupID string) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE group_id = ? ORDER BY created_at DESC, rowid DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	var txns []*models.Transaction
	var strategies []sql.NullString
	for rows.Next() {
		txn, strategy, err := scanTransaction(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
		strategies = append(strategies, strategy)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	// Details are loaded after the cursor is closed; see ListGroupsForMember.
	for i, txn := range txns {
		if err := s.loadDetails(ctx, txn, strategies[i]); err != nil {
			return nil, err
		}
	}
	return txns, nil
}

// DeleteTransaction removes a transaction. Participants and settlements go
// with it through ON DELETE CASCADE.
func (s *SQLiteStore) DeleteTransaction(ctx context.Context, txnID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", txnID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return errs.NotFound("transaction", txnID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, sql.NullString, error) {
	txn := &models.Transaction{}
	var groupID, strategy sql.NullString
	var kind, direction string
	err := row.Scan(&txn.ID, &groupID, &txn.Title, &txn.Amount, &txn.Category, &txn.PayerID,
		&txn.CreatedBy, &kind, &direction, &strategy, &txn.PayerShare, &txn.CreatedAt)
	if err != nil {
		return nil, strategy, err
	}
	txn.GroupID = groupID.String
	txn.Kind = models.TransactionKind(kind)
	txn.Direction = models.Direction(direction)
	return txn, strategy, nil
}

// loadDetails fills participants, the split strategy and settlements.
func (s *SQLiteStore) loadDetails(ctx context.Context, txn *models.Transaction, strategy sql.NullString) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id, custom_amount, share_count FROM transaction_participants
		 WHERE transaction_id = ? ORDER BY position`,
		txn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	amounts := make(map[string]decimal.Decimal)
	shares := make(map[string]int64)
	for rows.Next() {
		var id string
		var custom decimal.NullDecimal
		var count sql.NullInt64
		if err := rows.Scan(&id, &custom, &count); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		txn.SplitBetween = append(txn.SplitBetween, id)
		if custom.Valid {
			amounts[id] = custom.Decimal
		}
		if count.Valid {
			shares[id] = count.Int64
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate participants: %w", err)
	}
	rows.Close()

	switch models.StrategyKind(strategy.String) {
	case models.StrategyEven:
		txn.Strategy = models.EvenSplit{}
	case models.StrategyCustom:
		txn.Strategy = models.CustomSplit{Amounts: amounts}
	case models.StrategyShare:
		txn.Strategy = models.ShareSplit{Shares: shares}
	}

	settlements, err := s.querySettlements(ctx,
		`WHERE transaction_id = ? ORDER BY position`, txn.ID)
	if err != nil {
		return err
	}
	txn.Settlements = settlements
	return nil
}
