package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/models"
)

const settlementColumns = `id, transaction_id, group_id, debtor_id, creditor_id, amount,
	status, position, created_at, settled_at, settled_by, personal_transaction_id`

// GetSettlement retrieves a settlement by ID.
func (s *SQLiteStore) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	settlement, err := scanSettlement(s.db.QueryRowContext(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE id = ?`, settlementID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("settlement", settlementID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return settlement, nil
}

// ListSettlementsByGroup retrieves all settlements of a group.
func (s *SQLiteStore) ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	return s.querySettlements(ctx,
		`WHERE group_id = ? ORDER BY created_at, rowid`, groupID)
}

// ListSettlementsForParticipant retrieves settlements where participantID
// is either the debtor or the creditor.
func (s *SQLiteStore) ListSettlementsForParticipant(ctx context.Context, participantID string) ([]*models.Settlement, error) {
	return s.querySettlements(ctx,
		`WHERE debtor_id = ? OR creditor_id = ? ORDER BY created_at, rowid`,
		participantID, participantID)
}

// MarkSettled settles a pending settlement. The status check is part of the
// UPDATE, so a concurrent repayment of the same settlement affects no rows.
func (s *SQLiteStore) MarkSettled(ctx context.Context, settlementID, settledBy string, settledAt int64, personalTxnID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE settlements
		 SET status = ?, settled_at = ?, settled_by = ?, personal_transaction_id = ?
		 WHERE id = ? AND status = ?`,
		string(models.StatusSettled), settledAt, settledBy, nullString(personalTxnID),
		settlementID, string(models.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("failed to mark settlement settled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n > 0 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, "SELECT status FROM settlements WHERE id = ?", settlementID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return errs.NotFound("settlement", settlementID)
	}
	if err != nil {
		return fmt.Errorf("failed to get settlement status: %w", err)
	}
	return &errs.InvalidStateError{Entity: "settlement", ID: settlementID, State: status}
}

func (s *SQLiteStore) querySettlements(ctx context.Context, where string, args ...any) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+settlementColumns+` FROM settlements `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return settlements, nil
}

func scanSettlement(row rowScanner) (*models.Settlement, error) {
	st := &models.Settlement{}
	var groupID, settledBy, personalTxnID sql.NullString
	var settledAt sql.NullInt64
	var status string
	var position int
	err := row.Scan(&st.ID, &st.TransactionID, &groupID, &st.DebtorID, &st.CreditorID, &st.Amount,
		&status, &position, &st.CreatedAt, &settledAt, &settledBy, &personalTxnID)
	if err != nil {
		return nil, err
	}
	st.GroupID = groupID.String
	st.Status = models.SettlementStatus(status)
	st.SettledAt = settledAt.Int64
	st.SettledBy = settledBy.String
	st.PersonalTransactionID = personalTxnID.String
	return st, nil
}
