package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/models"
)

// CreateGroup persists a new group with its members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	// Generate ID if not set
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, created_at, archived, archived_at) VALUES (?, ?, ?, ?, ?)",
		group.ID, group.Name, group.CreatedAt, group.Archived, nullInt(group.ArchivedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := insertMembers(ctx, tx, group.ID, 0, group.Members); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertMembers(ctx context.Context, tx *sql.Tx, groupID string, offset int, members []models.Member) error {
	for i, m := range members {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, member_id, display_name, user_id, phone, position)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			groupID, m.ID, m.DisplayName, nullString(m.UserID), nullString(m.Phone), offset+i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}
	return nil
}

// GetGroup retrieves a group by ID, including its ordered members.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	var archivedAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at, archived, archived_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.CreatedAt, &group.Archived, &archivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("group", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	group.ArchivedAt = archivedAt.Int64

	members, err := s.listMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	group.Members = members
	return group, nil
}

func (s *SQLiteStore) listMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT member_id, display_name, user_id, phone FROM group_members
		 WHERE group_id = ? ORDER BY position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		var userID, phone sql.NullString
		if err := rows.Scan(&m.ID, &m.DisplayName, &userID, &phone); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		m.UserID = userID.String
		m.Phone = phone.String
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return members, nil
}

// ListGroupsForMember returns every group that lists memberID, oldest first.
func (s *SQLiteStore) ListGroupsForMember(ctx context.Context, memberID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id FROM groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.member_id = ?
		 ORDER BY g.created_at, g.rowid`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	// Collect IDs first: the pool has a single connection, so no nested
	// query may run while rows are open.
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	groups := make([]*models.Group, 0, len(ids))
	for _, id := range ids {
		g, err := s.GetGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// AddGroupMembers appends members that are not already in the group.
func (s *SQLiteStore) AddGroupMembers(ctx context.Context, groupID string, members []models.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM groups WHERE id = ?", groupID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check group: %w", err)
	}
	if exists == 0 {
		return errs.NotFound("group", groupID)
	}

	var next sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT MAX(position) + 1 FROM group_members WHERE group_id = ?", groupID,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to get member position: %w", err)
	}

	offset := int(next.Int64)
	for _, m := range members {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO group_members (group_id, member_id, display_name, user_id, phone, position)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			groupID, m.ID, m.DisplayName, nullString(m.UserID), nullString(m.Phone), offset,
		)
		if err != nil {
			return fmt.Errorf("failed to add group member: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			offset++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetGroupArchived flips the archived flag of a group. Transactions and
// settlements are left untouched.
func (s *SQLiteStore) SetGroupArchived(ctx context.Context, groupID string, archived bool, at int64) error {
	query := "UPDATE groups SET archived = ?, archived_at = ? WHERE id = ?"
	args := []any{archived, at, groupID}
	if !archived {
		query = "UPDATE groups SET archived = ? WHERE id = ?"
		args = []any{archived, groupID}
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return errs.NotFound("group", groupID)
	}
	return nil
}
