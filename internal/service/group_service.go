package service

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// GroupService implements the Connect GroupService.
type GroupService struct {
	store    storage.Store
	balances *ledger.BalanceService
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store, balances *ledger.BalanceService) *GroupService {
	return &GroupService{store: store, balances: balances}
}

// CreateGroup creates a new group. The caller is always a member.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
		"user_id", userID,
	)

	members := assignMemberIDs(membersFromMessage(req.Msg.Members))
	group := &models.Group{Name: req.Msg.Name, Members: members}
	if !group.HasMember(userID) {
		self := s.selfMember(ctx, userID)
		group.Members = append([]models.Member{self}, group.Members...)
	}
	if err := group.Validate(); err != nil {
		return nil, toConnectError(errs.Validation(err.Error()))
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Group created", "group_id", group.ID)
	return connect.NewResponse(&CreateGroupResponse{Group: toGroupMessage(group)}), nil
}

// selfMember describes the caller as a group member, using the account's
// display name when the account exists.
func (s *GroupService) selfMember(ctx context.Context, userID string) models.Member {
	self := models.Member{ID: userID, DisplayName: userID, UserID: userID}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil || user == nil {
		slog.Debug("Caller has no stored account", "user_id", userID, "error", err)
		return self
	}
	self.DisplayName = user.DisplayName
	return self
}

// assignMemberIDs gives members without an ID a fresh one. Registered
// members default to their user ID.
func assignMemberIDs(members []models.Member) []models.Member {
	for i := range members {
		if members[i].ID != "" {
			continue
		}
		if members[i].UserID != "" {
			members[i].ID = members[i].UserID
		} else {
			members[i].ID = uuid.New().String()
		}
	}
	return members
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID, userID)
	if err != nil {
		slog.Warn("GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, err
	}

	slog.Info("GetGroup successful", "group_id", group.ID, "name", group.Name)
	return connect.NewResponse(&GetGroupResponse{Group: toGroupMessage(group)}), nil
}

// ListGroups retrieves every group the caller belongs to, archived ones
// included.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ListGroups request received", "user_id", userID)

	groups, err := s.store.ListGroupsForMember(ctx, userID)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*Group, len(groups))
	for i, group := range groups {
		out[i] = toGroupMessage(group)
	}

	slog.Info("ListGroups successful", "count", len(groups))
	return connect.NewResponse(&ListGroupsResponse{Groups: out}), nil
}

// AddMembers appends members to an active group. Members already present
// are left as they are.
func (s *GroupService) AddMembers(ctx context.Context, req *connect.Request[AddMembersRequest]) (*connect.Response[AddMembersResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	groupID := req.Msg.GroupID
	slog.Info("AddMembers request received",
		"group_id", groupID,
		"members_count", len(req.Msg.Members),
	)

	group, err := memberGroup(ctx, s.store, groupID, userID)
	if err != nil {
		return nil, err
	}
	if group.Archived {
		return nil, toConnectError(&errs.InvalidStateError{Entity: "group", ID: groupID, State: "archived"})
	}
	members := assignMemberIDs(membersFromMessage(req.Msg.Members))
	if len(members) == 0 {
		return nil, toConnectError(errs.Validationf("members", "at least one member is required"))
	}

	if err := s.store.AddGroupMembers(ctx, groupID, members); err != nil {
		slog.Error("AddMembers failed", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}

	// Fetch updated group to get member order
	updated, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("Members added", "group_id", groupID, "members_count", len(updated.Members))
	return connect.NewResponse(&AddMembersResponse{Group: toGroupMessage(updated)}), nil
}

// ArchiveGroup hides a group from active use. Its transactions and
// balances stay readable.
func (s *GroupService) ArchiveGroup(ctx context.Context, req *connect.Request[ArchiveGroupRequest]) (*connect.Response[ArchiveGroupResponse], error) {
	group, err := s.setArchived(ctx, req.Msg.GroupID, true)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&ArchiveGroupResponse{Group: toGroupMessage(group)}), nil
}

// RestoreGroup makes an archived group active again.
func (s *GroupService) RestoreGroup(ctx context.Context, req *connect.Request[RestoreGroupRequest]) (*connect.Response[RestoreGroupResponse], error) {
	group, err := s.setArchived(ctx, req.Msg.GroupID, false)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&RestoreGroupResponse{Group: toGroupMessage(group)}), nil
}

func (s *GroupService) setArchived(ctx context.Context, groupID string, archived bool) (*models.Group, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("Group archive state change requested",
		"group_id", groupID,
		"archived", archived,
		"user_id", userID,
	)

	if _, err := memberGroup(ctx, s.store, groupID, userID); err != nil {
		return nil, err
	}
	if err := s.store.SetGroupArchived(ctx, groupID, archived, time.Now().Unix()); err != nil {
		slog.Error("SetGroupArchived failed", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return group, nil
}

// GetGroupBalances nets the caller against every member of the group and
// suggests transfers that would settle the group.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	groupID := req.Msg.GroupID
	slog.Info("GetGroupBalances request received", "group_id", groupID)

	if _, err := memberGroup(ctx, s.store, groupID, userID); err != nil {
		return nil, err
	}
	balance, err := s.balances.GetGroupBalance(ctx, groupID, userID)
	if err != nil {
		slog.Error("GetGroupBalances failed", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("GetGroupBalances successful",
		"group_id", groupID,
		"counterparties_count", len(balance.Counterparties),
		"debts_count", len(balance.Suggested),
	)
	return connect.NewResponse(&GetGroupBalancesResponse{Balance: toGroupBalanceMessage(balance)}), nil
}
