package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// TransactionService implements the Connect TransactionService.
type TransactionService struct {
	store    storage.Store
	ledger   *ledger.Ledger
	balances *ledger.BalanceService
}

// NewTransactionService creates a TransactionService. Reads go to store;
// every write goes through l.
func NewTransactionService(store storage.Store, l *ledger.Ledger, balances *ledger.BalanceService) *TransactionService {
	return &TransactionService{store: store, ledger: l, balances: balances}
}

// callerID returns the authenticated user set by the auth interceptor.
func callerID(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// memberGroup loads a group the caller belongs to.
func memberGroup(ctx context.Context, store storage.Store, groupID, userID string) (*models.Group, error) {
	if groupID == "" {
		return nil, toConnectError(errs.Validationf("group_id", "is required"))
	}
	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if !group.HasMember(userID) {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotMember)
	}
	return group, nil
}

// PreviewSplit runs the calculator without recording anything.
func (s *TransactionService) PreviewSplit(ctx context.Context, req *connect.Request[PreviewSplitRequest]) (*connect.Response[PreviewSplitResponse], error) {
	slog.Debug("PreviewSplit request received",
		"amount", req.Msg.Amount,
		"participants", req.Msg.Participants,
	)

	amount, err := parseAmount("amount", req.Msg.Amount)
	if err != nil {
		return nil, toConnectError(err)
	}
	strategy, err := strategyFromMessage(req.Msg.Strategy)
	if err != nil {
		return nil, toConnectError(err)
	}
	if strategy == nil {
		strategy = models.EvenSplit{}
	}

	alloc, err := calculator.Calculate(amount, req.Msg.Participants, strategy)
	if err != nil {
		slog.Warn("PreviewSplit failed", "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&PreviewSplitResponse{
		Shares: toSharesMessage(alloc),
		Total:  money(alloc.Total()),
	}), nil
}

// CreateTransaction records a personal, contact or split transaction
// together with its settlements.
func (s *TransactionService) CreateTransaction(ctx context.Context, req *connect.Request[CreateTransactionRequest]) (*connect.Response[CreateTransactionResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	slog.Info("CreateTransaction request received",
		"user_id", userID,
		"kind", msg.Kind,
		"group_id", msg.GroupID,
		"participants_count", len(msg.Participants),
	)

	amount, err := parseAmount("amount", msg.Amount)
	if err != nil {
		return nil, toConnectError(err)
	}
	strategy, err := strategyFromMessage(msg.Strategy)
	if err != nil {
		return nil, toConnectError(err)
	}
	if err := s.authorizeCreate(ctx, userID, msg); err != nil {
		return nil, err
	}

	sub, err := s.ledger.Submit(ctx, userID, ledger.NewTransaction{
		ID:           msg.ID,
		Kind:         models.TransactionKind(msg.Kind),
		Direction:    models.Direction(msg.Direction),
		GroupID:      msg.GroupID,
		Title:        msg.Title,
		Category:     msg.Category,
		Amount:       amount,
		PayerID:      msg.PayerID,
		Participants: msg.Participants,
		Strategy:     strategy,
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	txn := sub.Transaction
	slog.Info("Transaction created",
		"transaction_id", txn.ID,
		"settlements_count", len(txn.Settlements),
	)
	return connect.NewResponse(&CreateTransactionResponse{
		Transaction: toTransactionMessage(txn, userID),
	}), nil
}

// authorizeCreate checks that the caller may record the transaction. Field
// validation is left to the ledger.
func (s *TransactionService) authorizeCreate(ctx context.Context, userID string, msg *CreateTransactionRequest) error {
	payer := msg.PayerID
	if payer == "" {
		payer = userID
	}
	switch models.TransactionKind(msg.Kind) {
	case models.KindSplit:
		if msg.GroupID == "" {
			return nil
		}
		_, err := memberGroup(ctx, s.store, msg.GroupID, userID)
		return err
	case models.KindPersonal:
		if payer != userID {
			return permissionDenied("personal transactions can only be recorded for yourself")
		}
	case models.KindContact:
		if payer != userID && !contains(msg.Participants, userID) {
			return permissionDenied("caller must take part in a contact transaction")
		}
	}
	return nil
}

// GetTransaction returns a transaction with its settlements.
func (s *TransactionService) GetTransaction(ctx context.Context, req *connect.Request[GetTransactionRequest]) (*connect.Response[GetTransactionResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	txnID := req.Msg.TransactionID
	slog.Info("GetTransaction request received", "transaction_id", txnID, "user_id", userID)

	txn, err := s.visibleTransaction(ctx, txnID, userID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&GetTransactionResponse{
		Transaction: toTransactionMessage(txn, userID),
	}), nil
}

// visibleTransaction loads a transaction the caller takes part in, or one
// from a group the caller belongs to.
func (s *TransactionService) visibleTransaction(ctx context.Context, txnID, userID string) (*models.Transaction, error) {
	if txnID == "" {
		return nil, toConnectError(errs.Validationf("transaction_id", "is required"))
	}
	txn, err := s.store.GetTransaction(ctx, txnID)
	if err != nil {
		slog.Warn("Transaction lookup failed", "transaction_id", txnID, "error", err)
		return nil, toConnectError(err)
	}
	if txn.Involves(userID) {
		return txn, nil
	}
	if txn.GroupID != "" {
		if _, err := memberGroup(ctx, s.store, txn.GroupID, userID); err == nil {
			return txn, nil
		}
	}
	return nil, permissionDenied("caller cannot see transaction %s", txnID)
}

// ListTransactions returns a group's transactions, newest first.
func (s *TransactionService) ListTransactions(ctx context.Context, req *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	groupID := req.Msg.GroupID
	slog.Info("ListTransactions request received", "group_id", groupID, "user_id", userID)

	if _, err := memberGroup(ctx, s.store, groupID, userID); err != nil {
		return nil, err
	}
	txns, err := s.store.ListTransactionsByGroup(ctx, groupID)
	if err != nil {
		slog.Error("ListTransactions failed", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*Transaction, len(txns))
	for i, txn := range txns {
		out[i] = toTransactionMessage(txn, userID)
	}
	slog.Info("ListTransactions successful", "group_id", groupID, "count", len(out))
	return connect.NewResponse(&ListTransactionsResponse{Transactions: out}), nil
}

// DeleteTransaction removes a transaction the caller created or paid.
func (s *TransactionService) DeleteTransaction(ctx context.Context, req *connect.Request[DeleteTransactionRequest]) (*connect.Response[DeleteTransactionResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	txnID := req.Msg.TransactionID
	slog.Info("DeleteTransaction request received", "transaction_id", txnID, "user_id", userID)

	txn, err := s.visibleTransaction(ctx, txnID, userID)
	if err != nil {
		return nil, err
	}
	if txn.CreatedBy != userID && txn.PayerID != userID {
		return nil, permissionDenied("only the creator or payer can delete transaction %s", txnID)
	}
	if err := s.ledger.DeleteTransaction(ctx, userID, txnID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteTransactionResponse{}), nil
}

// RecordRepayment marks a settlement as repaid. Either side of the
// settlement may record it.
func (s *TransactionService) RecordRepayment(ctx context.Context, req *connect.Request[RecordRepaymentRequest]) (*connect.Response[RecordRepaymentResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	settlementID := req.Msg.SettlementID
	slog.Info("RecordRepayment request received", "settlement_id", settlementID, "user_id", userID)

	if settlementID == "" {
		return nil, toConnectError(errs.Validationf("settlement_id", "is required"))
	}
	settlement, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if settlement.DirectionFor(userID) == models.DirectionNone {
		return nil, permissionDenied("caller is not a party to settlement %s", settlementID)
	}

	settled, err := s.ledger.RecordRepayment(ctx, settlementID, userID, req.Msg.PersonalTransactionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&RecordRepaymentResponse{
		Settlement: toSettlementMessage(settled, userID),
	}), nil
}

// GetTotalBalances returns the caller's position across every group. Groups
// that fail to load are reported in FailedGroups instead of failing the call.
func (s *TransactionService) GetTotalBalances(ctx context.Context, req *connect.Request[GetTotalBalancesRequest]) (*connect.Response[GetTotalBalancesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetTotalBalances request received", "user_id", userID)

	total, err := s.balances.GetTotalBalances(ctx, userID)
	var partial *errs.PartialFailure
	if err != nil && !errors.As(err, &partial) {
		slog.Error("GetTotalBalances failed", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}

	groups := make([]*GroupBalance, len(total.Groups))
	for i, b := range total.Groups {
		groups[i] = toGroupBalanceMessage(b)
	}
	resp := &GetTotalBalancesResponse{
		Groups:    groups,
		YouOwe:    money(total.YouOwe),
		YoureOwed: money(total.YoureOwed),
	}
	if len(total.Failed) > 0 {
		resp.FailedGroups = toFailedGroups(total.Failed)
	}

	slog.Info("GetTotalBalances successful",
		"user_id", userID,
		"groups_count", len(groups),
		"failed_count", len(resp.FailedGroups),
	)
	return connect.NewResponse(resp), nil
}

// CountNewActivity counts the caller's pending settlements recorded by
// others since the given Unix time.
func (s *TransactionService) CountNewActivity(ctx context.Context, req *connect.Request[CountNewActivityRequest]) (*connect.Response[CountNewActivityResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	activity, err := s.balances.CountNewActivity(ctx, userID, req.Msg.Since)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CountNewActivityResponse{
		Incoming: activity.Incoming,
		Outgoing: activity.Outgoing,
		Total:    activity.Total(),
	}), nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
