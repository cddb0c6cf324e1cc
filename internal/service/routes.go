package service

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Fully-qualified service names.
const (
	TransactionServiceName = "splitledger.v1.TransactionService"
	GroupServiceName       = "splitledger.v1.GroupService"
	AuthServiceName        = "splitledger.v1.AuthService"
)

// Procedure paths, as they appear in the URL and in
// connect.Spec.Procedure.
const (
	TransactionServicePreviewSplitProcedure      = "/" + TransactionServiceName + "/PreviewSplit"
	TransactionServiceCreateTransactionProcedure = "/" + TransactionServiceName + "/CreateTransaction"
	TransactionServiceGetTransactionProcedure    = "/" + TransactionServiceName + "/GetTransaction"
	TransactionServiceListTransactionsProcedure  = "/" + TransactionServiceName + "/ListTransactions"
	TransactionServiceDeleteTransactionProcedure = "/" + TransactionServiceName + "/DeleteTransaction"
	TransactionServiceRecordRepaymentProcedure   = "/" + TransactionServiceName + "/RecordRepayment"
	TransactionServiceGetTotalBalancesProcedure  = "/" + TransactionServiceName + "/GetTotalBalances"
	TransactionServiceCountNewActivityProcedure  = "/" + TransactionServiceName + "/CountNewActivity"

	GroupServiceCreateGroupProcedure      = "/" + GroupServiceName + "/CreateGroup"
	GroupServiceGetGroupProcedure         = "/" + GroupServiceName + "/GetGroup"
	GroupServiceListGroupsProcedure       = "/" + GroupServiceName + "/ListGroups"
	GroupServiceAddMembersProcedure       = "/" + GroupServiceName + "/AddMembers"
	GroupServiceArchiveGroupProcedure     = "/" + GroupServiceName + "/ArchiveGroup"
	GroupServiceRestoreGroupProcedure     = "/" + GroupServiceName + "/RestoreGroup"
	GroupServiceGetGroupBalancesProcedure = "/" + GroupServiceName + "/GetGroupBalances"

	AuthServiceRegisterProcedure       = "/" + AuthServiceName + "/Register"
	AuthServiceLoginProcedure          = "/" + AuthServiceName + "/Login"
	AuthServiceGetCurrentUserProcedure = "/" + AuthServiceName + "/GetCurrentUser"
)

// unary registers one procedure on mux with the JSON codec.
func unary[Req, Res any](mux *http.ServeMux, procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error), opts []connect.HandlerOption) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

// NewTransactionServiceHandler builds an HTTP handler for svc. It returns
// the path to mount the handler on.
func NewTransactionServiceHandler(svc *TransactionService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	unary(mux, TransactionServicePreviewSplitProcedure, svc.PreviewSplit, opts)
	unary(mux, TransactionServiceCreateTransactionProcedure, svc.CreateTransaction, opts)
	unary(mux, TransactionServiceGetTransactionProcedure, svc.GetTransaction, opts)
	unary(mux, TransactionServiceListTransactionsProcedure, svc.ListTransactions, opts)
	unary(mux, TransactionServiceDeleteTransactionProcedure, svc.DeleteTransaction, opts)
	unary(mux, TransactionServiceRecordRepaymentProcedure, svc.RecordRepayment, opts)
	unary(mux, TransactionServiceGetTotalBalancesProcedure, svc.GetTotalBalances, opts)
	unary(mux, TransactionServiceCountNewActivityProcedure, svc.CountNewActivity, opts)
	return "/" + TransactionServiceName + "/", mux
}

// NewGroupServiceHandler builds an HTTP handler for svc.
func NewGroupServiceHandler(svc *GroupService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	unary(mux, GroupServiceCreateGroupProcedure, svc.CreateGroup, opts)
	unary(mux, GroupServiceGetGroupProcedure, svc.GetGroup, opts)
	unary(mux, GroupServiceListGroupsProcedure, svc.ListGroups, opts)
	unary(mux, GroupServiceAddMembersProcedure, svc.AddMembers, opts)
	unary(mux, GroupServiceArchiveGroupProcedure, svc.ArchiveGroup, opts)
	unary(mux, GroupServiceRestoreGroupProcedure, svc.RestoreGroup, opts)
	unary(mux, GroupServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts)
	return "/" + GroupServiceName + "/", mux
}

// NewAuthServiceHandler builds an HTTP handler for svc.
func NewAuthServiceHandler(svc *AuthService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	unary(mux, AuthServiceRegisterProcedure, svc.Register, opts)
	unary(mux, AuthServiceLoginProcedure, svc.Login, opts)
	unary(mux, AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts)
	return "/" + AuthServiceName + "/", mux
}

func newClient[Req, Res any](httpClient connect.HTTPClient, baseURL, procedure string, opts []connect.ClientOption) *connect.Client[Req, Res] {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return connect.NewClient[Req, Res](httpClient, strings.TrimRight(baseURL, "/")+procedure, opts...)
}

// TransactionServiceClient calls a remote TransactionService.
type TransactionServiceClient struct {
	previewSplit      *connect.Client[PreviewSplitRequest, PreviewSplitResponse]
	createTransaction *connect.Client[CreateTransactionRequest, CreateTransactionResponse]
	getTransaction    *connect.Client[GetTransactionRequest, GetTransactionResponse]
	listTransactions  *connect.Client[ListTransactionsRequest, ListTransactionsResponse]
	deleteTransaction *connect.Client[DeleteTransactionRequest, DeleteTransactionResponse]
	recordRepayment   *connect.Client[RecordRepaymentRequest, RecordRepaymentResponse]
	getTotalBalances  *connect.Client[GetTotalBalancesRequest, GetTotalBalancesResponse]
	countNewActivity  *connect.Client[CountNewActivityRequest, CountNewActivityResponse]
}

// NewTransactionServiceClient creates a client for the service at baseURL,
// e.g. http://localhost:8080.
func NewTransactionServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *TransactionServiceClient {
	return &TransactionServiceClient{
		previewSplit:      newClient[PreviewSplitRequest, PreviewSplitResponse](httpClient, baseURL, TransactionServicePreviewSplitProcedure, opts),
		createTransaction: newClient[CreateTransactionRequest, CreateTransactionResponse](httpClient, baseURL, TransactionServiceCreateTransactionProcedure, opts),
		getTransaction:    newClient[GetTransactionRequest, GetTransactionResponse](httpClient, baseURL, TransactionServiceGetTransactionProcedure, opts),
		listTransactions:  newClient[ListTransactionsRequest, ListTransactionsResponse](httpClient, baseURL, TransactionServiceListTransactionsProcedure, opts),
		deleteTransaction: newClient[DeleteTransactionRequest, DeleteTransactionResponse](httpClient, baseURL, TransactionServiceDeleteTransactionProcedure, opts),
		recordRepayment:   newClient[RecordRepaymentRequest, RecordRepaymentResponse](httpClient, baseURL, TransactionServiceRecordRepaymentProcedure, opts),
		getTotalBalances:  newClient[GetTotalBalancesRequest, GetTotalBalancesResponse](httpClient, baseURL, TransactionServiceGetTotalBalancesProcedure, opts),
		countNewActivity:  newClient[CountNewActivityRequest, CountNewActivityResponse](httpClient, baseURL, TransactionServiceCountNewActivityProcedure, opts),
	}
}

func (c *TransactionServiceClient) PreviewSplit(ctx context.Context, req *connect.Request[PreviewSplitRequest]) (*connect.Response[PreviewSplitResponse], error) {
	return c.previewSplit.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) CreateTransaction(ctx context.Context, req *connect.Request[CreateTransactionRequest]) (*connect.Response[CreateTransactionResponse], error) {
	return c.createTransaction.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) GetTransaction(ctx context.Context, req *connect.Request[GetTransactionRequest]) (*connect.Response[GetTransactionResponse], error) {
	return c.getTransaction.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) ListTransactions(ctx context.Context, req *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error) {
	return c.listTransactions.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) DeleteTransaction(ctx context.Context, req *connect.Request[DeleteTransactionRequest]) (*connect.Response[DeleteTransactionResponse], error) {
	return c.deleteTransaction.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) RecordRepayment(ctx context.Context, req *connect.Request[RecordRepaymentRequest]) (*connect.Response[RecordRepaymentResponse], error) {
	return c.recordRepayment.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) GetTotalBalances(ctx context.Context, req *connect.Request[GetTotalBalancesRequest]) (*connect.Response[GetTotalBalancesResponse], error) {
	return c.getTotalBalances.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) CountNewActivity(ctx context.Context, req *connect.Request[CountNewActivityRequest]) (*connect.Response[CountNewActivityResponse], error) {
	return c.countNewActivity.CallUnary(ctx, req)
}

// GroupServiceClient calls a remote GroupService.
type GroupServiceClient struct {
	createGroup      *connect.Client[CreateGroupRequest, CreateGroupResponse]
	getGroup         *connect.Client[GetGroupRequest, GetGroupResponse]
	listGroups       *connect.Client[ListGroupsRequest, ListGroupsResponse]
	addMembers       *connect.Client[AddMembersRequest, AddMembersResponse]
	archiveGroup     *connect.Client[ArchiveGroupRequest, ArchiveGroupResponse]
	restoreGroup     *connect.Client[RestoreGroupRequest, RestoreGroupResponse]
	getGroupBalances *connect.Client[GetGroupBalancesRequest, GetGroupBalancesResponse]
}

// NewGroupServiceClient creates a client for the service at baseURL.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupServiceClient {
	return &GroupServiceClient{
		createGroup:      newClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL, GroupServiceCreateGroupProcedure, opts),
		getGroup:         newClient[GetGroupRequest, GetGroupResponse](httpClient, baseURL, GroupServiceGetGroupProcedure, opts),
		listGroups:       newClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL, GroupServiceListGroupsProcedure, opts),
		addMembers:       newClient[AddMembersRequest, AddMembersResponse](httpClient, baseURL, GroupServiceAddMembersProcedure, opts),
		archiveGroup:     newClient[ArchiveGroupRequest, ArchiveGroupResponse](httpClient, baseURL, GroupServiceArchiveGroupProcedure, opts),
		restoreGroup:     newClient[RestoreGroupRequest, RestoreGroupResponse](httpClient, baseURL, GroupServiceRestoreGroupProcedure, opts),
		getGroupBalances: newClient[GetGroupBalancesRequest, GetGroupBalancesResponse](httpClient, baseURL, GroupServiceGetGroupBalancesProcedure, opts),
	}
}

func (c *GroupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *GroupServiceClient) AddMembers(ctx context.Context, req *connect.Request[AddMembersRequest]) (*connect.Response[AddMembersResponse], error) {
	return c.addMembers.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ArchiveGroup(ctx context.Context, req *connect.Request[ArchiveGroupRequest]) (*connect.Response[ArchiveGroupResponse], error) {
	return c.archiveGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) RestoreGroup(ctx context.Context, req *connect.Request[RestoreGroupRequest]) (*connect.Response[RestoreGroupResponse], error) {
	return c.restoreGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

// AuthServiceClient calls a remote AuthService.
type AuthServiceClient struct {
	register       *connect.Client[RegisterRequest, RegisterResponse]
	login          *connect.Client[LoginRequest, LoginResponse]
	getCurrentUser *connect.Client[GetCurrentUserRequest, GetCurrentUserResponse]
}

// NewAuthServiceClient creates a client for the service at baseURL.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	return &AuthServiceClient{
		register:       newClient[RegisterRequest, RegisterResponse](httpClient, baseURL, AuthServiceRegisterProcedure, opts),
		login:          newClient[LoginRequest, LoginResponse](httpClient, baseURL, AuthServiceLoginProcedure, opts),
		getCurrentUser: newClient[GetCurrentUserRequest, GetCurrentUserResponse](httpClient, baseURL, AuthServiceGetCurrentUserProcedure, opts),
	}
}

func (c *AuthServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *AuthServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}
