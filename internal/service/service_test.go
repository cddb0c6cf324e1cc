package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

const (
	testUserHeader = "X-Test-User"
	testSecret     = "test-secret-key-that-is-long-enough"
)

// testAuthInterceptor trusts the user named in the X-Test-User header,
// defaulting to alice.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			user := req.Header().Get(testUserHeader)
			if user == "" {
				user = "alice"
			}
			ctx = middleware.WithUser(ctx, user, user+"@example.com")
			return next(ctx, req)
		}
	}
}

type testEnv struct {
	store  *sqlite.SQLiteStore
	txns   *TransactionServiceClient
	groups *GroupServiceClient
	auth   *AuthServiceClient
	jwt    *auth.JWTManager
}

// setupTestServer serves every service over httptest on a temp SQLite
// database.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	l := ledger.New(store)
	balances := ledger.NewBalanceService(store)
	jwtManager := auth.NewJWTManager(testSecret, time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)

	authInterceptor := connect.WithInterceptors(testAuthInterceptor())
	txnPath, txnHandler := NewTransactionServiceHandler(NewTransactionService(store, l, balances), authInterceptor)
	groupPath, groupHandler := NewGroupServiceHandler(NewGroupService(store, balances), authInterceptor)
	authPath, authHandler := NewAuthServiceHandler(
		NewAuthService(authenticator, jwtManager, store, slog.Default()),
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager)),
	)

	mux := http.NewServeMux()
	mux.Handle(txnPath, txnHandler)
	mux.Handle(groupPath, groupHandler)
	mux.Handle(authPath, authHandler)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testEnv{
		store:  store,
		txns:   NewTransactionServiceClient(http.DefaultClient, server.URL),
		groups: NewGroupServiceClient(http.DefaultClient, server.URL),
		auth:   NewAuthServiceClient(http.DefaultClient, server.URL),
		jwt:    jwtManager,
	}
}

// as builds a request made by user.
func as[T any](user string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set(testUserHeader, user)
	return req
}

// createGroup creates a group owned by alice with the given extra members.
func createGroup(t *testing.T, env *testEnv, name string, members ...string) *Group {
	t.Helper()
	msgs := make([]*Member, len(members))
	for i, m := range members {
		msgs[i] = &Member{ID: m, DisplayName: displayName(m)}
	}
	resp, err := env.groups.CreateGroup(context.Background(), as("alice", &CreateGroupRequest{
		Name:    name,
		Members: msgs,
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg.Group
}

func displayName(id string) string {
	return strings.ToUpper(id[:1]) + id[1:]
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Errorf("code = %v, want %v (error: %v)", got, want, err)
	}
}

func TestToConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want connect.Code
	}{
		{"validation", errs.Validationf("amount", "must be positive"), connect.CodeInvalidArgument},
		{"conflict", &errs.ConflictError{Entity: "transaction", ID: "t1"}, connect.CodeAlreadyExists},
		{"invalid state", &errs.InvalidStateError{Entity: "settlement", ID: "s1", State: "settled"}, connect.CodeFailedPrecondition},
		{"not found", errs.NotFound("group", "g1"), connect.CodeNotFound},
		{"wrapped not found", errors.Join(errors.New("load"), errs.NotFound("group", "g1")), connect.CodeNotFound},
		{"deadline", context.DeadlineExceeded, connect.CodeDeadlineExceeded},
		{"connect error kept", connect.NewError(connect.CodePermissionDenied, errNotMember), connect.CodePermissionDenied},
		{"other", errors.New("disk on fire"), connect.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := connect.CodeOf(toConnectError(tt.err)); got != tt.want {
				t.Errorf("code = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCallerRequired(t *testing.T) {
	svc := &TransactionService{}
	_, err := svc.GetTotalBalances(context.Background(), connect.NewRequest(&GetTotalBalancesRequest{}))
	assertCode(t, err, connect.CodeUnauthenticated)
}
