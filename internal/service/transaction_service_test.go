package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
)

func TestPreviewSplit(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name     string
		req      *PreviewSplitRequest
		want     []string
		wantCode connect.Code
	}{
		{
			name: "even with remainder",
			req:  &PreviewSplitRequest{Amount: "100", Participants: []string{"alice", "bob", "carol"}},
			want: []string{"33.34", "33.33", "33.33"},
		},
		{
			name: "shares",
			req: &PreviewSplitRequest{
				Amount:       "90",
				Participants: []string{"alice", "bob"},
				Strategy:     &Strategy{Kind: "share", Shares: map[string]int64{"alice": 1, "bob": 2}},
			},
			want: []string{"30.00", "60.00"},
		},
		{
			name: "custom",
			req: &PreviewSplitRequest{
				Amount:       "50",
				Participants: []string{"alice", "bob"},
				Strategy:     &Strategy{Kind: "custom", Amounts: map[string]string{"alice": "20", "bob": "30"}},
			},
			want: []string{"20.00", "30.00"},
		},
		{
			name: "custom does not sum",
			req: &PreviewSplitRequest{
				Amount:       "40",
				Participants: []string{"alice", "bob"},
				Strategy:     &Strategy{Kind: "custom", Amounts: map[string]string{"alice": "10", "bob": "20"}},
			},
			wantCode: connect.CodeInvalidArgument,
		},
		{
			name:     "bad amount",
			req:      &PreviewSplitRequest{Amount: "ten", Participants: []string{"alice"}},
			wantCode: connect.CodeInvalidArgument,
		},
		{
			name: "unknown strategy",
			req: &PreviewSplitRequest{
				Amount:       "10",
				Participants: []string{"alice"},
				Strategy:     &Strategy{Kind: "weighted"},
			},
			wantCode: connect.CodeInvalidArgument,
		},
		{
			name:     "no participants",
			req:      &PreviewSplitRequest{Amount: "10"},
			wantCode: connect.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.txns.PreviewSplit(context.Background(), as("alice", tt.req))
			if tt.wantCode != 0 {
				assertCode(t, err, tt.wantCode)
				return
			}
			if err != nil {
				t.Fatalf("PreviewSplit failed: %v", err)
			}
			if len(resp.Msg.Shares) != len(tt.want) {
				t.Fatalf("got %d shares, want %d", len(resp.Msg.Shares), len(tt.want))
			}
			for i, want := range tt.want {
				if got := resp.Msg.Shares[i].Amount; got != want {
					t.Errorf("share %d = %s, want %s", i, got, want)
				}
			}
			if resp.Msg.Total != tt.req.Amount+".00" {
				t.Errorf("Total = %s, want %s.00", resp.Msg.Total, tt.req.Amount)
			}
		})
	}
}

func TestCreateTransaction_SplitAndGet(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	group := createGroup(t, env, "Trip", "bob", "carol")

	created, err := env.txns.CreateTransaction(ctx, as("alice", &CreateTransactionRequest{
		Kind:    "split",
		GroupID: group.ID,
		Amount:  "90",
	}))
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	txn := created.Msg.Transaction
	if txn.ID == "" {
		t.Error("expected generated transaction ID")
	}
	if txn.Title != "Split with Bob, Carol" {
		t.Errorf("Title = %q, want %q", txn.Title, "Split with Bob, Carol")
	}
	if txn.PayerID != "alice" || txn.PayerShare != "30.00" || txn.Category != "general" {
		t.Errorf("payer/share/category = %s/%s/%s", txn.PayerID, txn.PayerShare, txn.Category)
	}
	if txn.Strategy == nil || txn.Strategy.Kind != "even" {
		t.Errorf("Strategy = %+v, want even", txn.Strategy)
	}
	if len(txn.Settlements) != 2 {
		t.Fatalf("got %d settlements, want 2", len(txn.Settlements))
	}
	for i, debtor := range []string{"bob", "carol"} {
		s := txn.Settlements[i]
		if s.DebtorID != debtor || s.CreditorID != "alice" || s.Amount != "30.00" || s.Status != "pending" {
			t.Errorf("settlement %d = %+v", i, s)
		}
		if s.Direction != "owed_to_user" {
			t.Errorf("settlement %d direction for alice = %s", i, s.Direction)
		}
	}

	fetched, err := env.txns.GetTransaction(ctx, as("bob", &GetTransactionRequest{TransactionID: txn.ID}))
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if got := fetched.Msg.Transaction.Settlements[0].Direction; got != "owed_by_user" {
		t.Errorf("bob's direction = %s, want owed_by_user", got)
	}

	_, err = env.txns.GetTransaction(ctx, as("dave", &GetTransactionRequest{TransactionID: txn.ID}))
	assertCode(t, err, connect.CodePermissionDenied)

	_, err = env.txns.GetTransaction(ctx, as("alice", &GetTransactionRequest{TransactionID: "missing"}))
	assertCode(t, err, connect.CodeNotFound)
}

func TestCreateTransaction_Errors(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	group := createGroup(t, env, "Flat", "bob")

	if _, err := env.txns.CreateTransaction(ctx, as("alice", &CreateTransactionRequest{
		ID: "txn-1", Kind: "split", GroupID: group.ID, Amount: "10",
	})); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	tests := []struct {
		name string
		user string
		req  *CreateTransactionRequest
		want connect.Code
	}{
		{"duplicate id", "alice", &CreateTransactionRequest{ID: "txn-1", Kind: "split", GroupID: group.ID, Amount: "10"}, connect.CodeAlreadyExists},
		{"not a member", "dave", &CreateTransactionRequest{Kind: "split", GroupID: group.ID, Amount: "10"}, connect.CodePermissionDenied},
		{"missing group", "alice", &CreateTransactionRequest{Kind: "split", GroupID: "nope", Amount: "10"}, connect.CodeNotFound},
		{"split without group", "alice", &CreateTransactionRequest{Kind: "split", Amount: "10"}, connect.CodeInvalidArgument},
		{"zero amount", "alice", &CreateTransactionRequest{Kind: "split", GroupID: group.ID, Amount: "0"}, connect.CodeInvalidArgument},
		{"unknown kind", "alice", &CreateTransactionRequest{Kind: "gift", Amount: "10"}, connect.CodeInvalidArgument},
		{"personal for someone else", "alice", &CreateTransactionRequest{Kind: "personal", PayerID: "bob", Amount: "10"}, connect.CodePermissionDenied},
		{"contact between others", "alice", &CreateTransactionRequest{Kind: "contact", PayerID: "bob", Participants: []string{"carol"}, Amount: "10"}, connect.CodePermissionDenied},
		{"outsider participant", "alice", &CreateTransactionRequest{Kind: "split", GroupID: group.ID, Participants: []string{"alice", "eve"}, Amount: "10"}, connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.txns.CreateTransaction(ctx, as(tt.user, tt.req))
			assertCode(t, err, tt.want)
		})
	}
}

func TestCreateTransaction_PersonalAndContact(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	personal, err := env.txns.CreateTransaction(ctx, as("alice", &CreateTransactionRequest{
		Kind: "personal", Title: "Groceries", Amount: "12.50",
	}))
	if err != nil {
		t.Fatalf("personal CreateTransaction failed: %v", err)
	}
	if p := personal.Msg.Transaction; p.PayerShare != "12.50" || len(p.Settlements) != 0 || p.Title != "Groceries" {
		t.Errorf("personal = %+v", p)
	}

	contact, err := env.txns.CreateTransaction(ctx, as("bob", &CreateTransactionRequest{
		Kind: "contact", PayerID: "alice", Participants: []string{"alice", "bob"}, Amount: "20",
	}))
	if err != nil {
		t.Fatalf("contact CreateTransaction failed: %v", err)
	}
	c := contact.Msg.Transaction
	if c.CreatedBy != "bob" || len(c.Settlements) != 1 {
		t.Fatalf("contact = %+v", c)
	}
	if s := c.Settlements[0]; s.DebtorID != "bob" || s.Amount != "10.00" || s.GroupID != "" {
		t.Errorf("contact settlement = %+v", s)
	}
}

func TestRecordRepayment(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	group := createGroup(t, env, "Trip", "bob", "carol")

	created, err := env.txns.CreateTransaction(ctx, as("alice", &CreateTransactionRequest{
		Kind: "split", GroupID: group.ID, Amount: "90",
	}))
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	bobs := created.Msg.Transaction.Settlements[0].ID

	_, err = env.txns.RecordRepayment(ctx, as("carol", &RecordRepaymentRequest{SettlementID: bobs}))
	assertCode(t, err, connect.CodePermissionDenied)

	resp, err := env.txns.RecordRepayment(ctx, as("bob", &RecordRepaymentRequest{SettlementID: bobs}))
	if err != nil {
		t.Fatalf("RecordRepayment failed: %v", err)
	}
	if s := resp.Msg.Settlement; s.Status != "settled" || s.SettledBy != "bob" || s.SettledAt == 0 {
		t.Errorf("settlement = %+v", s)
	}

	_, err = env.txns.RecordRepayment(ctx, as("alice", &RecordRepaymentRequest{SettlementID: bobs}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	_, err = env.txns.RecordRepayment(ctx, as("alice", &RecordRepaymentRequest{SettlementID: "missing"}))
	assertCode(t, err, connect.CodeNotFound)

	_, err = env.txns.RecordRepayment(ctx, as("alice", &RecordRepaymentRequest{}))
	assertCode(t, err, connect.CodeInvalidArgument)

	// A linked personal transaction must exist.
	carols := created.Msg.Transaction.Settlements[1].ID
	_, err = env.txns.RecordRepayment(ctx, as("carol", &RecordRepaymentRequest{
		SettlementID: carols, PersonalTransactionID: "missing",
	}))
	assertCode(t, err, connect.CodeNotFound)
}

func TestListAndDeleteTransactions(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	group := createGroup(t, env, "Flat", "bob")

	first, err := env.txns.CreateTransaction(ctx, as("alice", &CreateTransactionRequest{
		Kind: "split", GroupID: group.ID, Amount: "10", Title: "first",
	}))
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	second, err := env.txns.CreateTransaction(ctx, as("bob", &CreateTransactionRequest{
		Kind: "split", GroupID: group.ID, Amount: "20", Title: "second",
	}))
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	list, err := env.txns.ListTransactions(ctx, as("alice", &ListTransactionsRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(list.Msg.Transactions) != 2 || list.Msg.Transactions[0].Title != "second" {
		t.Errorf("transactions not newest first: %+v", list.Msg.Transactions)
	}

	_, err = env.txns.ListTransactions(ctx, as("dave", &ListTransactionsRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodePermissionDenied)

	// bob neither created nor paid the first transaction.
	_, err = env.txns.DeleteTransaction(ctx, as("bob", &DeleteTransactionRequest{TransactionID: first.Msg.Transaction.ID}))
	assertCode(t, err, connect.CodePermissionDenied)

	// A repaid transaction cannot be deleted.
	repaid := second.Msg.Transaction.Settlements[0].ID
	if _, err := env.txns.RecordRepayment(ctx, as("alice", &RecordRepaymentRequest{SettlementID: repaid})); err != nil {
		t.Fatalf("RecordRepayment failed: %v", err)
	}
	_, err = env.txns.DeleteTransaction(ctx, as("bob", &DeleteTransactionRequest{TransactionID: second.Msg.Transaction.ID}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	if _, err := env.txns.DeleteTransaction(ctx, as("alice", &DeleteTransactionRequest{TransactionID: first.Msg.Transaction.ID})); err != nil {
		t.Fatalf("DeleteTransaction failed: %v", err)
	}
	_, err = env.txns.GetTransaction(ctx, as("alice", &GetTransactionRequest{TransactionID: first.Msg.Transaction.ID}))
	assertCode(t, err, connect.CodeNotFound)
}

func TestGetTotalBalances(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	group := createGroup(t, env, "Flat", "bob")

	// bob owes alice 10 in the group; carol owes alice 8 directly.
	if _, err := env.txns.CreateTransaction(ctx, as("alice", &CreateTransactionRequest{
		Kind: "split", GroupID: group.ID, Amount: "20",
	})); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if _, err := env.txns.CreateTransaction(ctx, as("alice", &CreateTransactionRequest{
		Kind: "contact", Participants: []string{"carol"}, Amount: "8",
	})); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	resp, err := env.txns.GetTotalBalances(ctx, as("alice", &GetTotalBalancesRequest{}))
	if err != nil {
		t.Fatalf("GetTotalBalances failed: %v", err)
	}
	if resp.Msg.YoureOwed != "18.00" || resp.Msg.YouOwe != "0.00" {
		t.Errorf("totals = owe %s / owed %s, want 0.00 / 18.00", resp.Msg.YouOwe, resp.Msg.YoureOwed)
	}
	if len(resp.Msg.Groups) != 2 || resp.Msg.Groups[0].GroupID != group.ID || resp.Msg.Groups[1].GroupID != "direct" {
		t.Errorf("groups = %+v", resp.Msg.Groups)
	}
	if len(resp.Msg.FailedGroups) != 0 {
		t.Errorf("FailedGroups = %+v, want none", resp.Msg.FailedGroups)
	}

	bob, err := env.txns.GetTotalBalances(ctx, as("bob", &GetTotalBalancesRequest{}))
	if err != nil {
		t.Fatalf("GetTotalBalances failed: %v", err)
	}
	if bob.Msg.YouOwe != "10.00" || len(bob.Msg.Groups) != 1 {
		t.Errorf("bob = %+v", bob.Msg)
	}
}

func TestCountNewActivity(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	group := createGroup(t, env, "Flat", "bob")

	if _, err := env.txns.CreateTransaction(ctx, as("bob", &CreateTransactionRequest{
		Kind: "split", GroupID: group.ID, Amount: "20",
	})); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if _, err := env.txns.CreateTransaction(ctx, as("alice", &CreateTransactionRequest{
		Kind: "split", GroupID: group.ID, Amount: "20",
	})); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	resp, err := env.txns.CountNewActivity(ctx, as("alice", &CountNewActivityRequest{Since: 0}))
	if err != nil {
		t.Fatalf("CountNewActivity failed: %v", err)
	}
	// alice's own transaction does not count.
	if resp.Msg.Outgoing != 1 || resp.Msg.Incoming != 0 || resp.Msg.Total != 1 {
		t.Errorf("activity = %+v, want 1 outgoing", resp.Msg)
	}
}
