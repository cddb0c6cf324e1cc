package events

import (
	"context"
	"strings"
	"testing"
)

func TestEventJSON(t *testing.T) {
	e := New(SettlementSettled, "bob")
	e.SettlementID = "s1"
	e.TransactionID = "t1"
	e.Participants = []string{"alice", "bob"}

	body, err := e.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	if !strings.Contains(string(body), `"type":"settlement.settled"`) {
		t.Errorf("body = %s, want type field", body)
	}
	if strings.Contains(string(body), "group_id") {
		t.Errorf("body = %s, empty group_id should be omitted", body)
	}

	got, err := FromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if got.ID == "" || got.ID != e.ID {
		t.Errorf("ID = %q, want %q", got.ID, e.ID)
	}
	if got.Type != SettlementSettled || got.SettlementID != "s1" || len(got.Participants) != 2 {
		t.Errorf("decoded = %+v", got)
	}
	if !got.Timestamp.Equal(e.Timestamp) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, e.Timestamp)
	}
}

func TestFromJSON_Invalid(t *testing.T) {
	if _, err := FromJSON([]byte("{")); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(context.Background(), New(TransactionCreated, "alice")); err != nil {
		t.Errorf("Publish = %v, want nil", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close = %v, want nil", err)
	}
}
