package middleware

import (
	"testing"
	"time"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/models"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"missing", "", "", auth.ErrMissingToken},
		{"wrong scheme", "Basic abc", "", auth.ErrInvalidToken},
		{"no token", "Bearer ", "", auth.ErrInvalidToken},
		{"no separator", "Bearerabc", "", auth.ErrInvalidToken},
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bearerToken(tt.header)
			if err != tt.wantErr {
				t.Fatalf("bearerToken(%q) error = %v, want %v", tt.header, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("bearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestWithUser(t *testing.T) {
	m := auth.NewJWTManager("test-secret-key-that-is-long-enough", time.Hour)
	token, err := m.Generate(&models.User{ID: "u1", Email: "u1@example.com"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	ctx := WithUser(t.Context(), claims.UserID, claims.Email)
	if GetUserID(ctx) != "u1" || GetEmail(ctx) != "u1@example.com" {
		t.Errorf("context identity = %q/%q", GetUserID(ctx), GetEmail(ctx))
	}
	if GetUserID(t.Context()) != "" {
		t.Error("empty context should carry no user")
	}
}
