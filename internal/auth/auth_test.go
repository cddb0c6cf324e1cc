package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage/memory"
)

const testSecret = "test-secret-key-that-is-long-enough"

func TestJWTManager(t *testing.T) {
	user := &models.User{ID: "user-1", Email: "ana@example.com"}

	t.Run("round trip", func(t *testing.T) {
		m := NewJWTManager(testSecret, time.Hour)
		token, err := m.Generate(user)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		claims, err := m.Validate(token)
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if claims.UserID != "user-1" || claims.Email != "ana@example.com" || claims.Subject != "user-1" {
			t.Errorf("claims = %+v", claims)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		m := NewJWTManager(testSecret, -time.Minute)
		token, err := m.Generate(user)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, _ := NewJWTManager(testSecret, time.Hour).Generate(user)
		other := NewJWTManager(strings.Repeat("x", 40), time.Hour)
		if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expires with the clock", func(t *testing.T) {
		m := NewJWTManager(testSecret, time.Hour)
		start := time.Now()
		m.now = func() time.Time { return start }
		token, err := m.Generate(user)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		m.now = func() time.Time { return start.Add(59 * time.Minute) }
		if _, err := m.Validate(token); err != nil {
			t.Errorf("token rejected before expiry: %v", err)
		}
		m.now = func() time.Time { return start.Add(61 * time.Minute) }
		if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("unique token IDs", func(t *testing.T) {
		m := NewJWTManager(testSecret, time.Hour)
		a, _ := m.Generate(user)
		b, _ := m.Generate(user)
		ca, err := m.Validate(a)
		if err != nil {
			t.Fatal(err)
		}
		cb, err := m.Validate(b)
		if err != nil {
			t.Fatal(err)
		}
		if ca.ID == "" || ca.ID == cb.ID {
			t.Errorf("token IDs = %q, %q, want distinct", ca.ID, cb.ID)
		}
	})

	t.Run("no user", func(t *testing.T) {
		m := NewJWTManager(testSecret, time.Hour)
		if _, err := m.Generate(&models.User{}); err == nil {
			t.Error("expected error for a user without ID")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		m := NewJWTManager(testSecret, time.Hour)
		if _, err := m.Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate error = %v, want ErrInvalidToken", err)
		}
	})
}

func TestPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	a := NewPasswordAuthenticator(memory.New()).WithCost(bcrypt.MinCost)

	user, err := a.Register(ctx, " Ana@Example.com ", "Ana", "correct-horse")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "ana@example.com" {
		t.Errorf("Email = %q, want normalized", user.Email)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid login", "ana@example.com", "correct-horse", nil},
		{"email case ignored", "ANA@example.com", "correct-horse", nil},
		{"wrong password", "ana@example.com", "wrong-horse", ErrInvalidCredentials},
		{"unknown email", "bob@example.com", "correct-horse", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Authenticate(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authenticate error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got.ID != user.ID {
				t.Errorf("Authenticate user = %s, want %s", got.ID, user.ID)
			}
		})
	}

	if _, err := a.Register(ctx, "ana@example.com", "Ana 2", "another-pass"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate Register error = %v, want ErrEmailExists", err)
	}
	if _, err := a.Register(ctx, "new@example.com", "New", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password error = %v, want ErrWeakPassword", err)
	}
}
