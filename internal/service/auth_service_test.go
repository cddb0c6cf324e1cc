package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
)

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	reg, err := env.auth.Register(ctx, connect.NewRequest(&RegisterRequest{
		Email:       "Alice@Example.com",
		DisplayName: "Alice",
		Password:    "correct-horse",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if reg.Msg.Token == "" {
		t.Error("expected a token")
	}
	if reg.Msg.User.Email != "alice@example.com" {
		t.Errorf("Email = %q, want normalized", reg.Msg.User.Email)
	}

	claims, err := env.jwt.Validate(reg.Msg.Token)
	if err != nil {
		t.Fatalf("token does not validate: %v", err)
	}
	if claims.UserID != reg.Msg.User.ID {
		t.Errorf("token subject = %q, want %q", claims.UserID, reg.Msg.User.ID)
	}

	login, err := env.auth.Login(ctx, connect.NewRequest(&LoginRequest{
		Email:    "alice@example.com",
		Password: "correct-horse",
	}))
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if login.Msg.User.ID != reg.Msg.User.ID {
		t.Errorf("login user = %q, want %q", login.Msg.User.ID, reg.Msg.User.ID)
	}

	tests := []struct {
		name string
		call func() error
		want connect.Code
	}{
		{"duplicate email", func() error {
			_, err := env.auth.Register(ctx, connect.NewRequest(&RegisterRequest{
				Email: "alice@example.com", DisplayName: "Other", Password: "password123",
			}))
			return err
		}, connect.CodeAlreadyExists},
		{"weak password", func() error {
			_, err := env.auth.Register(ctx, connect.NewRequest(&RegisterRequest{
				Email: "bob@example.com", DisplayName: "Bob", Password: "short",
			}))
			return err
		}, connect.CodeInvalidArgument},
		{"missing display name", func() error {
			_, err := env.auth.Register(ctx, connect.NewRequest(&RegisterRequest{
				Email: "bob@example.com", Password: "password123",
			}))
			return err
		}, connect.CodeInvalidArgument},
		{"wrong password", func() error {
			_, err := env.auth.Login(ctx, connect.NewRequest(&LoginRequest{
				Email: "alice@example.com", Password: "wrong-password",
			}))
			return err
		}, connect.CodeUnauthenticated},
		{"unknown email", func() error {
			_, err := env.auth.Login(ctx, connect.NewRequest(&LoginRequest{
				Email: "nobody@example.com", Password: "password123",
			}))
			return err
		}, connect.CodeUnauthenticated},
		{"empty login", func() error {
			_, err := env.auth.Login(ctx, connect.NewRequest(&LoginRequest{}))
			return err
		}, connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCode(t, tt.call(), tt.want)
		})
	}
}

func TestGetCurrentUser(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	reg, err := env.auth.Register(ctx, connect.NewRequest(&RegisterRequest{
		Email: "bob@example.com", DisplayName: "Bob", Password: "password123",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	req := connect.NewRequest(&GetCurrentUserRequest{})
	req.Header().Set("Authorization", "Bearer "+reg.Msg.Token)
	resp, err := env.auth.GetCurrentUser(ctx, req)
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if resp.Msg.User.DisplayName != "Bob" || resp.Msg.User.ID != reg.Msg.User.ID {
		t.Errorf("user = %+v", resp.Msg.User)
	}

	_, err = env.auth.GetCurrentUser(ctx, connect.NewRequest(&GetCurrentUserRequest{}))
	assertCode(t, err, connect.CodeUnauthenticated)

	bad := connect.NewRequest(&GetCurrentUserRequest{})
	bad.Header().Set("Authorization", "Bearer not-a-token")
	_, err = env.auth.GetCurrentUser(ctx, bad)
	assertCode(t, err, connect.CodeUnauthenticated)
}
