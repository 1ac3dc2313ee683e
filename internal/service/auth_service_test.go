package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/receiptsplit/internal/auth"
	"github.com/mmynk/receiptsplit/internal/middleware"
	"github.com/mmynk/receiptsplit/internal/storage/memory"
	"github.com/mmynk/receiptsplit/pkg/api"
	"github.com/mmynk/receiptsplit/pkg/api/apiconnect"
)

func setupAuthServer(t *testing.T) *apiconnect.AuthServiceClient {
	t.Helper()

	store := memory.New()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	svc := NewAuthService(authenticator, jwtManager, store, nil)

	path, handler := apiconnect.NewAuthServiceHandler(svc,
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager)))
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return apiconnect.NewAuthServiceClient(http.DefaultClient, server.URL)
}

func withToken[T any](msg *T, token string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthService_RegisterLoginAndCurrentUser(t *testing.T) {
	client := setupAuthServer(t)
	ctx := context.Background()

	reg, err := client.Register(ctx, connect.NewRequest(&api.RegisterRequest{
		Email:       "Alice@Example.com",
		DisplayName: "Alice",
		Password:    "password123",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if reg.Msg.Token == "" || reg.Msg.User.ID == "" {
		t.Fatalf("expected token and user, got %+v", reg.Msg)
	}
	if reg.Msg.User.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized", reg.Msg.User.Email)
	}

	login, err := client.Login(ctx, connect.NewRequest(&api.LoginRequest{
		Email:    "alice@example.com",
		Password: "password123",
	}))
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if login.Msg.User.ID != reg.Msg.User.ID {
		t.Errorf("login user = %s, want %s", login.Msg.User.ID, reg.Msg.User.ID)
	}

	me, err := client.GetCurrentUser(ctx, withToken(&api.GetCurrentUserRequest{}, login.Msg.Token))
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if me.Msg.User.DisplayName != "Alice" {
		t.Errorf("display name = %q, want Alice", me.Msg.User.DisplayName)
	}
}

func TestAuthService_Errors(t *testing.T) {
	client := setupAuthServer(t)
	ctx := context.Background()

	if _, err := client.Register(ctx, connect.NewRequest(&api.RegisterRequest{
		Email: "bob@example.com", Password: "password123",
	})); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name string
		call func() error
		code connect.Code
	}{
		{"duplicate email", func() error {
			_, err := client.Register(ctx, connect.NewRequest(&api.RegisterRequest{Email: "BOB@example.com", Password: "password123"}))
			return err
		}, connect.CodeAlreadyExists},
		{"weak password", func() error {
			_, err := client.Register(ctx, connect.NewRequest(&api.RegisterRequest{Email: "carol@example.com", Password: "short"}))
			return err
		}, connect.CodeInvalidArgument},
		{"invalid email", func() error {
			_, err := client.Register(ctx, connect.NewRequest(&api.RegisterRequest{Email: "not-an-email", Password: "password123"}))
			return err
		}, connect.CodeInvalidArgument},
		{"wrong password", func() error {
			_, err := client.Login(ctx, connect.NewRequest(&api.LoginRequest{Email: "bob@example.com", Password: "wrong-password"}))
			return err
		}, connect.CodeUnauthenticated},
		{"unknown user", func() error {
			_, err := client.Login(ctx, connect.NewRequest(&api.LoginRequest{Email: "nobody@example.com", Password: "password123"}))
			return err
		}, connect.CodeUnauthenticated},
		{"missing credentials", func() error {
			_, err := client.Login(ctx, connect.NewRequest(&api.LoginRequest{}))
			return err
		}, connect.CodeInvalidArgument},
		{"anonymous current user", func() error {
			_, err := client.GetCurrentUser(ctx, connect.NewRequest(&api.GetCurrentUserRequest{}))
			return err
		}, connect.CodeUnauthenticated},
		{"garbage token", func() error {
			_, err := client.GetCurrentUser(ctx, withToken(&api.GetCurrentUserRequest{}, "garbage"))
			return err
		}, connect.CodeUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantCode(t, tt.call(), tt.code)
		})
	}
}
