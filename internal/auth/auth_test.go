package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage/memory"
)

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	user := models.NewUser("alice@example.com", "Alice", "hash")

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID() != user.ID || claims.Email != user.Email || claims.DisplayName != "Alice" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("other-secret", time.Hour)
		if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		later := NewJWTManager("test-secret", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		if _, err := later.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate error = %v, want ErrInvalidToken", err)
		}
	})
}

func TestPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	a := NewPasswordAuthenticator(memory.New()).WithCost(bcrypt.MinCost)

	user, err := a.Register(ctx, " Alice@Example.com ", "", "password123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized address", user.Email)
	}
	if user.DisplayName != "alice" {
		t.Errorf("display name = %q, want local part", user.DisplayName)
	}
	if user.PasswordHash == "password123" {
		t.Error("password stored in clear")
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid login", "alice@example.com", "password123", nil},
		{"case insensitive email", "ALICE@example.com", "password123", nil},
		{"wrong password", "alice@example.com", "password124", ErrInvalidCredentials},
		{"unknown email", "bob@example.com", "password123", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Authenticate(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authenticate error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got.ID != user.ID {
				t.Errorf("Authenticate returned user %s, want %s", got.ID, user.ID)
			}
		})
	}

	if _, err := a.Register(ctx, "alice@example.com", "Again", "password123"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate Register error = %v, want ErrEmailExists", err)
	}
	if _, err := a.Register(ctx, "carol@example.com", "Carol", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak Register error = %v, want ErrWeakPassword", err)
	}
	if _, err := a.Register(ctx, "not-an-email", "Dan", "password123"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("bad email Register error = %v, want ErrInvalidEmail", err)
	}
}
