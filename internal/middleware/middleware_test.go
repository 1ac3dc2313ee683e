package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/receiptsplit/internal/auth"
	"github.com/mmynk/receiptsplit/internal/models"
)

type ping struct{}

func callWith(t *testing.T, interceptor connect.UnaryInterceptorFunc, header string) (string, error) {
	t.Helper()
	var seen string
	next := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		seen = GetUserID(ctx)
		return connect.NewResponse(&ping{}), nil
	}

	req := connect.NewRequest(&ping{})
	if header != "" {
		req.Header().Set("Authorization", header)
	}
	_, err := interceptor(next)(context.Background(), req)
	return seen, err
}

func TestAuthInterceptors(t *testing.T) {
	jwt := auth.NewJWTManager("secret", time.Hour)
	user := models.NewUser("alice@example.com", "Alice", "hash")
	token, err := jwt.Generate(user)
	require.NoError(t, err)

	tests := []struct {
		name         string
		header       string
		requiredCode connect.Code // 0 means allowed
		wantUser     string
	}{
		{"valid token", "Bearer " + token, 0, user.ID},
		{"lowercase scheme", "bearer " + token, 0, user.ID},
		{"missing header", "", connect.CodeUnauthenticated, ""},
		{"wrong scheme", "Basic abc", connect.CodeUnauthenticated, ""},
		{"bad token", "Bearer nope", connect.CodeUnauthenticated, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/required", func(t *testing.T) {
			got, err := callWith(t, RequireAuth(jwt), tt.header)
			if tt.requiredCode != 0 {
				assert.Equal(t, tt.requiredCode, connect.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, got)
		})
		t.Run(tt.name+"/optional", func(t *testing.T) {
			got, err := callWith(t, OptionalAuth(jwt), tt.header)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, got)
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/process-receipt", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
