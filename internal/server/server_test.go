package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/receiptsplit/internal/auth"
	"github.com/mmynk/receiptsplit/internal/config"
	"github.com/mmynk/receiptsplit/internal/service"
	"github.com/mmynk/receiptsplit/internal/session"
	"github.com/mmynk/receiptsplit/internal/storage/memory"
	"github.com/mmynk/receiptsplit/pkg/api"
	"github.com/mmynk/receiptsplit/pkg/api/apiconnect"
)

type stubExtractor struct {
	data []byte
	err  error
}

func (s stubExtractor) Extract(context.Context, []byte, string) ([]byte, error) {
	return s.data, s.err
}

func newTestServer(t *testing.T, cfg config.ServerConfig, extractor service.Extractor) *httptest.Server {
	t.Helper()

	store := memory.New()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)

	srv := New(cfg, Deps{
		Bills:      service.NewBillService(sessions, store, extractor, nil, nil),
		Auth:       service.NewAuthService(authenticator, jwtManager, store, nil),
		JWTManager: jwtManager,
		Extractor:  extractor,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) (*http.Response, processReceiptResponse) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out processReceiptResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil)

	client := apiconnect.NewBillServiceClient(http.DefaultClient, ts.URL)
	_, err := client.CreateSession(context.Background(), connect.NewRequest(&api.CreateSessionRequest{}))
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "receiptsplit_split_computations_total")
	assert.Contains(t, string(body), "receiptsplit_rpc_requests_total")
}

func TestProcessReceipt(t *testing.T) {
	image := base64.StdEncoding.EncodeToString([]byte("jpeg"))

	t.Run("success", func(t *testing.T) {
		ts := newTestServer(t, config.ServerConfig{}, stubExtractor{data: []byte(`{"items":[{"name":"Tea","quantity":1,"price":2.5}]}`)})

		resp, out := postJSON(t, ts.URL+"/api/process-receipt", `{"imageData":"`+image+`"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, out.Success)
		assert.JSONEq(t, `{"items":[{"name":"Tea","quantity":1,"price":2.5}]}`, string(out.Data))
	})

	t.Run("extraction failure", func(t *testing.T) {
		ts := newTestServer(t, config.ServerConfig{}, stubExtractor{err: errors.New("quota exceeded")})

		resp, out := postJSON(t, ts.URL+"/api/process-receipt", `{"imageData":"`+image+`"}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.False(t, out.Success)
		assert.Equal(t, processReceiptError, out.Error)
	})

	t.Run("invalid model output", func(t *testing.T) {
		ts := newTestServer(t, config.ServerConfig{}, stubExtractor{data: []byte("not json")})

		resp, out := postJSON(t, ts.URL+"/api/process-receipt", `{"imageData":"`+image+`"}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.False(t, out.Success)
	})

	t.Run("not configured", func(t *testing.T) {
		ts := newTestServer(t, config.ServerConfig{}, nil)

		resp, _ := postJSON(t, ts.URL+"/api/process-receipt", `{"imageData":"`+image+`"}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("missing image", func(t *testing.T) {
		ts := newTestServer(t, config.ServerConfig{}, stubExtractor{data: []byte(`[]`)})

		resp, out := postJSON(t, ts.URL+"/api/process-receipt", `{}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.False(t, out.Success)
	})

	t.Run("body too large", func(t *testing.T) {
		ts := newTestServer(t, config.ServerConfig{MaxBodyBytes: 16}, stubExtractor{data: []byte(`[]`)})

		resp, _ := postJSON(t, ts.URL+"/api/process-receipt", `{"imageData":"`+strings.Repeat("A", 64)+`"}`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	})
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/receiptsplit.v1.BillService/CreateSession", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestConnectRoutes_AuthFlowsIntoBills(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil)
	ctx := context.Background()

	authClient := apiconnect.NewAuthServiceClient(http.DefaultClient, ts.URL)
	billClient := apiconnect.NewBillServiceClient(http.DefaultClient, ts.URL)

	reg, err := authClient.Register(ctx, connect.NewRequest(&api.RegisterRequest{
		Email: "dana@example.com", DisplayName: "Dana", Password: "password123",
	}))
	require.NoError(t, err)

	created, err := billClient.CreateSession(ctx, connect.NewRequest(&api.CreateSessionRequest{
		Extraction: json.RawMessage(`[{"name":"Noodles","quantity":1,"price":12}]`),
	}))
	require.NoError(t, err)

	finalize := connect.NewRequest(&api.FinalizeBillRequest{SessionID: created.Msg.SessionID, Title: "Lunch"})
	finalize.Header().Set("Authorization", "Bearer "+reg.Msg.Token)
	finalized, err := billClient.FinalizeBill(ctx, finalize)
	require.NoError(t, err)
	assert.Equal(t, reg.Msg.User.ID, finalized.Msg.Bill.OwnerID)

	list := connect.NewRequest(&api.ListBillsRequest{})
	list.Header().Set("Authorization", "Bearer "+reg.Msg.Token)
	bills, err := billClient.ListBills(ctx, list)
	require.NoError(t, err)
	require.Len(t, bills.Msg.Bills, 1)
	assert.Equal(t, "Lunch", bills.Msg.Bills[0].Title)

	_, err = billClient.ListBills(ctx, connect.NewRequest(&api.ListBillsRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	resp, err := http.Post(ts.URL+"/receiptsplit.v1.BillService/NoSuchMethod", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>app</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	ts := newTestServer(t, config.ServerConfig{StaticPath: dir}, nil)

	for path, want := range map[string]string{
		"/":          "<h1>app</h1>",
		"/app.js":    "console.log(1)",
		"/bill/1234": "<h1>app</h1>",
	} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, want, string(body), path)
	}
}
