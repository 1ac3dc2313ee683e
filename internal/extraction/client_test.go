package extraction

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiReply(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return string(b)
}

func TestExtract_SendsImageAndReturnsJSON(t *testing.T) {
	image := []byte{0xff, 0xd8, 0xff}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 2)
		assert.Equal(t, Prompt, req.Contents[0].Parts[0].Text)
		assert.Equal(t, "image/png", req.Contents[0].Parts[1].InlineData.MimeType)
		assert.Equal(t, base64.StdEncoding.EncodeToString(image), req.Contents[0].Parts[1].InlineData.Data)

		io.WriteString(w, geminiReply("```json\n{\"items\":[{\"name\":\"Tea\",\"quantity\":1,\"price\":2.5}]}\n```"))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, APIKey: "secret"})
	out, err := c.Extract(context.Background(), image, "image/png")
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[{"name":"Tea","quantity":1,"price":2.5}]}`, string(out))
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"no candidates", http.StatusOK, `{"candidates":[]}`, ErrEmptyResponse},
		{"blank text", http.StatusOK, geminiReply("   "), ErrEmptyResponse},
		{"prose instead of json", http.StatusOK, geminiReply("I cannot read this receipt."), nil},
		{"upstream failure", http.StatusInternalServerError, `oops`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := New(Config{Endpoint: srv.URL, APIKey: "k"})
			_, err := c.Extract(context.Background(), []byte("img"), "")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.status != http.StatusOK {
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, tt.status, statusErr.Code)
			}
		})
	}
}

func TestExtract_NotConfigured(t *testing.T) {
	c := New(Config{})
	_, err := c.Extract(context.Background(), []byte("img"), "image/jpeg")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestExtract_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, APIKey: "k"})
	for range 5 {
		_, err := c.Extract(context.Background(), []byte("img"), "")
		require.Error(t, err)
	}

	_, err := c.Extract(context.Background(), []byte("img"), "")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(5), calls.Load())
}

func TestExtract_ClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, APIKey: "k"})
	for range 10 {
		_, err := c.Extract(context.Background(), []byte("img"), "")
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`[1]`, `[1]`},
		{"```json\n[1]\n```", `[1]`},
		{"```\n{\"a\":1}\n```  ", `{"a":1}`},
		{"```[1]```", `[1]`},
		{"  [1]  ", `[1]`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripCodeFence(tt.in), "input %q", tt.in)
	}
}
