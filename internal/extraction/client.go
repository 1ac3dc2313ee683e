// Package extraction turns receipt photos into line-item JSON using the
// Gemini generateContent API.
package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mmynk/receiptsplit/internal/metrics"
)

// DefaultEndpoint is the generateContent URL used when none is configured.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"

// Prompt asks the model for the record shape models.DecodeExtraction reads.
const Prompt = `Extract the line items from this receipt image. ` +
	`Respond with only a JSON object of the form ` +
	`{"items":[{"name":string,"quantity":integer,"price":number}],"total":number} ` +
	`where price is the unit price and total is the amount printed as the receipt total.`

var (
	ErrNotConfigured = errors.New("receipt extraction is not configured")
	ErrUnavailable   = errors.New("receipt extraction is temporarily unavailable")
	ErrEmptyResponse = errors.New("model returned no content")
)

// Config configures a Client.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration

	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client calls the extraction model behind a circuit breaker.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
}

func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	settings := gobreaker.Settings{
		Name:        "extraction",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Only upstream failures count against the breaker.
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.Code < 500 && statusErr.Code != http.StatusTooManyRequests
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			metrics.ExtractionBreakerState.Set(float64(to))
		},
	}

	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     httpClient,
		breaker:  gobreaker.NewCircuitBreaker(settings),
	}
}

// StatusError is returned when the model API answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("extraction API returned %d: %s", e.Code, e.Body)
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Extract sends the image to the model and returns the JSON text of its
// answer with any Markdown code fence removed. The result is not
// validated beyond being well-formed JSON.
func (c *Client) Extract(ctx context.Context, image []byte, mimeType string) ([]byte, error) {
	if c.apiKey == "" {
		metrics.ExtractionRequests.WithLabelValues("unconfigured").Inc()
		return nil, ErrNotConfigured
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generate(ctx, image, mimeType)
	})
	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.ExtractionRequests.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		metrics.ExtractionRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ExtractionRequests.WithLabelValues("ok").Inc()
	return out.([]byte), nil
}

func (c *Client) generate(ctx context.Context, image []byte, mimeType string) ([]byte, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: Prompt},
				{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read extraction response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}

	text := StripCodeFence(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("model returned non-JSON text: %.80q", text)
	}
	return []byte(text), nil
}

// StripCodeFence removes a surrounding ``` or ```json fence.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
