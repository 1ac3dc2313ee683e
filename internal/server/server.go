// Package server assembles the HTTP surface: Connect services, the receipt
// passthrough endpoint, health, metrics and the static frontend.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/receiptsplit/internal/auth"
	"github.com/mmynk/receiptsplit/internal/config"
	"github.com/mmynk/receiptsplit/internal/middleware"
	"github.com/mmynk/receiptsplit/internal/service"
	"github.com/mmynk/receiptsplit/pkg/api/apiconnect"
)

const shutdownTimeout = 10 * time.Second

// processReceiptError is the only error text the passthrough endpoint exposes.
const processReceiptError = "An error occurred while processing the receipt"

// Deps are the collaborators the server routes to.
type Deps struct {
	Bills      *service.BillService
	Auth       *service.AuthService
	JWTManager *auth.JWTManager
	// Extractor backs POST /api/process-receipt. Nil makes it fail with 500.
	Extractor service.Extractor
	Logger    *slog.Logger
}

// Server is the receiptsplit HTTP server.
type Server struct {
	cfg  config.ServerConfig
	deps Deps
}

// New creates a server. Call Handler for tests or Run to listen.
func New(cfg config.ServerConfig, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Server{cfg: cfg, deps: deps}
}

// Handler returns the chi router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/process-receipt", s.handleProcessReceipt)

	opts := []connect.HandlerOption{
		connect.WithInterceptors(
			middleware.OptionalAuth(s.deps.JWTManager),
			middleware.LoggingInterceptor(),
		),
	}
	if s.cfg.MaxBodyBytes > 0 {
		opts = append(opts, connect.WithReadMaxBytes(int(s.cfg.MaxBodyBytes)))
	}

	if s.deps.Bills != nil {
		path, handler := apiconnect.NewBillServiceHandler(s.deps.Bills, opts...)
		r.Handle(path+"*", handler)
	}
	if s.deps.Auth != nil {
		path, handler := apiconnect.NewAuthServiceHandler(s.deps.Auth, opts...)
		r.Handle(path+"*", handler)
	}

	if staticDir := s.staticDir(); staticDir != "" {
		r.Get("/*", staticHandler(staticDir))
	}

	return r
}

func (s *Server) staticDir() string {
	if s.cfg.StaticPath == "" {
		return ""
	}
	dir, err := filepath.Abs(s.cfg.StaticPath)
	if err != nil {
		s.deps.Logger.Warn("Failed to resolve static path", "path", s.cfg.StaticPath, "error", err)
		return ""
	}
	if stat, err := os.Stat(dir); err != nil || !stat.IsDir() {
		s.deps.Logger.Info("Static files disabled", "path", dir)
		return ""
	}
	s.deps.Logger.Info("Serving static files", "path", dir)
	return dir
}

// staticHandler serves files from dir and falls back to index.html for
// unknown paths so client-side routes load the app.
func staticHandler(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}

		filePath := filepath.Join(dir, filepath.Clean("/"+urlPath))
		if stat, err := os.Stat(filePath); err != nil || stat.IsDir() {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		http.ServeFile(w, r, filePath)
	}
}

type processReceiptRequest struct {
	ImageData string `json:"imageData"`
	MimeType  string `json:"mimeType,omitempty"`
}

type processReceiptResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// handleProcessReceipt runs a photo through the extraction model and returns
// the parsed JSON untouched.
func (s *Server) handleProcessReceipt(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}

	var req processReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, processReceiptResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.ImageData) == "" {
		writeJSON(w, http.StatusBadRequest, processReceiptResponse{Error: "imageData is required"})
		return
	}

	image, mimeType, err := service.DecodeImage(req.ImageData, req.MimeType)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, processReceiptResponse{Error: err.Error()})
		return
	}

	if s.deps.Extractor == nil {
		s.deps.Logger.Error("Error processing receipt", "error", "extraction is not configured")
		writeJSON(w, http.StatusInternalServerError, processReceiptResponse{Error: processReceiptError})
		return
	}

	data, err := s.deps.Extractor.Extract(r.Context(), image, mimeType)
	if err == nil && !json.Valid(data) {
		err = errors.New("extraction returned invalid JSON")
	}
	if err != nil {
		s.deps.Logger.Error("Error processing receipt", "error", err)
		writeJSON(w, http.StatusInternalServerError, processReceiptResponse{Error: processReceiptError})
		return
	}

	writeJSON(w, http.StatusOK, processReceiptResponse{Success: true, Data: data})
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully. Requests are served over HTTP/1.1 and h2c.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("Connect server starting", "address", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.deps.Logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
