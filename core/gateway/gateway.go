// Package gateway exposes the HTTP surface: upload, download, the viewer
// page and health. All content handled here is opaque ciphertext; key
// material travels in URL fragments, which browsers never send to servers.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/blindrop/blindrop/core/infra/blobstore"
	"github.com/blindrop/blindrop/core/infra/bus"
	"github.com/blindrop/blindrop/core/infra/config"
	"github.com/blindrop/blindrop/core/infra/expiryindex"
	"github.com/blindrop/blindrop/core/infra/logging"
	"github.com/blindrop/blindrop/core/infra/metrics"
	"github.com/blindrop/blindrop/core/lifecycle"
	"github.com/blindrop/blindrop/core/payment"
)

const component = "gateway"

// Error codes returned in JSON bodies.
const (
	codeEmptyBody       = "EMPTY_BODY"
	codeInvalidTTL      = "INVALID_TTL"
	codeInvalidPrice    = "INVALID_PRICE"
	codeTooLarge        = "TOO_LARGE"
	codeNotFound        = "NOT_FOUND"
	codeGone            = "GONE"
	codePaymentRequired = "PAYMENT_REQUIRED"
	codeInternal        = "INTERNAL"
)

type server struct {
	orch    *lifecycle.Orchestrator
	limits  lifecycle.Limits
	metrics metrics.GatewayMetrics
}

type dropResponse struct {
	Identifier string `json:"identifier"`
	Expires    string `json:"expires"`
}

type errorResponse struct {
	Error   string        `json:"error"`
	Payment *payment.Info `json:"payment,omitempty"`
}

// Run starts the gateway and blocks until the HTTP listener fails.
func Run(cfg *config.Config) error {
	if cfg == nil {
		cfg = config.Load()
	}
	limitsCfg, err := config.LoadLimits(cfg.LimitsPath)
	if err != nil {
		return fmt.Errorf("load limits: %w", err)
	}

	blobs, err := openBlobStore(cfg)
	if err != nil {
		return err
	}
	defer blobs.Close()

	index, err := expiryindex.NewRedisIndex(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer index.Close()

	var gate *payment.Gate
	if cfg.PaymentSecret != "" {
		lifetime := time.Duration(limitsCfg.ProofLifetimeMinutes) * time.Minute
		gate = payment.NewGate([]byte(cfg.PaymentSecret), lifetime)
	}

	var events lifecycle.Events
	if cfg.NatsURL != "" {
		natsBus, err := bus.NewNatsBus(cfg.NatsURL)
		if err != nil {
			return err
		}
		defer natsBus.Close()
		events = natsBus
	}

	limits := lifecycle.Limits{
		MaxBlobBytes:    limitsCfg.MaxBlobBytes,
		MinTTLHours:     limitsCfg.MinTTLHours,
		MaxTTLHours:     limitsCfg.MaxTTLHours,
		DefaultTTLHours: limitsCfg.DefaultTTLHours,
		Currency:        limitsCfg.Currency,
	}
	orch := lifecycle.NewOrchestrator(blobs, index, gate, events, metrics.NewProm("blindrop"), limits)
	if limits.MaxBlobBytes <= 0 {
		limits.MaxBlobBytes = lifecycle.DefaultMaxBlobBytes
	}

	s := &server{
		orch:    orch,
		limits:  limits,
		metrics: metrics.NewGatewayProm("blindrop_gateway"),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metrics.Handler())
	go func() {
		logging.Info(component, "metrics listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, metricsMux); err != nil {
			logging.Error(component, "metrics listener failed", "error", err)
		}
	}()

	logging.Info(component, "http listening", "addr", cfg.HTTPAddr)
	return http.ListenAndServe(cfg.HTTPAddr, s.handler())
}

func openBlobStore(cfg *config.Config) (lifecycle.SweepStore, error) {
	switch cfg.BlobBackend {
	case "bolt":
		return blobstore.OpenBoltStore(cfg.BoltPath)
	case "", "redis":
		return blobstore.NewRedisStore(cfg.BlobRedisURL)
	default:
		return nil, fmt.Errorf("gateway: unknown blob backend %q", cfg.BlobBackend)
	}
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /api/drop", s.instrumented("/api/drop", s.handleDrop))
	mux.HandleFunc("GET /api/blob/{identifier}", s.instrumented("/api/blob/{identifier}", s.handleGetBlob))
	mux.HandleFunc("GET /v/{identifier}", s.instrumented("/v/{identifier}", s.handleViewer))
	return corsMiddleware(mux)
}

// handleDrop admits a ciphertext upload. The body is the raw ciphertext;
// lifetime and optional price arrive as query parameters.
func (s *server) handleDrop(w http.ResponseWriter, r *http.Request) {
	ttlHours := 0
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTTL)
			return
		}
		ttlHours = n
	}
	var priceUSD *float64
	if raw := r.URL.Query().Get("price"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidPrice)
			return
		}
		priceUSD = &p
	}

	// Cap the read one byte past the limit so oversized bodies are
	// detected without buffering them whole.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(s.limits.MaxBlobBytes)+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge)
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternal)
		return
	}

	drop, err := s.orch.Upload(r.Context(), body, ttlHours, priceUSD)
	if err != nil {
		s.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dropResponse{
		Identifier: drop.Identifier,
		Expires:    drop.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// handleGetBlob serves raw ciphertext. Expiry and payment gating happen in
// the orchestrator; this handler only shapes the HTTP response.
func (s *server) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	identifier := r.PathValue("identifier")
	proof := r.URL.Query().Get("paymentProof")

	ciphertext, err := s.orch.Download(r.Context(), identifier, proof)
	if err != nil {
		s.writeLifecycleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(ciphertext)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(ciphertext)
}

func (s *server) writeLifecycleError(w http.ResponseWriter, err error) {
	var payErr *lifecycle.PaymentRequiredError
	switch {
	case errors.Is(err, lifecycle.ErrEmptyBody):
		writeError(w, http.StatusBadRequest, codeEmptyBody)
	case errors.Is(err, lifecycle.ErrInvalidTTL):
		writeError(w, http.StatusBadRequest, codeInvalidTTL)
	case errors.Is(err, lifecycle.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, codeInvalidPrice)
	case errors.Is(err, lifecycle.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge)
	case errors.Is(err, lifecycle.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound)
	case errors.Is(err, lifecycle.ErrGone):
		writeError(w, http.StatusGone, codeGone)
	case errors.As(err, &payErr):
		info := payment.Info{Price: payErr.Price, Currency: payErr.Currency}
		payment.SetPaymentHeaders(w, info)
		writeJSONBody(w, http.StatusPaymentRequired, errorResponse{Error: codePaymentRequired, Payment: &info})
	default:
		logging.Error(component, "request failed", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal)
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSONBody(w, status, errorResponse{Error: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	writeJSONBody(w, status, v)
}

func writeJSONBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error(component, "encode response", "error", err)
	}
}

// corsMiddleware applies the permissive policy the sharing model requires:
// any origin may upload and fetch, since the server holds nothing readable.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", payment.HeaderPrice+", "+payment.HeaderCurrency)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrumented wraps handlers to record metrics.
func (s *server) instrumented(route string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		if s.metrics != nil {
			s.metrics.ObserveRequest(r.Method, route, strconv.Itoa(rec.status), time.Since(start).Seconds())
		}
	}
}
