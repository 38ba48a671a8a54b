// Package httpapi exposes the coin service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coinsvc/internal/coin"
	"coinsvc/internal/domain"
	"coinsvc/internal/infrastructure/eventlog"
	"coinsvc/internal/infrastructure/telemetry"
)

// EventStore is the audit-trail read side.
type EventStore interface {
	Recent(ctx context.Context, limit int) ([]eventlog.Event, error)
	Ping(ctx context.Context) error
}

type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

type Server struct {
	service   coin.Service
	events    EventStore
	sink      coin.TxEventSink
	metrics   *Metrics
	buildInfo BuildInfo
	timeout   time.Duration
}

func NewServer(service coin.Service, events EventStore, metrics *Metrics, buildInfo BuildInfo, timeout time.Duration) (*Server, error) {
	if service == nil {
		return nil, errors.New("coin service is required")
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{service: service, events: events, metrics: metrics, buildInfo: buildInfo, timeout: timeout}, nil
}

func (s *Server) MetricsObserver() *Metrics {
	return s.metrics
}

// SetEventSink attaches the lifecycle event publisher. Broadcast events come
// from here because broadcast bypasses the coin service and goes straight to
// the adapter.
func (s *Server) SetEventSink(sink coin.TxEventSink) {
	s.sink = sink
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/version", s.handleVersion)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/height", s.handleHeight)
	mux.HandleFunc("/block", s.handleBlock)
	mux.HandleFunc("/balance", s.handleBalance)
	mux.HandleFunc("/tx", s.handleTx)
	mux.HandleFunc("/address/validate", s.handleAddressValidate)
	mux.HandleFunc("/address/create", s.handleAddressCreate)
	mux.HandleFunc("/tx/build", s.handleTxBuild)
	mux.HandleFunc("/tx/sign", s.handleTxSign)
	mux.HandleFunc("/tx/broadcast", s.handleTxBroadcast)
	mux.HandleFunc("/events", s.handleEvents)
	return s.withTrace(mux)
}

// withTrace honors a caller-supplied trace id so operations can be
// correlated across services.
func (s *Server) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if traceID := r.Header.Get("X-Trace-Id"); traceID != "" {
			if ctx, ok := telemetry.ContextWithTraceID(r.Context(), traceID); ok {
				r = r.WithContext(ctx)
			}
		}
		s.metrics.ObserveRequest(r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) opContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

func (s *Server) node(w http.ResponseWriter) (coin.NodeAdapter, bool) {
	adapter, ok := s.service.Node()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, "no nodes initialized")
	}
	return adapter, ok
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.events != nil {
		if err := s.events.Ping(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "event store not ready")
			return
		}
	}
	adapter, ok := s.service.Node()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, "no nodes initialized")
		return
	}
	if _, err := adapter.GetHeight(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "node not ready")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"version":    s.buildInfo.Version,
		"commit":     s.buildInfo.Commit,
		"build_time": s.buildInfo.BuildTime,
		"ticker":     s.service.Ticker(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	snap := s.metrics.Snapshot()

	fmt.Fprintf(w, "coinsvc_uptime_seconds %.0f\n", time.Since(snap.StartTime).Seconds())
	fmt.Fprintf(w, "coinsvc_last_height %d\n", snap.LastHeight)
	fmt.Fprintf(w, "coinsvc_tx_built_total %d\n", snap.TxBuilt)
	fmt.Fprintf(w, "coinsvc_tx_signed_total %d\n", snap.TxSigned)
	fmt.Fprintf(w, "coinsvc_tx_broadcast_ok_total %d\n", snap.TxBroadcastOK)
	fmt.Fprintf(w, "coinsvc_tx_broadcast_err_total %d\n", snap.TxBroadcastErr)
	for path, count := range snap.Requests {
		fmt.Fprintf(w, "coinsvc_http_requests_total{path=%q} %d\n", path, count)
	}
}

func (s *Server) handleHeight(w http.ResponseWriter, r *http.Request) {
	adapter, ok := s.node(w)
	if !ok {
		return
	}
	ctx, cancel := s.opContext(r)
	defer cancel()

	height, err := adapter.GetHeight(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	s.metrics.ObserveHeight(height)
	respondJSON(w, http.StatusOK, map[string]uint64{"height": height})
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(r.URL.Query().Get("height"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid height")
		return
	}
	adapter, ok := s.node(w)
	if !ok {
		return
	}
	ctx, cancel := s.opContext(r)
	defer cancel()

	block, err := adapter.GetBlock(ctx, height)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, block)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		respondError(w, http.StatusBadRequest, "address is required")
		return
	}
	adapter, ok := s.node(w)
	if !ok {
		return
	}
	ctx, cancel := s.opContext(r)
	defer cancel()

	balance, err := adapter.BalanceByAddress(ctx, s.ticker(r.URL.Query().Get("ticker")), address)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, balance)
}

func (s *Server) handleTx(w http.ResponseWriter, r *http.Request) {
	hash := strings.TrimSpace(r.URL.Query().Get("hash"))
	if hash == "" {
		respondError(w, http.StatusBadRequest, "hash is required")
		return
	}
	adapter, ok := s.node(w)
	if !ok {
		return
	}
	ctx, cancel := s.opContext(r)
	defer cancel()

	tx, err := adapter.TxByHash(ctx, s.ticker(r.URL.Query().Get("ticker")), hash)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) handleAddressValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Ticker     string `json:"ticker"`
		Address    string `json:"address"`
		PrivateKey string `json:"private_key"`
		PublicKey  string `json:"public_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx, cancel := s.opContext(r)
	defer cancel()

	valid, reason := s.service.AddressValidate(ctx, s.ticker(req.Ticker), req.Address, req.PrivateKey, req.PublicKey)
	respondJSON(w, http.StatusOK, map[string]any{"valid": valid, "reason": reason})
}

func (s *Server) handleAddressCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Ticker string `json:"ticker"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	ctx, cancel := s.opContext(r)
	defer cancel()

	material, ok, err := s.service.AddressCreate(ctx, s.ticker(req.Ticker))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if !ok {
		respondJSON(w, http.StatusOK, map[string]any{"created": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"created": true, "material": material})
}

func (s *Server) handleTxBuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Ticker string                   `json:"ticker"`
		Params domain.TransactionParams `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx, cancel := s.opContext(r)
	defer cancel()

	params, err := s.service.TxBuild(ctx, s.ticker(req.Ticker), req.Params)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	s.metrics.IncTxBuilt()
	respondJSON(w, http.StatusOK, params)
}

func (s *Server) handleTxSign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Ticker      string                   `json:"ticker"`
		PrivateKeys map[string]string        `json:"private_keys"`
		Params      domain.TransactionParams `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx, cancel := s.opContext(r)
	defer cancel()

	signed, err := s.service.TxSign(ctx, s.ticker(req.Ticker), req.PrivateKeys, req.Params)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	s.metrics.IncTxSigned()
	respondJSON(w, http.StatusOK, signed)
}

func (s *Server) handleTxBroadcast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Ticker     string `json:"ticker"`
		SignedData string `json:"signed_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SignedData) == "" {
		respondError(w, http.StatusBadRequest, "signed_data is required")
		return
	}
	adapter, ok := s.node(w)
	if !ok {
		return
	}
	ctx, cancel := s.opContext(r)
	defer cancel()

	result := adapter.TxBroadcast(ctx, s.ticker(req.Ticker), req.SignedData)
	s.metrics.ObserveBroadcast(result.Error == "")
	if s.sink != nil && result.Error == "" {
		event := coin.TxEvent{
			Type:   coin.TxEventBroadcast,
			Ticker: s.ticker(req.Ticker),
			TxHash: result.Hash,
			At:     time.Now().UTC(),
		}
		if err := s.sink.Publish(ctx, event); err != nil {
			slog.Warn("tx event publish failed", "type", event.Type, "error", err)
		}
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		respondError(w, http.StatusNotFound, "event store not configured")
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = value
	}
	ctx, cancel := s.opContext(r)
	defer cancel()

	events, err := s.events.Recent(ctx, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "event query failed")
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (s *Server) ticker(override string) string {
	if override != "" {
		return override
	}
	return s.service.Ticker()
}

// respondDomainError maps the error taxonomy onto HTTP statuses.
func respondDomainError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var notFoundErr *domain.NotFoundError
	var networkErr *domain.NetworkError
	var rpcErr *domain.RPCError

	switch {
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFoundErr):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &networkErr), errors.As(err, &rpcErr):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
