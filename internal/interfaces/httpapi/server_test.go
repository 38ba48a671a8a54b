package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"coinsvc/internal/coin"
	"coinsvc/internal/domain"
	"coinsvc/internal/infrastructure/eventlog"
)

type stubAdapter struct {
	height    uint64
	heightErr error
	tx        *domain.Transaction
	txErr     error
	broadcast domain.BroadcastResult
}

func (a *stubAdapter) GetHeight(ctx context.Context) (uint64, error) {
	return a.height, a.heightErr
}

func (a *stubAdapter) GetBlock(ctx context.Context, height uint64) (*domain.Block, error) {
	return &domain.Block{Height: height}, nil
}

func (a *stubAdapter) BalanceByAddress(ctx context.Context, ticker, address string) (*domain.Balance, error) {
	return &domain.Balance{Ticker: ticker, Address: address, Balance: "100", TotalBalance: "100"}, nil
}

func (a *stubAdapter) TxByHash(ctx context.Context, ticker, hash string) (*domain.Transaction, error) {
	return a.tx, a.txErr
}

func (a *stubAdapter) TxBroadcast(ctx context.Context, ticker, signedData string) domain.BroadcastResult {
	return a.broadcast
}

type stubService struct {
	adapter  *stubAdapter
	buildErr error
	signErr  error
}

func (s *stubService) InitNodes(opts []coin.NodeOptions) error { return nil }

func (s *stubService) Node() (coin.NodeAdapter, bool) {
	if s.adapter == nil {
		return nil, false
	}
	return s.adapter, true
}

func (s *stubService) AddressCreate(ctx context.Context, ticker string) (*domain.AddressKeyMaterial, bool, error) {
	return &domain.AddressKeyMaterial{Address: "0.0.9999"}, true, nil
}

func (s *stubService) AddressValidate(ctx context.Context, ticker, address, privateKey, publicKey string) (bool, string) {
	if address == "" {
		return false, "address missing"
	}
	return true, ""
}

func (s *stubService) TxBuild(ctx context.Context, ticker string, params domain.TransactionParams) (domain.TransactionParams, error) {
	if s.buildErr != nil {
		return params, s.buildErr
	}
	params.UnsignedTx = "deadbeef"
	return params, nil
}

func (s *stubService) TxSign(ctx context.Context, ticker string, privateKeys map[string]string, params domain.TransactionParams) (domain.SignedTransaction, error) {
	if s.signErr != nil {
		return domain.SignedTransaction{}, s.signErr
	}
	return domain.SignedTransaction{SignedData: "cafe", TxHash: "0.0.1-1-1"}, nil
}

func (s *stubService) Ticker() string { return "HBAR" }

func newTestServer(t *testing.T, service *stubService) *httptest.Server {
	t.Helper()
	server, err := NewServer(service, nil, nil, BuildInfo{Version: "test"}, 0)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("get %s: status %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

func postJSON(t *testing.T, url, body string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("post %s: status %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

func TestHealthAndVersion(t *testing.T) {
	ts := newTestServer(t, &stubService{adapter: &stubAdapter{}})

	var health map[string]string
	getJSON(t, ts.URL+"/healthz", http.StatusOK, &health)
	if health["status"] != "ok" {
		t.Errorf("health = %v", health)
	}

	var version map[string]string
	getJSON(t, ts.URL+"/version", http.StatusOK, &version)
	if version["version"] != "test" || version["ticker"] != "HBAR" {
		t.Errorf("version = %v", version)
	}
}

func TestReadyz_NoNodes(t *testing.T) {
	ts := newTestServer(t, &stubService{})
	getJSON(t, ts.URL+"/readyz", http.StatusServiceUnavailable, nil)
}

func TestHeight(t *testing.T) {
	ts := newTestServer(t, &stubService{adapter: &stubAdapter{height: 1234}})

	var payload map[string]uint64
	getJSON(t, ts.URL+"/height", http.StatusOK, &payload)
	if payload["height"] != 1234 {
		t.Errorf("height = %d", payload["height"])
	}
}

func TestBlock_InvalidHeight(t *testing.T) {
	ts := newTestServer(t, &stubService{adapter: &stubAdapter{}})
	getJSON(t, ts.URL+"/block?height=abc", http.StatusBadRequest, nil)
}

func TestBalance_RequiresAddress(t *testing.T) {
	ts := newTestServer(t, &stubService{adapter: &stubAdapter{}})
	getJSON(t, ts.URL+"/balance", http.StatusBadRequest, nil)
}

func TestTx_NotFoundMapsTo404(t *testing.T) {
	ts := newTestServer(t, &stubService{adapter: &stubAdapter{
		txErr: domain.NewNotFoundError("transaction %s not found", "abc"),
	}})
	getJSON(t, ts.URL+"/tx?hash=abc", http.StatusNotFound, nil)
}

func TestTxBuild_ValidationMapsTo400(t *testing.T) {
	ts := newTestServer(t, &stubService{
		adapter:  &stubAdapter{},
		buildErr: domain.NewValidationError("transaction build requires a non-empty from list"),
	})
	postJSON(t, ts.URL+"/tx/build", `{"params":{}}`, http.StatusBadRequest, nil)
}

func TestTxBuild_Success(t *testing.T) {
	ts := newTestServer(t, &stubService{adapter: &stubAdapter{}})

	var params domain.TransactionParams
	postJSON(t, ts.URL+"/tx/build", `{"params":{"from":{"address":"0.0.1","value":"1"},"to":[]}}`, http.StatusOK, &params)
	if params.UnsignedTx != "deadbeef" {
		t.Errorf("unsigned tx = %s", params.UnsignedTx)
	}
}

func TestTxBroadcast_FailureIsStillOK(t *testing.T) {
	ts := newTestServer(t, &stubService{adapter: &stubAdapter{
		broadcast: domain.BroadcastResult{Error: "node rejected transaction"},
	}})

	var result domain.BroadcastResult
	postJSON(t, ts.URL+"/tx/broadcast", `{"signed_data":"cafe"}`, http.StatusOK, &result)
	if result.Error == "" {
		t.Error("expected broadcast error in result body")
	}
}

func TestTxBroadcast_RequiresSignedData(t *testing.T) {
	ts := newTestServer(t, &stubService{adapter: &stubAdapter{}})
	postJSON(t, ts.URL+"/tx/broadcast", `{}`, http.StatusBadRequest, nil)
}

type memorySink struct {
	events []coin.TxEvent
}

func (m *memorySink) Publish(ctx context.Context, event coin.TxEvent) error {
	m.events = append(m.events, event)
	return nil
}

func TestTxBroadcast_EmitsLifecycleEvent(t *testing.T) {
	service := &stubService{adapter: &stubAdapter{
		broadcast: domain.BroadcastResult{Hash: "0.0.1-1-1"},
	}}
	server, err := NewServer(service, nil, nil, BuildInfo{}, 0)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	sink := &memorySink{}
	server.SetEventSink(sink)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	postJSON(t, ts.URL+"/tx/broadcast", `{"signed_data":"cafe"}`, http.StatusOK, nil)
	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.events))
	}
	if sink.events[0].Type != coin.TxEventBroadcast || sink.events[0].TxHash != "0.0.1-1-1" {
		t.Errorf("unexpected event %+v", sink.events[0])
	}

	// Failed broadcasts are reported in the body, not streamed.
	service.adapter.broadcast = domain.BroadcastResult{Error: "rejected"}
	postJSON(t, ts.URL+"/tx/broadcast", `{"signed_data":"cafe"}`, http.StatusOK, nil)
	if len(sink.events) != 1 {
		t.Errorf("failed broadcast should not emit an event")
	}
}

func TestAddressValidate(t *testing.T) {
	ts := newTestServer(t, &stubService{adapter: &stubAdapter{}})

	var result map[string]any
	postJSON(t, ts.URL+"/address/validate", `{"address":""}`, http.StatusOK, &result)
	if result["valid"] != false || result["reason"] != "address missing" {
		t.Errorf("result = %v", result)
	}
}

func TestEvents_NotConfigured(t *testing.T) {
	ts := newTestServer(t, &stubService{adapter: &stubAdapter{}})
	getJSON(t, ts.URL+"/events", http.StatusNotFound, nil)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &stubService{adapter: &stubAdapter{}})
	getJSON(t, ts.URL+"/tx/sign", http.StatusMethodNotAllowed, nil)
}

var _ EventStore = (*eventlog.Store)(nil)
