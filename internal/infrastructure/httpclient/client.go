package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"coinsvc/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Client is the shared HTTP executor behind every adapter call. GET requests
// never carry a body; other methods attach the data payload as JSON.
type Client struct {
	httpClient *http.Client
	idCounter  uint64
}

func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Request performs one HTTP call and returns the raw response body. Every
// failure is normalized to "Request failed [METHOD URL]: reason", preferring
// an upstream-supplied structured message over the transport error text. An
// empty response body counts as a failure.
func (c *Client) Request(ctx context.Context, method, url string, data any, headers map[string]string) (json.RawMessage, error) {
	var body io.Reader
	if data != nil && method != http.MethodGet {
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, c.fail(method, url, err, "encode request body: %v", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, c.fail(method, url, err, "%v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(method, url, err, "%v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(method, url, err, "read response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := upstreamReason(raw)
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
		}
		slog.Error("http request failed", "method", method, "url", SanitizeURL(url), "status", resp.StatusCode, "reason", reason)
		return nil, domain.NewHTTPStatusError(resp.StatusCode, "Request failed [%s %s]: %s", method, SanitizeURL(url), reason)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, c.fail(method, url, nil, "empty response")
	}

	slog.Info("http request", "method", method, "url", SanitizeURL(url), "status", resp.StatusCode)
	return raw, nil
}

func (c *Client) fail(method, url string, cause error, format string, args ...any) error {
	reason := fmt.Sprintf(format, args...)
	slog.Error("http request failed", "method", method, "url", SanitizeURL(url), "reason", reason)
	return domain.NewNetworkError(cause, "Request failed [%s %s]: %s", method, SanitizeURL(url), reason)
}

// upstreamReason pulls a human-readable message out of the error payload
// shapes the supported providers return.
func upstreamReason(raw []byte) string {
	var mirror struct {
		Status struct {
			Messages []struct {
				Message string `json:"message"`
			} `json:"messages"`
		} `json:"_status"`
	}
	if err := json.Unmarshal(raw, &mirror); err == nil && len(mirror.Status.Messages) > 0 && mirror.Status.Messages[0].Message != "" {
		return mirror.Status.Messages[0].Message
	}

	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	var flat struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &flat); err == nil && flat.Message != "" {
		return flat.Message
	}
	return ""
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcErrorBody   `json:"error"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPC wraps Request with a JSON-RPC 2.0 envelope and decodes the result into
// out. An error object in the envelope, or a missing result, yields an
// RPCError.
func (c *Client) RPC(ctx context.Context, url, rpcMethod string, params []any, headers map[string]string, out any) error {
	if params == nil {
		params = []any{}
	}
	envelope := rpcRequest{
		JSONRPC: "2.0",
		ID:      atomic.AddUint64(&c.idCounter, 1),
		Method:  rpcMethod,
		Params:  params,
	}
	raw, err := c.Request(ctx, http.MethodPost, url, envelope, headers)
	if err != nil {
		return err
	}

	var decoded rpcResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return domain.NewRPCError(0, "rpc %s: decode response: %v", rpcMethod, err)
	}
	if decoded.Error != nil {
		return domain.NewRPCError(decoded.Error.Code, "rpc %s error %d: %s", rpcMethod, decoded.Error.Code, decoded.Error.Message)
	}
	if len(decoded.Result) == 0 || string(bytes.TrimSpace(decoded.Result)) == "null" {
		return domain.NewRPCError(0, "rpc %s: result is empty", rpcMethod)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return domain.NewRPCError(0, "rpc %s: decode result: %v", rpcMethod, err)
	}
	return nil
}

var errEmptyHex = errors.New("empty hex value")

// ParseHexUint parses a 0x-prefixed or bare hex quantity.
func ParseHexUint(value string) (uint64, error) {
	trimmed := value
	if len(trimmed) >= 2 && (trimmed[:2] == "0x" || trimmed[:2] == "0X") {
		trimmed = trimmed[2:]
	}
	if trimmed == "" {
		return 0, errEmptyHex
	}
	parsed, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hex value %q: %w", value, err)
	}
	return parsed, nil
}
