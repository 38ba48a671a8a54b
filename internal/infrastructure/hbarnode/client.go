// Package hbarnode is the node adapter for Hedera-style providers: a primary
// node/RPC endpoint for submissions and chain-head queries, and a mirror
// endpoint for historical block, balance and transaction lookups.
package hbarnode

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"coinsvc/internal/domain"
	"coinsvc/internal/infrastructure/httpclient"
)

const tracerName = "coinsvc/hbarnode"

// DefaultAtomicFactor converts HBAR to tinybars.
var DefaultAtomicFactor = decimal.NewFromInt(100_000_000)

type Config struct {
	// Name is a display label for the provider.
	Name string
	// RPCURL is the JSON-RPC node endpoint. Optional.
	RPCURL string
	// MirrorURL is the mirror/indexer endpoint. Required.
	MirrorURL string
	// Headers are attached to every request. May be empty.
	Headers map[string]string
	// Confirmations is carried for polling callers; no method here reads it.
	Confirmations uint64
	// Ticker is the native asset ticker. Defaults to HBAR.
	Ticker string
	// AtomicFactor converts human units to atomic units. Defaults to 1e8.
	AtomicFactor decimal.Decimal
}

// Client executes chain queries against one provider. It holds connection
// configuration only; no state survives between calls.
type Client struct {
	cfg  Config
	http *httpclient.Client
}

func New(cfg Config, httpClient *httpclient.Client) (*Client, error) {
	if strings.TrimSpace(cfg.MirrorURL) == "" {
		return nil, domain.NewConfigurationError("mirror url is required for provider %q", cfg.Name)
	}
	if httpClient == nil {
		return nil, errors.New("http client is required")
	}
	cfg.MirrorURL = strings.TrimRight(cfg.MirrorURL, "/")
	cfg.RPCURL = strings.TrimRight(cfg.RPCURL, "/")
	if cfg.Ticker == "" {
		cfg.Ticker = "HBAR"
	}
	if cfg.AtomicFactor.IsZero() {
		cfg.AtomicFactor = DefaultAtomicFactor
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

// Name returns the provider display label.
func (c *Client) Name() string { return c.cfg.Name }

// GetHeight returns the current chain height, from JSON-RPC when the
// provider exposes one, otherwise from the mirror's latest block.
func (c *Client) GetHeight(ctx context.Context) (uint64, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "hbarnode.GetHeight")
	defer span.End()
	span.SetAttributes(attribute.String("provider", c.cfg.Name))

	height, err := c.fetchHeight(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "height query failed")
		return 0, err
	}
	return height, nil
}

func (c *Client) fetchHeight(ctx context.Context) (uint64, error) {
	if c.cfg.RPCURL != "" {
		var result string
		if err := c.http.RPC(ctx, c.cfg.RPCURL, "eth_blockNumber", nil, c.cfg.Headers, &result); err != nil {
			return 0, err
		}
		height, err := parseHeight(result)
		if err != nil {
			return 0, domain.NewNetworkError(err, "height result %q is not a number", result)
		}
		return height, nil
	}

	raw, err := c.http.Request(ctx, http.MethodGet, c.cfg.MirrorURL+"/api/v1/blocks?limit=1&order=desc", nil, c.cfg.Headers)
	if err != nil {
		return 0, err
	}
	var response mirrorBlocksResponse
	if err := decodeJSON(raw, &response); err != nil {
		return 0, err
	}
	if len(response.Blocks) == 0 {
		return 0, domain.NewNetworkError(nil, "latest block query returned no blocks")
	}
	return response.Blocks[0].Number, nil
}

// parseHeight accepts hex-encoded (0x-prefixed) or decimal heights.
func parseHeight(value string) (uint64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return httpclient.ParseHexUint(value)
	}
	return strconv.ParseUint(value, 10, 64)
}

// GetBlock fetches one block after verifying it is available. Requesting a
// height past the chain head fails fast instead of issuing a doomed lookup.
func (c *Client) GetBlock(ctx context.Context, height uint64) (*domain.Block, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "hbarnode.GetBlock")
	defer span.End()
	span.SetAttributes(attribute.String("provider", c.cfg.Name), attribute.Int64("height", int64(height)))

	current, err := c.fetchHeight(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if height > current {
		err := domain.NewValidationError("requested block %d not yet available, current height is %d", height, current)
		span.RecordError(err)
		return nil, err
	}

	raw, err := c.http.Request(ctx, http.MethodGet, fmt.Sprintf("%s/api/v1/blocks/%d", c.cfg.MirrorURL, height), nil, c.cfg.Headers)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, domain.NewNotFoundError("no block found at height %d", height)
		}
		span.RecordError(err)
		return nil, err
	}

	var detail mirrorBlockDetail
	if err := decodeJSON(raw, &detail); err != nil {
		span.RecordError(err)
		return nil, err
	}

	block := &domain.Block{
		Height:    detail.Number,
		Timestamp: parseConsensusTime(detail.Timestamp.From),
		Raw:       raw,
	}
	// The mirror block endpoint does not list transfer participants; mapped
	// transactions keep whatever the provider included and may have empty
	// from/to lists.
	for _, tx := range detail.Transactions {
		block.Transactions = append(block.Transactions, c.mapTransaction(c.cfg.Ticker, tx))
	}
	return block, nil
}

// BalanceByAddress returns the balance for ticker plus the native total, both
// as decimal strings of atomic units.
func (c *Client) BalanceByAddress(ctx context.Context, ticker, address string) (*domain.Balance, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "hbarnode.BalanceByAddress")
	defer span.End()
	span.SetAttributes(attribute.String("provider", c.cfg.Name), attribute.String("ticker", ticker))

	target := fmt.Sprintf("%s/api/v1/balances?account.id=%s", c.cfg.MirrorURL, url.QueryEscape(address))
	raw, err := c.http.Request(ctx, http.MethodGet, target, nil, c.cfg.Headers)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, domain.NewNotFoundError("no balance found for address %s", address)
		}
		span.RecordError(err)
		return nil, err
	}

	var response mirrorBalancesResponse
	if err := decodeJSON(raw, &response); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(response.Balances) == 0 {
		return nil, domain.NewNotFoundError("no balance found for address %s", address)
	}

	entry := response.Balances[0]
	balance := &domain.Balance{
		Ticker:       ticker,
		Address:      address,
		TotalBalance: strconv.FormatInt(entry.Balance, 10),
	}
	if strings.EqualFold(ticker, c.cfg.Ticker) {
		balance.Balance = balance.TotalBalance
		return balance, nil
	}
	balance.Balance = "0"
	for _, token := range entry.Tokens {
		if token.TokenID == ticker {
			balance.Balance = strconv.FormatInt(token.Balance, 10)
			break
		}
	}
	return balance, nil
}

// TxByHash fetches one transaction by identifier and splits its transfer list
// into debits (from) and credits (to).
func (c *Client) TxByHash(ctx context.Context, ticker, hash string) (*domain.Transaction, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "hbarnode.TxByHash")
	defer span.End()
	span.SetAttributes(attribute.String("provider", c.cfg.Name), attribute.String("hash", hash))

	target := fmt.Sprintf("%s/api/v1/transactions/%s", c.cfg.MirrorURL, url.PathEscape(hash))
	raw, err := c.http.Request(ctx, http.MethodGet, target, nil, c.cfg.Headers)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, domain.NewNotFoundError("no transaction found for hash %s", hash)
		}
		span.RecordError(err)
		return nil, err
	}

	var response mirrorTransactionsResponse
	if err := decodeJSON(raw, &response); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(response.Transactions) == 0 {
		return nil, domain.NewNotFoundError("no transaction found for hash %s", hash)
	}

	mapped := c.mapTransaction(ticker, response.Transactions[0])
	return &mapped, nil
}

// TxBroadcast submits signed bytes to the provider's node endpoint. The
// payload is accepted as hex or base64, detected by format. Failures come
// back inside the result so callers can tell "not submitted" apart from
// "submitted but unknown" without exception flow.
func (c *Client) TxBroadcast(ctx context.Context, ticker, signedData string) domain.BroadcastResult {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "hbarnode.TxBroadcast")
	defer span.End()
	span.SetAttributes(attribute.String("provider", c.cfg.Name), attribute.String("ticker", ticker))

	payload, err := decodeSignedData(signedData)
	if err != nil {
		span.RecordError(err)
		return domain.BroadcastResult{Error: err.Error()}
	}

	body := map[string]string{"signedTransaction": base64.StdEncoding.EncodeToString(payload)}
	raw, err := c.http.Request(ctx, http.MethodPost, c.nodeURL()+"/api/v1/transactions", body, c.cfg.Headers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "broadcast failed")
		return domain.BroadcastResult{Error: err.Error()}
	}

	var response struct {
		TransactionID string `json:"transaction_id"`
		Hash          string `json:"hash"`
	}
	if err := decodeJSON(raw, &response); err != nil {
		span.RecordError(err)
		return domain.BroadcastResult{Error: err.Error()}
	}
	hash := response.TransactionID
	if hash == "" {
		hash = response.Hash
	}
	if hash == "" {
		return domain.BroadcastResult{Error: "broadcast response carried no transaction identifier"}
	}
	return domain.BroadcastResult{Hash: hash}
}

// CreateAccount registers a new account for the given public key through the
// node endpoint and returns the assigned account identifier. Account-model
// networks require this on-chain registration before an address exists.
func (c *Client) CreateAccount(ctx context.Context, publicKey string) (string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "hbarnode.CreateAccount")
	defer span.End()
	span.SetAttributes(attribute.String("provider", c.cfg.Name))

	body := map[string]string{"key": publicKey}
	raw, err := c.http.Request(ctx, http.MethodPost, c.nodeURL()+"/api/v1/accounts", body, c.cfg.Headers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "account creation failed")
		return "", err
	}

	var response struct {
		Account  string `json:"account"`
		EntityID string `json:"entity_id"`
	}
	if err := decodeJSON(raw, &response); err != nil {
		span.RecordError(err)
		return "", err
	}
	account := response.Account
	if account == "" {
		account = response.EntityID
	}
	if account == "" {
		return "", domain.NewNetworkError(nil, "account creation response carried no account identifier")
	}
	return account, nil
}

// nodeURL is the submission endpoint: the RPC/node URL when configured, else
// the mirror URL.
func (c *Client) nodeURL() string {
	if c.cfg.RPCURL != "" {
		return c.cfg.RPCURL
	}
	return c.cfg.MirrorURL
}

func decodeSignedData(signedData string) ([]byte, error) {
	trimmed := strings.TrimSpace(signedData)
	if trimmed == "" {
		return nil, errors.New("signed transaction data is empty")
	}
	clean := strings.TrimPrefix(trimmed, "0x")
	if payload, err := hex.DecodeString(clean); err == nil {
		return payload, nil
	}
	if payload, err := base64.StdEncoding.DecodeString(trimmed); err == nil {
		return payload, nil
	}
	return nil, errors.New("signed transaction data is neither hex nor base64")
}

func isStatus(err error, status int) bool {
	var netErr *domain.NetworkError
	return errors.As(err, &netErr) && netErr.StatusCode == status
}
