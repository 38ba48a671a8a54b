package hbar

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"coinsvc/internal/coin"
	"coinsvc/internal/domain"
	"coinsvc/internal/infrastructure/eventlog"
)

// transferEntry is one atomic-unit movement inside the native transaction
// body. Debits are negative, credits positive.
type transferEntry struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

// transactionBody is the network-native transfer transaction. Freezing fills
// the identifier and fee-payer context; from then on only signing remains.
// The canonical serialization is its JSON encoding.
type transactionBody struct {
	TransactionID string          `json:"transactionId"`
	Operator      string          `json:"operator"`
	NodeAccount   string          `json:"nodeAccount"`
	MaxFee        int64           `json:"maxFee"`
	Memo          string          `json:"memo,omitempty"`
	Transfers     []transferEntry `json:"transfers"`
}

// signedEnvelope carries the frozen body bytes together with one ed25519
// signature pair. Stripping the signature recovers the unsigned bytes.
type signedEnvelope struct {
	Body      string `json:"body"`
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
}

// TxBuild normalizes params, converts leg values to atomic units, constructs
// the native transfer and freezes it against the operator context. The
// returned params carry the normalized legs and the hex-serialized frozen
// transaction.
func (s *Service) TxBuild(ctx context.Context, ticker string, params domain.TransactionParams) (domain.TransactionParams, error) {
	if ticker == "" {
		ticker = s.cfg.Ticker
	}
	if len(params.From) == 0 {
		return params, s.buildFailed(ctx, ticker, domain.NewValidationError("transaction build requires a non-empty from list"))
	}
	if len(params.To) == 0 {
		return params, s.buildFailed(ctx, ticker, domain.NewValidationError("transaction build requires a non-empty to list"))
	}
	s.events.Record(ctx, eventlog.LevelInfo, "tx build started", map[string]any{
		"ticker":    ticker,
		"senders":   len(params.From),
		"receivers": len(params.To),
	})

	// Freezing binds the fee payer, so the operator context must exist
	// before build is callable.
	if s.cfg.OperatorID == "" {
		return params, s.buildFailed(ctx, ticker, domain.NewConfigurationError("operator client is not configured; cannot freeze transaction"))
	}

	transfers := make([]transferEntry, 0, len(params.From)+len(params.To))
	for _, leg := range params.From {
		atomic, err := s.toAtomic(leg.Value)
		if err != nil {
			return params, s.buildFailed(ctx, ticker, domain.NewValidationError("invalid debit amount for address %s", leg.Address))
		}
		transfers = append(transfers, transferEntry{Account: leg.Address, Amount: -atomic})
	}
	for _, leg := range params.To {
		atomic, err := s.toAtomic(leg.Value)
		if err != nil {
			return params, s.buildFailed(ctx, ticker, domain.NewValidationError("invalid credit amount for address %s", leg.Address))
		}
		transfers = append(transfers, transferEntry{Account: leg.Address, Amount: atomic})
	}

	body := transactionBody{
		TransactionID: newTransactionID(s.cfg.OperatorID, time.Now()),
		Operator:      s.cfg.OperatorID,
		NodeAccount:   s.cfg.NodeAccount,
		MaxFee:        s.feeCeiling(params.Fee),
		Transfers:     transfers,
	}
	serialized, err := json.Marshal(body)
	if err != nil {
		return params, s.buildFailed(ctx, ticker, fmt.Errorf("serialize transaction: %w", err))
	}

	params.UnsignedTx = hex.EncodeToString(serialized)
	s.events.Record(ctx, eventlog.LevelInfo, "tx built", map[string]any{
		"ticker":        ticker,
		"transactionId": body.TransactionID,
		"transfers":     len(transfers),
	})
	s.emit(ctx, coin.TxEventBuilt, ticker, body.TransactionID, "")
	return params, nil
}

func (s *Service) buildFailed(ctx context.Context, ticker string, err error) error {
	s.events.Record(ctx, eventlog.LevelError, "tx build failed", map[string]any{
		"ticker": ticker,
		"reason": err.Error(),
	})
	return err
}

// TxSign signs a previously frozen transaction. The signer is the first from
// entry; its private key must be present in the supplied key map.
func (s *Service) TxSign(ctx context.Context, ticker string, privateKeys map[string]string, params domain.TransactionParams) (domain.SignedTransaction, error) {
	if ticker == "" {
		ticker = s.cfg.Ticker
	}
	signed, err := s.sign(privateKeys, params)
	if err != nil {
		signer := ""
		if len(params.From) > 0 {
			signer = params.From[0].Address
		}
		s.events.Record(ctx, eventlog.LevelError, "tx sign failed", map[string]any{
			"ticker": ticker,
			"signer": signer,
			"reason": err.Error(),
		})
		return domain.SignedTransaction{}, err
	}

	s.events.Record(ctx, eventlog.LevelInfo, "tx signed", map[string]any{
		"ticker": ticker,
		"signer": params.From[0].Address,
		"txHash": signed.TxHash,
	})
	s.emit(ctx, coin.TxEventSigned, ticker, signed.TxHash, params.From[0].Address)
	return signed, nil
}

func (s *Service) sign(privateKeys map[string]string, params domain.TransactionParams) (domain.SignedTransaction, error) {
	if strings.TrimSpace(params.UnsignedTx) == "" {
		return domain.SignedTransaction{}, domain.NewValidationError("missing unsigned transaction data")
	}
	if len(params.From) == 0 {
		return domain.SignedTransaction{}, domain.NewValidationError("transaction has no sender to sign for")
	}
	signer := params.From[0].Address
	encodedKey, ok := privateKeys[signer]
	if !ok || encodedKey == "" {
		return domain.SignedTransaction{}, domain.NewValidationError("missing private key for signer %s", signer)
	}

	bodyBytes, err := hex.DecodeString(params.UnsignedTx)
	if err != nil {
		return domain.SignedTransaction{}, domain.NewValidationError("malformed unsigned transaction data")
	}
	var body transactionBody
	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		return domain.SignedTransaction{}, domain.NewValidationError("malformed unsigned transaction data")
	}

	private, err := ParsePrivateKey(encodedKey)
	if err != nil {
		return domain.SignedTransaction{}, domain.NewValidationError("invalid private key for signer %s", signer)
	}

	signature := ed25519.Sign(private, bodyBytes)
	envelope := signedEnvelope{
		Body:      params.UnsignedTx,
		PublicKey: hex.EncodeToString(private[ed25519.SeedSize:]),
		Signature: hex.EncodeToString(signature),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return domain.SignedTransaction{}, fmt.Errorf("serialize signed transaction: %w", err)
	}

	return domain.SignedTransaction{
		SignedData: hex.EncodeToString(payload),
		TxHash:     body.TransactionID,
	}, nil
}

// toAtomic converts a human-unit decimal string to atomic units, rounding to
// the nearest integer. Zero, negative, unparseable and overflowing amounts
// are rejected.
func (s *Service) toAtomic(value string) (int64, error) {
	if strings.TrimSpace(value) == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not a number", value)
	}
	atomic := parsed.Mul(s.cfg.AtomicFactor).Round(0)
	if atomic.Sign() <= 0 {
		return 0, fmt.Errorf("amount %q is not positive in atomic units", value)
	}
	if atomic.Cmp(decimal.NewFromInt(math.MaxInt64)) > 0 {
		return 0, fmt.Errorf("amount %q overflows atomic units", value)
	}
	return atomic.IntPart(), nil
}

// feeCeiling converts the caller's fee spec, when present, to atomic units.
func (s *Service) feeCeiling(fee *domain.FeeSpec) int64 {
	if fee == nil || fee.NetworkFee <= 0 {
		return s.cfg.MaxFee
	}
	atomic := decimal.NewFromFloat(fee.NetworkFee).Mul(s.cfg.AtomicFactor).Round(0)
	if atomic.Sign() <= 0 || atomic.Cmp(decimal.NewFromInt(math.MaxInt64)) > 0 {
		return s.cfg.MaxFee
	}
	return atomic.IntPart()
}

// newTransactionID formats the payer-scoped identifier the mirror indexes
// transactions under.
func newTransactionID(operator string, at time.Time) string {
	return fmt.Sprintf("%s-%d-%09d", operator, at.Unix(), at.Nanosecond())
}
