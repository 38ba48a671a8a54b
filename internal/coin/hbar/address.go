package hbar

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"

	"coinsvc/internal/domain"
	"coinsvc/internal/infrastructure/eventlog"
)

// AddressCreate generates a fresh ed25519 key pair and registers an account
// on chain through the selected adapter. This is the one operation that
// performs a paid network transaction: account-model networks have no
// address until the registration exists.
//
// The (nil, false, nil) return means the operation was skipped because the
// operator holds no balance. That is a recognized outcome, not a failure.
func (s *Service) AddressCreate(ctx context.Context, ticker string) (*domain.AddressKeyMaterial, bool, error) {
	if ticker == "" {
		ticker = s.cfg.Ticker
	}
	if s.cfg.OperatorID == "" || s.cfg.OperatorKey == "" {
		err := domain.NewConfigurationError("operator account and operator key are required for address creation")
		s.events.Record(ctx, eventlog.LevelError, "address creation failed", map[string]any{
			"ticker": ticker,
			"reason": err.Error(),
		})
		return nil, false, err
	}
	adapter, ok := s.Node()
	if !ok {
		err := domain.NewConfigurationError("no nodes initialized for %s", ticker)
		s.events.Record(ctx, eventlog.LevelError, "address creation failed", map[string]any{
			"ticker": ticker,
			"reason": err.Error(),
		})
		return nil, false, err
	}
	creator, ok := adapter.(AccountCreator)
	if !ok {
		err := domain.NewConfigurationError("selected provider does not support account creation")
		s.events.Record(ctx, eventlog.LevelError, "address creation failed", map[string]any{
			"ticker": ticker,
			"reason": err.Error(),
		})
		return nil, false, err
	}

	balance, err := adapter.BalanceByAddress(ctx, s.cfg.Ticker, s.cfg.OperatorID)
	if err != nil {
		s.events.Record(ctx, eventlog.LevelError, "address creation failed", map[string]any{
			"ticker": ticker,
			"reason": err.Error(),
		})
		return nil, false, err
	}
	total, err := decimal.NewFromString(balance.TotalBalance)
	if err != nil || total.Sign() <= 0 {
		s.events.Record(ctx, eventlog.LevelWarn, "address creation skipped", map[string]any{
			"ticker":   ticker,
			"operator": s.cfg.OperatorID,
			"reason":   "operator balance is zero",
		})
		return nil, false, nil
	}

	pair, err := s.generateKeys()
	if err != nil {
		wrapped := fmt.Errorf("generate key pair: %w", err)
		s.events.Record(ctx, eventlog.LevelError, "address creation failed", map[string]any{
			"ticker": ticker,
			"reason": wrapped.Error(),
		})
		return nil, false, wrapped
	}

	publicKey := hex.EncodeToString(pair.PublicKeyRaw)
	account, err := creator.CreateAccount(ctx, publicKey)
	if err != nil {
		s.events.Record(ctx, eventlog.LevelError, "address creation failed", map[string]any{
			"ticker":    ticker,
			"publicKey": publicKey,
			"reason":    err.Error(),
		})
		return nil, false, err
	}

	s.events.Record(ctx, eventlog.LevelInfo, "address created", map[string]any{
		"ticker":    ticker,
		"address":   account,
		"publicKey": publicKey,
	})
	return &domain.AddressKeyMaterial{
		Address:    account,
		PrivateKey: hex.EncodeToString(pair.PrivateKeyRaw),
		PublicKey:  publicKey,
		Mnemonic:   pair.Mnemonic,
	}, true, nil
}

// AddressValidate runs the fixed check sequence over an address/key triple.
// It is a total function: every outcome is (true, "") or (false, reason),
// never an error, and exactly one event is recorded per call. Key material
// itself stays out of the event fields.
func (s *Service) AddressValidate(ctx context.Context, ticker, address, privateKey, publicKey string) (bool, string) {
	if ticker == "" {
		ticker = s.cfg.Ticker
	}
	reason := validateTriple(address, privateKey, publicKey)
	if reason != "" {
		s.events.Record(ctx, eventlog.LevelError, "address validation failed", map[string]any{
			"ticker":  ticker,
			"address": address,
			"reason":  reason,
		})
		return false, reason
	}
	s.events.Record(ctx, eventlog.LevelInfo, "address validated", map[string]any{
		"ticker":  ticker,
		"address": address,
	})
	return true, ""
}

// validateTriple returns the first failing check's reason, or "".
func validateTriple(address, privateKey, publicKey string) string {
	if address == "" {
		return "address missing"
	}
	if _, _, _, err := ParseAddress(address); err != nil {
		return "invalid address format"
	}
	if privateKey == "" {
		return "private key missing"
	}
	private, err := ParsePrivateKey(privateKey)
	if err != nil {
		return "invalid private key format"
	}
	if publicKey == "" {
		return "public key missing"
	}
	public, err := ParsePublicKey(publicKey)
	if err != nil {
		return "invalid public key format"
	}
	if subtle.ConstantTimeCompare(private[32:], public) != 1 {
		return "public key does not match private key"
	}
	return ""
}
