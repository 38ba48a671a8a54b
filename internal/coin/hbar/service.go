// Package hbar implements the coin service for a Hedera-style account-model
// network: ed25519 keys, shard.realm.num addresses, tinybar atomic units and
// an on-chain account registration step for new addresses.
package hbar

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"coinsvc/internal/coin"
	"coinsvc/internal/infrastructure/eventlog"
	"coinsvc/internal/keygen"
)

const defaultTicker = "HBAR"

// DefaultAtomicFactor converts HBAR to tinybars.
var DefaultAtomicFactor = decimal.NewFromInt(100_000_000)

type Config struct {
	// OperatorID and OperatorKey identify the fee-payer account. Required
	// for any operation that submits a network transaction.
	OperatorID  string
	OperatorKey string
	// Ticker is the native asset ticker. Defaults to HBAR.
	Ticker string
	// AtomicFactor converts human units to atomic units. Defaults to 1e8.
	AtomicFactor decimal.Decimal
	// NodeAccount is the consensus node the frozen transaction targets.
	NodeAccount string
	// MaxFee is the fee ceiling in atomic units when params carry no fee.
	MaxFee int64
}

// AdapterFactory builds one node adapter per provider entry.
type AdapterFactory func(opts coin.NodeOptions) (coin.NodeAdapter, error)

// AccountCreator is the adapter capability address creation needs. It is an
// extension of the base adapter contract because only account-model networks
// register addresses on chain.
type AccountCreator interface {
	CreateAccount(ctx context.Context, publicKey string) (string, error)
}

// Service is the HBAR coin service. It owns its adapter list: InitNodes
// replaces it wholesale and nothing else mutates it.
type Service struct {
	cfg        Config
	events     eventlog.Recorder
	sink       coin.TxEventSink
	newAdapter AdapterFactory

	// generateKeys is the key-byte-generation collaborator.
	generateKeys func() (*keygen.KeyPair, error)

	mu     sync.RWMutex
	nodes  []coin.NodeAdapter
	labels []string
}

func NewService(cfg Config, events eventlog.Recorder, sink coin.TxEventSink, factory AdapterFactory) (*Service, error) {
	if factory == nil {
		return nil, errors.New("adapter factory is required")
	}
	if cfg.Ticker == "" {
		cfg.Ticker = defaultTicker
	}
	if cfg.AtomicFactor.IsZero() {
		cfg.AtomicFactor = DefaultAtomicFactor
	}
	if cfg.NodeAccount == "" {
		cfg.NodeAccount = "0.0.3"
	}
	if cfg.MaxFee <= 0 {
		cfg.MaxFee = 100_000_000
	}
	if events == nil {
		events = eventlog.Nop{}
	}
	return &Service{
		cfg:          cfg,
		events:       events,
		sink:         sink,
		newAdapter:   factory,
		generateKeys: keygen.Generate,
	}, nil
}

func (s *Service) Ticker() string { return s.cfg.Ticker }

// InitNodes builds one adapter per entry in order and replaces the whole
// adapter list. Entries without headers are fine.
func (s *Service) InitNodes(opts []coin.NodeOptions) error {
	nodes := make([]coin.NodeAdapter, 0, len(opts))
	labels := make([]string, 0, len(opts))
	for _, opt := range opts {
		adapter, err := s.newAdapter(opt)
		if err != nil {
			return err
		}
		nodes = append(nodes, adapter)
		labels = append(labels, opt.Name)
	}

	s.mu.Lock()
	s.nodes = nodes
	s.labels = labels
	s.mu.Unlock()

	slog.Info("nodes initialized", "ticker", s.cfg.Ticker, "providers", labels)
	return nil
}

// Node returns the currently selected adapter: the first configured one.
func (s *Service) Node() (coin.NodeAdapter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.nodes) == 0 {
		return nil, false
	}
	return s.nodes[0], true
}

// emit hands a lifecycle event to the sink without letting a sink failure
// reach the operation.
func (s *Service) emit(ctx context.Context, eventType, ticker, txHash, signer string) {
	if s.sink == nil {
		return
	}
	event := coin.TxEvent{
		Type:   eventType,
		Ticker: ticker,
		TxHash: txHash,
		Signer: signer,
		At:     time.Now().UTC(),
	}
	if err := s.sink.Publish(ctx, event); err != nil {
		slog.Warn("tx event publish failed", "type", eventType, "ticker", ticker, "error", err)
	}
}
