// Package coin defines the polymorphic contracts every supported network
// implements: a coin service for the address and transaction lifecycle, and a
// node adapter for chain queries against one configured provider.
package coin

import (
	"context"

	"coinsvc/internal/domain"
)

// NodeOptions configures one provider entry. Provider order is significant:
// InitNodes builds adapters in slice order and the service delegates to the
// first one.
type NodeOptions struct {
	// Name is a display label only; it is not used for lookups.
	Name string
	// RPCURL is the JSON-RPC endpoint. Optional; providers without RPC serve
	// chain-head queries from the mirror endpoint instead.
	RPCURL string
	// MirrorURL is the read-optimized indexer endpoint.
	MirrorURL string
	// Headers are attached to every request. May be empty.
	Headers map[string]string
	// ConfirmationLimit is carried for callers that poll for confirmations.
	// No adapter method consults it.
	ConfirmationLimit uint64
}

// NodeAdapter translates abstract chain queries into transport calls against
// one provider. Adapters are stateless request executors; they hold only
// connection configuration.
type NodeAdapter interface {
	// GetHeight returns the current chain height.
	GetHeight(ctx context.Context) (uint64, error)

	// GetBlock fetches one block. It checks the current height first and
	// fails fast when the requested block is not yet available. Transfer
	// participants may be empty when the provider's block endpoint omits
	// them.
	GetBlock(ctx context.Context, height uint64) (*domain.Block, error)

	// BalanceByAddress returns the balance for ticker (native asset or
	// ticker-as-token-id) together with the native-asset total.
	BalanceByAddress(ctx context.Context, ticker, address string) (*domain.Balance, error)

	// TxByHash fetches one transaction by identifier.
	TxByHash(ctx context.Context, ticker, hash string) (*domain.Transaction, error)

	// TxBroadcast submits signed transaction bytes, accepted as hex or
	// base64. Failures come back inside the result, never as an error.
	TxBroadcast(ctx context.Context, ticker, signedData string) domain.BroadcastResult
}

// Service orchestrates address and transaction operations for one network and
// delegates all network I/O to its adapter list.
type Service interface {
	// InitNodes replaces the entire adapter list, one adapter per entry in
	// order. There is no incremental add.
	InitNodes(opts []NodeOptions) error

	// Node returns the currently selected adapter (the first one) when the
	// list is non-empty.
	Node() (NodeAdapter, bool)

	// AddressCreate generates a key pair and registers an account on chain.
	// The (nil, false, nil) return means the operation was deliberately
	// skipped because the operator balance is zero; that outcome is not an
	// error.
	AddressCreate(ctx context.Context, ticker string) (*domain.AddressKeyMaterial, bool, error)

	// AddressValidate checks an address/key triple. It never fails with an
	// error: the outcome is (true, "") or (false, reason) where reason names
	// the first failing check.
	AddressValidate(ctx context.Context, ticker, address, privateKey, publicKey string) (bool, string)

	// TxBuild normalizes and validates params, constructs and freezes a
	// network-native transfer, and returns params with UnsignedTx populated.
	TxBuild(ctx context.Context, ticker string, params domain.TransactionParams) (domain.TransactionParams, error)

	// TxSign signs a previously frozen UnsignedTx with the key of the first
	// sender, taken from the address-to-key map.
	TxSign(ctx context.Context, ticker string, privateKeys map[string]string, params domain.TransactionParams) (domain.SignedTransaction, error)

	// Ticker returns the native asset ticker the service was built for.
	Ticker() string
}
