package coin

import (
	"context"
	"time"
)

// Transaction lifecycle event types.
const (
	TxEventBuilt     = "built"
	TxEventSigned    = "signed"
	TxEventBroadcast = "broadcast"
)

// TxEvent marks one transition in a transaction's lifecycle.
type TxEvent struct {
	Type   string    `json:"type"`
	Ticker string    `json:"ticker"`
	TxHash string    `json:"tx_hash,omitempty"`
	Signer string    `json:"signer,omitempty"`
	At     time.Time `json:"at"`
}

// TxEventSink receives lifecycle events. Publishing is fire and forget from
// the service's point of view: sink failures never fail an operation.
type TxEventSink interface {
	Publish(ctx context.Context, event TxEvent) error
}
