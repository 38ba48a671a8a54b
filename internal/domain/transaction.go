package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// TxStatus is the normalized three-valued transaction status.
type TxStatus string

const (
	TxStatusFinished TxStatus = "finished"
	TxStatusFailed   TxStatus = "failed"
	TxStatusUnknown  TxStatus = "unknown"
)

// TransferLeg is one sender or receiver entry in a transfer list. Value is a
// decimal string in the network's human-readable unit, not the atomic unit.
type TransferLeg struct {
	Address string `json:"address"`
	ExtraID string `json:"extraId,omitempty"`
	Value   string `json:"value"`
}

// LegList is an ordered list of transfer legs. It unmarshals from either a
// single leg object or an array of legs, so callers may pass both forms;
// after decoding the list form is canonical.
type LegList []TransferLeg

func (l *LegList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var legs []TransferLeg
		if err := json.Unmarshal(trimmed, &legs); err != nil {
			return err
		}
		*l = legs
		return nil
	}
	if string(trimmed) == "null" {
		*l = nil
		return nil
	}
	var leg TransferLeg
	if err := json.Unmarshal(trimmed, &leg); err != nil {
		return err
	}
	*l = LegList{leg}
	return nil
}

// FeeSpec is an opaque fee bag passed through build and sign unmodified.
type FeeSpec struct {
	NetworkFee float64        `json:"networkFee"`
	Properties map[string]any `json:"properties,omitempty"`
}

// UtxoRef identifies one unspent output. Unused by account-model networks but
// part of the shared contract so UTXO networks can plug in.
type UtxoRef struct {
	TxID  string `json:"txid"`
	VOut  uint32 `json:"vout"`
	Value string `json:"value,omitempty"`
}

// TransactionParams carries a transaction through build and sign. UnsignedTx
// is empty before build, holds the hex-serialized frozen transaction after
// build, and is consumed by signing.
type TransactionParams struct {
	From       LegList              `json:"from"`
	To         LegList              `json:"to"`
	Fee        *FeeSpec             `json:"fee,omitempty"`
	Spent      map[string][]UtxoRef `json:"spent,omitempty"`
	Utxo       map[string][]UtxoRef `json:"utxo,omitempty"`
	UnsignedTx string               `json:"unsignedTx"`
}

// SignedTransaction is the terminal signing artifact handed to broadcast.
type SignedTransaction struct {
	SignedData string `json:"signedData"`
	TxHash     string `json:"txHash,omitempty"`
}

// AddressKeyMaterial is produced once by address creation and immutable after.
// PrivateKey and Mnemonic must never appear in logs.
type AddressKeyMaterial struct {
	Address         string `json:"address"`
	PrivateKey      string `json:"privateKey"`
	PublicKey       string `json:"publicKey"`
	InternalAddress string `json:"internalAddress,omitempty"`
	Mnemonic        string `json:"mnemonic,omitempty"`
}

// Transaction is a normalized transaction query result. From and To may be
// empty when the provider's block endpoint omits transfer participants.
type Transaction struct {
	Hash     string        `json:"hash"`
	Ticker   string        `json:"ticker"`
	From     []TransferLeg `json:"from"`
	To       []TransferLeg `json:"to"`
	Status   TxStatus      `json:"status"`
	Height   uint64        `json:"height,omitempty"`
	EntityID string        `json:"entityId,omitempty"`
}

// Block is a normalized block query result. Raw retains the unmodified
// provider payload for forward compatibility.
type Block struct {
	Height       uint64          `json:"height"`
	Timestamp    time.Time       `json:"timestamp"`
	Transactions []Transaction   `json:"transactions"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

// Balance splits the amount for one ticker from the native-asset total.
// Amounts are decimal strings; floating point never crosses this boundary.
type Balance struct {
	Ticker       string `json:"ticker"`
	Address      string `json:"address"`
	Balance      string `json:"balance"`
	TotalBalance string `json:"totalBalance"`
}

// BroadcastResult is a typed submission outcome. Broadcast failures are
// reported here, never as a returned error, so callers can tell "not
// submitted" from "submitted but status unknown" without exception flow.
type BroadcastResult struct {
	Hash  string `json:"hash,omitempty"`
	Error string `json:"error,omitempty"`
}
