package hbarnode

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"coinsvc/internal/domain"
)

// Mirror REST payload shapes. Raw payloads are retained on blocks, so only
// the fields the shared model needs are declared here.

type mirrorBlock struct {
	Number    uint64 `json:"number"`
	Hash      string `json:"hash"`
	Timestamp struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"timestamp"`
}

type mirrorBlocksResponse struct {
	Blocks []mirrorBlock `json:"blocks"`
}

type mirrorBlockDetail struct {
	mirrorBlock
	Transactions []mirrorTransaction `json:"transactions"`
}

type mirrorTransactionsResponse struct {
	Transactions []mirrorTransaction `json:"transactions"`
}

type mirrorTransaction struct {
	TransactionID      string                `json:"transaction_id"`
	Result             string                `json:"result"`
	EntityID           string                `json:"entity_id"`
	ConsensusTimestamp string                `json:"consensus_timestamp"`
	Transfers          []mirrorTransfer      `json:"transfers"`
	TokenTransfers     []mirrorTokenTransfer `json:"token_transfers"`
}

type mirrorTransfer struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

type mirrorTokenTransfer struct {
	TokenID string `json:"token_id"`
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

type mirrorBalancesResponse struct {
	Balances []struct {
		Account string `json:"account"`
		Balance int64  `json:"balance"`
		Tokens  []struct {
			TokenID string `json:"token_id"`
			Balance int64  `json:"balance"`
		} `json:"tokens"`
	} `json:"balances"`
}

// mapTransaction normalizes one provider transaction: debits become from
// legs, credits become to legs, and the provider result code collapses to the
// three-valued status.
func (c *Client) mapTransaction(ticker string, tx mirrorTransaction) domain.Transaction {
	mapped := domain.Transaction{
		Hash:     tx.TransactionID,
		Ticker:   ticker,
		Status:   mapResult(tx.Result),
		EntityID: tx.EntityID,
	}
	for _, transfer := range tx.Transfers {
		leg := domain.TransferLeg{
			Address: transfer.Account,
			Value:   c.toHumanAmount(transfer.Amount),
		}
		if transfer.Amount < 0 {
			mapped.From = append(mapped.From, leg)
		} else {
			mapped.To = append(mapped.To, leg)
		}
	}
	for _, transfer := range tx.TokenTransfers {
		if transfer.TokenID != ticker {
			continue
		}
		leg := domain.TransferLeg{
			Address: transfer.Account,
			Value:   c.toHumanAmount(transfer.Amount),
		}
		if transfer.Amount < 0 {
			mapped.From = append(mapped.From, leg)
		} else {
			mapped.To = append(mapped.To, leg)
		}
	}
	return mapped
}

func mapResult(result string) domain.TxStatus {
	switch strings.ToUpper(result) {
	case "SUCCESS":
		return domain.TxStatusFinished
	case "PENDING":
		return domain.TxStatusUnknown
	default:
		return domain.TxStatusFailed
	}
}

// toHumanAmount converts an atomic amount to the human-readable unit. The
// sign is dropped: direction lives in the from/to split.
func (c *Client) toHumanAmount(atomic int64) string {
	if atomic < 0 {
		atomic = -atomic
	}
	return decimal.NewFromInt(atomic).Div(c.cfg.AtomicFactor).String()
}

// parseConsensusTime parses the mirror's "seconds.nanoseconds" timestamps.
func parseConsensusTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parts := strings.SplitN(value, ".", 2)
	seconds, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}
	}
	var nanos int64
	if len(parts) == 2 {
		padded := parts[1]
		for len(padded) < 9 {
			padded += "0"
		}
		if parsed, err := strconv.ParseInt(padded[:9], 10, 64); err == nil {
			nanos = parsed
		}
	}
	return time.Unix(seconds, nanos).UTC()
}

func decodeJSON(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.NewNetworkError(err, "decode provider response: %v", err)
	}
	return nil
}
