package stream

import (
	"encoding/json"
	"errors"
	"time"
)

// Message is the wire form of a transaction lifecycle event.
type Message struct {
	Type    string    `json:"type"`
	Ticker  string    `json:"ticker"`
	TraceID string    `json:"trace_id,omitempty"`
	TxHash  string    `json:"tx_hash,omitempty"`
	Signer  string    `json:"signer,omitempty"`
	At      time.Time `json:"at"`
}

func Encode(msg Message) ([]byte, error) {
	if msg.Type == "" {
		return nil, errors.New("message type is required")
	}
	if msg.Ticker == "" {
		return nil, errors.New("ticker is required")
	}
	return json.Marshal(msg)
}

func Decode(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Type == "" {
		return Message{}, errors.New("message type is missing")
	}
	if msg.Ticker == "" {
		return Message{}, errors.New("ticker is missing")
	}
	return msg, nil
}
