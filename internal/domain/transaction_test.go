package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestLegList_UnmarshalSingle(t *testing.T) {
	var params TransactionParams
	payload := `{"from":{"address":"0.0.1001","value":"2.5"},"to":[{"address":"0.0.1002","value":"2.5"}],"unsignedTx":""}`
	if err := json.Unmarshal([]byte(payload), &params); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(params.From) != 1 {
		t.Fatalf("expected 1 from leg, got %d", len(params.From))
	}
	if params.From[0].Address != "0.0.1001" || params.From[0].Value != "2.5" {
		t.Errorf("unexpected from leg: %+v", params.From[0])
	}
	if len(params.To) != 1 || params.To[0].Address != "0.0.1002" {
		t.Errorf("unexpected to legs: %+v", params.To)
	}
}

func TestLegList_UnmarshalArrayKeepsOrder(t *testing.T) {
	var legs LegList
	payload := `[{"address":"a","value":"1"},{"address":"b","value":"2"},{"address":"c","value":"3"}]`
	if err := json.Unmarshal([]byte(payload), &legs); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(legs) != len(want) {
		t.Fatalf("expected %d legs, got %d", len(want), len(legs))
	}
	for i, addr := range want {
		if legs[i].Address != addr {
			t.Errorf("leg %d: expected %s, got %s", i, addr, legs[i].Address)
		}
	}
}

func TestLegList_UnmarshalNull(t *testing.T) {
	var legs LegList
	if err := json.Unmarshal([]byte(`null`), &legs); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if legs != nil {
		t.Errorf("expected nil legs, got %+v", legs)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	var validation *ValidationError
	err := error(NewValidationError("invalid debit amount for address %s", "0.0.7"))
	if !errors.As(err, &validation) {
		t.Fatal("expected ValidationError match")
	}
	if err.Error() != "invalid debit amount for address 0.0.7" {
		t.Errorf("unexpected message: %s", err.Error())
	}

	cause := errors.New("connection refused")
	netErr := error(NewNetworkError(cause, "Request failed [GET http://node]: %s", cause.Error()))
	if !errors.Is(netErr, cause) {
		t.Error("expected wrapped cause to match")
	}

	var notFound *NotFoundError
	if errors.As(netErr, &notFound) {
		t.Error("network error must not match NotFoundError")
	}

	rpcErr := NewRPCError(-32601, "rpc error -32601: method not found")
	if rpcErr.Code != -32601 {
		t.Errorf("unexpected rpc code: %d", rpcErr.Code)
	}
}
