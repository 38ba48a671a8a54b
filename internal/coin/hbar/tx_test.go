package hbar

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"coinsvc/internal/domain"
)

func decodeBody(t *testing.T, unsignedTx string) transactionBody {
	t.Helper()
	raw, err := hex.DecodeString(unsignedTx)
	if err != nil {
		t.Fatalf("unsigned tx is not hex: %v", err)
	}
	var body transactionBody
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unsigned tx is not a serialized body: %v", err)
	}
	return body
}

func TestTxBuild_Success(t *testing.T) {
	service, _ := newTestService(t, operatorConfig(), &mockAdapter{name: "primary"})

	params := domain.TransactionParams{
		From: domain.LegList{{Address: "0.0.1001", Value: "2.5"}},
		To:   domain.LegList{{Address: "0.0.2002", Value: "2.5"}},
	}
	built, err := service.TxBuild(context.Background(), "HBAR", params)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if built.UnsignedTx == "" {
		t.Fatal("expected frozen transaction data")
	}

	body := decodeBody(t, built.UnsignedTx)
	if body.Operator != "0.0.1001" {
		t.Errorf("operator = %s", body.Operator)
	}
	if body.NodeAccount != "0.0.3" {
		t.Errorf("node account = %s", body.NodeAccount)
	}
	if !strings.HasPrefix(body.TransactionID, "0.0.1001-") {
		t.Errorf("transaction id %q not payer scoped", body.TransactionID)
	}
	if len(body.Transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(body.Transfers))
	}
	// 2.5 HBAR at 1e8 tinybars; debit negated, credit positive.
	if body.Transfers[0].Account != "0.0.1001" || body.Transfers[0].Amount != -250_000_000 {
		t.Errorf("debit entry %+v", body.Transfers[0])
	}
	if body.Transfers[1].Account != "0.0.2002" || body.Transfers[1].Amount != 250_000_000 {
		t.Errorf("credit entry %+v", body.Transfers[1])
	}
	if body.MaxFee != 100_000_000 {
		t.Errorf("default fee ceiling = %d", body.MaxFee)
	}
}

func TestTxBuild_FeeSpecOverridesCeiling(t *testing.T) {
	service, _ := newTestService(t, operatorConfig(), &mockAdapter{name: "primary"})

	built, err := service.TxBuild(context.Background(), "HBAR", domain.TransactionParams{
		From: domain.LegList{{Address: "0.0.1001", Value: "1"}},
		To:   domain.LegList{{Address: "0.0.2002", Value: "1"}},
		Fee:  &domain.FeeSpec{NetworkFee: 0.05},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if body := decodeBody(t, built.UnsignedTx); body.MaxFee != 5_000_000 {
		t.Errorf("fee ceiling = %d, want 5000000", body.MaxFee)
	}
}

func TestTxBuild_EmptyLegs(t *testing.T) {
	service, recorder := newTestService(t, operatorConfig(), &mockAdapter{name: "primary"})

	_, err := service.TxBuild(context.Background(), "HBAR", domain.TransactionParams{
		To: domain.LegList{{Address: "0.0.2002", Value: "1"}},
	})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) || !strings.Contains(err.Error(), "from list") {
		t.Errorf("expected from-list validation error, got %v", err)
	}

	_, err = service.TxBuild(context.Background(), "HBAR", domain.TransactionParams{
		From: domain.LegList{{Address: "0.0.1001", Value: "1"}},
	})
	if !errors.As(err, &validationErr) || !strings.Contains(err.Error(), "to list") {
		t.Errorf("expected to-list validation error, got %v", err)
	}

	if event := recorder.last(t); event.message != "tx build failed" {
		t.Errorf("expected failure event, got %+v", event)
	}
}

func TestTxBuild_InvalidAmounts(t *testing.T) {
	service, _ := newTestService(t, operatorConfig(), &mockAdapter{name: "primary"})

	for _, value := range []string{"0", "-1", "abc", ""} {
		_, err := service.TxBuild(context.Background(), "HBAR", domain.TransactionParams{
			From: domain.LegList{{Address: "A", Value: value}},
			To:   domain.LegList{{Address: "B", Value: "1"}},
		})
		var validationErr *domain.ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("value %q: expected ValidationError, got %v", value, err)
			continue
		}
		if !strings.Contains(err.Error(), "debit") || !strings.Contains(err.Error(), "A") {
			t.Errorf("value %q: error %q should name the debit leg", value, err)
		}
	}
}

func TestTxBuild_MissingOperator(t *testing.T) {
	service, _ := newTestService(t, Config{}, &mockAdapter{name: "primary"})

	_, err := service.TxBuild(context.Background(), "HBAR", domain.TransactionParams{
		From: domain.LegList{{Address: "0.0.1001", Value: "1"}},
		To:   domain.LegList{{Address: "0.0.2002", Value: "1"}},
	})
	var configErr *domain.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "freeze") {
		t.Errorf("error %q should mention freezing", err)
	}
}

func TestTxSign_RequiresFrozenTransaction(t *testing.T) {
	service, recorder := newTestService(t, operatorConfig(), &mockAdapter{name: "primary"})

	_, err := service.TxSign(context.Background(), "HBAR", map[string]string{"0.0.1001": "aa"}, domain.TransactionParams{
		From: domain.LegList{{Address: "0.0.1001", Value: "1"}},
	})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) || !strings.Contains(err.Error(), "unsigned transaction") {
		t.Fatalf("expected missing-unsigned-tx error, got %v", err)
	}
	if event := recorder.last(t); event.message != "tx sign failed" {
		t.Errorf("expected failure event, got %+v", event)
	}
}

func TestTxSign_MissingAndBadKeys(t *testing.T) {
	service, _ := newTestService(t, operatorConfig(), &mockAdapter{name: "primary"})

	built, err := service.TxBuild(context.Background(), "HBAR", domain.TransactionParams{
		From: domain.LegList{{Address: "0.0.1001", Value: "1"}},
		To:   domain.LegList{{Address: "0.0.2002", Value: "1"}},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	_, err = service.TxSign(context.Background(), "HBAR", map[string]string{}, built)
	if err == nil || !strings.Contains(err.Error(), "missing private key for signer 0.0.1001") {
		t.Errorf("expected missing-key error, got %v", err)
	}

	_, err = service.TxSign(context.Background(), "HBAR", map[string]string{"0.0.1001": "zz"}, built)
	if err == nil || !strings.Contains(err.Error(), "invalid private key for signer 0.0.1001") {
		t.Errorf("expected invalid-key error, got %v", err)
	}
}

func TestTxSign_MalformedUnsignedData(t *testing.T) {
	service, _ := newTestService(t, operatorConfig(), &mockAdapter{name: "primary"})
	keys := map[string]string{"0.0.1001": hex.EncodeToString(testSeed())}

	for _, unsigned := range []string{"not-hex", hex.EncodeToString([]byte("not json"))} {
		_, err := service.TxSign(context.Background(), "HBAR", keys, domain.TransactionParams{
			From:       domain.LegList{{Address: "0.0.1001", Value: "1"}},
			UnsignedTx: unsigned,
		})
		var validationErr *domain.ValidationError
		if !errors.As(err, &validationErr) || !strings.Contains(err.Error(), "malformed") {
			t.Errorf("unsigned %q: expected malformed-data error, got %v", unsigned, err)
		}
	}
}

func TestTxBuildSignRoundTrip(t *testing.T) {
	service, _ := newTestService(t, operatorConfig(), &mockAdapter{name: "primary"})
	seed := testSeed()
	private := ed25519.NewKeyFromSeed(seed)

	built, err := service.TxBuild(context.Background(), "HBAR", domain.TransactionParams{
		From: domain.LegList{{Address: "0.0.1001", Value: "10"}},
		To:   domain.LegList{{Address: "0.0.2002", Value: "10"}},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	signed, err := service.TxSign(context.Background(), "HBAR", map[string]string{
		"0.0.1001": hex.EncodeToString(seed),
	}, built)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	payload, err := hex.DecodeString(signed.SignedData)
	if err != nil {
		t.Fatalf("signed data is not hex: %v", err)
	}
	var envelope signedEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		t.Fatalf("signed data is not an envelope: %v", err)
	}

	// Stripping the signature recovers exactly the frozen bytes.
	if envelope.Body != built.UnsignedTx {
		t.Error("envelope body does not match the unsigned transaction")
	}

	bodyBytes, _ := hex.DecodeString(envelope.Body)
	signature, err := hex.DecodeString(envelope.Signature)
	if err != nil {
		t.Fatalf("signature is not hex: %v", err)
	}
	publicKey, err := hex.DecodeString(envelope.PublicKey)
	if err != nil {
		t.Fatalf("public key is not hex: %v", err)
	}
	if !ed25519.Verify(publicKey, bodyBytes, signature) {
		t.Error("signature does not verify over the body bytes")
	}
	if !ed25519.PublicKey(publicKey).Equal(private.Public().(ed25519.PublicKey)) {
		t.Error("envelope carries a different signer key")
	}

	if body := decodeBody(t, envelope.Body); signed.TxHash != body.TransactionID {
		t.Errorf("tx hash %q is not the transaction id %q", signed.TxHash, body.TransactionID)
	}
}
