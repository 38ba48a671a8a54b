package config

import (
	"strings"
	"testing"
	"time"
)

func baseEnv() EnvMap {
	return EnvMap{
		"PROVIDERS":                 "hedera-main",
		"PROVIDER_HEDERA_MAIN_MIRROR_URL": "https://mirror.example.com",
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(baseEnv())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Ticker != "HBAR" {
		t.Errorf("ticker = %s", cfg.Ticker)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("http addr = %s", cfg.HTTPAddr)
	}
	if cfg.EventLogDSN != "coinsvc-events.db" {
		t.Errorf("event log dsn = %s", cfg.EventLogDSN)
	}
	if cfg.EventLogDisabled {
		t.Error("event log should be enabled by default")
	}
	if cfg.KafkaTopic != "coinsvc-tx-events" {
		t.Errorf("kafka topic = %s", cfg.KafkaTopic)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("request timeout = %s", cfg.RequestTimeout)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Errorf("kafka brokers should default empty, got %v", cfg.KafkaBrokers)
	}
}

func TestLoad_Providers(t *testing.T) {
	env := EnvMap{
		"PROVIDERS":                  "primary, backup",
		"PROVIDER_PRIMARY_MIRROR_URL":    "https://mirror-a.example.com",
		"PROVIDER_PRIMARY_RPC_URL":       "https://rpc-a.example.com",
		"PROVIDER_PRIMARY_HEADERS":       "X-Api-Key: secret, Accept: application/json",
		"PROVIDER_PRIMARY_CONFIRMATIONS": "12",
		"PROVIDER_BACKUP_MIRROR_URL":     "https://mirror-b.example.com",
	}
	cfg, err := Load(env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(cfg.Providers))
	}
	primary := cfg.Providers[0]
	if primary.Name != "primary" {
		t.Errorf("provider order not preserved, first is %s", primary.Name)
	}
	if primary.RPCURL != "https://rpc-a.example.com" {
		t.Errorf("rpc url = %s", primary.RPCURL)
	}
	if primary.Headers["X-Api-Key"] != "secret" || primary.Headers["Accept"] != "application/json" {
		t.Errorf("headers = %v", primary.Headers)
	}
	if primary.Confirmations != 12 {
		t.Errorf("confirmations = %d", primary.Confirmations)
	}
	if cfg.Providers[1].RPCURL != "" {
		t.Error("backup should carry no rpc url")
	}
}

func TestLoad_MissingProviders(t *testing.T) {
	_, err := Load(EnvMap{})
	if err == nil || !strings.Contains(err.Error(), "PROVIDERS") {
		t.Fatalf("expected PROVIDERS error, got %v", err)
	}
}

func TestLoad_MissingMirrorURL(t *testing.T) {
	_, err := Load(EnvMap{"PROVIDERS": "solo"})
	if err == nil || !strings.Contains(err.Error(), "PROVIDER_SOLO_MIRROR_URL") {
		t.Fatalf("expected mirror url error, got %v", err)
	}
}

func TestLoad_InvalidHeaders(t *testing.T) {
	env := baseEnv()
	env["PROVIDER_HEDERA_MAIN_HEADERS"] = "missing-separator"
	if _, err := Load(env); err == nil {
		t.Fatal("expected header parse error")
	}
}

func TestLoad_Overrides(t *testing.T) {
	env := baseEnv()
	env["OPERATOR_ID"] = "0.0.1001"
	env["OPERATOR_KEY"] = "abcd"
	env["LOG_EVENTS_DISABLED"] = "true"
	env["KAFKA_BROKERS"] = "broker-1:9092,broker-2:9092"
	env["REQUEST_TIMEOUT"] = "5s"
	env["REDIS_ADDR"] = "cache:6379"

	cfg, err := Load(env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OperatorID != "0.0.1001" || cfg.OperatorKey != "abcd" {
		t.Error("operator settings not loaded")
	}
	if !cfg.EventLogDisabled {
		t.Error("kill switch not honored")
	}
	if len(cfg.KafkaBrokers) != 2 {
		t.Errorf("brokers = %v", cfg.KafkaBrokers)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("request timeout = %s", cfg.RequestTimeout)
	}
	if cfg.RedisAddr != "cache:6379" {
		t.Errorf("redis addr = %s", cfg.RedisAddr)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	for key, value := range map[string]string{
		"LOG_EVENTS_DISABLED":            "maybe",
		"REQUEST_TIMEOUT":                "soon",
		"PROVIDER_HEDERA_MAIN_CONFIRMATIONS": "many",
	} {
		env := baseEnv()
		env[key] = value
		if _, err := Load(env); err == nil {
			t.Errorf("%s=%q: expected error", key, value)
		}
	}
}
