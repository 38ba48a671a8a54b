package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider is one node endpoint entry. Order matters: the first listed
// provider is the selected one.
type Provider struct {
	Name          string
	RPCURL        string
	MirrorURL     string
	Headers       map[string]string
	Confirmations uint64
}

type Config struct {
	OperatorID   string
	OperatorKey  string
	Ticker       string
	AtomicFactor string
	NodeAccount  string

	Providers []Provider

	EventLogDSN      string
	EventLogDisabled bool

	HTTPAddr       string
	RedisAddr      string
	KafkaBrokers   []string
	KafkaTopic     string
	OtelEndpoint   string
	LogLevel       string
	LogFile        string
	RequestTimeout time.Duration
}

type EnvSource interface {
	Lookup(key string) (string, bool)
}

type EnvMap map[string]string

func (e EnvMap) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

func FromEnviron() EnvSource {
	env := make(EnvMap)
	for _, entry := range os.Environ() {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		env[parts[0]] = parts[1]
	}
	return env
}

func Load(source EnvSource) (Config, error) {
	if source == nil {
		return Config{}, errors.New("env source is required")
	}

	providers, err := parseProviders(source)
	if err != nil {
		return Config{}, err
	}

	operatorID, _ := source.Lookup("OPERATOR_ID")
	operatorKey, _ := source.Lookup("OPERATOR_KEY")

	ticker, ok := source.Lookup("TICKER")
	if !ok || ticker == "" {
		ticker = "HBAR"
	}
	atomicFactor, _ := source.Lookup("ATOMIC_FACTOR")
	nodeAccount, _ := source.Lookup("NODE_ACCOUNT")

	eventLogDSN, ok := source.Lookup("EVENT_LOG_DSN")
	if !ok || strings.TrimSpace(eventLogDSN) == "" {
		eventLogDSN = "coinsvc-events.db"
	}
	eventLogDisabled, err := parseBoolEnv(source, "LOG_EVENTS_DISABLED", false)
	if err != nil {
		return Config{}, err
	}

	httpAddr := ":8080"
	if raw, ok := source.Lookup("HTTP_ADDR"); ok && raw != "" {
		httpAddr = raw
	}

	redisAddr := ""
	if raw, ok := source.Lookup("REDIS_ADDR"); ok {
		redisAddr = strings.TrimSpace(raw)
	}

	kafkaBrokers := parseList(source, "KAFKA_BROKERS")
	kafkaTopic, ok := source.Lookup("KAFKA_TOPIC")
	if !ok || kafkaTopic == "" {
		kafkaTopic = "coinsvc-tx-events"
	}

	otelEndpoint, _ := source.Lookup("OTEL_EXPORTER_OTLP_ENDPOINT")
	otelEndpoint = strings.TrimSpace(otelEndpoint)

	logLevel, _ := source.Lookup("LOG_LEVEL")
	logFile, _ := source.Lookup("LOG_FILE")

	requestTimeout := 30 * time.Second
	if raw, ok := source.Lookup("REQUEST_TIMEOUT"); ok && raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
		}
		requestTimeout = duration
	}

	return Config{
		OperatorID:       operatorID,
		OperatorKey:      operatorKey,
		Ticker:           ticker,
		AtomicFactor:     atomicFactor,
		NodeAccount:      nodeAccount,
		Providers:        providers,
		EventLogDSN:      eventLogDSN,
		EventLogDisabled: eventLogDisabled,
		HTTPAddr:         httpAddr,
		RedisAddr:        redisAddr,
		KafkaBrokers:     kafkaBrokers,
		KafkaTopic:       kafkaTopic,
		OtelEndpoint:     otelEndpoint,
		LogLevel:         logLevel,
		LogFile:          logFile,
		RequestTimeout:   requestTimeout,
	}, nil
}

// parseProviders reads the ordered PROVIDERS list, then the per-provider
// PROVIDER_<NAME>_* keys. Each provider needs at least a mirror URL.
func parseProviders(source EnvSource) ([]Provider, error) {
	names := parseList(source, "PROVIDERS")
	if len(names) == 0 {
		return nil, errors.New("PROVIDERS is required")
	}

	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		prefix := "PROVIDER_" + envKey(name) + "_"

		mirrorURL, _ := source.Lookup(prefix + "MIRROR_URL")
		if strings.TrimSpace(mirrorURL) == "" {
			return nil, fmt.Errorf("%sMIRROR_URL is required", prefix)
		}
		rpcURL, _ := source.Lookup(prefix + "RPC_URL")

		headers, err := parseHeaders(source, prefix+"HEADERS")
		if err != nil {
			return nil, err
		}
		confirmations, err := parseUintEnv(source, prefix+"CONFIRMATIONS", 0)
		if err != nil {
			return nil, err
		}

		providers = append(providers, Provider{
			Name:          name,
			RPCURL:        strings.TrimSpace(rpcURL),
			MirrorURL:     strings.TrimSpace(mirrorURL),
			Headers:       headers,
			Confirmations: confirmations,
		})
	}
	return providers, nil
}

// parseHeaders reads comma-separated name:value pairs.
func parseHeaders(source EnvSource, key string) (map[string]string, error) {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	headers := make(map[string]string)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, ":", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid %s entry %q", key, item)
		}
		headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return headers, nil
}

func envKey(name string) string {
	key := strings.ToUpper(name)
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, key)
}

func parseUintEnv(source EnvSource, key string, defaultValue uint64) (uint64, error) {
	raw, ok := source.Lookup(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func parseBoolEnv(source EnvSource, key string, defaultValue bool) (bool, error) {
	raw, ok := source.Lookup(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func parseList(source EnvSource, key string) []string {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	var values []string
	for _, item := range strings.Split(raw, ",") {
		value := strings.TrimSpace(item)
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	return values
}
