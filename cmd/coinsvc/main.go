package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"coinsvc/internal/coin"
	"coinsvc/internal/coin/hbar"
	"coinsvc/internal/config"
	"coinsvc/internal/infrastructure/eventlog"
	"coinsvc/internal/infrastructure/hbarnode"
	"coinsvc/internal/infrastructure/httpclient"
	"coinsvc/internal/infrastructure/logging"
	"coinsvc/internal/infrastructure/stream"
	"coinsvc/internal/infrastructure/telemetry"
	"coinsvc/internal/interfaces/httpapi"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logWriter, err := logging.Init(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("logging error: %v", err)
	}
	if logWriter != nil {
		defer logWriter.Close()
	}

	shutdownTracing, err := telemetry.InitTracer(context.Background(), "coinsvc", cfg.OtelEndpoint)
	if err != nil {
		log.Printf("tracing init error: %v", err)
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				log.Printf("tracing shutdown error: %v", err)
			}
		}()
	}

	var (
		recorder   eventlog.Recorder = eventlog.Nop{}
		eventStore *eventlog.Store
	)
	if store, err := eventlog.NewStore(cfg.EventLogDSN); err != nil {
		log.Printf("event log disabled: %v", err)
	} else {
		eventStore = store
		recorder = eventlog.NewAsync(store, cfg.EventLogDisabled)
		defer store.Close()
	}

	var sink coin.TxEventSink
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := stream.NewPublisher(stream.PublisherConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			log.Printf("event stream disabled: %v", err)
		} else {
			sink = publisher
			defer publisher.Close()
		}
	}

	atomicFactor := decimal.Decimal{}
	if cfg.AtomicFactor != "" {
		parsed, err := decimal.NewFromString(cfg.AtomicFactor)
		if err != nil {
			log.Fatalf("invalid ATOMIC_FACTOR: %v", err)
		}
		atomicFactor = parsed
	}

	httpClient := httpclient.New(cfg.RequestTimeout)
	factory := func(opts coin.NodeOptions) (coin.NodeAdapter, error) {
		base, err := hbarnode.New(hbarnode.Config{
			Name:          opts.Name,
			RPCURL:        opts.RPCURL,
			MirrorURL:     opts.MirrorURL,
			Headers:       opts.Headers,
			Confirmations: opts.ConfirmationLimit,
			Ticker:        cfg.Ticker,
			AtomicFactor:  atomicFactor,
		}, httpClient)
		if err != nil {
			return nil, err
		}
		if cfg.RedisAddr == "" {
			return base, nil
		}
		cached, err := hbarnode.NewCachedClient(base, hbarnode.CacheConfig{Addr: cfg.RedisAddr})
		if err != nil {
			slog.Warn("adapter cache disabled", "provider", opts.Name, "error", err)
			return base, nil
		}
		return cached, nil
	}

	service, err := hbar.NewService(hbar.Config{
		OperatorID:   cfg.OperatorID,
		OperatorKey:  cfg.OperatorKey,
		Ticker:       cfg.Ticker,
		AtomicFactor: atomicFactor,
		NodeAccount:  cfg.NodeAccount,
	}, recorder, sink, factory)
	if err != nil {
		log.Fatalf("service error: %v", err)
	}

	nodeOpts := make([]coin.NodeOptions, 0, len(cfg.Providers))
	for _, provider := range cfg.Providers {
		nodeOpts = append(nodeOpts, coin.NodeOptions{
			Name:              provider.Name,
			RPCURL:            provider.RPCURL,
			MirrorURL:         provider.MirrorURL,
			Headers:           provider.Headers,
			ConfirmationLimit: provider.Confirmations,
		})
	}
	if err := service.InitNodes(nodeOpts); err != nil {
		log.Fatalf("node init error: %v", err)
	}

	var events httpapi.EventStore
	if eventStore != nil {
		events = eventStore
	}
	httpServer, err := httpapi.NewServer(service, events, httpapi.NewMetrics(), httpapi.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}, cfg.RequestTimeout)
	if err != nil {
		log.Fatalf("http server error: %v", err)
	}
	if sink != nil {
		httpServer.SetEventSink(sink)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("coin service listening", "addr", cfg.HTTPAddr, "ticker", service.Ticker(), "providers", len(nodeOpts))
	if err := httpServer.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("http server error: %v", err)
	}
}
