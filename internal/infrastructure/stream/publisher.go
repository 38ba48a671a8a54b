// Package stream publishes transaction lifecycle events to Kafka.
package stream

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"coinsvc/internal/coin"
	"coinsvc/internal/infrastructure/telemetry"
)

type Publisher struct {
	writer *kafka.Writer
	topic  string
}

type PublisherConfig struct {
	Brokers []string
	Topic   string
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		cfg.Topic = "coinsvc-tx-events"
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 500 * time.Millisecond,
	}
	return &Publisher{writer: writer, topic: cfg.Topic}, nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Publish writes one lifecycle event, keyed by transaction hash so all
// events for a transaction land on the same partition.
func (p *Publisher) Publish(ctx context.Context, event coin.TxEvent) error {
	tracer := otel.Tracer("coinsvc/stream")

	traceID, traceIDHex, ok := telemetry.NewTraceID()
	traceCtx := ctx
	if ok {
		if spanCtx, ok := telemetry.NewSpanContext(traceID); ok {
			traceCtx = trace.ContextWithSpanContext(ctx, spanCtx)
		}
	} else {
		traceIDHex = ""
	}
	traceCtx, span := tracer.Start(traceCtx, "stream.publish_tx_event", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("event.type", event.Type),
		attribute.String("ticker", event.Ticker),
		attribute.String("tx.hash", event.TxHash),
	)

	at := event.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	payload, err := Encode(Message{
		Type:    event.Type,
		Ticker:  event.Ticker,
		TraceID: traceIDHex,
		TxHash:  event.TxHash,
		Signer:  event.Signer,
		At:      at,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	headers := make([]kafka.Header, 0, 2)
	telemetry.InjectKafkaHeaders(traceCtx, &headers)
	key := event.TxHash
	if key == "" {
		key = event.Ticker
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   payload,
		Headers: headers,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
