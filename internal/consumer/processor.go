// Package consumer reads outbox events back from Kafka and applies their side effects.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/SnowDream39/vocamap-backend/internal/outbox"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is the decoded representation of a Kafka record emitted by the outbox dispatcher.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	EventType     string
	AggregateType string
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithRetry sets how many times a failing handler is attempted per message and
// the pause between attempts.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(p *Processor) {
		if attempts > 0 {
			p.attempts = attempts
		}
		if delay >= 0 {
			p.retryDelay = delay
		}
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
type Processor struct {
	reader     Reader
	handler    Handler
	logger     *zap.Logger
	attempts   int
	retryDelay time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:     reader,
		handler:    handler,
		logger:     zap.NewNop(),
		attempts:   3,
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("consumer")
	return p
}

// Run processes messages until ctx is cancelled. Every fetched record is
// committed once it has been handled, dropped as malformed, or has exhausted
// its handler attempts, so one bad record never stalls a partition.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.Warn("fetch failed", zap.Error(err))
			continue
		}

		event, err := decodeMessage(msg)
		if err != nil {
			p.logger.Warn("dropping malformed record",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			recordDecodeError(msg.Topic)
			p.commit(ctx, msg)
			continue
		}

		handled, err := p.handle(ctx, event)
		if err != nil {
			return err
		}
		if p.commit(ctx, msg) && handled {
			recordProcessed(event)
		}
	}
}

// handle attempts the handler up to p.attempts times. It reports false when
// every attempt failed and returns an error only when ctx ends mid-retry.
func (p *Processor) handle(ctx context.Context, event Message) (bool, error) {
	for attempt := 1; ; attempt++ {
		err := p.handler.Handle(ctx, event)
		if err == nil {
			return true, nil
		}
		recordHandlerError(event)

		fields := []zap.Field{
			zap.String("event_type", event.EventType),
			zap.Int64("offset", event.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		}
		if attempt >= p.attempts {
			p.logger.Error("handler gave up", fields...)
			return false, nil
		}
		p.logger.Warn("handler failed, retrying", fields...)

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(p.retryDelay):
		}
	}
}

func (p *Processor) commit(ctx context.Context, msg kafka.Message) bool {
	if err := p.reader.CommitMessages(ctx, msg); err != nil {
		p.logger.Error("commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		return false
	}
	return true
}

func decodeMessage(msg kafka.Message) (Message, error) {
	eventType, ok := headerValue(msg, outbox.HeaderEventType)
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}
	aggregateType, _ := headerValue(msg, outbox.HeaderAggregateType)
	schemaSubject, _ := headerValue(msg, outbox.HeaderSchemaSubject)

	schemaID, payload, err := outbox.DecodeWireFormat(msg.Value)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Topic:         msg.Topic,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		Timestamp:     msg.Time,
		EventType:     string(eventType),
		AggregateType: string(aggregateType),
		SchemaSubject: string(schemaSubject),
		SchemaID:      schemaID,
		Payload:       append(json.RawMessage(nil), payload...),
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
