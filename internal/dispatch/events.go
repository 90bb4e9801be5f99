package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/tokengrid/evm-indexer/internal/adapter"
	"github.com/tokengrid/evm-indexer/internal/domain"
	"github.com/tokengrid/evm-indexer/internal/logger"
	"github.com/tokengrid/evm-indexer/internal/reducer"
)

// ConsumerConfig holds the configuration for the event consumer
type ConsumerConfig struct {
	URL            string
	StreamName     string
	ConsumerName   string
	Subject        string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	AckWaitTimeout time.Duration
	MaxDeliver     int
}

// EventConsumer pulls decoded chain events off JetStream and folds them into
// the store through the reducer
type EventConsumer interface {
	// Run consumes until ctx is cancelled
	Run(ctx context.Context) error
	// Close closes the NATS connection
	Close()
}

type eventConsumer struct {
	nc      adapter.NatsConn
	js      adapter.JetStream
	reducer *reducer.Reducer
	json    adapter.JSON
	config  ConsumerConfig
}

// NewEventConsumer connects to NATS and prepares a durable consumer
func NewEventConsumer(
	cfg ConsumerConfig,
	natsJS adapter.NatsJetStream,
	red *reducer.Reducer,
	jsonAdapter adapter.JSON,
) (EventConsumer, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	return &eventConsumer{
		nc:      nc,
		js:      js,
		reducer: red,
		json:    jsonAdapter,
		config:  cfg,
	}, nil
}

// Run starts consuming events
func (c *eventConsumer) Run(ctx context.Context) error {
	logger.Info("Starting event consumer",
		zap.String("stream", c.config.StreamName),
		zap.String("consumer", c.config.ConsumerName))

	consumerConfig := jetstream.ConsumerConfig{
		Durable:       c.config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.config.AckWaitTimeout,
		MaxDeliver:    c.config.MaxDeliver,
		FilterSubject: c.config.Subject,
	}

	consumer, err := c.js.CreateOrUpdateConsumer(ctx, c.config.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create/update consumer: %w", err)
	}

	consumerInfo, err := consumer.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}
	logger.Info("Consumer created/retrieved", zap.String("consumer", consumerInfo.Name))

	msgChan := make(chan adapter.Message, 100)
	sub, err := consumer.Consume(func(msg adapter.Message) {
		msgChan <- msg
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	defer sub.Stop()

	logger.Info("Started consuming events")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down event consumer")
			return ctx.Err()
		case msg := <-msgChan:
			c.handleMessage(ctx, msg)
		}
	}
}

// handleMessage decodes one event and applies it. Undecodable payloads are
// terminated so they are never redelivered; storage failures are NAKed for
// retry.
func (c *eventConsumer) handleMessage(ctx context.Context, msg adapter.Message) {
	metadata, _ := msg.Metadata()

	var event domain.ChainEvent
	if err := c.json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error(err, zap.String("message", "Failed to unmarshal event"))
		if err := msg.Term(); err != nil {
			logger.Error(err, zap.String("message", "Failed to terminate message"))
		}
		return
	}

	var delivered uint64
	if metadata != nil {
		delivered = metadata.NumDelivered
	}
	logger.Debug("Received event",
		zap.String("kind", string(event.Kind)),
		zap.String("contract", event.Contract.String()),
		zap.String("provenance", event.Prov.String()),
		zap.Uint64("deliveryCount", delivered),
	)

	if err := c.reducer.Apply(ctx, &event); err != nil {
		if domain.IsStorageError(err) {
			// Transient: redeliver
			logger.Error(err, zap.String("message", "Storage failure applying event"))
			if err := msg.Nak(); err != nil {
				logger.Error(err, zap.String("message", "Failed to NAK message"))
			}
			return
		}

		// Domain rejections (duplicate mint, missing fields) will repeat on
		// every delivery; terminate instead of looping
		logger.Error(err, zap.String("message", "Event rejected"),
			zap.String("kind", string(event.Kind)),
			zap.String("contract", event.Contract.String()))
		if err := msg.Term(); err != nil {
			logger.Error(err, zap.String("message", "Failed to terminate message"))
		}
		return
	}

	if err := msg.Ack(); err != nil {
		logger.Error(err, zap.String("message", "Failed to ACK message"))
	}
}

// Close closes the consumer and cleans up resources
func (c *eventConsumer) Close() {
	if c.nc == nil {
		return
	}

	c.nc.Close()
}
