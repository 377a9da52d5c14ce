package broker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dkarpov/taskboard/pkg/logging"
)

type Handler interface {
	HandleMessage(ctx context.Context, message []byte) error
}

type ConsumerConfig struct {
	Brokers []string `yaml:"brokers" env-required:"true"`
	GroupID string   `yaml:"group_id" env-required:"true"`
	Topic   string   `yaml:"topic" env-default:"notifications"`
}

type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer delivers each queued message to a handler and commits the
// offset only after the handler succeeds. A message whose handler
// keeps failing is never committed: the reader is recycled back to the
// last committed offset so the broker redelivers it. Handlers must
// therefore tolerate duplicate delivery.
type Consumer struct {
	cfg     ConsumerConfig
	handler Handler
	log     *slog.Logger

	mu     sync.Mutex
	reader fetcher
	wg     sync.WaitGroup

	// replaced in tests
	newReader       func() fetcher
	redeliveryDelay time.Duration
	retryBaseDelay  time.Duration
}

const maxHandleAttempts = 3

func NewConsumer(cfg ConsumerConfig, handler Handler, log *slog.Logger) *Consumer {
	c := &Consumer{
		cfg:             cfg,
		handler:         handler,
		log:             log.With(slog.String("component", "notification_consumer"), slog.String("topic", cfg.Topic)),
		redeliveryDelay: 5 * time.Second,
		retryBaseDelay:  time.Second,
	}
	c.newReader = c.kafkaNewReader
	return c
}

func (c *Consumer) Start(ctx context.Context) {
	c.mu.Lock()
	c.reader = c.newReader()
	c.mu.Unlock()

	c.wg.Add(1)
	go c.consume(ctx)

	c.log.Info("consumer started")
}

func (c *Consumer) consume(ctx context.Context) {
	defer c.wg.Done()

	for {
		c.mu.Lock()
		reader := c.reader
		c.mu.Unlock()

		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				// canceled or reader closed by Stop
				return
			}
			c.log.Error("fetch message error", logging.Err(err))

			// don't spin against a broken broker link
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryBaseDelay):
			}
			continue
		}

		if c.handleWithRetry(ctx, msg) {
			if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				c.log.Error("commit error", slog.Int64("offset", msg.Offset), logging.Err(err))
			}
			continue
		}

		// Not committed. Recycle the reader so it resumes from the
		// last committed offset and the message comes around again.
		c.log.Error("handler failed after all retries, recycling reader for redelivery",
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset))

		reader.Close()

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.redeliveryDelay):
		}

		c.mu.Lock()
		c.reader = c.newReader()
		c.mu.Unlock()
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, msg kafka.Message) bool {
	for attempt := 1; attempt <= maxHandleAttempts; attempt++ {
		err := c.handler.HandleMessage(ctx, msg.Value)
		if err == nil {
			c.log.Info("message processed",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset))
			return true
		}

		c.log.Warn("handler error, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxHandleAttempts),
			logging.Err(err))

		if attempt < maxHandleAttempts {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(time.Duration(attempt) * c.retryBaseDelay):
			}
		}
	}
	return false
}

func (c *Consumer) Stop() error {
	c.log.Info("stopping consumer")

	c.mu.Lock()
	reader := c.reader
	c.mu.Unlock()

	var err error
	if reader != nil {
		err = reader.Close()
	}
	c.wg.Wait()

	c.log.Info("consumer stopped")
	return err
}

func (c *Consumer) kafkaNewReader() fetcher {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.cfg.Brokers,
		GroupID:     c.cfg.GroupID,
		Topic:       c.cfg.Topic,
		MaxAttempts: 3,
		MaxWait:     10 * time.Second,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			c.log.Debug("[KAFKA] "+msg, args...)
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			c.log.Error("[KAFKA-ERROR] "+msg, args...)
		}),
	})
}
