package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dkarpov/taskboard/internal/event"
	"github.com/dkarpov/taskboard/pkg/logging"
)

// ErrNotConnected is returned by Publish while the channel has no live
// broker link. Callers are expected to log and drop: notification
// delivery is best-effort and never affects request outcome.
var ErrNotConnected = errors.New("notification channel not connected")

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

type Config struct {
	Brokers        []string      `yaml:"brokers" env-required:"true"`
	Topic          string        `yaml:"topic" env-default:"notifications"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" env-default:"5s"`
	PingInterval   time.Duration `yaml:"ping_interval" env-default:"15s"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Channel owns the single broker link shared by all publishers.
// State transitions: Disconnected -> Connecting -> Connected, back to
// Disconnected on any I/O failure, with reconnects on a fixed delay.
// Run supervises the link in the background; request handling never
// waits on it.
type Channel struct {
	cfg Config
	log *slog.Logger

	mu     sync.Mutex
	state  State
	writer messageWriter

	lost chan struct{}

	// replaced in tests
	declareTopic func(ctx context.Context) error
	newWriter    func() messageWriter
	ping         func(ctx context.Context) error
}

func NewChannel(cfg Config, log *slog.Logger) *Channel {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 15 * time.Second
	}

	c := &Channel{
		cfg:   cfg,
		log:   log.With(slog.String("component", "notification_channel")),
		state: StateDisconnected,
		lost:  make(chan struct{}, 1),
	}
	c.declareTopic = c.kafkaDeclareTopic
	c.newWriter = c.kafkaNewWriter
	c.ping = c.kafkaPing
	return c
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run establishes and supervises the broker link until ctx is done.
// Connection failures are retried indefinitely; they are never
// surfaced to request handlers.
func (c *Channel) Run(ctx context.Context) {
	for {
		c.setState(StateConnecting)

		if err := c.declareTopic(ctx); err != nil {
			c.setState(StateDisconnected)
			c.log.Error("broker connect failed, will retry",
				slog.Duration("retry_in", c.cfg.ReconnectDelay), logging.Err(err))

			select {
			case <-ctx.Done():
				return
			case <-time.After(c.cfg.ReconnectDelay):
				continue
			}
		}

		c.mu.Lock()
		c.writer = c.newWriter()
		c.state = StateConnected
		c.mu.Unlock()

		c.log.Info("connected to broker", slog.String("topic", c.cfg.Topic))

		if done := c.monitor(ctx); done {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

// monitor blocks while the link is healthy. It returns true when ctx
// is done, false when the link was lost and a reconnect is due.
func (c *Channel) monitor(ctx context.Context) bool {
	// drop any loss signal left over from the previous link
	select {
	case <-c.lost:
	default:
	}

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.teardown()
			return true
		case <-c.lost:
			c.log.Warn("broker link lost")
			c.teardown()
			return false
		case <-ticker.C:
			if err := c.ping(ctx); err != nil {
				c.log.Warn("broker ping failed", logging.Err(err))
				c.teardown()
				return false
			}
		}
	}
}

// Publish enqueues a serialized event into the open broker link.
// While disconnected it returns ErrNotConnected immediately: no
// buffering, the event is dropped by the caller. It never blocks on
// connection establishment.
func (c *Channel) Publish(ctx context.Context, msg *event.Message) error {
	c.mu.Lock()
	state, w := c.state, c.writer
	c.mu.Unlock()

	if state != StateConnected || w == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification event: %w", err)
	}

	err = w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Email),
		Value: data,
	})
	if err != nil {
		c.connectionLost()
		return fmt.Errorf("publish notification event: %w", err)
	}
	return nil
}

func (c *Channel) connectionLost() {
	c.setState(StateDisconnected)
	select {
	case c.lost <- struct{}{}:
	default:
	}
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Channel) teardown() {
	c.mu.Lock()
	if c.writer != nil {
		c.writer.Close()
		c.writer = nil
	}
	c.state = StateDisconnected
	c.mu.Unlock()
}

func (c *Channel) kafkaDeclareTopic(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", c.cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             c.cfg.Topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("declare topic %q: %w", c.cfg.Topic, err)
	}
	return nil
}

func (c *Channel) kafkaNewWriter() messageWriter {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.cfg.Brokers...),
		Topic:        c.cfg.Topic,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
}

func (c *Channel) kafkaPing(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", c.cfg.Brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.ReadPartitions(c.cfg.Topic)
	return err
}
