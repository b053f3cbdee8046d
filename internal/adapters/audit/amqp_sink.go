package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/core"
)

// AMQPSink publishes audit records to a RabbitMQ topic exchange as
// JSON messages. The connection is re-established lazily after a
// broker failure.
type AMQPSink struct {
	url        string
	exchange   string
	routingKey string
	logger     *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPSink connects to the broker and declares the exchange
func NewAMQPSink(url, exchange, routingKey string, logger *zap.Logger) (*AMQPSink, error) {
	s := &AMQPSink{
		url:        url,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *AMQPSink) connect() error {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		return fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		s.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	s.conn = conn
	s.ch = ch
	return nil
}

// ensureChannel reconnects if the broker connection was lost. Caller
// must hold the mutex.
func (s *AMQPSink) ensureChannel() error {
	if s.conn != nil && !s.conn.IsClosed() {
		return nil
	}
	s.logger.Warn("AMQP connection lost, reconnecting")
	return s.connect()
}

// Emit publishes a single audit record
func (s *AMQPSink) Emit(ctx context.Context, record *core.AuditRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode audit record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureChannel(); err != nil {
		return err
	}

	if err := s.ch.PublishWithContext(ctx,
		s.exchange,
		s.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	); err != nil {
		// Force a reconnect on the next publish
		s.conn.Close()
		s.conn = nil
		return fmt.Errorf("failed to publish audit record: %w", err)
	}

	return nil
}

// Close shuts down the broker connection
func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch != nil {
		s.ch.Close()
	}
	if s.conn != nil && !s.conn.IsClosed() {
		return s.conn.Close()
	}
	return nil
}
