// Package mq carries ticket tasks over RabbitMQ between the API and workers.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/task"
)

// Config holds the broker topology
type Config struct {
	URL      string
	Exchange string
	Queue    string
	Prefetch int
}

// RoutingKey returns the key a task is published under
func RoutingKey(t *task.Task) string {
	return "ticket." + t.Operation.String()
}

// DeadLetterExchange is the fanout exchange the queue dead-letters into
func (c Config) DeadLetterExchange() string {
	return c.Exchange + ".dlx"
}

// DeadLetterQueue parks tasks that failed after their one redelivery
func (c Config) DeadLetterQueue() string {
	return c.Queue + ".dead"
}

// QueueArgs routes rejected deliveries of the work queue to the dead-letter exchange
func (c Config) QueueArgs() amqp091.Table {
	return amqp091.Table{"x-dead-letter-exchange": c.DeadLetterExchange()}
}

// declare opens a channel and the shared topic exchange
func declare(url, exchange string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return conn, ch, nil
}

// Publisher publishes tasks as persistent JSON messages
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher connects to the broker and declares the exchange
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	conn, ch, err := declare(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, channel: ch, exchange: cfg.Exchange, logger: logger}, nil
}

// Enqueue publishes the task. Channels are not safe for concurrent use, so
// publishes are serialized.
func (p *Publisher) Enqueue(ctx context.Context, t *task.Task) error {
	msg, err := Encode(t)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.PublishWithContext(ctx, p.exchange, RoutingKey(t), false, false, msg); err != nil {
		return fmt.Errorf("publish task %s: %w", t.ID, err)
	}
	p.logger.Debug("Task published",
		zap.String("task_id", t.ID),
		zap.String("operation", t.Operation.String()),
		zap.String("ticket_id", t.TicketID))
	return nil
}

// Close terminates the connection
func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.logger.Warn("Failed to close channel", zap.Error(err))
	}
	return p.conn.Close()
}

// Encode renders a task as a publishing
func Encode(t *task.Task) (amqp091.Publishing, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("encode task %s: %w", t.ID, err)
	}
	return amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		MessageId:     t.ID,
		CorrelationId: t.CorrelationID,
		Timestamp:     t.Timestamp,
		Type:          t.Operation.String(),
		Body:          body,
	}, nil
}

// Decode parses a delivery body
func Decode(body []byte) (*task.Task, error) {
	var t task.Task
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	if !t.Operation.IsValid() {
		return nil, fmt.Errorf("decode task %s: unknown operation %q", t.ID, t.Operation)
	}
	return &t, nil
}

// IsPermanent reports whether redelivering the task could change its outcome.
// Classified rejections are final, everything else may be transient.
func IsPermanent(err error) bool {
	return apperr.KindOf(err) != apperr.KindInternal
}

// Handler executes one task
type Handler func(ctx context.Context, t *task.Task) error

// Consumer delivers queued tasks to a handler
type Consumer struct {
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	queue      string
	deadLetter string
	logger     *zap.Logger
	done       chan struct{}
}

// NewConsumer declares the durable queue with its dead-letter queue, binds
// it to every ticket routing key and applies the prefetch limit
func NewConsumer(cfg Config, logger *zap.Logger) (*Consumer, error) {
	conn, ch, err := declare(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, err
	}
	if err := declareDeadLetter(ch, cfg); err != nil {
		conn.Close()
		return nil, err
	}
	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, cfg.QueueArgs())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}
	if err := ch.QueueBind(q.Name, "ticket.*", cfg.Exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind queue %s: %w", q.Name, err)
	}
	if cfg.Prefetch > 0 {
		if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set prefetch: %w", err)
		}
	}
	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q.Name,
		deadLetter: cfg.DeadLetterQueue(),
		logger:     logger,
		done:       make(chan struct{}),
	}, nil
}

func declareDeadLetter(ch *amqp091.Channel, cfg Config) error {
	dlx, dlq := cfg.DeadLetterExchange(), cfg.DeadLetterQueue()
	if err := ch.ExchangeDeclare(dlx, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", dlx, err)
	}
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", dlq, err)
	}
	if err := ch.QueueBind(dlq, "", dlx, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", dlq, err)
	}
	return nil
}

// Consume starts delivering messages to handler until ctx is cancelled or
// the channel closes
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	go func() {
		defer close(c.done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-deliveries:
				if !ok {
					return
				}
				c.handle(ctx, msg, handler)
			}
		}
	}()
	return nil
}

// Done is closed once the delivery loop has stopped
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// handle acks processed and rejected tasks, requeues a failed task once and
// dead-letters it on the second failure
func (c *Consumer) handle(ctx context.Context, msg amqp091.Delivery, handler Handler) {
	t, err := Decode(msg.Body)
	if err != nil {
		c.logger.Error("Dead-lettering undecodable message", zap.String("message_id", msg.MessageId), zap.Error(err))
		c.settle(msg.Nack(false, false))
		return
	}
	err = handler(ctx, t)
	if err == nil || IsPermanent(err) {
		if err != nil {
			c.logger.Warn("Task rejected",
				zap.String("task_id", t.ID),
				zap.String("ticket_id", t.TicketID),
				zap.Error(err))
		}
		c.settle(msg.Ack(false))
		return
	}
	if !msg.Redelivered {
		c.logger.Warn("Task failed, requeueing",
			zap.String("task_id", t.ID),
			zap.String("ticket_id", t.TicketID),
			zap.Error(err))
		c.settle(msg.Nack(false, true))
		return
	}
	c.logger.Error("Task dead-lettered",
		zap.String("task_id", t.ID),
		zap.String("ticket_id", t.TicketID),
		zap.String("queue", c.deadLetter),
		zap.Error(err))
	c.settle(msg.Nack(false, false))
}

func (c *Consumer) settle(err error) {
	if err != nil {
		c.logger.Error("Failed to settle delivery", zap.Error(err))
	}
}

// Close closes the consumer resources
func (c *Consumer) Close() error {
	if err := c.channel.Close(); err != nil {
		c.logger.Warn("Failed to close channel", zap.Error(err))
	}
	return c.conn.Close()
}

var _ port.TaskQueue = (*Publisher)(nil)
