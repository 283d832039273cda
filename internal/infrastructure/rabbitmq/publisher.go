package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"certlink/internal/domain/workspace"
)

const (
	exchangeKind = "topic"
	maxRetries   = 5
	maxBackoff   = 30 * time.Second
)

// ErrNotConnected is returned by Publish while the broker connection is being re-established
var ErrNotConnected = errors.New("rabbitmq: not connected")

// channel is the subset of *amqp.Channel the publisher needs
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// session is one live broker connection with its publishing channel
type session struct {
	conn   io.Closer
	ch     channel
	closed <-chan *amqp.Error
}

func (s *session) close() {
	s.ch.Close()
	s.conn.Close()
}

type connectFunc func() (*session, error)

// Publisher sends domain events to a topic exchange, routed by event type.
// A dropped connection is redialed in the background.
type Publisher struct {
	exchange  string
	connect   connectFunc
	retryWait time.Duration

	mu        sync.Mutex
	sess      *session
	done      chan struct{}
	closeOnce sync.Once
}

var _ workspace.EventPublisher = (*Publisher)(nil)

func newPublisher(exchange string, connect connectFunc) *Publisher {
	return &Publisher{
		exchange:  exchange,
		connect:   connect,
		retryWait: time.Second,
		done:      make(chan struct{}),
	}
}

// Dial connects with exponential backoff and declares the durable exchange
func Dial(ctx context.Context, url, exchange string) (*Publisher, error) {
	p := newPublisher(exchange, func() (*session, error) {
		return open(url, exchange)
	})

	wait := p.retryWait
	for attempt := 1; ; attempt++ {
		sess, err := p.connect()
		if err == nil {
			p.attach(sess)
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("RabbitMQ connection failed")
		if attempt == maxRetries {
			return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}

	log.Info().Str("exchange", exchange).Msg("Connected to RabbitMQ")
	return p, nil
}

func open(url, exchange string) (*session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,     // name
		exchangeKind, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	return &session{conn: conn, ch: ch, closed: closed}, nil
}

// attach installs sess and watches it for a broker-side close
func (p *Publisher) attach(sess *session) bool {
	p.mu.Lock()
	select {
	case <-p.done:
		p.mu.Unlock()
		sess.close()
		return false
	default:
	}
	p.sess = sess
	p.mu.Unlock()

	go p.watch(sess)
	return true
}

func (p *Publisher) watch(sess *session) {
	var reason *amqp.Error
	select {
	case <-p.done:
		return
	case reason = <-sess.closed:
	}
	select {
	case <-p.done:
		return
	default:
	}

	p.mu.Lock()
	if p.sess == sess {
		p.sess = nil
	}
	p.mu.Unlock()

	event := log.Warn()
	if reason != nil {
		event = event.Int("code", reason.Code).Str("reason", reason.Reason)
	}
	event.Msg("RabbitMQ connection lost, reconnecting")
	p.redial()
}

func (p *Publisher) redial() {
	wait := p.retryWait
	for attempt := 1; ; attempt++ {
		select {
		case <-p.done:
			return
		case <-time.After(wait):
		}
		sess, err := p.connect()
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("RabbitMQ reconnect failed")
			wait = min(wait*2, maxBackoff)
			continue
		}
		if p.attach(sess) {
			log.Info().Str("exchange", p.exchange).Int("attempt", attempt).Msg("Reconnected to RabbitMQ")
		}
		return
	}
}

// Publish sends the event as a persistent JSON message with the event type as routing key
func (p *Publisher) Publish(ctx context.Context, event workspace.DomainEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sess == nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, ErrNotConnected)
	}
	err = p.sess.ch.PublishWithContext(ctx,
		p.exchange,
		event.Type,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    event.ID,
			Type:         event.Type,
			Body:         body,
			Timestamp:    event.OccurredAt,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// Close stops reconnecting and closes the current connection
func (p *Publisher) Close() {
	p.closeOnce.Do(func() { close(p.done) })

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess != nil {
		p.sess.close()
		p.sess = nil
	}
}
