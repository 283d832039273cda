package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"certlink/internal/domain/workspace"
)

type fakeChannel struct {
	mu       sync.Mutex
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchange = exchange
	f.key = key
	f.msg = msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newFakeSession(ch *fakeChannel) (*session, chan *amqp.Error) {
	closed := make(chan *amqp.Error, 1)
	return &session{conn: nopCloser{}, ch: ch, closed: closed}, closed
}

func connectedPublisher(ch *fakeChannel) *Publisher {
	sess, _ := newFakeSession(ch)
	p := newPublisher("certlink.events", func() (*session, error) { return nil, errors.New("unused") })
	p.attach(sess)
	return p
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := connectedPublisher(ch)

	event := workspace.NewDomainEvent(workspace.EventAccountsLinked, "1", "cert-1")
	event.AccountIDs = []string{"acc-1", "acc-2"}

	if err := p.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	if ch.exchange != "certlink.events" || ch.key != workspace.EventAccountsLinked {
		t.Errorf("published to %s/%s", ch.exchange, ch.key)
	}
	if ch.msg.DeliveryMode != amqp.Persistent || ch.msg.ContentType != "application/json" {
		t.Errorf("message = %+v", ch.msg)
	}
	if ch.msg.MessageId != event.ID {
		t.Errorf("MessageId = %q, want %q", ch.msg.MessageId, event.ID)
	}

	var decoded workspace.DomainEvent
	if err := json.Unmarshal(ch.msg.Body, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if decoded.CertificateID != "cert-1" || len(decoded.AccountIDs) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}

	p.Close()
	if !ch.isClosed() {
		t.Error("Close() did not close the channel")
	}
	if err := p.Publish(context.Background(), event); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestPublisher_PublishError(t *testing.T) {
	p := connectedPublisher(&fakeChannel{err: amqp.ErrClosed})
	defer p.Close()

	err := p.Publish(context.Background(), workspace.NewDomainEvent(workspace.EventCertificateDeleted, "1", "cert-1"))
	if !errors.Is(err, amqp.ErrClosed) {
		t.Errorf("Publish() error = %v, want ErrClosed", err)
	}
}

func TestPublisher_ReconnectsAfterConnectionLoss(t *testing.T) {
	first := &fakeChannel{}
	firstSess, drop := newFakeSession(first)
	second := &fakeChannel{}
	secondSess, _ := newFakeSession(second)

	var mu sync.Mutex
	attempts := 0
	p := newPublisher("certlink.events", func() (*session, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return nil, errors.New("connection refused")
		}
		return secondSess, nil
	})
	p.retryWait = time.Millisecond
	p.attach(firstSess)
	defer p.Close()

	drop <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"}

	deadline := time.Now().Add(2 * time.Second)
	for {
		p.mu.Lock()
		current := p.sess
		p.mu.Unlock()
		if current == secondSess {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("publisher did not reconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := p.Publish(context.Background(), workspace.NewDomainEvent(workspace.EventCertificateRegistered, "1", "cert-1")); err != nil {
		t.Fatalf("Publish() after reconnect failed: %v", err)
	}
	if first.key != "" {
		t.Errorf("dropped channel received %q", first.key)
	}
	second.mu.Lock()
	key := second.key
	second.mu.Unlock()
	if key != workspace.EventCertificateRegistered {
		t.Errorf("event was not published on the new channel, key = %q", key)
	}
	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Errorf("connect attempts = %d, want 2", attempts)
	}
}

func TestPublisher_CloseStopsReconnecting(t *testing.T) {
	sess, drop := newFakeSession(&fakeChannel{})
	connected := make(chan struct{}, 1)
	p := newPublisher("certlink.events", func() (*session, error) {
		connected <- struct{}{}
		return nil, errors.New("connection refused")
	})
	p.retryWait = time.Hour
	p.attach(sess)

	drop <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"}
	p.Close()

	select {
	case <-connected:
		t.Error("closed publisher tried to reconnect")
	case <-time.After(50 * time.Millisecond):
	}
}
