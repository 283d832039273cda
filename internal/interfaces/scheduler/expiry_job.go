package scheduler

import (
	"context"
	"fmt"
	"time"

	"certlink/internal/domain/certificate"
	"certlink/internal/domain/client"
	"certlink/internal/domain/workspace"

	"github.com/rs/zerolog/log"
)

// ExpiryLister lists a client's certificates expiring within a window
type ExpiryLister interface {
	ListExpiring(ctx context.Context, clientID string, d time.Duration) ([]*certificate.Certificate, error)
}

// ClientLister lists every client the scheduler should scan
type ClientLister interface {
	ListClients(ctx context.Context) ([]*client.Client, error)
}

// ExpiryJob warns about one client's certificates nearing expiry
type ExpiryJob struct {
	clientID  string
	certs     ExpiryLister
	publisher workspace.EventPublisher
	warning   time.Duration
	now       func() time.Time
}

func NewExpiryJob(clientID string, certs ExpiryLister, publisher workspace.EventPublisher, warning time.Duration) *ExpiryJob {
	return &ExpiryJob{
		clientID:  clientID,
		certs:     certs,
		publisher: publisher,
		warning:   warning,
		now:       time.Now,
	}
}

// Execute publishes certificate.expiring for every still-valid certificate in the
// window. Already expired certificates are only logged.
func (j *ExpiryJob) Execute(ctx context.Context) error {
	certs, err := j.certs.ListExpiring(ctx, j.clientID, j.warning)
	if err != nil {
		return fmt.Errorf("list expiring certificates: %w", err)
	}

	now := j.now()
	published := 0
	for _, c := range certs {
		if c.IsExpired(now) {
			log.Warn().
				Str("client_id", j.clientID).
				Str("certificate_id", c.ID).
				Time("expired_at", c.ExpiresAt).
				Msg("Certificate expired")
			continue
		}

		event := workspace.NewDomainEvent(workspace.EventCertificateExpiring, j.clientID, c.ID)
		event.ExpiresAt = c.ExpiresAt
		if err := j.publisher.Publish(ctx, event); err != nil {
			return fmt.Errorf("publish expiry of %s: %w", c.ID, err)
		}
		published++
	}

	log.Debug().Str("client_id", j.clientID).Int("expiring", published).Int("scanned", len(certs)).Msg("Expiry scan completed")
	return nil
}

func (j *ExpiryJob) Subject() string {
	return j.clientID
}

func (j *ExpiryJob) Description() string {
	return fmt.Sprintf("Certificate expiry scan for client %s", j.clientID)
}

// ExpiryJobProvider builds one ExpiryJob per client
func ExpiryJobProvider(clients ClientLister, certs ExpiryLister, publisher workspace.EventPublisher, warning time.Duration) JobProvider {
	return func(ctx context.Context) ([]Job, error) {
		all, err := clients.ListClients(ctx)
		if err != nil {
			return nil, fmt.Errorf("list clients: %w", err)
		}
		jobs := make([]Job, 0, len(all))
		for _, c := range all {
			jobs = append(jobs, NewExpiryJob(c.ID, certs, publisher, warning))
		}
		return jobs, nil
	}
}
