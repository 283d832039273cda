package workspace

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Domain event types
const (
	EventCertificateRegistered = "certificate.registered"
	EventCertificateDeleted    = "certificate.deleted"
	EventAccountsLinked        = "accounts.linked"
	EventCertificateExpiring   = "certificate.expiring"
)

// DomainEvent is a notification about a committed change
type DomainEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	ClientID      string    `json:"clientId"`
	CertificateID string    `json:"certificateId,omitempty"`
	AccountIDs    []string  `json:"accountIds,omitempty"`
	Operator      string    `json:"operator,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt,omitzero"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// NewDomainEvent stamps an event with a fresh id and the current time
func NewDomainEvent(eventType, clientID, certID string) DomainEvent {
	return DomainEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		ClientID:      clientID,
		CertificateID: certID,
		OccurredAt:    time.Now().UTC(),
	}
}

// EventPublisher delivers domain events to interested parties
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

// LogPublisher writes events to the log only
type LogPublisher struct{}

// Publish logs the event
func (LogPublisher) Publish(_ context.Context, event DomainEvent) error {
	log.Info().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Str("client_id", event.ClientID).
		Str("certificate_id", event.CertificateID).
		Strs("account_ids", event.AccountIDs).
		Msg("domain event")
	return nil
}
