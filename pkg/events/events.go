// Package events delivers domain events to a message broker.
package events

import (
	"context"
	"time"
)

// CustomerRegistered is emitted once a signup transaction has committed.
const CustomerRegistered = "customer.registered"

// Event is the envelope written to the broker.
type Event struct {
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// CustomerRegisteredPayload describes a newly created customer.
type CustomerRegisteredPayload struct {
	CustomerID int64  `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	SiteName   string `json:"site_name"`
	SiteURL    string `json:"site_url"`
}

// Publisher sends events to a downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
