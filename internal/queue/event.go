// Package queue defines the audit events exchanged over RabbitMQ together
// with their publisher and consumer.
package queue

import "time"

// AuditQueueName is the durable queue audit events are routed to.
const AuditQueueName = "cloudassets.audit"

// Audit event types.
const (
	EventUserRegistered = "user.registered"
	EventAssetCreated   = "asset.created"
	EventAssetUpdated   = "asset.updated"
	EventAssetDeleted   = "asset.deleted"
)

// AuditEvent is published after a state change succeeds.  It carries
// enough context for downstream consumers to log or alert without querying
// the primary database.  It never contains credentials.
type AuditEvent struct {
	Type       string `json:"type"`
	Subject    string `json:"subject"`
	AssetID    string `json:"asset_id,omitempty"`
	AssetName  string `json:"asset_name,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// NewAuditEvent stamps an event with the current UTC time.
func NewAuditEvent(typ, subject string) AuditEvent {
	return AuditEvent{
		Type:       typ,
		Subject:    subject,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
