// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationNotifyEvent is published whenever the reservation engine
// wants to reach a user: request received, waitlisted, approved,
// denied, checked in, cancelled or promoted. It carries enough
// information for downstream consumers to log, notify, or trigger
// analytics without querying the primary database.
type ReservationNotifyEvent struct {
	UserID  uint64         `json:"user_id"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
	SentAt  string         `json:"sent_at"`
}
