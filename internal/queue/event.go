// Package queue defines message payloads exchanged over the message broker.
package queue

// MailQueueName is the durable queue carrying outbound mail requests.
const MailQueueName = "mail.outbound"

// MailRequestedEvent is published whenever the application wants a
// mail delivered. It carries the fully rendered message so that
// downstream consumers can hand it to a transport without touching
// the primary database or the template layer.
type MailRequestedEvent struct {
	MessageID   string   `json:"message_id"`
	Recipients  []string `json:"recipients"`
	Subject     string   `json:"subject"`
	HTML        string   `json:"html"`
	RequestedAt string   `json:"requested_at"`
}
