package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType classifies messages exchanged between agents
type MessageType string

const (
	TypeRequest      MessageType = "request"
	TypeResponse     MessageType = "response"
	TypeNotification MessageType = "notification"
	TypeBroadcast    MessageType = "broadcast"
	TypeError        MessageType = "error"
)

// Priority levels, ordered low to critical
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Payload is a tagged message body. Kind identifies the request variant so
// agents can dispatch without inspecting untyped maps; Data holds the
// marshalled body.
type Payload struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewPayload marshals v into a tagged payload.
func NewPayload(kind string, v any) (Payload, error) {
	if v == nil {
		return Payload{Kind: kind}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to marshal payload %q: %w", kind, err)
	}
	return Payload{Kind: kind, Data: data}, nil
}

// Decode unmarshals the payload body into v.
func (p Payload) Decode(v any) error {
	if len(p.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(p.Data, v); err != nil {
		return fmt.Errorf("failed to decode payload %q: %w", p.Kind, err)
	}
	return nil
}

// Size returns the payload size in bytes, used for flow bookkeeping.
func (p Payload) Size() int {
	return len(p.Kind) + len(p.Data)
}

// Message is the envelope routed between agents. Messages are immutable once
// created; callers build them through NewMessage / NewReply.
type Message struct {
	ID            string      `json:"message_id"`
	From          string      `json:"from_agent"`
	To            string      `json:"to_agent"`
	Type          MessageType `json:"message_type"`
	Priority      Priority    `json:"priority"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       Payload     `json:"payload"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	ReplyTo       string      `json:"reply_to,omitempty"`
	ExpiresAt     *time.Time  `json:"expires_at,omitempty"`
}

// Option customizes a message at creation time.
type Option func(*Message)

func WithType(t MessageType) Option {
	return func(m *Message) { m.Type = t }
}

func WithPriority(p Priority) Option {
	return func(m *Message) { m.Priority = p }
}

func WithCorrelationID(id string) Option {
	return func(m *Message) { m.CorrelationID = id }
}

func WithExpiry(at time.Time) Option {
	return func(m *Message) { m.ExpiresAt = &at }
}

// NewMessage creates a request message from one agent to another.
func NewMessage(from, to string, payload Payload, opts ...Option) *Message {
	m := &Message{
		ID:        uuid.New().String(),
		From:      from,
		To:        to,
		Type:      TypeRequest,
		Priority:  PriorityMedium,
		Timestamp: time.Now(),
		Payload:   payload,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewReply creates a response correlated with the original message.
func NewReply(original *Message, from string, payload Payload) *Message {
	return &Message{
		ID:            uuid.New().String(),
		From:          from,
		To:            original.From,
		Type:          TypeResponse,
		Priority:      original.Priority,
		Timestamp:     time.Now(),
		Payload:       payload,
		CorrelationID: original.CorrelationID,
		ReplyTo:       original.ID,
	}
}

// Expired reports whether the message deadline has passed.
func (m *Message) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}
