package redeux

import (
	"time"
)

// Field names exposed by Message through guard.Record.
const (
	FieldType    = "type"
	FieldPayload = "payload"
)

// Message is the immutable value carried by the queue. It is only built
// through a factory and has no exported mutators, so a pushed message can
// never change. Identity is the pointer.
type Message struct {
	typ        Tag
	payload    any
	hasPayload bool
	createdAt  time.Time
}

// Type returns the message type tag.
func (m *Message) Type() Tag { return m.typ }

// Payload returns the payload and whether the message carries one.
func (m *Message) Payload() (any, bool) { return m.payload, m.hasPayload }

// CreatedAt is the creation timestamp taken from the factory clock.
func (m *Message) CreatedAt() time.Time { return m.createdAt }

// Field implements guard.Record.
func (m *Message) Field(key string) (any, bool) {
	switch key {
	case FieldType:
		return m.typ, true
	case FieldPayload:
		return m.payload, m.hasPayload
	}
	return nil, false
}

func (m *Message) String() string {
	return m.typ.String()
}
