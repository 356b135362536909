package redeux

import (
	"github.com/google/uuid"
)

// Tag is an opaque, process-unique identifier. It names message types and
// observer registrations. Tags built from the same friendly name are distinct.
type Tag struct {
	name string
	id   uuid.UUID
}

// NewTag returns a fresh Tag labelled with name.
func NewTag(name string) Tag {
	return Tag{name: name, id: uuid.New()}
}

// Name returns the friendly label. It does not identify the tag.
func (t Tag) Name() string { return t.name }

// IsZero reports whether t was not built by NewTag.
func (t Tag) IsZero() bool { return t.id == uuid.Nil }

func (t Tag) String() string { return "Tag(" + t.name + ")" }
