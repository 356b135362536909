package redeux

import (
	"github.com/trickstertwo/redeux/guard"
	"github.com/trickstertwo/xclock"
)

// Validator recognizes messages built by one factory.
type Validator interface {
	Type() Tag
	Validate(thing any) bool
}

var (
	_ Validator = (*Factory)(nil)
	_ Validator = (*PayloadFactory[struct{}])(nil)
)

// FactoryOption configures a message factory.
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	clock xclock.Clock
}

// WithFactoryClock sets the clock used to stamp CreatedAt.
func WithFactoryClock(c xclock.Clock) FactoryOption {
	return func(o *factoryOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// Factory builds and recognizes payload-less messages of a single type.
type Factory struct {
	tag   Tag
	clock xclock.Clock
}

// NewFactory returns a Factory with a fresh Tag labelled name.
func NewFactory(name string, opts ...FactoryOption) *Factory {
	o := factoryOptions{}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	if o.clock == nil {
		o.clock = xclock.Default()
	}
	return &Factory{tag: NewTag(name), clock: o.clock}
}

func (f *Factory) Type() Tag    { return f.tag }
func (f *Factory) Name() string { return f.tag.Name() }

// Create returns a new message of this factory's type.
func (f *Factory) Create() *Message {
	return &Message{typ: f.tag, createdAt: f.clock.Now()}
}

// Validate reports whether thing is a record whose type is this factory's tag.
// A tag is matched by identity, never by name.
func (f *Factory) Validate(thing any) bool {
	if !guard.IsRecordOf(thing, FieldType) {
		return false
	}
	v, _ := guard.Field(thing, FieldType)
	t, ok := v.(Tag)
	return ok && t == f.tag
}

func (f *Factory) withPayload(payload any) *Message {
	m := f.Create()
	m.payload = payload
	m.hasPayload = true
	return m
}

// PayloadFactory builds and recognizes messages carrying a payload computed
// from arguments of type A.
type PayloadFactory[A any] struct {
	base     *Factory
	build    func(A) any
	validate guard.Predicate
}

// NewPayloadFactory returns a PayloadFactory. build computes the payload from
// the Create arguments; validate is checked on every Create and Validate.
// It panics if build or validate is nil.
func NewPayloadFactory[A any](name string, build func(A) any, validate guard.Predicate, opts ...FactoryOption) *PayloadFactory[A] {
	if build == nil || validate == nil {
		panic("redeux: NewPayloadFactory requires build and validate")
	}
	return &PayloadFactory[A]{
		base:     NewFactory(name, opts...),
		build:    build,
		validate: validate,
	}
}

func (f *PayloadFactory[A]) Type() Tag    { return f.base.Type() }
func (f *PayloadFactory[A]) Name() string { return f.base.Name() }

// Create computes the payload from args and returns the message. It returns a
// *ValidationError when the payload fails the validator.
func (f *PayloadFactory[A]) Create(args A) (*Message, error) {
	payload := f.build(args)
	if !f.validate(payload) {
		return nil, &ValidationError{Type: f.base.tag, Payload: payload}
	}
	return f.base.withPayload(payload), nil
}

// MustCreate is like Create but panics on a rejected payload.
func (f *PayloadFactory[A]) MustCreate(args A) *Message {
	m, err := f.Create(args)
	if err != nil {
		panic(err)
	}
	return m
}

// Validate reports whether thing is a message of this type whose payload
// passes the validator. A Record decides payload presence itself, so a nil
// payload created by this factory is still present; in plain maps nil is absent.
func (f *PayloadFactory[A]) Validate(thing any) bool {
	if !f.base.Validate(thing) {
		return false
	}
	payload, ok := guard.Field(thing, FieldPayload)
	if !ok {
		return false
	}
	if _, isRecord := thing.(guard.Record); !isRecord && payload == nil {
		return false
	}
	return f.validate(payload)
}
