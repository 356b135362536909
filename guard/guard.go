// Package guard provides runtime predicates for values whose shape is only
// known at runtime (decoded input, values crossing an `any` boundary).
package guard

import "reflect"

// Predicate reports whether a value satisfies some shape.
type Predicate func(thing any) bool

// Record is implemented by values that expose named fields.
type Record interface {
	Field(key string) (any, bool)
}

// IsRecordOf returns true if thing is a record that holds every key with a
// non-nil value. Records are Record implementations and maps keyed by string.
func IsRecordOf(thing any, keys ...string) bool {
	if isNil(thing) {
		return false
	}
	switch thing.(type) {
	case Record, map[string]any:
	default:
		if !isStringMap(thing) {
			return false
		}
	}
	for _, k := range keys {
		v, ok := Field(thing, k)
		if !ok || isNil(v) {
			return false
		}
	}
	return true
}

// Field looks up key on a record. It returns false for non-records and for
// missing keys.
func Field(thing any, key string) (any, bool) {
	if isNil(thing) {
		return nil, false
	}
	switch r := thing.(type) {
	case Record:
		return r.Field(key)
	case map[string]any:
		v, ok := r[key]
		return v, ok
	}
	if !isStringMap(thing) {
		return nil, false
	}
	v := reflect.ValueOf(thing).MapIndex(reflect.ValueOf(key).Convert(reflect.TypeOf(thing).Key()))
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

// IsArrayOf returns true if thing is a slice or array whose every element
// satisfies pred. An empty sequence always passes.
func IsArrayOf(thing any, pred Predicate) bool {
	if pred == nil {
		return false
	}
	if items, ok := thing.([]any); ok {
		for _, it := range items {
			if !pred(it) {
				return false
			}
		}
		return true
	}
	if thing == nil {
		return false
	}
	v := reflect.ValueOf(thing)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		if !pred(v.Index(i).Interface()) {
			return false
		}
	}
	return true
}

// Is returns a Predicate matching values whose dynamic type is T.
func Is[T any]() Predicate {
	return func(thing any) bool {
		_, ok := thing.(T)
		return ok
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(thing any) bool { return !p(thing) }
}

func isStringMap(thing any) bool {
	t := reflect.TypeOf(thing)
	return t != nil && t.Kind() == reflect.Map && t.Key().Kind() == reflect.String
}

// isNil catches both untyped nil and typed nil pointers/maps/slices held in an interface.
func isNil(thing any) bool {
	if thing == nil {
		return true
	}
	v := reflect.ValueOf(thing)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
