package mcp

import (
	"fmt"
	"reflect"
)

// NoArguments is the sentinel input type for tools and prompts that take no
// arguments. Its derived schema has zero fields and matches only an empty,
// null or absent payload.
type NoArguments struct{}

// Caller describes the origin of one invocation: transport headers and the
// scopes granted by the authentication collaborator. The engine never writes
// to it; every dispatch receives a fresh value from the transport adapter.
type Caller struct {
	Headers map[string]string
	Scopes  []string
}

// Header returns a header value, or the empty string when absent.
func (c Caller) Header(name string) string {
	return c.Headers[name]
}

// StateStore is a keyed lookup into the hosting application's process-lifetime
// state container. The engine treats it as a bare reference: handlers mutating
// shared values are responsible for their own synchronization.
type StateStore interface {
	Get(key string) (interface{}, bool)
}

// MapState is a StateStore backed by a plain map. Suitable for values that
// are themselves safe for concurrent use; the map must not be mutated after
// the server starts serving.
type MapState map[string]interface{}

// Get implements StateStore.
func (m MapState) Get(key string) (interface{}, bool) {
	v, ok := m[key]
	return v, ok
}

// Arguments is the invocation context handed to a handler: validated inputs,
// the opaque caller descriptor and a lookup into shared process state. It is
// created per call and must not outlive the handler invocation.
type Arguments[T any] struct {
	Inputs T
	Caller Caller

	state StateStore
}

// State looks up key in the shared state container and stores the value into
// dst, which must be a non-nil pointer. It returns a StateAccessError when
// the key is absent or the stored value is not assignable to *dst.
func (a Arguments[T]) State(key string, dst interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return &StateAccessError{Key: key, Reason: "destination must be a non-nil pointer"}
	}
	if a.state == nil {
		return &StateAccessError{Key: key, Reason: "no state container attached"}
	}

	value, ok := a.state.Get(key)
	if !ok {
		return &StateAccessError{Key: key, Reason: "key not set"}
	}

	elem := rv.Elem()
	vv := reflect.ValueOf(value)
	if !vv.IsValid() || !vv.Type().AssignableTo(elem.Type()) {
		return &StateAccessError{
			Key:    key,
			Reason: fmt.Sprintf("stored value of type %T is not assignable to %s", value, elem.Type()),
		}
	}
	elem.Set(vv)
	return nil
}
