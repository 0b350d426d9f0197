package messages

// Optional is the result of a read against a client that may be unbound.
// An empty Optional means no request was made. That happens when no client
// is configured, or when MessageLists is given no lists. Callers that need
// to tell the two apart check Client.Bound. An empty Optional is distinct
// from a successful empty result.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some wraps a value produced by a bound client.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None is the result of an unbound client.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether a request was actually made.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// OK reports whether the value came from a bound client.
func (o Optional[T]) OK() bool {
	return o.ok
}

// OrElse returns the value, or def when the client was unbound.
func (o Optional[T]) OrElse(def T) T {
	if !o.ok {
		return def
	}
	return o.value
}
