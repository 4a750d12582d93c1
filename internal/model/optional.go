package model

import "encoding/json"

// Optional is a JSON field that remembers whether the client supplied it.
//
// PARTIAL UPDATES NEED THREE STATES:
//
//	{}                     → Set=false             ("leave it alone")
//	{"fixed": false}       → Set=true, Value=false ("clear the flag")
//	{"adopter_id": null}   → Set=true, Null=true   ("clear the reference")
//
// A plain bool cannot tell the first two apart once decoded, and *bool cannot
// tell the first from the third.
//
// encoding/json calls UnmarshalJSON only for keys that are present in the
// payload (including explicit nulls), so an untouched Optional stays Set=false.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns an Optional carrying v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Null returns an Optional explicitly set to null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		var zero T
		o.Value = zero
		o.Null = true
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// Ptr returns nil for an explicit null, otherwise a pointer to a copy of Value.
func (o Optional[T]) Ptr() *T {
	if o.Null {
		return nil
	}
	v := o.Value
	return &v
}
