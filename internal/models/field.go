package models

import (
	"bytes"
	"encoding/json"
)

// Field is one slot of a partial update.
//
// Set is false when the caller did not mention the field at all. Null is true
// when the caller explicitly asked to clear it. Value is only meaningful when
// Set && !Null.
type Field[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns a Field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

// Null returns a Field that clears the target value.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// HasValue reports whether the field carries a concrete value.
func (f Field[T]) HasValue() bool {
	return f.Set && !f.Null
}

// UnmarshalJSON is only invoked when the key is present in the payload,
// which is what distinguishes "absent" from "null".
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	// явный null очищает поле
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// IsZero reports an absent field, so `omitzero` drops it when encoding.
func (f Field[T]) IsZero() bool {
	return !f.Set
}

// MarshalJSON writes null for cleared or absent fields.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.HasValue() {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}
