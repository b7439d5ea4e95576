// Package validate adapts go-playground/validator struct-tag validation to
// the reactive.Validator contract.
package validate

import (
	"bytes"
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/zoravur/liveq/internal/reactive"
)

var v = validator.New(validator.WithRequiredStructEnabled())

type structValidator[T any] struct{}

// Struct returns a validator that strict-unmarshals raw params into T
// (unknown fields rejected) and then runs its `validate` struct tags. The
// returned value replaces the raw params downstream, fingerprinting
// included. T must be a struct type.
func Struct[T any]() reactive.Validator {
	return structValidator[T]{}
}

func (structValidator[T]) Validate(raw json.RawMessage) (any, error) {
	var out T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&out); err != nil {
			return nil, err
		}
	}
	if err := v.Struct(out); err != nil {
		return nil, err
	}
	return out, nil
}
