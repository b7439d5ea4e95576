package validate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addParams struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"gte=0"`
}

func TestStructValid(t *testing.T) {
	out, err := Struct[addParams]().Validate(json.RawMessage(`{"name":"widget","count":3}`))
	require.NoError(t, err)
	assert.Equal(t, addParams{Name: "widget", Count: 3}, out)
}

func TestStructMissingRequired(t *testing.T) {
	_, err := Struct[addParams]().Validate(json.RawMessage(`{"count":1}`))
	assert.Error(t, err)
}

func TestStructTagViolation(t *testing.T) {
	_, err := Struct[addParams]().Validate(json.RawMessage(`{"name":"widget","count":-1}`))
	assert.Error(t, err)
}

func TestStructUnknownFieldRejected(t *testing.T) {
	_, err := Struct[addParams]().Validate(json.RawMessage(`{"name":"widget","extra":true}`))
	assert.Error(t, err)
}

func TestStructWrongType(t *testing.T) {
	_, err := Struct[addParams]().Validate(json.RawMessage(`{"name":42}`))
	assert.Error(t, err)
}

func TestStructNullStillValidated(t *testing.T) {
	// Absent params decode to the zero value, which must still pass the tags.
	_, err := Struct[addParams]().Validate(nil)
	assert.Error(t, err)
	_, err = Struct[addParams]().Validate(json.RawMessage(`null`))
	assert.Error(t, err)

	type optional struct {
		Limit int `json:"limit" validate:"gte=0"`
	}
	out, err := Struct[optional]().Validate(nil)
	require.NoError(t, err)
	assert.Equal(t, optional{}, out)
}
