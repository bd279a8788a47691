package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Secret string `validate:"required"`
	Limit  int    `validate:"gte=1"`
}

func TestStruct_ReportsFields(t *testing.T) {
	err := Struct(sample{})
	require.Error(t, err)

	body := ErrorResponse(err)
	assert.Equal(t, "validation_failed", body.Error)
	assert.Equal(t, []string{"required"}, body.Fields["secret"])
	assert.Equal(t, []string{"gte"}, body.Fields["limit"])
}

func TestErrorResponse_PlainError(t *testing.T) {
	body := ErrorResponse(errors.New("boom"))
	assert.Equal(t, "boom", body.Error)
	assert.Empty(t, body.Fields)
}

func TestNew_ValidatesEchoPayload(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(sample{Secret: "x", Limit: 1}))
	assert.Error(t, v.Validate(sample{Secret: "x"}))
}
