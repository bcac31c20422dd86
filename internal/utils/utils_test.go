package utils

import (
	"errors"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ConversationID int64  `json:"conversationId" validate:"required,gt=0"`
	Kind           string `json:"kind" validate:"omitempty,oneof=A B"`
}

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string { return f.Tag.Get("json") })
	return v
}

func TestValidationErr(t *testing.T) {
	err := newValidate().Struct(sample{Kind: "C"})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	out := ValidationErr(verrs)
	require.Len(t, out, 2)
	assert.Equal(t, "conversationId", out[0].Field)
	assert.Equal(t, "This field is required.", out[0].Message)
	assert.Equal(t, "Must be one of: A B.", out[1].Message)
}

func TestSummary(t *testing.T) {
	err := newValidate().Struct(sample{ConversationID: 0})
	assert.Equal(t, "conversationId: This field is required.", Summary(err))
	assert.Equal(t, "invalid payload", Summary(errors.New("boom")))
}
