package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := fmt.Errorf("append: %w", Store("append row", cause))

	assert.True(t, errors.Is(err, ErrStore))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrAuth))
	assert.Equal(t, "append: append row: quota exceeded", err.Error())

	assert.True(t, IsClientError(Validation("date is required")))
	assert.True(t, IsClientError(Parse("bad body", cause)))
	assert.False(t, IsClientError(Auth("denied", cause)))
}
