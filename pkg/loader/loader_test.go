package loader

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermanentError(t *testing.T) {
	base := errors.New("no id column")
	err := Permanent(base)

	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "permanent")

	// Wrapping preserves the classification
	wrapped := fmt.Errorf("load failed: %w", err)
	assert.True(t, IsPermanent(wrapped))
}

func TestPermanent_NilAndTransient(t *testing.T) {
	assert.Nil(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("connection reset")))
	assert.False(t, IsPermanent(nil))
}
