package errs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Is_MatchesWrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("endpoint: %w", ErrNotConnected)
	assert.True(t, Is(wrapped, ErrNotConnected))
}

func Test_SentinelsAreDistinct(t *testing.T) {
	assert.NotErrorIs(t, ErrBindRejected, ErrSetRejected)
	assert.NotErrorIs(t, ErrPinDirection, ErrPinNotFound)
}
