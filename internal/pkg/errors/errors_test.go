package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsInvalidInput(t *testing.T) {
	require.True(t, IsInvalidInput(fmt.Errorf("page size: %w", ErrInvalid)))
	require.True(t, IsInvalidInput(fmt.Errorf("query: %w", ErrDimensionMismatch)))
	require.False(t, IsInvalidInput(ErrUpstreamUnavailable))
}

func TestIsConfiguration(t *testing.T) {
	err := fmt.Errorf("ranking.temporal_decay_rate must be > 0: %w", ErrConfiguration)
	require.True(t, IsConfiguration(err))
	require.False(t, IsConfiguration(ErrInvalid))
}
