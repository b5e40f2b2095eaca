package luggage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoff_Defaults(t *testing.T) {
	b := NewBackoff(BackoffConfig{})
	require.Equal(t, 5*time.Minute, b.Delay(0))
	require.Equal(t, 5*time.Minute, b.Delay(1))
	require.Equal(t, 15*time.Minute, b.Delay(2))
	require.Equal(t, 30*time.Minute, b.Delay(3))
	require.Equal(t, 60*time.Minute, b.Delay(4))
	require.Equal(t, 60*time.Minute, b.Delay(40))
}

func TestBackoff_Overrides(t *testing.T) {
	b := NewBackoff(BackoffConfig{Backoff1: time.Second, Backoff4: time.Hour * 2})
	require.Equal(t, time.Second, b.Delay(1))
	require.Equal(t, 15*time.Minute, b.Delay(2))
	require.Equal(t, 2*time.Hour, b.Delay(5))
}
