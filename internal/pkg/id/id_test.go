package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAt_EncodesTimestamp(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	got, err := Time(NewAt(at))
	require.NoError(t, err)
	assert.True(t, at.Equal(got))
}

func TestNewAt_MonotonicWithinMillisecond(t *testing.T) {
	at := time.Now()
	prev := NewAt(at)
	for i := 0; i < 100; i++ {
		next := NewAt(at)
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestTime_RejectsGarbage(t *testing.T) {
	_, err := Time("not-a-ulid")
	assert.Error(t, err)
}
