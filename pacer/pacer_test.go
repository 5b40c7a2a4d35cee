package pacer

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallRetriesExactly(t *testing.T) {
	p := New(3, time.Second).SetTimer(func(time.Duration) {})
	calls := 0
	err := p.Call(func() (bool, error) {
		calls++
		return true, errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestCallSucceedsFirstTry(t *testing.T) {
	p := New(5, time.Second).SetTimer(func(time.Duration) {})
	calls := 0
	err := p.Call(func() (bool, error) {
		calls++
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCallSucceedsAfterRetry(t *testing.T) {
	p := New(5, time.Second).SetTimer(func(time.Duration) {})
	calls := 0
	err := p.Call(func() (bool, error) {
		calls++
		if calls < 3 {
			return true, errors.New("transient")
		}
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestCallNoRetryWhenDeclined(t *testing.T) {
	p := New(5, time.Second).SetTimer(func(time.Duration) {})
	calls := 0
	err := p.Call(func() (bool, error) {
		calls++
		return false, errors.New("fatal")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestCallSleepsBetweenAttempts(t *testing.T) {
	sleeps := 0
	p := New(4, 123*time.Millisecond).SetTimer(func(d time.Duration) {
		assert.Equal(t, 123*time.Millisecond, d)
		sleeps++
	})
	_ = p.Call(func() (bool, error) {
		return true, errors.New("boom")
	})
	// Four attempts, three sleeps in between.
	assert.Equal(t, 3, sleeps)
}
