package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountdownFiresExactlyOnce(t *testing.T) {
	var fires int32
	timer := startCountdown(3, time.Millisecond, func() {
		atomic.AddInt32(&fires, 1)
	})

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fires) == 1
	}, time.Second, time.Millisecond)

	// Let more intervals pass; the callback must not fire again.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fires))
	assert.Zero(t, timer.Remaining())
}

func TestCountdownCancelSuppressesExpiry(t *testing.T) {
	var fires int32
	timer := startCountdown(5, 5*time.Millisecond, func() {
		atomic.AddInt32(&fires, 1)
	})

	timer.Cancel()
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&fires))
}

func TestCountdownCancelAfterExpiryIsNoop(t *testing.T) {
	var fires int32
	timer := startCountdown(1, time.Millisecond, func() {
		atomic.AddInt32(&fires, 1)
	})

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fires) == 1
	}, time.Second, time.Millisecond)

	timer.Cancel()
	timer.Cancel()
	assert.Equal(t, int32(1), atomic.LoadInt32(&fires))
}

func TestCountdownRemainingDecrements(t *testing.T) {
	timer := startCountdown(100, time.Millisecond, func() {})
	defer timer.Cancel()

	require.Eventually(t, func() bool {
		return timer.Remaining() < 100
	}, time.Second, time.Millisecond)
}
