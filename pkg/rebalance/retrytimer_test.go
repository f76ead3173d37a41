package rebalance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRetryTimer_SetReplacesPreviousTimer(t *testing.T) {
	timer := newFakeTimer()
	rt := NewRetryTimer(timer)

	fired := 0
	rt.Set(100, func() { fired++ })
	require.Equal(t, 1, timer.armedCount())

	rt.Set(200, func() { fired += 10 })
	require.Equal(t, 1, timer.armedCount(), "Set must replace, not stack, the previously armed timer")

	for handle := range timer.armed {
		timer.fire(handle)
	}
	require.Equal(t, 10, fired, "only the most recently armed action should fire")
}

func TestRetryTimer_CancelIsIdempotent(t *testing.T) {
	timer := newFakeTimer()
	rt := NewRetryTimer(timer)

	rt.Cancel()
	require.Equal(t, 0, timer.armedCount())

	rt.Set(100, func() {})
	rt.Cancel()
	rt.Cancel()
	require.Equal(t, 0, timer.armedCount())
}
