package rebalance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOrderingGate_AwaitsAllPrerequisitesInOrder(t *testing.T) {
	topVer := TopologyVersion{Epoch: 1}
	affinity := newFakeAffinity(topVer)
	deps := futureDeps{cacheID: 9, affinity: affinity, events: NopEventBus{}}

	account := newRebalanceFuture(deps, 1, topVer, 1, true)
	customer := newRebalanceFuture(deps, 1, topVer, 1, true)

	lookup := map[CacheName]FutureSource{
		"account":  fakeFutureSource{account},
		"customer": fakeFutureSource{customer},
	}
	gate := NewOrderingGate(func(name CacheName) FutureSource { return lookup[name] })

	self := newRebalanceFuture(deps, 2, topVer, 1, true)
	self.AppendPartitions("n1", NewPartitionSet(0))

	done := make(chan error, 1)
	go func() { done <- gate.Await(context.Background(), self, []CacheName{"account", "customer"}) }()

	select {
	case <-done:
		t.Fatal("Await returned before prerequisites resolved")
	case <-time.After(30 * time.Millisecond):
	}

	account.DoneIfEmpty()
	customer.DoneIfEmpty()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Await did not return after prerequisites resolved")
	}
	require.False(t, self.IsDone())
}

func TestOrderingGate_PrerequisiteFailureCancelsSelf(t *testing.T) {
	topVer := TopologyVersion{Epoch: 1}
	affinity := newFakeAffinity(topVer)
	deps := futureDeps{cacheID: 9, affinity: affinity, events: NopEventBus{}}

	account := newRebalanceFuture(deps, 1, topVer, 1, true)
	lookup := map[CacheName]FutureSource{"account": fakeFutureSource{account}}
	gate := NewOrderingGate(func(name CacheName) FutureSource { return lookup[name] })

	self := newRebalanceFuture(deps, 2, topVer, 1, true)
	self.AppendPartitions("n1", NewPartitionSet(0))

	account.Cancel() // resolves account with false

	err := gate.Await(context.Background(), self, []CacheName{"account"})
	require.ErrorIs(t, err, ErrStaleTopology)
	require.True(t, self.IsDone())
	require.Equal(t, FutureCancelled, self.State())
}

func TestOrderingGate_SkipsUnknownAndInitialPrerequisites(t *testing.T) {
	topVer := TopologyVersion{Epoch: 1}
	affinity := newFakeAffinity(topVer)
	deps := futureDeps{cacheID: 9, affinity: affinity, events: NopEventBus{}}

	gate := NewOrderingGate(func(name CacheName) FutureSource {
		if name == "no-such-cache" {
			return nil
		}
		return fakeFutureSource{newInitialFuture()}
	})

	self := newRebalanceFuture(deps, 1, topVer, 1, true)
	err := gate.Await(context.Background(), self, []CacheName{"no-such-cache", "fresh-cache"})
	require.NoError(t, err)
	require.False(t, self.IsDone())
}

func TestOrderingGate_ContextCancellationCancelsSelf(t *testing.T) {
	topVer := TopologyVersion{Epoch: 1}
	affinity := newFakeAffinity(topVer)
	deps := futureDeps{cacheID: 9, affinity: affinity, events: NopEventBus{}}

	account := newRebalanceFuture(deps, 1, topVer, 1, true)
	account.AppendPartitions("n1", NewPartitionSet(0)) // never completes

	lookup := map[CacheName]FutureSource{"account": fakeFutureSource{account}}
	gate := NewOrderingGate(func(name CacheName) FutureSource { return lookup[name] })

	self := newRebalanceFuture(deps, 2, topVer, 1, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := gate.Await(ctx, self, []CacheName{"account"})
	require.ErrorIs(t, err, ErrInterrupted)
	require.True(t, self.IsDone())
}
