package rebalance

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func newTestFutureDeps(t *testing.T, affinity *fakeAffinity, exchange *fakeExchangeManager, events *fakeEventBus) futureDeps {
	t.Helper()
	return futureDeps{
		cacheID:  1,
		affinity: affinity,
		exchange: exchange,
		events:   events,
		metrics:  newMetrics(prometheus.NewRegistry()),
		logger:   nopLogger{},
	}
}

func TestRebalanceFuture_HappyPath(t *testing.T) {
	topVer := TopologyVersion{Epoch: 1, Order: 5}
	affinity := newFakeAffinity(topVer)
	exchange := &fakeExchangeManager{}
	events := &fakeEventBus{}
	deps := newTestFutureDeps(t, affinity, exchange, events)

	f := newRebalanceFuture(deps, 1, topVer, 42, true)
	f.AppendPartitions("n1", NewPartitionSet(0, 1, 2))

	f.PartitionDone("n1", 0)
	require.False(t, f.IsDone())
	f.PartitionDone("n1", 1)
	require.False(t, f.IsDone())
	f.PartitionDone("n1", 2)

	require.True(t, f.IsDone())
	require.Equal(t, FutureSucceededTrue, f.State())

	ok, err := f.Wait(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, 3, events.countOf(EventPartLoaded))
	require.Equal(t, 1, events.countOf(EventRebalanceStopped))
	require.Equal(t, 0, len(exchange.forcedDummies))
	require.Equal(t, 1, exchange.resendRequested)
}

func TestRebalanceFuture_MissedPartitionsForceDummyExchange(t *testing.T) {
	topVer := TopologyVersion{Epoch: 1, Order: 5}
	affinity := newFakeAffinity(topVer)
	exchange := &fakeExchangeManager{}
	events := &fakeEventBus{}
	deps := newTestFutureDeps(t, affinity, exchange, events)

	f := newRebalanceFuture(deps, 1, topVer, 42, true)
	f.AppendPartitions("n1", NewPartitionSet(0, 1))

	f.PartitionMissed("n1", 1)
	f.PartitionDone("n1", 0)
	f.PartitionDone("n1", 1)

	require.True(t, f.IsDone())
	require.Equal(t, FutureSucceededFalse, f.State())
	require.Len(t, exchange.forcedDummies, 1)
	require.True(t, exchange.forcedDummies[0].Contains(1))
	require.Equal(t, 0, exchange.resendRequested)
}

func TestRebalanceFuture_CancelIsIdempotentAndBypassesDummyExchange(t *testing.T) {
	topVer := TopologyVersion{Epoch: 1, Order: 5}
	affinity := newFakeAffinity(topVer)
	exchange := &fakeExchangeManager{}
	events := &fakeEventBus{}
	deps := newTestFutureDeps(t, affinity, exchange, events)

	f := newRebalanceFuture(deps, 1, topVer, 42, true)
	f.AppendPartitions("n1", NewPartitionSet(0, 1))
	f.PartitionMissed("n1", 0)

	f.Cancel()
	f.Cancel()
	f.Cancel("n1")

	require.Equal(t, FutureCancelled, f.State())
	require.Empty(t, exchange.forcedDummies)

	// Further mutation is a no-op per spec §8 invariant 3.
	f.PartitionDone("n1", 1)
	require.Equal(t, FutureCancelled, f.State())
}

func TestRebalanceFuture_CancelSupplierDoesNotEndFutureWithOthersOutstanding(t *testing.T) {
	topVer := TopologyVersion{Epoch: 1, Order: 5}
	affinity := newFakeAffinity(topVer)
	exchange := &fakeExchangeManager{}
	events := &fakeEventBus{}
	deps := newTestFutureDeps(t, affinity, exchange, events)

	f := newRebalanceFuture(deps, 1, topVer, 42, true)
	f.AppendPartitions("n1", NewPartitionSet(0))
	f.AppendPartitions("n2", NewPartitionSet(1))

	f.Cancel("n1")
	require.False(t, f.IsDone())

	f.PartitionDone("n2", 1)
	require.True(t, f.IsDone())
	require.Equal(t, FutureSucceededTrue, f.State())
}

func TestRebalanceFuture_IsActual(t *testing.T) {
	f := newRebalanceFuture(futureDeps{}, 7, TopologyVersion{Epoch: 1}, 0, false)
	require.True(t, f.IsActual(7))
	require.False(t, f.IsActual(6))
}

func TestRebalanceFuture_DoneIfEmpty(t *testing.T) {
	topVer := TopologyVersion{Epoch: 2}
	affinity := newFakeAffinity(topVer)
	exchange := &fakeExchangeManager{}
	events := &fakeEventBus{}
	deps := newTestFutureDeps(t, affinity, exchange, events)

	f := newRebalanceFuture(deps, 1, topVer, 1, true)
	f.DoneIfEmpty()

	require.True(t, f.IsDone())
	require.Equal(t, FutureSucceededTrue, f.State())
}

func TestInitialFuture_PendingUntilChained(t *testing.T) {
	initial := newInitialFuture()
	require.True(t, initial.IsInitial())
	require.False(t, initial.IsDone())

	topVer := TopologyVersion{Epoch: 1, Order: 1}
	affinity := newFakeAffinity(topVer)
	exchange := &fakeExchangeManager{}
	events := &fakeEventBus{}
	deps := newTestFutureDeps(t, affinity, exchange, events)
	next := newRebalanceFuture(deps, 1, topVer, 1, true)

	initial.chainTo(next)
	require.False(t, initial.IsDone(), "initial future must stay pending until the chained future resolves")

	next.DoneIfEmpty()

	require.True(t, next.IsDone())
	require.True(t, initial.IsDone())
	require.Equal(t, initial.State(), next.State())
}

func TestRebalanceFuture_ListenAfterTerminalRunsImmediately(t *testing.T) {
	f := newRebalanceFuture(futureDeps{events: NopEventBus{}}, 1, TopologyVersion{Epoch: 1}, 0, false)
	f.resolve(true)

	done := make(chan bool, 1)
	f.Listen(func(result bool) { done <- result })

	select {
	case result := <-done:
		require.True(t, result)
	case <-time.After(time.Second):
		t.Fatal("listener registered after terminal transition did not run")
	}
}
