package rebalance

import "context"

// FutureSource is implemented by anything that can hand back its current
// RebalanceFuture — a Demander, in production; a fake in tests. Kept
// separate from Demander itself so OrderingGate only depends on the one
// method it needs, the same narrow-interface discipline the teacher applies
// to its broker/cxn split.
type FutureSource interface {
	SyncFuture() *RebalanceFuture
}

// OrderingGate enforces the rebalance-before dependency across caches
// (spec §4.D): before a cache issues demand messages, it waits for every
// prerequisite cache's current future to succeed.
type OrderingGate struct {
	lookup func(CacheName) FutureSource
}

// NewOrderingGate builds a gate that resolves prerequisite cache names via
// lookup (typically a registry of Demanders keyed by cache name).
func NewOrderingGate(lookup func(CacheName) FutureSource) *OrderingGate {
	return &OrderingGate{lookup: lookup}
}

// Await waits on every cache in order, in priority order, stopping early if
// ctx is done or if self (the future that would otherwise issue demand
// messages next) goes stale. It returns an error only when the wait should
// abort issuing demand messages at all: ErrInterrupted on cancellation, or
// ErrStaleTopology if self is no longer the active future or a prerequisite's
// future completed with false (self is then cancelled).
//
// Mirrors the teacher's guardSessionChange/stopSession pairing: a sequence
// of blocking waits, each checked against the possibility that the world
// moved on mid-wait.
func (g *OrderingGate) Await(ctx context.Context, self *RebalanceFuture, order []CacheName) error {
	for _, name := range order {
		src := g.lookup(name)
		if src == nil {
			continue
		}
		prereq := src.SyncFuture()
		if prereq == nil || prereq.IsInitial() {
			continue
		}
		ok, err := prereq.Wait(ctx)
		if err != nil {
			self.Cancel()
			return err
		}
		if self.IsDone() {
			return ErrStaleTopology
		}
		if !ok {
			// The prerequisite cache failed its round; this cache
			// cancels its own future without sending (spec §4.D
			// scenario 5).
			self.Cancel()
			return ErrStaleTopology
		}
	}
	return nil
}
