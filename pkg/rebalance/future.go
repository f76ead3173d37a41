package rebalance

import (
	"strconv"
	"sync"
	"time"
)

// FutureState is the terminal-state enum of a RebalanceFuture (spec §3).
type FutureState int8

const (
	FutureActive FutureState = iota
	FutureCancelled
	FutureSucceededTrue
	FutureSucceededFalse
)

func (s FutureState) String() string {
	switch s {
	case FutureActive:
		return "ACTIVE"
	case FutureCancelled:
		return "CANCELLED"
	case FutureSucceededTrue:
		return "SUCCEEDED_TRUE"
	case FutureSucceededFalse:
		return "SUCCEEDED_FALSE"
	default:
		return "UNKNOWN"
	}
}

// supplierProgress tracks one supplier's outstanding partitions within a
// RebalanceFuture (spec §3, RebalanceFuture.remaining).
type supplierProgress struct {
	startedAt  time.Time
	remaining  *PartitionSet
}

// futureDeps are the collaborators a RebalanceFuture needs to run its
// checkIsDone policy (spec §4.B). They are shared, read-only references
// owned by the Demander that constructs the future.
type futureDeps struct {
	cacheID  uint32
	affinity Affinity
	exchange ExchangeManager
	events   EventBus
	metrics  *metrics
	logger   Logger
}

// RebalanceFuture is the per-attempt completion object described in spec
// §3/§4.B: it is the single synchronization point for one rebalance
// attempt, tracking remaining partitions per supplier, recording missed
// partitions, and exposing wait/cancel/listen.
//
// All mutators acquire mu; listeners run outside mu after the terminal
// transition is published (spec §4.B "Concurrency"), the same shape as the
// teacher's consumerSession: lock, mutate, decide the side effect, unlock,
// then act.
type RebalanceFuture struct {
	deps futureDeps

	UpdateSeq       int64
	TopologyVersion TopologyVersion
	ExchangeRef     uint64
	SendStoppedEvent bool

	mu        sync.Mutex
	remaining map[SupplierID]*supplierProgress
	missed    map[SupplierID]*PartitionSet
	state     FutureState
	result    bool
	listeners []func(result bool)
	done      chan struct{}

	createdAt time.Time
}

// newInitialFuture returns the dummy (zero-topology) future a Demander
// starts with before any real assignment has arrived. It is distinguishable
// via IsInitial and, per the resolved Open Question in DESIGN.md, behaves
// as "pending": it completes only once chained to the first real future via
// chainTo.
func newInitialFuture() *RebalanceFuture {
	return &RebalanceFuture{
		TopologyVersion: ZeroTopologyVersion,
		remaining:       make(map[SupplierID]*supplierProgress),
		missed:          make(map[SupplierID]*PartitionSet),
		done:            make(chan struct{}),
	}
}

// newRebalanceFuture constructs an Active future for a new assignment.
func newRebalanceFuture(deps futureDeps, seq int64, topVer TopologyVersion, exchangeRef uint64, sendStopped bool) *RebalanceFuture {
	return &RebalanceFuture{
		deps:             deps,
		UpdateSeq:        seq,
		TopologyVersion:  topVer,
		ExchangeRef:      exchangeRef,
		SendStoppedEvent: sendStopped,
		remaining:        make(map[SupplierID]*supplierProgress),
		missed:           make(map[SupplierID]*PartitionSet),
		done:             make(chan struct{}),
		createdAt:        time.Now(),
	}
}

// IsInitial reports whether this is the dummy future created before any
// real assignment.
func (f *RebalanceFuture) IsInitial() bool { return f.TopologyVersion.IsZero() }

// IsActual reports whether seq matches this future's UpdateSeq; used to
// silently discard stale supply messages (spec §3, isActual).
func (f *RebalanceFuture) IsActual(seq int64) bool { return seq == f.UpdateSeq }

// IsDone reports whether the future has reached a terminal state.
func (f *RebalanceFuture) IsDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state != FutureActive
}

// State returns the future's current terminal-state enum.
func (f *RebalanceFuture) State() FutureState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Done returns a channel closed once the future reaches a terminal state.
func (f *RebalanceFuture) Done() <-chan struct{} { return f.done }

// Listen registers fn to run once the future terminates, with the boolean
// success result. If the future is already terminal, fn runs immediately
// (synchronously, on the calling goroutine) — there is no race window
// because mu serializes against a concurrent terminal transition.
func (f *RebalanceFuture) Listen(fn func(result bool)) {
	f.mu.Lock()
	if f.state == FutureActive {
		f.listeners = append(f.listeners, fn)
		f.mu.Unlock()
		return
	}
	result := f.result
	f.mu.Unlock()
	fn(result)
}

// chainTo makes f resolve in lockstep with next: once next terminates, f
// terminates with the same boolean result. Used to carry the dummy initial
// future's completion forward to the first real future (spec §9 Open
// Questions — "pending" semantics chosen over "disabled").
func (f *RebalanceFuture) chainTo(next *RebalanceFuture) {
	next.Listen(func(result bool) {
		f.resolve(result)
	})
}

// Wait blocks until the future terminates or ctx is done, returning the
// boolean result and ErrInterrupted if ctx ended first.
func (f *RebalanceFuture) Wait(ctx doneCtx) (bool, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		result := f.result
		f.mu.Unlock()
		return result, nil
	case <-ctx.Done():
		return false, ErrInterrupted
	}
}

// doneCtx is the minimal context.Context surface Wait needs; declared
// locally so future.go does not need to import context just for this.
type doneCtx interface {
	Done() <-chan struct{}
}

// AppendPartitions registers expected partitions for supplier and records
// the wall-clock start time. Must be called before any PartitionDone for
// that supplier (spec §4.B).
func (f *RebalanceFuture) AppendPartitions(supplier SupplierID, parts *PartitionSet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != FutureActive {
		return
	}
	prog, ok := f.remaining[supplier]
	if !ok {
		prog = &supplierProgress{startedAt: time.Now(), remaining: NewPartitionSet()}
		f.remaining[supplier] = prog
	}
	for _, p := range parts.Sorted() {
		prog.remaining.Add(p)
	}
	count := prog.remaining.Len()
	f.setInFlightGauge(supplier, count)
}

// PartitionDone removes p from supplier's remaining set, emitting a
// part-loaded event if p was still outstanding. If that empties the
// supplier's set, the supplier entry is removed, and once no supplier is
// left checkIsDone runs (spec §4.B).
func (f *RebalanceFuture) PartitionDone(supplier SupplierID, p PartitionID) {
	f.mu.Lock()
	if f.state != FutureActive {
		f.mu.Unlock()
		return
	}
	prog, ok := f.remaining[supplier]
	if !ok {
		f.mu.Unlock()
		return
	}
	wasRemaining := prog.remaining.Contains(p)
	prog.remaining.Remove(p)
	emptied := prog.remaining.Empty()
	remainingCount := prog.remaining.Len()
	if emptied {
		delete(f.remaining, supplier)
	}
	allEmpty := len(f.remaining) == 0
	f.mu.Unlock()

	f.setInFlightGauge(supplier, remainingCount)
	if wasRemaining {
		f.emitEvent(EventPartLoaded, p, supplier)
	}
	if allEmpty {
		f.checkIsDone()
	}
}

// PartitionMissed records p as missed for supplier. It does not remove p
// from remaining; the caller follows with PartitionDone once done
// accounting (spec §4.B).
func (f *RebalanceFuture) PartitionMissed(supplier SupplierID, p PartitionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != FutureActive {
		return
	}
	m, ok := f.missed[supplier]
	if !ok {
		m = NewPartitionSet()
		f.missed[supplier] = m
	}
	m.Add(p)
}

// DoneIfEmpty completes the future successfully if remaining is empty at
// initial registration time (a vacuous assignment), per spec §4.B.
func (f *RebalanceFuture) DoneIfEmpty() {
	f.mu.Lock()
	empty := len(f.remaining) == 0
	f.mu.Unlock()
	if empty {
		f.checkIsDone()
	}
}

// Cancel clears remaining for every supplier (or, with an argument, for one
// supplier only) and transitions the future to FutureCancelled once nothing
// is left outstanding. Idempotent after the first terminal transition
// (spec §4.B, §5 "Cancellation").
//
// Resolved Open Question (see DESIGN.md): spec §4.B's prose has cancel()
// "call checkIsDone", the same entry point the success path uses. Read
// literally that would let a supplier-leave cancellation also trigger
// checkIsDone's missed-partition dummy-re-exchange branch, conflating two
// different causes of incompleteness (a remote failure vs. a clean
// drain-to-zero). Cancellation here transitions straight to FutureCancelled
// instead: it satisfies §5's "idempotent, non-blocking, immediately causes
// subsequent partitionDone/partitionMissed to be no-ops" and the §8 law
// cancel() ∘ cancel() = cancel() without also forcing a dummy exchange as a
// side effect of a partial-supplier cancel. A cancel(supplier) that leaves
// other suppliers still in progress does not end the future at all — it
// only drops that supplier's remaining partitions, same as spec'd.
func (f *RebalanceFuture) Cancel(supplier ...SupplierID) {
	f.mu.Lock()
	if f.state != FutureActive {
		f.mu.Unlock()
		return
	}
	if len(supplier) == 0 {
		f.remaining = make(map[SupplierID]*supplierProgress)
	} else {
		delete(f.remaining, supplier[0])
		if len(f.remaining) != 0 {
			f.mu.Unlock()
			return
		}
	}
	f.mu.Unlock()
	f.cancelTerminal()
}

// missedUnion returns the union of missed partitions across all suppliers.
func (f *RebalanceFuture) missedUnion() *PartitionSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	union := NewPartitionSet()
	for _, m := range f.missed {
		for _, p := range m.Sorted() {
			union.Add(p)
		}
	}
	return union
}

// checkIsDone implements the policy in spec §4.B. It must only run once
// remaining has become empty (callers check that before invoking it); it is
// itself idempotent because resolve() is.
func (f *RebalanceFuture) checkIsDone() {
	f.mu.Lock()
	if f.state != FutureActive {
		f.mu.Unlock()
		return
	}
	if len(f.remaining) != 0 {
		f.mu.Unlock()
		return
	}
	sendStopped := f.SendStoppedEvent
	topVer := f.TopologyVersion
	f.mu.Unlock()

	// Step 1: emit rebalance-stopped. This domain's caches are always
	// partitioned, so the "cache is partitioned OR sendStoppedEvent" test
	// in spec §4.B always holds; the event is emitted for every
	// non-initial future and sendStopped does not change that.
	if !f.IsInitial() {
		f.emitEvent(EventRebalanceStopped, 0, "")
	}
	_ = sendStopped

	if f.IsInitial() {
		// The dummy future only ever resolves via chainTo.
		return
	}

	// Step 2 / 3.
	if f.deps.affinity == nil || f.deps.affinity.AffinityTopologyVersion().Equal(topVer) {
		missed := f.missedUnion()
		if !missed.Empty() {
			f.resolve(false)
			if f.deps.exchange != nil {
				f.deps.exchange.ForceDummyExchange(f.deps.cacheID, missed)
			}
			if f.deps.metrics != nil {
				f.deps.metrics.dummyExchanges.WithLabelValues(strconv.FormatUint(uint64(f.deps.cacheID), 10)).Inc()
			}
			return
		}
		f.resolve(true)
		if f.deps.exchange != nil {
			f.deps.exchange.ScheduleResendPartitions(f.deps.cacheID)
		}
		return
	}

	// Affinity has moved on: a newer future will take over.
	f.resolve(true)
}

// resolve performs the terminal transition exactly once, freezes remaining/
// missed, closes done, and drains listeners outside mu (spec §4.B
// "Concurrency").
func (f *RebalanceFuture) resolve(result bool) {
	f.mu.Lock()
	if f.state != FutureActive {
		f.mu.Unlock()
		return
	}
	if result {
		f.state = FutureSucceededTrue
	} else {
		f.state = FutureSucceededFalse
	}
	f.result = result
	listeners := f.listeners
	f.listeners = nil
	close(f.done)
	f.mu.Unlock()

	if f.deps.metrics != nil && !f.createdAt.IsZero() {
		f.deps.metrics.rebalanceDuration.WithLabelValues(strconv.FormatUint(uint64(f.deps.cacheID), 10), resultLabel(result)).Observe(time.Since(f.createdAt).Seconds())
	}
	for _, l := range listeners {
		l(result)
	}
}

// cancelTerminal marks the future Cancelled directly, bypassing the
// resolve()/result bookkeeping used for success/failure. Used by
// classError and send-failure handling (spec §4.B "Failure semantics").
func (f *RebalanceFuture) cancelTerminal() {
	f.mu.Lock()
	if f.state != FutureActive {
		f.mu.Unlock()
		return
	}
	f.state = FutureCancelled
	f.result = false
	listeners := f.listeners
	f.listeners = nil
	close(f.done)
	f.mu.Unlock()
	for _, l := range listeners {
		l(false)
	}
}

func (f *RebalanceFuture) emitEvent(t EventType, p PartitionID, supplier SupplierID) {
	if f.deps.events == nil {
		return
	}
	f.deps.events.AddPreloadEvent(Event{
		Type:      t,
		CacheID:   f.deps.cacheID,
		Partition: p,
		Node:      supplier,
		Topology:  f.TopologyVersion,
		At:        time.Now(),
	})
}

// setInFlightGauge publishes the outstanding-partition count for supplier.
// Best-effort: a future with no metrics collaborator (e.g. the dummy initial
// future) simply skips it.
func (f *RebalanceFuture) setInFlightGauge(supplier SupplierID, count int) {
	if f.deps.metrics == nil {
		return
	}
	f.deps.metrics.inFlightPartitions.WithLabelValues(
		strconv.FormatUint(uint64(f.deps.cacheID), 10),
		supplierLabel(supplier),
	).Set(float64(count))
}

func resultLabel(ok bool) string {
	if ok {
		return "true"
	}
	return "false"
}

func supplierLabel(s SupplierID) string {
	if s == "" {
		return "_"
	}
	return string(s)
}
