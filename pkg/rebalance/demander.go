package rebalance

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// WorkItem is returned by Demander.AddAssignments: a deferred unit of work
// that, when Run, waits on any prerequisite caches and then drives the
// demand/supply protocol for one assignment. Mirrors the teacher's
// doOnMetadataUpdate returning a closure the caller schedules
// ("go c.loadSession().doOnMetadataUpdate()") rather than launching a
// goroutine itself.
type WorkItem struct {
	Batch  AssignmentBatch
	Future *RebalanceFuture
	run    func(ctx context.Context)
}

// Run executes the work item: waiting on prerequisite caches (OrderingGate)
// and then requesting partitions. Safe to call from any goroutine; callers
// typically do `go item.Run(ctx)`.
func (w *WorkItem) Run(ctx context.Context) {
	if w.run == nil {
		return
	}
	w.run(ctx)
}

// Demander is the per-cache driver described in spec §4.C: it accepts
// assignments, splits per-supplier partition sets across worker lanes,
// dispatches demand messages, receives supply messages, applies entries,
// advances the RebalanceFuture, and triggers the next round on missed
// partitions.
type Demander struct {
	cfg Config

	affinity  Affinity
	store     PartitionStore
	transport Transport
	exchange  ExchangeManager
	ordering  *OrderingGate

	lock       *DemandLock
	retryTimer *RetryTimer
	laneSched  LaneScheduler
	codec      SupplyCodec
	metrics    *metrics
	logger     Logger
	events     EventBus

	seqCounter int64 // atomic, monotonic per Demander (spec §5)

	mu      sync.Mutex
	current *RebalanceFuture
}

// NewDemander constructs a Demander wired to its external collaborators. The
// Demander starts holding the dummy initial future (spec §3, "The dummy
// (initial) future").
func NewDemander(cfg Config, affinity Affinity, store PartitionStore, transport Transport, exchange ExchangeManager, ordering *OrderingGate, timer Timer) (*Demander, error) {
	cfg = cfg.withDefaults()
	codec, err := NewSupplyCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}
	d := &Demander{
		cfg:        cfg,
		affinity:   affinity,
		store:      store,
		transport:  transport,
		exchange:   exchange,
		ordering:   ordering,
		lock:       &DemandLock{},
		retryTimer: NewRetryTimer(timer),
		laneSched:  newLaneScheduler(cfg),
		codec:      codec,
		metrics:    newMetrics(cfg.Metrics),
		logger:     cfg.Logger,
		events:     cfg.Events,
		current:    newInitialFuture(),
	}
	return d, nil
}

func (d *Demander) nextSeq() int64 { return atomic.AddInt64(&d.seqCounter, 1) }

// SyncFuture returns the current future (may be the initial dummy), per
// spec §4.C.4. Satisfies FutureSource so a Demander can be looked up
// directly by OrderingGate.
func (d *Demander) SyncFuture() *RebalanceFuture {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func (d *Demander) futureDeps() futureDeps {
	return futureDeps{
		cacheID:  d.cfg.CacheID,
		affinity: d.affinity,
		exchange: d.exchange,
		events:   d.events,
		metrics:  d.metrics,
		logger:   d.logger,
	}
}

// AddAssignments implements spec §4.C operation 1.
func (d *Demander) AddAssignments(batch AssignmentBatch, force bool, beforeCaches []CacheName) (*WorkItem, error) {
	if d.cfg.Mode == RebalanceNone {
		return nil, nil
	}

	if len(beforeCaches) == 0 {
		beforeCaches = d.cfg.BeforeCaches
	}

	immediate := d.cfg.Delay == 0 || force

	if !immediate {
		d.retryTimer.Set(d.cfg.Delay, func() { d.ForcePreload() })
		return nil, nil
	}

	d.mu.Lock()
	prev := d.current
	seq := d.nextSeq()
	next := newRebalanceFuture(d.futureDeps(), seq, batch.TopologyVersion(), batch.ExchangeID(), true)
	d.current = next
	d.mu.Unlock()

	if !prev.IsInitial() {
		prev.Cancel()
	} else {
		prev.chainTo(next)
	}

	if d.exchange != nil && d.exchange.HasPendingExchange() {
		next.Cancel()
		return nil, nil
	}

	if batch.Empty() {
		next.DoneIfEmpty()
		return nil, nil
	}

	if d.topologyHasMovedPast(next.TopologyVersion) {
		next.Cancel()
		return nil, nil
	}

	item := &WorkItem{Batch: batch, Future: next}
	item.run = func(ctx context.Context) {
		if len(beforeCaches) > 0 && d.ordering != nil {
			if err := d.ordering.Await(ctx, next, beforeCaches); err != nil {
				d.logger.Log(LogLevelDebug, "ordering gate aborted rebalance", "cache", d.cfg.CacheID, "err", err)
				return
			}
		}
		d.requestPartitions(ctx, next, batch)
	}
	return item, nil
}

func (d *Demander) topologyHasMovedPast(topVer TopologyVersion) bool {
	if d.affinity == nil {
		return false
	}
	return d.affinity.AffinityTopologyVersion().Compare(topVer) > 0
}

// requestPartitions implements spec §4.C "requestPartitions algorithm".
func (d *Demander) requestPartitions(ctx context.Context, future *RebalanceFuture, batch AssignmentBatch) {
	laneCount := d.laneSched.LaneCount()

	batch.Each(func(supplier SupplierID, parts *PartitionSet) {
		if future.IsDone() {
			return
		}
		if d.topologyHasMovedPast(future.TopologyVersion) {
			future.Cancel()
			return
		}

		future.AppendPartitions(supplier, parts)

		for _, lane := range splitIntoLanes(d.cfg.CacheID, parts, laneCount) {
			msg := &DemandMessage{
				CacheID:         d.cfg.CacheID,
				TopologyVersion: future.TopologyVersion,
				UpdateSeq:       future.UpdateSeq,
				Timeout:         d.cfg.Timeout,
				Partitions:      lane.Partitions,
				Topic:           lane.Topic,
				Codec:           d.codec.ID(),
			}
			if err := d.transport.SendOrdered(ctx, supplier, lane.Topic, msg, d.cfg.Timeout); err != nil {
				d.logger.Log(LogLevelError, "demand send failed", "cache", d.cfg.CacheID, "supplier", supplier, "lane", lane.Index, "err", err)
				future.Cancel(supplier)
				return
			}
		}
	})
}

// HandleSupplyMessage implements spec §4.C "handleSupplyMessage algorithm".
func (d *Demander) HandleSupplyMessage(ctx context.Context, lane int, supplier SupplierID, supply *SupplyMessage) {
	future := d.SyncFuture()

	if !future.IsActual(supply.UpdateSeq) {
		d.logger.Log(LogLevelDebug, "dropping stale supply message", "cache", d.cfg.CacheID, "supplier", supplier, "seq", supply.UpdateSeq, "last", dumpPartitionSet(supply.Last))
		return
	}

	if d.topologyHasMovedPast(future.TopologyVersion) {
		future.Cancel()
		return
	}

	if supply.ClassError != "" {
		d.logger.Log(LogLevelDebug, "supply message failed to deserialize", "cache", d.cfg.CacheID, "supplier", supplier, "class_error", supply.ClassError)
		future.Cancel(supplier)
		return
	}

	d.lock.RLock()
	d.applyEntries(future, supplier, supply)
	d.lock.RUnlock()

	d.applyMissed(future, supplier, supply)

	if future.IsDone() || d.topologyHasMovedPast(future.TopologyVersion) {
		return
	}

	ack := &DemandMessage{
		CacheID:         d.cfg.CacheID,
		TopologyVersion: future.TopologyVersion,
		UpdateSeq:       future.UpdateSeq,
		Timeout:         d.cfg.Timeout,
		Partitions:      NewPartitionSet(),
		Topic:           rebalanceTopic(d.cfg.CacheID, lane),
		Codec:           d.codec.ID(),
	}
	if err := d.transport.SendOrdered(ctx, supplier, ack.Topic, ack, d.cfg.Timeout); err != nil {
		d.logger.Log(LogLevelError, "ack-and-continue send failed", "cache", d.cfg.CacheID, "supplier", supplier, "lane", lane, "err", err)
		future.Cancel(supplier)
	}
}

func (d *Demander) applyEntries(future *RebalanceFuture, supplier SupplierID, supply *SupplyMessage) {
	for p, entries := range supply.PerPartition {
		if !d.affinity.LocalNode(p, future.TopologyVersion) {
			future.PartitionDone(supplier, p)
			continue
		}

		part, err := d.store.LocalPartition(p, future.TopologyVersion, true)
		if err != nil {
			d.logger.Log(LogLevelDebug, "local partition unavailable", "cache", d.cfg.CacheID, "partition", p, "err", err)
			future.PartitionDone(supplier, p)
			continue
		}
		if part.State() != PartitionMoving {
			future.PartitionDone(supplier, p)
			continue
		}

		if err := d.applyPartitionEntries(p, part, entries); err != nil {
			d.logger.Log(LogLevelDebug, "aborted applying partition batch", "cache", d.cfg.CacheID, "partition", p, "err", err)
		}

		if supply.Last.Contains(p) {
			d.store.Own(part)
			future.PartitionDone(supplier, p)
		}
	}
}

// applyPartitionEntries applies each entry under a reserve+lock scope,
// guaranteeing release/unlock on every exit path (spec §3 "Ownership &
// lifetimes"; spec §9 "Scoped partition reservation").
func (d *Demander) applyPartitionEntries(p PartitionID, part Partition, entries []Entry) error {
	if err := part.Reserve(); err != nil {
		return err
	}
	defer part.Release()

	part.Lock()
	defer part.Unlock()

	for _, e := range entries {
		if !part.PreloadingPermitted(e.Key, e.Version) {
			continue
		}
		value, err := d.codec.Decode(e.Value)
		if err != nil {
			d.logger.Log(LogLevelDebug, "discarding entry with undecodable value", "cache", d.cfg.CacheID, "partition", p, "codec", d.codec.ID(), "err", err)
			continue
		}
		installed, err := part.InitialValue(e.Key, value, e.Version, e.TTL, e.ExpireTime)
		if err != nil {
			if err == ErrInvalidPartition {
				return err
			}
			continue
		}
		if installed {
			d.events.AddPreloadEvent(Event{
				Type:      EventObjectLoaded,
				CacheID:   d.cfg.CacheID,
				Partition: p,
				At:        time.Now(),
			})
		}
	}
	return nil
}

func (d *Demander) applyMissed(future *RebalanceFuture, supplier SupplierID, supply *SupplyMessage) {
	if supply.Missed == nil {
		return
	}
	for _, p := range supply.Missed.Sorted() {
		if !d.affinity.LocalNode(p, future.TopologyVersion) {
			continue
		}
		future.PartitionMissed(supplier, p)
		future.PartitionDone(supplier, p)
		if d.metrics != nil {
			d.metrics.missedPartitions.WithLabelValues(strconv.FormatUint(uint64(d.cfg.CacheID), 10), supplierLabel(supplier)).Inc()
		}
	}
}

// ForcePreload implements spec §4.C operation 3.
func (d *Demander) ForcePreload() {
	d.retryTimer.Cancel()
	if d.exchange != nil {
		d.exchange.ForcePreloadExchange()
	}
}
