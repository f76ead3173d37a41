package rebalance

import "context"

// SupplierID identifies the remote node a Demander pulls partitions from.
type SupplierID string

// CacheName identifies a cache by its configured name; used by OrderingGate
// to look up prerequisite caches' Demanders.
type CacheName string

// PartitionTransferState mirrors the external local-partition store's
// lifecycle states. The core only ever reads MOVING and writes OWNING (via
// PartitionStore.Own).
type PartitionTransferState int8

const (
	PartitionMoving PartitionTransferState = iota
	PartitionOwning
	PartitionRenting
	PartitionEvicted
)

func (s PartitionTransferState) String() string {
	switch s {
	case PartitionMoving:
		return "MOVING"
	case PartitionOwning:
		return "OWNING"
	case PartitionRenting:
		return "RENTING"
	case PartitionEvicted:
		return "EVICTED"
	default:
		return "UNKNOWN"
	}
}

// Affinity is the deterministic function mapping partitions to nodes at a
// given topology version. Specified only by the interface the core
// consumes (spec §6).
type Affinity interface {
	// LocalNode reports whether partition p is local at topVer.
	LocalNode(p PartitionID, topVer TopologyVersion) bool
	// AffinityTopologyVersion returns the current topology version as
	// observed by this node.
	AffinityTopologyVersion() TopologyVersion
}

// Partition is a scoped handle to one local partition, lent by PartitionStore
// for the duration of a reserve+lock section.
type Partition interface {
	// State returns the partition's current transfer state.
	State() PartitionTransferState
	// Reserve bumps a counter that prevents eviction until Release.
	Reserve() error
	// Release undoes Reserve. Must be called exactly once per successful Reserve.
	Release()
	// Lock acquires the partition's per-partition mutation lock.
	Lock()
	// Unlock releases the lock acquired by Lock.
	Unlock()
	// PreloadingPermitted reports whether an incoming entry for key at
	// version may still be applied (false if a newer local write for key
	// has already landed).
	PreloadingPermitted(key []byte, version EntryVersion) bool
	// InitialValue applies value to key under version/ttl/expireTime,
	// returning true if the entry was actually installed.
	InitialValue(key, value []byte, version EntryVersion, ttl int64, expireTime int64) (installed bool, err error)
}

// PartitionStore is the external local partition store: state, reserve/
// release, lock/unlock, initialValue, own, eviction-permit checks (spec §3,
// "PartitionTransferState (external, referenced)").
type PartitionStore interface {
	// LocalPartition returns (creating if create is true) the handle for
	// partition p at topVer.
	LocalPartition(p PartitionID, topVer TopologyVersion, create bool) (Partition, error)
	// Own transitions part from MOVING to OWNING. Returns false if the
	// transition could not be made (e.g. partition was concurrently
	// evicted).
	Own(part Partition) bool
}

// Transport is the ordered point-to-point message channel with topic
// routing that the core sends demand messages over and registers supply
// handlers on (spec §6).
type Transport interface {
	// SendOrdered sends msg to node on topic, honoring timeout. Delivery
	// to a single (node, topic) pair is ordered relative to other sends
	// on that same pair.
	SendOrdered(ctx context.Context, node SupplierID, topic Topic, msg *DemandMessage, timeout uint64) error
}

// ExchangeManager is the exchange layer collaborator: produces assignments
// and a topology-version stamp, and exposes the re-exchange knobs the core
// calls into (spec §6).
type ExchangeManager interface {
	// HasPendingExchange reports whether a newer exchange round is already
	// queued, making the batch about to be processed obsolete.
	HasPendingExchange() bool
	// ForcePreloadExchange requests an immediate re-exchange (used by
	// RetryTimer and Demander.forcePreload).
	ForcePreloadExchange()
	// ForceDummyExchange requests a synthetic topology round purely to
	// re-assign the given missed partitions (spec §4.B checkIsDone).
	ForceDummyExchange(cacheID uint32, missed *PartitionSet)
	// ScheduleResendPartitions asks the exchange layer to resend the
	// current partitions map, used on a clean, non-missed completion.
	ScheduleResendPartitions(cacheID uint32)
}

// Timer is the external timeout-object scheduler (spec §6:
// timer.addTimeoutObject / removeTimeoutObject), used by RetryTimer.
type Timer interface {
	AddTimeoutObject(delay uint64, action func()) (handle any)
	RemoveTimeoutObject(handle any)
}
