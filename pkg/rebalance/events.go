package rebalance

import "time"

// EventType enumerates the preload events the core emits, per spec §6
// (events.addPreloadEvent) and §4.B/§4.C (object-loaded, part-loaded,
// rebalance-stopped).
type EventType int8

const (
	// EventObjectLoaded fires once per entry successfully installed via
	// Partition.InitialValue during handleSupplyMessage.
	EventObjectLoaded EventType = iota
	// EventPartLoaded fires once per partition that
	// RebalanceFuture.PartitionDone removes from a supplier's remaining set.
	EventPartLoaded
	// EventRebalanceStopped fires once per RebalanceFuture.checkIsDone
	// when remaining has emptied (never for the initial future).
	EventRebalanceStopped
)

func (t EventType) String() string {
	switch t {
	case EventObjectLoaded:
		return "OBJECT_LOADED"
	case EventPartLoaded:
		return "PART_LOADED"
	case EventRebalanceStopped:
		return "REBALANCE_STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Event is the payload handed to EventBus.AddPreloadEvent.
type Event struct {
	Type      EventType
	CacheID   uint32
	Partition PartitionID
	Node      SupplierID
	Topology  TopologyVersion
	At        time.Time
}

// EventBus is the external collaborator that records preload events. The
// core never blocks on it; implementations should be fire-and-forget (an
// in-memory ring buffer, a metrics counter, a message bus publish).
type EventBus interface {
	AddPreloadEvent(e Event)
}

// NopEventBus discards every event. Used as the default when a Config
// leaves Events unset.
type NopEventBus struct{}

func (NopEventBus) AddPreloadEvent(Event) {}
