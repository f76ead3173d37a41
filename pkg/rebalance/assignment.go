package rebalance

// AssignmentBatch is the immutable input produced by the exchange layer for
// one topology round: a supplier→partitions map, the topology version that
// produced it, and a back-reference to the exchange round (spec §3, §4.A).
//
// An AssignmentBatch is borrowed immutably by the Demander; nothing in this
// package mutates one after construction.
type AssignmentBatch struct {
	topologyVersion TopologyVersion
	exchangeID      uint64
	perSupplier     map[SupplierID]*PartitionSet
}

// NewAssignmentBatch builds a batch from a supplier→partitions map. The map
// is copied defensively so later caller-side mutation cannot violate
// immutability.
func NewAssignmentBatch(topVer TopologyVersion, exchangeID uint64, perSupplier map[SupplierID]*PartitionSet) AssignmentBatch {
	cp := make(map[SupplierID]*PartitionSet, len(perSupplier))
	for s, parts := range perSupplier {
		cp[s] = parts.Clone()
	}
	return AssignmentBatch{
		topologyVersion: topVer,
		exchangeID:      exchangeID,
		perSupplier:     cp,
	}
}

// TopologyVersion returns the topology version this batch was produced for.
func (b AssignmentBatch) TopologyVersion() TopologyVersion { return b.topologyVersion }

// ExchangeID returns the opaque exchange-round handle (spec §3, exchangeId).
func (b AssignmentBatch) ExchangeID() uint64 { return b.exchangeID }

// Empty reports whether the batch carries no suppliers at all — legal, and
// causes an immediate no-op completion (spec §4.A).
func (b AssignmentBatch) Empty() bool { return len(b.perSupplier) == 0 }

// Each calls fn once per (supplier, partitions) pair. Iteration order is
// unspecified (spec §3: "keys unique, iteration order irrelevant").
func (b AssignmentBatch) Each(fn func(supplier SupplierID, parts *PartitionSet)) {
	for s, parts := range b.perSupplier {
		fn(s, parts)
	}
}
