package rebalance

import "fmt"

// Topic is a transport routing key. rebalanceTopic derives one per lane;
// supplier and demander independently compute the same value from the lane
// index (spec §6, "Topics").
type Topic string

// rebalanceTopic returns the deterministic topic for lane index i of
// cacheID's rebalance traffic.
func rebalanceTopic(cacheID uint32, lane int) Topic {
	return Topic(fmt.Sprintf("rebalance-%d-%d", cacheID, lane))
}

// EntryVersion is an opaque, comparable version stamp carried by each wire
// entry; the object-serialization format itself is out of scope (spec §1
// Non-goals), so this is treated as an uninterpreted ordered token.
type EntryVersion struct {
	Order  uint64
	NodeID uint32
}

// Entry is one key/value/version/ttl/expireTime tuple inside a SupplyMessage
// (spec §6, EntryList).
type Entry struct {
	Key        []byte
	Value      []byte
	Version    EntryVersion
	TTL        int64
	ExpireTime int64
}

// DemandMessage is sent by the Demander to a supplier, carrying the
// partitions it still wants for a given (topologyVersion, updateSeq)
// rebalance attempt (spec §6).
type DemandMessage struct {
	CacheID         uint32
	TopologyVersion TopologyVersion
	UpdateSeq       int64
	Timeout         uint64
	Partitions      *PartitionSet
	Topic           Topic
	Codec           CodecID
	// WorkerID is retained only for legacy single-lane compatibility; the
	// lane-per-topic design routes exclusively via Topic.
	WorkerID uint16
}

// SupplyMessage is received by the Demander from a supplier (spec §6).
type SupplyMessage struct {
	CacheID         uint32
	TopologyVersion TopologyVersion
	UpdateSeq       int64
	PerPartition    map[PartitionID][]Entry
	Missed          *PartitionSet
	Last            *PartitionSet
	Codec           CodecID
	// ClassError is set when the supplier observed a deserialization
	// failure while building this message; a non-empty value means
	// PerPartition/Missed/Last should not be trusted for that supplier.
	ClassError string
}

// IsEmpty reports whether the demand message carries no partitions, i.e. it
// is the ack-and-continue message sent after handling a supply message
// (spec §4.C step 6).
func (m *DemandMessage) IsEmpty() bool { return m.Partitions.Empty() }
