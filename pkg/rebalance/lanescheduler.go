package rebalance

import "github.com/klauspost/cpuid"

// WorkerLane is the logical, non-persistent per-supplier partition subset
// described in spec §3: laneIndex in [0, L), each lane owning a disjoint
// partition subset for the lifetime of one demand cycle and a distinct
// transport topic.
type WorkerLane struct {
	Index      int
	Topic      Topic
	Partitions *PartitionSet
}

// LaneScheduler decides how many lanes a supplier's partition set is split
// across. It generalizes the teacher pack's fixed/dynamic worker-pool
// duality (pool.NewFixed sizes a bounded pool up front; pool.NewDynamic
// defers sizing to sync.Pool) to rebalance lane counts: a configured,
// fixed pool size, or a size derived from the host's CPU topology when the
// operator left Config.ThreadPoolSize at its zero value.
type LaneScheduler interface {
	// LaneCount returns L, the number of lanes to split each supplier's
	// partition set across.
	LaneCount() int
}

// fixedLaneScheduler always returns the configured pool size (spec §6,
// rebalanceThreadPoolSize).
type fixedLaneScheduler struct{ n int }

// NewFixedLaneScheduler returns a scheduler with a constant lane count.
func NewFixedLaneScheduler(n uint16) LaneScheduler {
	if n == 0 {
		n = 1
	}
	return fixedLaneScheduler{n: int(n)}
}

func (s fixedLaneScheduler) LaneCount() int { return s.n }

// cpuAwareLaneScheduler sizes the pool from the host's logical core count
// when the operator configured Config.ThreadPoolSize == 0, bounded to a
// sane range so a single oversized host doesn't spin up hundreds of lanes
// per supplier.
type cpuAwareLaneScheduler struct{}

// NewCPUAwareLaneScheduler returns a scheduler that derives its lane count
// from cpuid.CPU.LogicalCores, clamped to [1, 32].
func NewCPUAwareLaneScheduler() LaneScheduler { return cpuAwareLaneScheduler{} }

func (cpuAwareLaneScheduler) LaneCount() int {
	n := cpuid.CPU.LogicalCores
	if n < 1 {
		n = 1
	}
	if n > 32 {
		n = 32
	}
	return n
}

// newLaneScheduler builds the scheduler implied by a Config: fixed when
// ThreadPoolSize is set, CPU-aware when left at zero.
func newLaneScheduler(cfg Config) LaneScheduler {
	if cfg.ThreadPoolSize == 0 {
		return NewCPUAwareLaneScheduler()
	}
	return NewFixedLaneScheduler(cfg.ThreadPoolSize)
}

// splitIntoLanes partitions parts into L lanes by partitionId mod L (spec
// §4.C requestPartitions: "Partition partitionSet into L lanes ... any
// stable round-robin assigning each partition to exactly one lane").
// Empty lanes are omitted from the result.
func splitIntoLanes(cacheID uint32, parts *PartitionSet, laneCount int) []WorkerLane {
	if laneCount < 1 {
		laneCount = 1
	}
	buckets := make([]*PartitionSet, laneCount)
	for i := range buckets {
		buckets[i] = NewPartitionSet()
	}
	for _, p := range parts.Sorted() {
		lane := int(p) % laneCount
		buckets[lane].Add(p)
	}
	out := make([]WorkerLane, 0, laneCount)
	for i, b := range buckets {
		if b.Empty() {
			continue
		}
		out = append(out, WorkerLane{
			Index:      i,
			Topic:      rebalanceTopic(cacheID, i),
			Partitions: b,
		})
	}
	return out
}
