package rebalance

import "github.com/prometheus/client_golang/prometheus"

// RebalanceMode controls whether the caller blocks on the initial future and
// whether the core is active at all (spec §6 configuration table).
type RebalanceMode int8

const (
	// RebalanceSync means the caller's startup path blocks on the initial
	// RebalanceFuture before proceeding.
	RebalanceSync RebalanceMode = iota
	// RebalanceAsync starts rebalancing without blocking the caller.
	RebalanceAsync
	// RebalanceNone disables the core entirely; Demander.AddAssignments
	// becomes a no-op.
	RebalanceNone
)

func (m RebalanceMode) String() string {
	switch m {
	case RebalanceSync:
		return "SYNC"
	case RebalanceAsync:
		return "ASYNC"
	case RebalanceNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// Config is the small, immutable configuration surface passed at Demander
// construction (spec §9, "Configuration surface").
type Config struct {
	// CacheID identifies the cache this Demander drives.
	CacheID uint32
	// CacheName is this cache's name, used by sibling caches' OrderingGate
	// to look this Demander's future up by name.
	CacheName CacheName

	// Mode is described above.
	Mode RebalanceMode
	// Delay defers new assignments by this many milliseconds; 0 means
	// immediate dispatch.
	Delay uint64
	// Timeout is the per-demand-message timeout/grace period in
	// milliseconds.
	Timeout uint64
	// ThreadPoolSize is the number of parallel lanes per supplier. Zero
	// means "size it from the host" (see LaneScheduler).
	ThreadPoolSize uint16

	// BeforeCaches lists, in priority order, the sibling caches this
	// cache's rebalance must wait behind (spec §4.D).
	BeforeCaches []CacheName

	// Codec is the wire codec new DemandMessages advertise; defaults to
	// CodecNone.
	Codec CodecID

	Logger  Logger
	Events  EventBus
	Metrics prometheus.Registerer
}

// withDefaults returns a copy of c with zero-value fields replaced by
// sensible defaults, mirroring the teacher's cfg construction pattern where
// every optional knob resolves to a concrete default before use.
func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = defaultLogger()
	}
	if c.Events == nil {
		c.Events = NopEventBus{}
	}
	if c.Metrics == nil {
		c.Metrics = prometheus.DefaultRegisterer
	}
	return c
}
