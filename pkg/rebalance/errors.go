package rebalance

import "errors"

// Error taxonomy per spec §7. Every entry is a sentinel so callers can match
// with errors.Is; none of these are ever surfaced to user code directly —
// they drive future.cancel()/cancel(supplier) decisions and log lines.
var (
	// ErrStaleTopology is returned/logged when the affinity topology
	// advanced past a future's version while the future was still active.
	ErrStaleTopology = errors.New("rebalance: topology advanced past this assignment")

	// ErrStaleSequence marks a supply message whose updateSeq no longer
	// matches the active future; the message is dropped.
	ErrStaleSequence = errors.New("rebalance: supply message carries a stale update sequence")

	// ErrNodeGone marks a supplier that left mid-transfer.
	ErrNodeGone = errors.New("rebalance: supplier left mid-transfer")

	// ErrSendFailure marks a transport send failure for a demand message.
	ErrSendFailure = errors.New("rebalance: transport send failed")

	// ErrDeserializationFailure marks a supply message carrying a
	// non-empty ClassError field.
	ErrDeserializationFailure = errors.New("rebalance: supply message failed to deserialize")

	// ErrInvalidPartition marks an attempt to apply an entry into a
	// partition that is no longer local or no longer MOVING.
	ErrInvalidPartition = errors.New("rebalance: partition is not a valid rebalance target")

	// ErrInterrupted marks a blocking wait (e.g. on a prerequisite
	// cache's future) that was interrupted by context cancellation.
	ErrInterrupted = errors.New("rebalance: wait interrupted")
)
