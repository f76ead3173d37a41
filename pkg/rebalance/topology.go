package rebalance

import "fmt"

// TopologyVersion is the causal clock stamped on every cluster membership
// change: a cluster epoch paired with a monotonic order counter within that
// epoch. Values are compared lexicographically on (Epoch, Order).
type TopologyVersion struct {
	Epoch uint64
	Order uint64
}

// ZeroTopologyVersion is the version carried by the dummy (initial) future,
// distinguishable from every real version produced by an exchange round.
var ZeroTopologyVersion = TopologyVersion{}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than o.
func (v TopologyVersion) Compare(o TopologyVersion) int {
	switch {
	case v.Epoch != o.Epoch:
		if v.Epoch < o.Epoch {
			return -1
		}
		return 1
	case v.Order != o.Order:
		if v.Order < o.Order {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// Less reports whether v causally precedes o.
func (v TopologyVersion) Less(o TopologyVersion) bool { return v.Compare(o) < 0 }

// Equal reports whether v and o are the same topology version.
func (v TopologyVersion) Equal(o TopologyVersion) bool { return v.Compare(o) == 0 }

// IsZero reports whether v is the zero (dummy-future) version.
func (v TopologyVersion) IsZero() bool { return v == ZeroTopologyVersion }

func (v TopologyVersion) String() string { return fmt.Sprintf("%d.%d", v.Epoch, v.Order) }
