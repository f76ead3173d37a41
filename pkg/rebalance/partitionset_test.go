package rebalance

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestPartitionSet_SortedIsDeterministic(t *testing.T) {
	s := NewPartitionSet(5, 1, 3, 2, 4)
	require.Equal(t, []PartitionID{1, 2, 3, 4, 5}, s.Sorted())
}

func TestPartitionSet_AddRemoveContains(t *testing.T) {
	s := NewPartitionSet()
	require.True(t, s.Empty())

	s.Add(10)
	s.Add(20)
	require.True(t, s.Contains(10))
	require.False(t, s.Contains(11))
	require.Equal(t, 2, s.Len())

	s.Remove(10)
	require.False(t, s.Contains(10))
	require.Equal(t, 1, s.Len())
}

func TestPartitionSet_UnionDoesNotMutateOperands(t *testing.T) {
	a := NewPartitionSet(1, 2)
	b := NewPartitionSet(2, 3)

	u := a.Union(b)

	if diff := cmp.Diff([]PartitionID{1, 2, 3}, u.Sorted()); diff != "" {
		t.Fatalf("union mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []PartitionID{1, 2}, a.Sorted())
	require.Equal(t, []PartitionID{2, 3}, b.Sorted())
}

func TestPartitionSet_CloneIsIndependent(t *testing.T) {
	a := NewPartitionSet(1, 2)
	b := a.Clone()
	b.Add(3)

	require.Equal(t, []PartitionID{1, 2}, a.Sorted())
	require.Equal(t, []PartitionID{1, 2, 3}, b.Sorted())
}

func TestPartitionSet_NilReceiverIsEmpty(t *testing.T) {
	var s *PartitionSet
	require.True(t, s.Empty())
	require.False(t, s.Contains(1))
	require.Nil(t, s.Sorted())
}
