package intervalset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndContains(t *testing.T) {
	s := New[int]()
	s.Insert(1)
	assert.True(t, s.Contains(1))
	assert.False(t, s.Contains(2))
}

func TestInsertMatchesOriginalTranscript(t *testing.T) {
	s := New[int]()
	s.Insert(1)
	require.Equal(t, [][2]int{{1, 1}}, s.Ranges())
	s.Insert(5)
	require.Equal(t, [][2]int{{1, 1}, {5, 5}}, s.Ranges())
	s.Insert(3)
	require.Equal(t, [][2]int{{1, 1}, {3, 3}, {5, 5}}, s.Ranges())
	s.Insert(2)
	require.Equal(t, [][2]int{{1, 3}, {5, 5}}, s.Ranges())
	s.Insert(4)
	require.Equal(t, [][2]int{{1, 5}}, s.Ranges())
	s.Insert(6)
	require.Equal(t, [][2]int{{1, 6}}, s.Ranges())
	s.Insert(8)
	require.Equal(t, [][2]int{{1, 6}, {8, 8}}, s.Ranges())
	s.Insert(9)
	require.Equal(t, [][2]int{{1, 6}, {8, 9}}, s.Ranges())
	s.Insert(0)
	require.Equal(t, [][2]int{{0, 6}, {8, 9}}, s.Ranges())
}

func TestFirstMissing(t *testing.T) {
	s := New[int]()
	assert.Equal(t, 0, s.FirstMissing(0))
	s.Insert(1)
	s.Insert(3)
	assert.Equal(t, 0, s.FirstMissing(0))
	assert.Equal(t, 2, s.FirstMissing(1))
	assert.Equal(t, 2, s.FirstMissing(2))
	assert.Equal(t, 4, s.FirstMissing(3))
	assert.Equal(t, 4, s.FirstMissing(4))
}

func TestFirstMissingAfterContiguousRun(t *testing.T) {
	s := New[int]()
	k := 10
	for i := 1; i <= k; i++ {
		s.Insert(i)
	}
	assert.Equal(t, k+1, s.FirstMissing(1))
	assert.Equal(t, k+1, s.FirstMissing(k))
	assert.Equal(t, k+5, s.FirstMissing(k+5))
}

func TestInvariantsHoldAfterRandomishInserts(t *testing.T) {
	s := New[int]()
	values := []int{17, 3, 4, 9, 1, 2, 20, 19, 18, 5}
	for _, v := range values {
		s.Insert(v)
	}
	for _, v := range values {
		assert.True(t, s.Contains(v))
	}
	ranges := s.Ranges()
	for i := range ranges {
		assert.LessOrEqual(t, ranges[i][0], ranges[i][1])
		if i > 0 {
			assert.Less(t, ranges[i-1][1], ranges[i][0])
		}
	}
}

func TestFromRangesRoundTrip(t *testing.T) {
	s := New[uint64]()
	s.Insert(0)
	s.Insert(1)
	s.Insert(5)
	restored := FromRanges(s.Ranges())
	assert.Equal(t, s.Ranges(), restored.Ranges())
	assert.True(t, restored.Contains(1))
	assert.False(t, restored.Contains(3))
}
