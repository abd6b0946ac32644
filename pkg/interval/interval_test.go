package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsProperty(t *testing.T) {
	iv := Interval{Start: 10, End: 20}
	for _, p := range []int64{9, 10, 15, 20, 21} {
		assert.Equal(t, p >= 10 && p <= 20, iv.Contains(p), "p=%d", p)
	}
}

func TestEmptyTree(t *testing.T) {
	tree := New(nil)
	assert.False(t, tree.Contains(5))
	assert.False(t, tree.Overlaps(0, 10))
	res := tree.Query([]int64{1, 2, 3})
	for _, r := range res {
		assert.Empty(t, r)
		assert.NotNil(t, r)
	}
}

func TestQueryStableOrdering(t *testing.T) {
	tree := New([]Interval{
		{Start: 0, End: 100},
		{Start: 5, End: 10},
		{Start: 50, End: 60},
		{Start: 5, End: 9},
	})

	res := tree.Query([]int64{7})
	assert.Equal(t, []int{0, 1, 3}, res[0])
}

func TestOverlapTolerance(t *testing.T) {
	tree := New([]Interval{{Start: 22, End: 30}})
	// primary (10,20) widened by Delta=3 -> (7,23), overlaps secondary (22,30)
	assert.True(t, tree.Overlaps(10-3, 20+3))
	// primary widened by Delta=1 -> (9,21), does not reach secondary's start at 22
	assert.False(t, tree.Overlaps(10-1, 20+1))
	assert.False(t, tree.Overlaps(10, 20))
}

func TestInclusiveEndpoints(t *testing.T) {
	tree := New([]Interval{{Start: 10, End: 20}})
	assert.True(t, tree.Contains(10))
	assert.True(t, tree.Contains(20))
	assert.False(t, tree.Contains(21))
}

func TestManyInsertionsStayBalancedAndCorrect(t *testing.T) {
	var ivs []Interval
	for i := int64(0); i < 200; i++ {
		ivs = append(ivs, Interval{Start: i, End: i + 5})
	}
	tree := New(ivs)
	assert.Equal(t, 200, tree.Len())

	got := tree.Query([]int64{100})
	for _, idx := range got[0] {
		assert.True(t, ivs[idx].Contains(100))
	}
	// every interval containing 100 must be present
	var want []int
	for i, iv := range ivs {
		if iv.Contains(100) {
			want = append(want, i)
		}
	}
	assert.Equal(t, want, got[0])
}
