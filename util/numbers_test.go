package util

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitChips(t *testing.T) {
	testCases := []struct {
		total     int64
		numSplits int
		expected  []int64
	}{
		{
			total:     0,
			numSplits: 1,
			expected:  []int64{0},
		},
		{
			total:     0,
			numSplits: 2,
			expected:  []int64{0, 0},
		},
		{
			total:     1,
			numSplits: 2,
			expected:  []int64{1, 0},
		},
		{
			total:     2,
			numSplits: 3,
			expected:  []int64{2, 0, 0},
		},
		{
			total:     10,
			numSplits: 2,
			expected:  []int64{5, 5},
		},
		{
			total:     11,
			numSplits: 2,
			expected:  []int64{6, 5},
		},
		{
			total:     100,
			numSplits: 3,
			expected:  []int64{34, 33, 33},
		},
		{
			total:     301,
			numSplits: 2,
			expected:  []int64{151, 150},
		},
	}

	for i, tc := range testCases {
		result := make([]int64, len(tc.expected))
		SplitChips(tc.total, tc.numSplits, result)
		if !cmp.Equal(result, tc.expected) {
			t.Errorf("Test case %d total: %d, numSplits: %d, expected: %v, actual: %v", i, tc.total, tc.numSplits, tc.expected, result)
		}
	}
}
