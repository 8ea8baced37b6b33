package util

// SplitChips splits a chip total into numSplits shares. Each share gets the
// even quotient; the integer remainder goes entirely to the first share.
// Callers order the result slice best-ranked first.
func SplitChips(total int64, numSplits int, result []int64) {
	if numSplits <= 0 {
		return
	}
	quotient := total / int64(numSplits)
	remainder := total % int64(numSplits)
	for i := 0; i < numSplits; i++ {
		result[i] = quotient
	}
	result[0] += remainder
}

func MinInt(a int, b int) int {
	if a < b {
		return a
	}
	return b
}

func MaxInt64(a int64, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func MinInt64(a int64, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
