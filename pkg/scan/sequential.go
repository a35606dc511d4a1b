package scan

// Sequential returns the exclusive prefix sum of input in a single pass.
// The result has len(input)+1 elements: result[0] is 0 and result[i] is the
// sum of input[:i]. It is the reference the parallel engine is checked against.
func Sequential(input []int64) []int64 {
	out := make([]int64, len(input)+1)
	for i, v := range input {
		out[i+1] = out[i] + v
	}
	return out
}
