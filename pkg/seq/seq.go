// Package seq builds input sequences for the prefix sum engine.
package seq

import (
	"fmt"
	"strings"
)

// Constant returns n copies of v.
func Constant(n int, v int64) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Ramp returns 1, 2, ..., n.
func Ramp(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

// Kind names a sequence shape.
type Kind string

const (
	KindConstant Kind = "constant"
	KindRamp     Kind = "ramp"
	KindRandom   Kind = "random"
)

// DefaultBound caps the magnitude of random values so that sums over large
// inputs stay far from int64 overflow.
const DefaultBound = 1 << 20

// ParseKind accepts a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindConstant, KindRamp, KindRandom:
		return k, nil
	default:
		return "", fmt.Errorf("seq: unknown input kind %q", s)
	}
}

// Make builds a sequence of length n. Constant sequences are all ones;
// random sequences are drawn from seed.
func Make(kind Kind, n int, seed []byte) ([]int64, error) {
	switch kind {
	case KindConstant:
		return Constant(n, 1), nil
	case KindRamp:
		return Ramp(n), nil
	case KindRandom:
		return Random(seed, n, DefaultBound), nil
	default:
		return nil, fmt.Errorf("seq: unknown input kind %q", kind)
	}
}
