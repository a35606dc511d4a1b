package seq

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// Generator draws reproducible int64 values from a SHAKE-128 stream.
type Generator struct {
	h   sha3.ShakeHash
	buf [168]byte // SHAKE128 rate
	pos int
	end int
}

// NewGenerator absorbs seed and returns a generator positioned at the start of the stream.
func NewGenerator(seed []byte) *Generator {
	g := &Generator{h: sha3.NewShake128()}
	g.Reset(seed)
	return g
}

// Reset reinitializes the generator for a new seed.
func (g *Generator) Reset(seed []byte) {
	g.h.Reset()
	g.h.Write(seed)
	g.pos = 0
	g.end = 0
}

// Uint64 returns the next 8 bytes of the stream, little-endian.
func (g *Generator) Uint64() uint64 {
	if g.pos+8 > g.end {
		// Copy leftover bytes to beginning
		leftover := g.end - g.pos
		if leftover > 0 {
			copy(g.buf[:leftover], g.buf[g.pos:g.end])
		}
		n, _ := g.h.Read(g.buf[leftover:])
		g.pos = 0
		g.end = leftover + n
	}
	v := binary.LittleEndian.Uint64(g.buf[g.pos:])
	g.pos += 8
	return v
}

// Int64n returns a uniform value in [-bound, bound]. bound must be positive.
func (g *Generator) Int64n(bound int64) int64 {
	span := uint64(2*bound + 1)
	// Rejection sampling: drop draws from the incomplete last block.
	limit := ^uint64(0) - ^uint64(0)%span
	for {
		if v := g.Uint64(); v < limit {
			return int64(v%span) - bound
		}
	}
}

// Fill overwrites dst with values in [-bound, bound].
func (g *Generator) Fill(dst []int64, bound int64) {
	for i := range dst {
		dst[i] = g.Int64n(bound)
	}
}

// Random returns n values in [-bound, bound] derived from seed.
func Random(seed []byte, n int, bound int64) []int64 {
	out := make([]int64, n)
	NewGenerator(seed).Fill(out, bound)
	return out
}
