// Package rng implements the 32-bit Mersenne Twister used to draw crash points.
//
// The generator is deterministic: two generators built from the same seed return the
// same sequence. It is not a cryptographic source.
package rng

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	stateSize  = 624
	shiftSize  = 397
	matrixA    = 0x9908b0df
	upperMask  = 0x80000000
	lowerMask  = 0x7fffffff
	initFactor = 1812433253

	twoPow32 = 4294967296.0
)

var (
	ErrInvalidSeed  = errors.New("invalid seed")
	ErrCorruptState = errors.New("generator state corrupted")
)

// MT19937 holds the generator state. It is not safe for concurrent use; the owner
// serializes access.
type MT19937 struct {
	mt    [stateSize]uint32
	index int
}

// New seeds a generator. The cursor starts at the end of the state so the first draw
// twists.
func New(seed uint32) *MT19937 {
	g := &MT19937{index: stateSize}
	g.mt[0] = seed
	for i := 1; i < stateSize; i++ {
		prev := g.mt[i-1]
		g.mt[i] = initFactor*(prev^(prev>>30)) + uint32(i)
	}
	return g
}

// ParseSeed reads a decimal seed in [0, 2^32).
func ParseSeed(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidSeed)
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSeed, s)
	}
	return uint32(v), nil
}

// RandomSeed returns a seed read from crypto/rand.
func RandomSeed() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// Check reports whether the cursor is still inside the state array.
func (g *MT19937) Check() error {
	if g.index < 0 || g.index > stateSize {
		return fmt.Errorf("%w: cursor %d", ErrCorruptState, g.index)
	}
	return nil
}

// Uint32 returns the next tempered value.
func (g *MT19937) Uint32() uint32 {
	if g.index >= stateSize {
		g.twist()
	}
	y := g.mt[g.index]
	y ^= y >> 11
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= y >> 18
	g.index++
	return y
}

// Float64 returns a value in [0, 1) with a resolution of 1/2^32.
func (g *MT19937) Float64() float64 {
	return float64(g.Uint32()) / twoPow32
}

func (g *MT19937) twist() {
	for i := 0; i < stateSize; i++ {
		y := (g.mt[i] & upperMask) | (g.mt[(i+1)%stateSize] & lowerMask)
		next := g.mt[(i+shiftSize)%stateSize] ^ (y >> 1)
		if y&1 != 0 {
			next ^= matrixA
		}
		g.mt[i] = next
	}
	g.index = 0
}
