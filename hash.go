package bloomset

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// Hash is a caller-supplied 128-bit signed integer, stored as the two's
// complement bit pattern split into its high and low 64-bit halves.
//
// The filter never hashes application data itself. Callers derive a Hash
// from their keys with a well-distributed hash function (see the keyhash
// package) and pass the result in.
type Hash struct {
	Hi uint64
	Lo uint64
}

var (
	minHash = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	maxHash = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	two128  = new(big.Int).Lsh(big.NewInt(1), 128)
)

// HashFromBytes interprets b as a big-endian two's complement integer.
func HashFromBytes(b [16]byte) Hash {
	return Hash{
		Hi: binary.BigEndian.Uint64(b[:8]),
		Lo: binary.BigEndian.Uint64(b[8:]),
	}
}

// HashFromInt64 sign-extends v to 128 bits.
func HashFromInt64(v int64) Hash {
	return Hash{
		Hi: uint64(v >> 63),
		Lo: uint64(v),
	}
}

// HashFromBig converts v to a Hash. v must lie in [-2^127, 2^127).
func HashFromBig(v *big.Int) (Hash, error) {
	if v.Cmp(minHash) < 0 || v.Cmp(maxHash) > 0 {
		return Hash{}, fmt.Errorf("bloomset: %s does not fit in a signed 128-bit integer", v)
	}
	u := new(big.Int).Set(v)
	if u.Sign() < 0 {
		u.Add(u, two128)
	}
	var b [16]byte
	u.FillBytes(b[:])
	return HashFromBytes(b), nil
}

// Bytes returns h as 16 big-endian bytes.
func (h Hash) Bytes() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], h.Hi)
	binary.BigEndian.PutUint64(b[8:], h.Lo)
	return b
}

// Big returns h as a signed integer.
func (h Hash) Big() *big.Int {
	b := h.Bytes()
	v := new(big.Int).SetBytes(b[:])
	if h.Hi>>63 == 1 {
		v.Sub(v, two128)
	}
	return v
}

// String formats h as a signed decimal integer.
func (h Hash) String() string {
	return h.Big().String()
}

// location returns the i-th bit position for h in a filter of sizeInBits
// bits using enhanced double hashing:
//
//	(h1 + i*h2 + i^3) mod sizeInBits
//
// h1 is the low half and h2 the high half of h. The cubic term breaks up
// the short cycles plain double hashing falls into when h2 shares a small
// factor with sizeInBits. All arithmetic wraps at 64 bits.
func location(h Hash, i, sizeInBits uint64) uint64 {
	return (h.Lo + i*h.Hi + i*i*i) % sizeInBits
}
