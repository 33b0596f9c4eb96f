// Package keyhash derives [bloomset.Hash] values from application keys.
//
// A bloomset.Filter never hashes keys itself; this package is the caller
// side of that boundary. Keys are hashed with 128-bit xxh3, and the high and
// low halves become the two base hashes of the filter's double hashing.
package keyhash

import (
	"github.com/jcalabro/bloomset"
	"github.com/zeebo/xxh3"
)

// Bytes returns the 128-bit xxh3 hash of data.
func Bytes(data []byte) bloomset.Hash {
	return fromUint128(xxh3.Hash128(data))
}

// String returns the 128-bit xxh3 hash of s without converting it to a
// byte slice.
func String(s string) bloomset.Hash {
	return fromUint128(xxh3.HashString128(s))
}

// Strings hashes every key in keys, preserving order.
func Strings(keys []string) bloomset.Hashes {
	hashes := make(bloomset.Hashes, len(keys))
	for i, k := range keys {
		hashes[i] = String(k)
	}
	return hashes
}

func fromUint128(h xxh3.Uint128) bloomset.Hash {
	return bloomset.Hash{Hi: h.Hi, Lo: h.Lo}
}
