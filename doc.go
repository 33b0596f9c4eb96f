// Package bloomset provides a bloom filter with set algebra, cardinality
// estimation and a streaming binary format.
//
// A bloom filter is a space-efficient probabilistic data structure that tests
// whether an element is a member of a set. False positive matches are possible,
// but false negatives are not – if the filter says an element is not present,
// it definitely is not. If it says an element might be present, it could be a
// false positive.
//
// # Hashes, not keys
//
// A [Filter] never hashes application data. Every operation takes a [Hash], a
// 128-bit signed integer the caller has already computed from its key. The
// keyhash package produces one with xxh3; any well-distributed 128-bit hash
// works, as long as every party sharing a filter uses the same one.
//
// The two 64-bit halves of the hash feed enhanced double hashing, which
// derives all k bit positions from a single hash:
//
//	position(i) = (h1 + i*h2 + i^3) mod size_in_bits
//
// # Choosing Parameters
//
// Use [New] with your expected number of items and desired false positive rate:
//
//	// Filter for 1 million items with 1% false positive rate
//	f, err := bloomset.New(1_000_000, 0.01)
//
// The bit-array size is the classical optimum, truncated to a whole number of
// bits and rounded up to a whole byte:
//
//	size_in_bits ≈ -n * ln(p) / (ln(2))²
//	k            = round(size_in_bits / n * ln(2))
//
// [NewWithParams] allows explicit control over both values.
//
// # Set Algebra
//
// Filters with the same size and k are compatible and can be combined:
// [Filter.Update] and [Filter.Union] OR their bits together,
// [Filter.IntersectionUpdate] and [Filter.Intersection] AND them, and
// [Filter.IsSubset], [Filter.IsSuperset] and their strict variants compare
// them. The multi-source methods accept any mix of [Hash], [Hashes],
// [HashSeq] and *[Filter] operands, applied left to right. Combining
// incompatible filters fails with [ErrIncompatibleFilter]; filters are never
// resized to fit.
//
// An intersection of two filters is not always the filter that would result
// from adding only the common items: bits set by different items in each
// operand survive. It can only report more items, never fewer.
//
// # Estimating Items
//
// [Filter.ApproxItems] recovers an approximate distinct-item count from the
// number of set bits alone, so it stays meaningful after unions,
// intersections and round trips through storage.
//
// # Persistence
//
// [Filter.WriteTo], [Load], [Filter.SaveFile], [LoadFile],
// [Filter.MarshalBinary] and [LoadBytes] share one format: an 8-byte
// little-endian k followed by the raw bit array. Large filters are written in
// chunks of at most [MaxChunkSize] bytes.
//
// # Thread Safety
//
// [Filter] is NOT thread-safe. Use external synchronization when a filter is
// shared between goroutines.
//
// # References
//
//   - Less Hashing, Same Performance: https://www.eecs.harvard.edu/~michaelm/postscripts/rsa2008.pdf
//   - Bloom Filters in Probabilistic Verification (enhanced double hashing): https://www.ccs.neu.edu/home/pete/pub/bloom-filters-verification.pdf
//   - Swamidass and Baldi, Mathematical correction for fingerprint similarity measures: https://doi.org/10.1021/ci600526a
package bloomset
