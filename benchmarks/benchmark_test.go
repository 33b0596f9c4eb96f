package benchmarks

import (
	"fmt"
	"io"
	"sync"
	"testing"

	bab "github.com/bits-and-blooms/bloom/v3"
	"github.com/cespare/xxhash/v2"
	atomicbloom "github.com/ericvolp12/atomic-bloom"
	"github.com/greatroar/blobloom"
	"github.com/jcalabro/bloomset"
	"github.com/jcalabro/bloomset/keyhash"
)

const (
	benchItems  = 1_000_000
	benchFPRate = 0.01
)

// Pre-generate test data to avoid measuring string generation and hashing
var (
	testKeys   [][]byte
	testHashes []bloomset.Hash
)

func init() {
	testKeys = make([][]byte, benchItems)
	testHashes = make([]bloomset.Hash, benchItems)
	for i := range benchItems {
		testKeys[i] = []byte(fmt.Sprintf("key-%d", i))
		testHashes[i] = keyhash.Bytes(testKeys[i])
	}
}

func newBloomset(b *testing.B, n uint64) *bloomset.Filter {
	f, err := bloomset.New(n, benchFPRate)
	if err != nil {
		b.Fatal(err)
	}
	return f
}

func fullBloomset(b *testing.B) *bloomset.Filter {
	f := newBloomset(b, benchItems)
	if err := f.Update(bloomset.Hashes(testHashes)); err != nil {
		b.Fatal(err)
	}
	return f
}

// ============================================================================
// Sequential Add Benchmarks
// ============================================================================

func BenchmarkAddSequential_Bloomset(b *testing.B) {
	f := newBloomset(b, benchItems)
	b.ResetTimer()
	for i := range b.N {
		f.Add(testHashes[i%benchItems])
	}
}

func BenchmarkAddSequential_BloomsetWithHashing(b *testing.B) {
	f := newBloomset(b, benchItems)
	b.ResetTimer()
	for i := range b.N {
		f.Add(keyhash.Bytes(testKeys[i%benchItems]))
	}
}

func BenchmarkAddSequential_BitsAndBlooms(b *testing.B) {
	f := bab.NewWithEstimates(benchItems, benchFPRate)
	b.ResetTimer()
	for i := range b.N {
		f.Add(testKeys[i%benchItems])
	}
}

func BenchmarkAddSequential_Blobloom(b *testing.B) {
	f := blobloom.NewOptimized(blobloom.Config{
		Capacity: benchItems,
		FPRate:   benchFPRate,
	})
	b.ResetTimer()
	for i := range b.N {
		// blobloom requires pre-hashing
		h := xxhash.Sum64(testKeys[i%benchItems])
		f.Add(h)
	}
}

// ============================================================================
// Sequential Contains Benchmarks
// ============================================================================

func BenchmarkContainsSequential_Bloomset(b *testing.B) {
	f := fullBloomset(b)
	b.ResetTimer()
	for i := range b.N {
		f.Contains(testHashes[i%benchItems])
	}
}

func BenchmarkContainsSequential_BitsAndBlooms(b *testing.B) {
	f := bab.NewWithEstimates(benchItems, benchFPRate)
	for i := range benchItems {
		f.Add(testKeys[i])
	}
	b.ResetTimer()
	for i := range b.N {
		f.Test(testKeys[i%benchItems])
	}
}

func BenchmarkContainsSequential_Blobloom(b *testing.B) {
	f := blobloom.NewOptimized(blobloom.Config{
		Capacity: benchItems,
		FPRate:   benchFPRate,
	})
	// Pre-hash keys for fair comparison
	hashes := make([]uint64, benchItems)
	for i := range benchItems {
		hashes[i] = xxhash.Sum64(testKeys[i])
		f.Add(hashes[i])
	}
	b.ResetTimer()
	for i := range b.N {
		f.Has(hashes[i%benchItems])
	}
}

// ============================================================================
// Set Algebra Benchmarks
// ============================================================================

func BenchmarkUnion_Bloomset(b *testing.B) {
	f := fullBloomset(b)
	g := newBloomset(b, benchItems)
	b.ResetTimer()
	for range b.N {
		if err := g.Update(f); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUnion_BitsAndBlooms(b *testing.B) {
	f := bab.NewWithEstimates(benchItems, benchFPRate)
	for i := range benchItems {
		f.Add(testKeys[i])
	}
	g := bab.NewWithEstimates(benchItems, benchFPRate)
	b.ResetTimer()
	for range b.N {
		if err := g.Merge(f); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkIntersection_Bloomset(b *testing.B) {
	f := fullBloomset(b)
	g := fullBloomset(b)
	b.ResetTimer()
	for range b.N {
		if err := g.IntersectionUpdate(f); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkIsSubset_Bloomset(b *testing.B) {
	f := fullBloomset(b)
	g := f.Copy()
	b.ResetTimer()
	for range b.N {
		if _, err := f.IsSubset(g); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Cardinality Estimation Benchmarks
// ============================================================================

func BenchmarkApproxItems_Bloomset(b *testing.B) {
	f := fullBloomset(b)
	b.ResetTimer()
	for range b.N {
		f.ApproxItems()
	}
}

func BenchmarkApproxItems_BitsAndBlooms(b *testing.B) {
	f := bab.NewWithEstimates(benchItems, benchFPRate)
	for i := range benchItems {
		f.Add(testKeys[i])
	}
	b.ResetTimer()
	for range b.N {
		f.ApproximatedSize()
	}
}

// ============================================================================
// Serialization Benchmarks
// ============================================================================

func BenchmarkWriteTo_Bloomset(b *testing.B) {
	f := fullBloomset(b)
	b.SetBytes(int64(f.SizeInBits() / 8))
	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		if _, err := f.WriteTo(io.Discard); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkWriteTo_BitsAndBlooms(b *testing.B) {
	f := bab.NewWithEstimates(benchItems, benchFPRate)
	for i := range benchItems {
		f.Add(testKeys[i])
	}
	b.SetBytes(int64(f.Cap() / 8))
	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		if _, err := f.WriteTo(io.Discard); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLoadBytes_Bloomset(b *testing.B) {
	data, err := fullBloomset(b).MarshalBinary()
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		if _, err := bloomset.LoadBytes(data); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Memory Allocation Benchmarks
// ============================================================================

func BenchmarkAddAlloc_Bloomset(b *testing.B) {
	f := newBloomset(b, benchItems)
	b.ReportAllocs()
	b.ResetTimer()
	for i := range b.N {
		f.Add(testHashes[i%benchItems])
	}
}

func BenchmarkAddAlloc_BitsAndBlooms(b *testing.B) {
	f := bab.NewWithEstimates(benchItems, benchFPRate)
	b.ReportAllocs()
	b.ResetTimer()
	for i := range b.N {
		f.Add(testKeys[i%benchItems])
	}
}

// ============================================================================
// Mixed Read/Write Benchmarks (50/50 split)
// ============================================================================

// lockedFilter guards a bloomset.Filter the way the membership service does.
type lockedFilter struct {
	mu sync.RWMutex
	f  *bloomset.Filter
}

func (l *lockedFilter) add(h bloomset.Hash) {
	l.mu.Lock()
	l.f.Add(h)
	l.mu.Unlock()
}

func (l *lockedFilter) contains(h bloomset.Hash) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.f.Contains(h)
}

func BenchmarkMixed_BloomsetRWMutex(b *testing.B) {
	l := &lockedFilter{f: newBloomset(b, benchItems)}
	// Pre-populate half
	for i := 0; i < benchItems/2; i++ {
		l.f.Add(testHashes[i])
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%2 == 0 {
				l.add(testHashes[(benchItems/2+i)%benchItems])
			} else {
				l.contains(testHashes[i%benchItems])
			}
			i++
		}
	})
}

func BenchmarkMixed_AtomicBloom(b *testing.B) {
	f := atomicbloom.NewWithEstimates(benchItems, benchFPRate)
	// Pre-populate half
	for i := 0; i < benchItems/2; i++ {
		f.Add(testKeys[i])
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%2 == 0 {
				f.Add(testKeys[(benchItems/2+i)%benchItems])
			} else {
				f.Test(testKeys[i%benchItems])
			}
			i++
		}
	})
}
