package bloomset

import (
	"errors"
	"fmt"
	"math"
)

// Filter is a bloom filter over caller-supplied 128-bit hashes.
//
// A Filter is not safe for concurrent use. Mutating methods must not run
// concurrently with any other method on the same Filter.
type Filter struct {
	bits       *bitStore
	sizeInBits uint64 // Number of addressable bits, a positive multiple of 8
	k          uint64 // Bit positions set and tested per item
}

// New creates an empty filter sized for expectedItems at the desired false
// positive rate. See [OptimalParams] for how the size is derived.
func New(expectedItems uint64, fpRate float64) (*Filter, error) {
	sizeInBits, k, err := OptimalParams(expectedItems, fpRate)
	if err != nil {
		return nil, err
	}
	return NewWithParams(sizeInBits, k)
}

// NewWithParams creates an empty filter with explicit parameters.
// sizeInBits must be a positive multiple of 8 and k must be positive.
func NewWithParams(sizeInBits, k uint64) (*Filter, error) {
	if err := checkParams(sizeInBits, k); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameters, err)
	}
	return &Filter{
		bits:       newBitStore(sizeInBits),
		sizeInBits: sizeInBits,
		k:          k,
	}, nil
}

func checkParams(sizeInBits, k uint64) error {
	switch {
	case sizeInBits == 0:
		return errors.New("size must be positive")
	case sizeInBits%8 != 0:
		return fmt.Errorf("size %d is not a multiple of 8", sizeInBits)
	case sizeInBits > maxSizeInBits:
		return fmt.Errorf("size %d exceeds %d", sizeInBits, maxSizeInBits)
	case k == 0:
		return errors.New("k must be positive")
	}
	return nil
}

// Add inserts h into the filter. Adding the same hash twice is a no-op.
func (f *Filter) Add(h Hash) {
	for i := uint64(0); i < f.k; i++ {
		if err := f.bits.setBit(location(h, i, f.sizeInBits)); err != nil {
			panic(err)
		}
	}
}

// Contains reports whether h might be in the filter. A false result means h
// was definitely never added.
func (f *Filter) Contains(h Hash) bool {
	for i := uint64(0); i < f.k; i++ {
		set, err := f.bits.get(location(h, i, f.sizeInBits))
		if err != nil {
			panic(err)
		}
		if !set {
			return false
		}
	}
	return true
}

// Update adds every source to the filter, left to right. Hash sources are
// inserted; filter sources are merged with a bitwise OR.
//
// Sources are applied one at a time. If a filter source is incompatible an
// error wrapping [ErrIncompatibleFilter] is returned before that source
// touches any bits, but the sources before it remain applied.
func (f *Filter) Update(sources ...Source) error {
	for i, src := range sources {
		if src == nil {
			return fmt.Errorf("update source %d: %w: nil source", i, ErrIncompatibleFilter)
		}
		other, ok := src.(*Filter)
		if !ok {
			f.addAll(src)
			continue
		}
		if err := f.checkCompatible(other); err != nil {
			return fmt.Errorf("update source %d: %w", i, err)
		}
		f.bits.orWith(other.bits)
	}
	return nil
}

// IntersectionUpdate keeps only the bits that are also set in every source,
// left to right. A hash source is first collected into a transient filter
// with the same parameters as f, so the net effect is to keep only items
// present in each listed source.
//
// Failure semantics match [Filter.Update].
func (f *Filter) IntersectionUpdate(sources ...Source) error {
	for i, src := range sources {
		if src == nil {
			return fmt.Errorf("intersection update source %d: %w: nil source", i, ErrIncompatibleFilter)
		}
		other, ok := src.(*Filter)
		if !ok {
			other = f.emptyCompatible()
			other.addAll(src)
		}
		if err := f.checkCompatible(other); err != nil {
			return fmt.Errorf("intersection update source %d: %w", i, err)
		}
		f.bits.andWith(other.bits)
	}
	return nil
}

// Union returns a new filter holding f and every source. f is not modified.
func (f *Filter) Union(sources ...Source) (*Filter, error) {
	out := f.Copy()
	if err := out.Update(sources...); err != nil {
		return nil, err
	}
	return out, nil
}

// Intersection returns a new filter holding the bits common to f and every
// source. f is not modified.
func (f *Filter) Intersection(sources ...Source) (*Filter, error) {
	out := f.Copy()
	if err := out.IntersectionUpdate(sources...); err != nil {
		return nil, err
	}
	return out, nil
}

// Copy returns a deep copy of the filter.
func (f *Filter) Copy() *Filter {
	return &Filter{
		bits:       f.bits.clone(),
		sizeInBits: f.sizeInBits,
		k:          f.k,
	}
}

// Clear removes all items from the filter without reallocating.
func (f *Filter) Clear() {
	f.bits.clearAll()
}

// emptyCompatible returns an empty filter with f's parameters.
func (f *Filter) emptyCompatible() *Filter {
	return &Filter{
		bits:       newBitStore(f.sizeInBits),
		sizeInBits: f.sizeInBits,
		k:          f.k,
	}
}

// Compatible reports whether f and other share a size and hash count and
// can therefore be combined.
func (f *Filter) Compatible(other *Filter) bool {
	return other != nil && f.sizeInBits == other.sizeInBits && f.k == other.k
}

func (f *Filter) checkCompatible(other *Filter) error {
	if other == nil {
		return fmt.Errorf("%w: nil filter", ErrIncompatibleFilter)
	}
	if !f.Compatible(other) {
		return fmt.Errorf("%w: size_in_bits %d/%d, k %d/%d",
			ErrIncompatibleFilter, f.sizeInBits, other.sizeInBits, f.k, other.k)
	}
	return nil
}

// Equal reports whether f and other have the same parameters and identical
// bits. Incompatible filters are simply unequal.
func (f *Filter) Equal(other *Filter) bool {
	return f.Compatible(other) && f.bits.equals(other.bits)
}

// IsSubset reports whether every bit set in f is also set in other.
func (f *Filter) IsSubset(other *Filter) (bool, error) {
	if err := f.checkCompatible(other); err != nil {
		return false, err
	}
	return f.bits.subsetOf(other.bits), nil
}

// IsSuperset reports whether every bit set in other is also set in f.
func (f *Filter) IsSuperset(other *Filter) (bool, error) {
	if err := f.checkCompatible(other); err != nil {
		return false, err
	}
	return other.bits.subsetOf(f.bits), nil
}

// IsStrictSubset reports whether f is a subset of other and not equal to it.
func (f *Filter) IsStrictSubset(other *Filter) (bool, error) {
	sub, err := f.IsSubset(other)
	if err != nil {
		return false, err
	}
	return sub && !f.bits.equals(other.bits), nil
}

// IsStrictSuperset reports whether f is a superset of other and not equal
// to it.
func (f *Filter) IsStrictSuperset(other *Filter) (bool, error) {
	sup, err := f.IsSuperset(other)
	if err != nil {
		return false, err
	}
	return sup && !f.bits.equals(other.bits), nil
}

// IsEmpty reports whether no bit is set.
func (f *Filter) IsEmpty() bool {
	return f.bits.popcount() == 0
}

// SizeInBits returns the number of bits in the filter.
func (f *Filter) SizeInBits() uint64 {
	return f.sizeInBits
}

// K returns the number of bit positions set per item.
func (f *Filter) K() uint64 {
	return f.k
}

// Popcount returns the number of set bits.
func (f *Filter) Popcount() uint64 {
	return f.bits.popcount()
}

// FillRatio returns the proportion of bits that are set.
func (f *Filter) FillRatio() float64 {
	return float64(f.bits.popcount()) / float64(f.sizeInBits)
}

// ApproxItems estimates the number of distinct items in the filter from its
// fill ratio (Swamidass and Baldi):
//
//	-(m / k) * ln(1 - X/m)
//
// where X is the number of set bits. It is 0 for an empty filter and
// +Inf for a filter with every bit set.
func (f *Filter) ApproxItems() float64 {
	x := f.bits.popcount()
	if x == 0 {
		return 0
	}
	m := float64(f.sizeInBits)
	return -(m / float64(f.k)) * math.Log1p(-float64(x)/m)
}

// EstimatedFalsePositiveRate estimates the current false positive rate
// using [Filter.ApproxItems] as the item count.
func (f *Filter) EstimatedFalsePositiveRate() float64 {
	return EstimateFalsePositiveRate(f.sizeInBits, f.k, f.ApproxItems())
}

// String summarizes the filter without its bits, for example
// "<Filter size_in_bits=193960 approx_items=0.0>".
func (f *Filter) String() string {
	return fmt.Sprintf("<Filter size_in_bits=%d approx_items=%.1f>", f.sizeInBits, f.ApproxItems())
}
