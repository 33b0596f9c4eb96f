package bloomset

import (
	"fmt"
	"math/bits"

	"github.com/bits-and-blooms/bitset"
)

// bitStore owns the bit array of a Filter. Bit i lives in word i/64 at
// position i%64 in memory; the serialized form is MSB-first per byte, see
// readBytes and bitStoreFromBytes.
type bitStore struct {
	set  *bitset.BitSet
	size uint64 // number of addressable bits, a multiple of 8
}

func newBitStore(size uint64) *bitStore {
	return &bitStore{
		set:  bitset.New(uint(size)),
		size: size,
	}
}

// bitStoreFromBytes rebuilds a store from its serialized MSB-first bytes.
func bitStoreFromBytes(payload []byte) *bitStore {
	words := make([]uint64, (len(payload)+7)/8)
	for j, v := range payload {
		words[j/8] |= uint64(bits.Reverse8(v)) << (8 * (j % 8))
	}
	size := uint64(len(payload)) * 8
	return &bitStore{
		set:  bitset.FromWithLength(uint(size), words),
		size: size,
	}
}

func (s *bitStore) checkIndex(i uint64) error {
	if i >= s.size {
		return fmt.Errorf("%w: index %d, size %d", ErrIndexOutOfRange, i, s.size)
	}
	return nil
}

func (s *bitStore) get(i uint64) (bool, error) {
	if err := s.checkIndex(i); err != nil {
		return false, err
	}
	return s.set.Test(uint(i)), nil
}

func (s *bitStore) setBit(i uint64) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.set.Set(uint(i))
	return nil
}

func (s *bitStore) clearAll() {
	s.set.ClearAll()
}

func (s *bitStore) popcount() uint64 {
	return uint64(s.set.Count())
}

// andWith and orWith combine word by word. Each word of other is read
// before the matching word of s is written, so other may be s itself.
func (s *bitStore) andWith(other *bitStore) {
	s.set.InPlaceIntersection(other.set)
}

func (s *bitStore) orWith(other *bitStore) {
	s.set.InPlaceUnion(other.set)
}

func (s *bitStore) equals(other *bitStore) bool {
	return s.size == other.size && s.set.Equal(other.set)
}

// subsetOf reports whether every bit set in s is also set in other.
func (s *bitStore) subsetOf(other *bitStore) bool {
	return other.set.IsSuperSet(s.set)
}

func (s *bitStore) clone() *bitStore {
	return &bitStore{
		set:  s.set.Clone(),
		size: s.size,
	}
}

// byteLen is the length of the serialized payload.
func (s *bitStore) byteLen() uint64 {
	return s.size / 8
}

// readBytes fills dst with the serialized payload starting at byte offset
// off. Bit 8j+b is written to byte j at mask 0x80>>b.
func (s *bitStore) readBytes(dst []byte, off uint64) {
	words := s.set.Words()
	for j := range dst {
		b := off + uint64(j)
		dst[j] = bits.Reverse8(byte(words[b/8] >> (8 * (b % 8))))
	}
}
