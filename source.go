package bloomset

import "iter"

// Source is an operand of [Filter.Update], [Filter.IntersectionUpdate],
// [Filter.Union] and [Filter.Intersection]. It is implemented by exactly
// four types:
//
//   - [Hash]: a single item
//   - [Hashes]: a slice of items
//   - [HashSeq]: a lazily produced sequence of items
//   - *[Filter]: another compatible filter
type Source interface {
	isSource()
}

// Hashes is a slice of items used as a [Source].
type Hashes []Hash

// HashSeq is an iterator of items used as a [Source]. It is consumed once
// per operation that receives it.
type HashSeq iter.Seq[Hash]

func (Hash) isSource()    {}
func (Hashes) isSource()  {}
func (HashSeq) isSource() {}
func (*Filter) isSource() {}

// addAll folds the hashes of a non-filter source into f.
func (f *Filter) addAll(src Source) {
	switch s := src.(type) {
	case Hash:
		f.Add(s)
	case Hashes:
		for _, h := range s {
			f.Add(h)
		}
	case HashSeq:
		for h := range s {
			f.Add(h)
		}
	}
}
