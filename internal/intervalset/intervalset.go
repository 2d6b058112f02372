// Package intervalset implements a compact sorted set of disjoint
// closed integer ranges, used by the scraper's progress ledger to
// record which pages have been fully ingested.
package intervalset

import "sort"

// Integral is any ordered integer type the set can be instantiated over.
type Integral interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

type span[T Integral] struct {
	start, end T
}

// Set is a sorted sequence of disjoint closed ranges [start,end].
// The zero value is an empty set ready to use.
type Set[T Integral] struct {
	ranges []span[T]
}

// New returns an empty Set.
func New[T Integral]() *Set[T] {
	return &Set[T]{}
}

// Insert adds v to the set, merging with an adjacent or containing
// range as needed so the set remains sorted and disjoint.
func (s *Set[T]) Insert(v T) {
	if len(s.ranges) == 0 {
		s.ranges = append(s.ranges, span[T]{v, v})
		return
	}

	// pos = number of ranges whose start <= v.
	pos := sort.Search(len(s.ranges), func(i int) bool { return s.ranges[i].start > v })

	if pos > 0 {
		prev := s.ranges[pos-1]
		if prev.start <= v && v <= prev.end {
			return
		}
	}

	mergePrev := pos > 0 && v == s.ranges[pos-1].end+1
	mergeNext := pos < len(s.ranges) && v == s.ranges[pos].start-1

	switch {
	case mergePrev && mergeNext:
		s.ranges[pos-1].end = s.ranges[pos].end
		s.ranges = append(s.ranges[:pos], s.ranges[pos+1:]...)
	case mergePrev:
		s.ranges[pos-1].end = v
	case mergeNext:
		s.ranges[pos].start = v
	default:
		s.ranges = append(s.ranges, span[T]{})
		copy(s.ranges[pos+1:], s.ranges[pos:])
		s.ranges[pos] = span[T]{v, v}
	}
}

// Contains reports whether v falls within some range of the set.
// O(log N) via binary search on range starts.
func (s *Set[T]) Contains(v T) bool {
	// Find the last range whose start <= v.
	pos := sort.Search(len(s.ranges), func(i int) bool { return s.ranges[i].start > v })
	if pos == 0 {
		return false
	}
	r := s.ranges[pos-1]
	return r.start <= v && v <= r.end
}

// FirstMissing returns the first value >= from that is not in the set:
// if from falls inside a range [a,b], the range's end+1 is returned;
// otherwise from itself is returned (it is already missing).
func (s *Set[T]) FirstMissing(from T) T {
	for _, r := range s.ranges {
		if r.start <= from && from <= r.end {
			return r.end + 1
		}
	}
	return from
}

// Ranges returns the set's disjoint ranges as (start, end) pairs in
// ascending order, for serialization.
func (s *Set[T]) Ranges() [][2]T {
	out := make([][2]T, len(s.ranges))
	for i, r := range s.ranges {
		out[i] = [2]T{r.start, r.end}
	}
	return out
}

// FromRanges rebuilds a Set from previously serialized (start, end)
// pairs. Pairs must already be sorted and disjoint; callers restoring
// a persisted ledger are expected to pass back exactly what Ranges
// produced.
func FromRanges[T Integral](pairs [][2]T) *Set[T] {
	s := &Set[T]{ranges: make([]span[T], len(pairs))}
	for i, p := range pairs {
		s.ranges[i] = span[T]{p[0], p[1]}
	}
	return s
}
