// Package merger implements the streaming k-way merger of spec.md §4.12:
// a heap-driven merge of several tuple sources under a shared key
// definition, with pluggable source envelopes and a fetch-on-drain
// callback for sources materialized lazily.
package merger

import (
	"container/heap"

	"github.com/tarandb/tarancore/keydef"
	"github.com/tarandb/tarancore/tuple"
)

// FetchFunc refills a drained source (spec.md §4.12 step 2's
// "fetch_source" callback), given the source's descriptor, the last
// tuple it produced, and how many tuples it has produced overall. It
// returns fresh tuples plus whether any were supplied; ok=false retires
// the source from the merge for good.
type FetchFunc func(desc any, last *tuple.Tuple, processed int) (tuples []*tuple.Tuple, ok bool)

// Source is one merge input: an ordinal for the stable cross-source tie
// break (spec.md §5 "ties are broken by source ordinal"), a descriptor
// opaque to the merger and handed back through FetchFunc, and a
// materializable batch of tuples.
type Source struct {
	Ordinal int
	Desc    any

	data      []*tuple.Tuple
	pos       int
	processed int
	cur       *tuple.Tuple
}

// NewSource wraps a decoded tuple batch as one merge source.
func NewSource(ordinal int, desc any, tuples []*tuple.Tuple) *Source {
	return &Source{Ordinal: ordinal, Desc: desc, data: tuples}
}

// materializeNext advances to this source's next tuple, taking a
// reference on it on the source's behalf (spec.md §4.12 step 1:
// "increment that source's reference count on the tuple").
func (s *Source) materializeNext() bool {
	if s.pos >= len(s.data) {
		s.cur = nil
		return false
	}
	s.cur = s.data[s.pos]
	s.cur.Ref()
	s.pos++
	s.processed++
	return true
}

// Options configures one merger_select/merger_pairs invocation.
type Options struct {
	Descending  bool
	FetchSource FetchFunc
}

// Merger compiles a key definition once and drives possibly many
// selects/pairs iterations against it (spec.md §4.12: "merger_new(...)
// compiles a key definition and an internal format for fast
// comparisons" — the "internal format" is the tuple.Format every source
// tuple must already share, supplied by the caller at decode time).
type Merger struct {
	KeyDef *keydef.KeyDef
	Cmp    *keydef.Comparator
}

// New implements merger_new.
func New(kd *keydef.KeyDef, cmp *keydef.Comparator) *Merger {
	return &Merger{KeyDef: kd, Cmp: cmp}
}

// Iterator is the cooperative-pull handle merger_pairs returns.
type Iterator struct {
	h *srcHeap
}

// Pairs implements merger_pairs: materializes every source's first tuple
// (step 1) and returns a handle whose Next performs one iteration of
// step 2 per call.
func (m *Merger) Pairs(sources []*Source, opts Options) *Iterator {
	h := &srcHeap{cmp: m.Cmp, kd: m.KeyDef, descending: opts.Descending}
	for _, s := range sources {
		if s.materializeNext() {
			heap.Push(h, s)
			continue
		}
		// A source may start out empty and rely entirely on
		// fetch_source to produce its first batch (spec.md §4.12 S3:
		// "Source is a buffer initially empty").
		if opts.FetchSource == nil {
			continue
		}
		if data, ok := opts.FetchSource(s.Desc, nil, s.processed); ok {
			s.data = data
			s.pos = 0
			if s.materializeNext() {
				heap.Push(h, s)
			}
		}
	}
	return &Iterator{h: h}
}

// Select implements merger_select: drains every source into one ordered
// slice via repeated calls to Pairs's iterator.
func (m *Merger) Select(sources []*Source, opts Options) ([]*tuple.Tuple, error) {
	it := m.Pairs(sources, opts)
	var out []*tuple.Tuple
	for {
		t, ok, err := it.Next(opts.FetchSource)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, t)
	}
}

// Next pops the extreme (least, or greatest if descending) current
// tuple across every live source, advances that source, and either
// re-heapifies it, refills it through fetch, or retires it — spec.md
// §4.12 step 2. ok=false with a nil error signals termination (step 3:
// "when the heap is empty").
func (it *Iterator) Next(fetch FetchFunc) (*tuple.Tuple, bool, error) {
	if it.h.Len() == 0 {
		return nil, false, nil
	}
	top := heap.Pop(it.h).(*Source)
	out := top.cur

	if top.materializeNext() {
		heap.Push(it.h, top)
		return out, true, nil
	}
	if fetch != nil {
		if data, ok := fetch(top.Desc, out, top.processed); ok {
			top.data = data
			top.pos = 0
			if top.materializeNext() {
				heap.Push(it.h, top)
			}
		}
	}
	return out, true, nil
}

// srcHeap implements container/heap.Interface over live sources, keyed
// by each source's current tuple under the merger's comparator. Using
// the standard library's heap here is the idiomatic Go k-way-merge
// priority queue; none of the module's third-party dependencies model a
// generic heap, so the algorithm itself is necessarily stdlib
// (container/heap) even though the comparator it calls through is the
// module's own keydef.Comparator.
type srcHeap struct {
	items      []*Source
	cmp        *keydef.Comparator
	kd         *keydef.KeyDef
	descending bool
}

func (h *srcHeap) Len() int { return len(h.items) }

func (h *srcHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	ak, _ := keydef.ExtractKey(a.cur, h.kd)
	bk, _ := keydef.ExtractKey(b.cur, h.kd)
	c := h.cmp.CompareKeys(ak, bk, h.kd, keydef.NullDefault)
	if h.descending {
		c = -c
	}
	if c != 0 {
		return c < 0
	}
	// Stable tie-break by insertion order (spec.md §5 "across sources,
	// ties are broken by source ordinal").
	return a.Ordinal < b.Ordinal
}

func (h *srcHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *srcHeap) Push(x any) { h.items = append(h.items, x.(*Source)) }

func (h *srcHeap) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return it
}
