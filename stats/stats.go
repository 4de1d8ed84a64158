// Package stats implements the statistics loader of spec.md §4.11: parsing
// a compact textual per-index histogram encoding into an in-memory
// index_stat structure the planner consumes, with atomic install-on-
// success and keep-previous-on-failure semantics.
package stats

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/tarandb/tarancore/dberr"
	"github.com/tarandb/tarancore/keydef"
	"github.com/tarandb/tarancore/pack"
)

// Sample is one bounded histogram sample: an encoded key plus the three
// count vectors the planner's selectivity estimator reads (spec.md
// §4.11: "(encoded key, eq-count-vector, lt-count-vector,
// dlt-count-vector)").
type Sample struct {
	Key      pack.Value // an Array of key-part values
	EqCount  []int64
	LtCount  []int64
	DltCount []int64
}

// IndexStat is one index's fully loaded statistics snapshot.
type IndexStat struct {
	RowCount      int64
	DistinctCount []int64 // per-prefix distinct-count vector
	Unordered     bool
	NoSkipScan    bool
	Samples       []Sample
}

// Store holds the current stats per index id, with atomic swap-on-success
// (spec.md §4.11: "On success the loader installs the freshly-built stats
// atomically per index. On failure the previous stats remain in place.").
type Store struct {
	tables atomic.Pointer[map[uint32]*IndexStat]
}

// NewStore returns an empty statistics store.
func NewStore() *Store {
	s := &Store{}
	empty := make(map[uint32]*IndexStat)
	s.tables.Store(&empty)
	return s
}

// Lookup returns the current stats for indexID, or (nil, false) if none
// have been loaded yet.
func (s *Store) Lookup(indexID uint32) (*IndexStat, bool) {
	tbl := *s.tables.Load()
	st, ok := tbl[indexID]
	return st, ok
}

// Install atomically replaces indexID's stats. A failed Load (the caller
// never calls Install) leaves the previous entry untouched, which is the
// "On failure the previous stats remain in place" contract: Install
// itself cannot partially fail once its argument is built.
func (s *Store) Install(indexID uint32, st *IndexStat) {
	for {
		old := s.tables.Load()
		next := make(map[uint32]*IndexStat, len(*old)+1)
		for k, v := range *old {
			next[k] = v
		}
		next[indexID] = st
		if s.tables.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Load parses the textual per-index histogram encoding of spec.md §4.11
// (a compact line-oriented format read from two system spaces in the
// original: one row per index giving row count and distinct-count
// vector, one row per sample), sorts samples by key under kd's
// comparator, and returns the built IndexStat without installing it —
// the caller installs only once every index in a batch parses cleanly,
// matching "on failure the previous stats remain in place".
func Load(statRows, sampleRows []string, kd *keydef.KeyDef, cmp *keydef.Comparator) (*IndexStat, error) {
	if len(statRows) == 0 {
		return nil, dberr.Logic("stats: no row for index")
	}
	st, err := parseStatRow(statRows[0])
	if err != nil {
		return nil, err
	}

	samples := make([]Sample, 0, len(sampleRows))
	for i, row := range sampleRows {
		s, err := parseSampleRow(row, kd)
		if err != nil {
			return nil, dberr.Wrap(dberr.ErrClient, "", err, "stats: sample %d", i)
		}
		samples = append(samples, s)
	}
	sort.SliceStable(samples, func(i, j int) bool {
		return cmp.CompareKeys(samples[i].Key, samples[j].Key, kd, keydef.NullDefault) < 0
	})
	st.Samples = samples
	return st, nil
}

// parseStatRow parses "<row_count> <d0>,<d1>,... [unordered] [noskipscan]".
func parseStatRow(row string) (*IndexStat, error) {
	fields := strings.Fields(row)
	if len(fields) < 2 {
		return nil, dberr.Logic("stats: malformed stat row %q", row)
	}
	rowCount, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return nil, dberr.Logic("stats: bad row count in %q: %v", row, err)
	}
	distinct, err := parseInt64Vector(fields[1])
	if err != nil {
		return nil, dberr.Logic("stats: bad distinct-count vector in %q: %v", row, err)
	}
	st := &IndexStat{RowCount: rowCount, DistinctCount: distinct}
	for _, flag := range fields[2:] {
		switch flag {
		case "unordered":
			st.Unordered = true
		case "noskipscan":
			st.NoSkipScan = true
		}
	}
	return st, nil
}

// parseSampleRow parses "<msgpack-hex-key> <eq0>,<eq1>,... <lt0>,... <dlt0>,...".
func parseSampleRow(row string, kd *keydef.KeyDef) (Sample, error) {
	fields := strings.Fields(row)
	if len(fields) != 4 {
		return Sample{}, fmt.Errorf("expected 4 fields, got %d", len(fields))
	}
	keyBytes, err := hex.DecodeString(fields[0])
	if err != nil {
		return Sample{}, fmt.Errorf("key: %w", err)
	}
	key, _, err := pack.Decode(keyBytes)
	if err != nil {
		return Sample{}, fmt.Errorf("key decode: %w", err)
	}
	eq, err := parseInt64Vector(fields[1])
	if err != nil {
		return Sample{}, fmt.Errorf("eq vector: %w", err)
	}
	lt, err := parseInt64Vector(fields[2])
	if err != nil {
		return Sample{}, fmt.Errorf("lt vector: %w", err)
	}
	dlt, err := parseInt64Vector(fields[3])
	if err != nil {
		return Sample{}, fmt.Errorf("dlt vector: %w", err)
	}
	return Sample{Key: key, EqCount: eq, LtCount: lt, DltCount: dlt}, nil
}

func parseInt64Vector(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	out := make([]int64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
