package index

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// Compile-time check
var _ Index = (*MemoryIndex)(nil)

// MemoryIndex keeps all records in memory. Lookup structures are rebuilt
// lazily after additions, so building a large index stays append-only until
// the first read.
type MemoryIndex struct {
	records  []Record
	clusters []ClusterRecord

	byName    map[string][]int
	byCluster map[uint64]int
	inverted  map[string]map[string]*roaring.Bitmap
	metadata  map[string]string

	dirty bool
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		byName:    make(map[string][]int),
		byCluster: make(map[uint64]int),
		inverted:  make(map[string]map[string]*roaring.Bitmap),
		metadata:  make(map[string]string),
	}
}

// Add appends a spectrum record.
func (mi *MemoryIndex) Add(rec Record) error {
	mi.records = append(mi.records, rec)
	mi.dirty = true

	return nil
}

// AddCluster appends a cluster record.
func (mi *MemoryIndex) AddCluster(rec ClusterRecord) error {
	mi.clusters = append(mi.clusters, rec)
	mi.dirty = true

	return nil
}

// Commit rebuilds the lookup structures. It is safe to call at any time.
func (mi *MemoryIndex) Commit() error {
	mi.rebuild()

	return nil
}

// rebuild sorts the records by number and regenerates the name map, the
// cluster map and the attribute posting lists. Positions stored in the
// lookup structures refer to the sorted slices.
func (mi *MemoryIndex) rebuild() {
	if !mi.dirty {
		return
	}

	sort.SliceStable(mi.records, func(i, j int) bool {
		return mi.records[i].Number < mi.records[j].Number
	})

	sort.SliceStable(mi.clusters, func(i, j int) bool {
		return mi.clusters[i].Number < mi.clusters[j].Number
	})

	mi.byName = make(map[string][]int, len(mi.records))
	mi.inverted = make(map[string]map[string]*roaring.Bitmap)

	for i, rec := range mi.records {
		if rec.Name != "" {
			mi.byName[rec.Name] = append(mi.byName[rec.Name], i)
		}

		for name, value := range rec.Attributes {
			valueMap, ok := mi.inverted[name]
			if !ok {
				valueMap = make(map[string]*roaring.Bitmap)
				mi.inverted[name] = valueMap
			}

			bitmap, ok := valueMap[value]
			if !ok {
				bitmap = roaring.New()
				valueMap[value] = bitmap
			}

			bitmap.Add(uint32(i)) //nolint:gosec // in-memory slice positions fit in 32 bits
		}
	}

	mi.byCluster = make(map[uint64]int, len(mi.clusters))
	for i, rec := range mi.clusters {
		mi.byCluster[rec.Number] = i
	}

	mi.dirty = false
}

// Get returns the record with the given spectrum number.
func (mi *MemoryIndex) Get(number uint64) (Record, error) {
	mi.rebuild()

	i := sort.Search(len(mi.records), func(i int) bool {
		return mi.records[i].Number >= number
	})
	if i >= len(mi.records) || mi.records[i].Number != number {
		return Record{}, fmt.Errorf("%w: spectrum number %d", ErrNotFound, number)
	}

	if i+1 < len(mi.records) && mi.records[i+1].Number == number {
		count := 0
		for j := i; j < len(mi.records) && mi.records[j].Number == number; j++ {
			count++
		}

		return Record{}, &ErrDuplicateNumber{Number: number, Count: count}
	}

	return mi.records[i], nil
}

// Between returns the records with numbers in [start, stop), ordered by
// number.
func (mi *MemoryIndex) Between(start, stop uint64) ([]Record, error) {
	mi.rebuild()

	lo := sort.Search(len(mi.records), func(i int) bool {
		return mi.records[i].Number >= start
	})
	hi := sort.Search(len(mi.records), func(i int) bool {
		return mi.records[i].Number >= stop
	})

	out := make([]Record, hi-lo)
	copy(out, mi.records[lo:hi])

	return out, nil
}

// SearchAll returns every record with the given name, ordered by number.
func (mi *MemoryIndex) SearchAll(name string) ([]Record, error) {
	mi.rebuild()

	positions := mi.byName[name]
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: name %q", ErrNotFound, name)
	}

	out := make([]Record, 0, len(positions))
	for _, i := range positions {
		out = append(out, mi.records[i])
	}

	return out, nil
}

// SearchOne returns the earliest record with the given name.
func (mi *MemoryIndex) SearchOne(name string) (Record, error) {
	recs, err := mi.SearchAll(name)
	if err != nil {
		return Record{}, err
	}

	return recs[0], nil
}

// SearchAttributes returns every record whose indexed attributes carry the
// given name and value, ordered by number.
func (mi *MemoryIndex) SearchAttributes(name, value string) ([]Record, error) {
	mi.rebuild()

	valueMap, ok := mi.inverted[name]
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q", ErrNotFound, name)
	}

	bitmap, ok := valueMap[value]
	if !ok || bitmap.IsEmpty() {
		return nil, fmt.Errorf("%w: attribute %q=%q", ErrNotFound, name, value)
	}

	out := make([]Record, 0, bitmap.GetCardinality())

	it := bitmap.Iterator()
	for it.HasNext() {
		out = append(out, mi.records[it.Next()])
	}

	return out, nil
}

// All returns every spectrum record, ordered by number.
func (mi *MemoryIndex) All() ([]Record, error) {
	mi.rebuild()

	out := make([]Record, len(mi.records))
	copy(out, mi.records)

	return out, nil
}

// Count returns the number of spectrum records.
func (mi *MemoryIndex) Count() (int, error) {
	return len(mi.records), nil
}

// GetCluster returns the cluster record with the given number.
func (mi *MemoryIndex) GetCluster(number uint64) (ClusterRecord, error) {
	mi.rebuild()

	i, ok := mi.byCluster[number]
	if !ok {
		return ClusterRecord{}, fmt.Errorf("%w: cluster number %d", ErrNotFound, number)
	}

	return mi.clusters[i], nil
}

// Clusters returns every cluster record, ordered by number.
func (mi *MemoryIndex) Clusters() ([]ClusterRecord, error) {
	mi.rebuild()

	out := make([]ClusterRecord, len(mi.clusters))
	copy(out, mi.clusters)

	return out, nil
}

// ClusterCount returns the number of cluster records.
func (mi *MemoryIndex) ClusterCount() (int, error) {
	return len(mi.clusters), nil
}

// SetMetadata stores a named metadata value.
func (mi *MemoryIndex) SetMetadata(name, value string) error {
	mi.metadata[name] = value

	return nil
}

// Metadata returns a named metadata value, or false when unset.
func (mi *MemoryIndex) Metadata(name string) (string, bool, error) {
	v, ok := mi.metadata[name]

	return v, ok, nil
}

// Close releases no resources for the in-memory index.
func (mi *MemoryIndex) Close() error {
	return nil
}
