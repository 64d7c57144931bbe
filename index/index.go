// Package index provides offset indexes over spectral library files.
package index

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("index: record not found")

// ErrAttributesUnsupported is returned by indexes that cannot store
// per-record attribute maps.
var ErrAttributesUnsupported = errors.New("index: record attributes not supported")

// ErrDuplicateNumber is a named error type for corrupt indexes that hold
// more than one record under the same spectrum number.
type ErrDuplicateNumber struct {
	Number uint64 // Spectrum number that matched more than once
	Count  int    // Number of matching records
}

// Error returns the error message for a duplicated spectrum number.
func (e *ErrDuplicateNumber) Error() string {
	return fmt.Sprintf("index: %d records found for spectrum number %d", e.Count, e.Number)
}

// Index is the interface shared by all offset index implementations.
type Index interface {
	// Add appends a spectrum record. The record becomes visible to
	// lookups after the next Commit.
	Add(rec Record) error

	// AddCluster appends a cluster record.
	AddCluster(rec ClusterRecord) error

	// Commit makes all pending records visible. Calling Commit with no
	// pending records is a no-op.
	Commit() error

	// Get returns the record with the given spectrum number.
	Get(number uint64) (Record, error)

	// Between returns the records whose numbers fall in [start, stop),
	// ordered by number.
	Between(start, stop uint64) ([]Record, error)

	// SearchAll returns every record with the given name, ordered by
	// number. It returns ErrNotFound when there are none.
	SearchAll(name string) ([]Record, error)

	// SearchOne returns the record with the given name. When several
	// records share the name the earliest is returned.
	SearchOne(name string) (Record, error)

	// All returns every spectrum record, ordered by number.
	All() ([]Record, error)

	// Count returns the number of spectrum records, including pending ones.
	Count() (int, error)

	// GetCluster returns the cluster record with the given number.
	GetCluster(number uint64) (ClusterRecord, error)

	// Clusters returns every cluster record, ordered by number.
	Clusters() ([]ClusterRecord, error)

	// ClusterCount returns the number of cluster records.
	ClusterCount() (int, error)

	// SetMetadata stores a named metadata value on the index.
	SetMetadata(name, value string) error

	// Metadata returns a named metadata value, or false when unset.
	Metadata(name string) (string, bool, error)

	// Close releases resources held by the index.
	Close() error
}
