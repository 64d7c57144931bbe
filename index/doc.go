// Package index maintains offset indexes over spectral library files.
//
// An index maps every spectrum in a library to the byte offset where its
// entry begins, so that a reader can seek straight to a spectrum instead of
// scanning the whole file. Two implementations are provided:
//
//   - MemoryIndex: records held in memory, rebuilt on demand. Suitable for
//     one-shot reads and as the staging structure while building a library.
//   - SQLIndex: records persisted to a SQLite sidecar next to the library
//     file (extension ".splindex"), so repeated opens skip the initial scan.
//
// # Records
//
// Every spectrum yields a Record carrying its number (the zero-based
// position within the library), its byte offset, and optionally its name
// and primary analyte description. Cluster entries are tracked separately
// as ClusterRecord values keyed by cluster number.
//
// # Lookup
//
// Records can be retrieved by number (Get), by half-open number range
// (Between), or by name (SearchAll, SearchOne). Names are not required to
// be unique; SearchOne returns the earliest match and leaves it to the
// caller to decide whether multiplicity matters.
//
// MemoryIndex additionally supports lookup by indexed record attributes
// through SearchAttributes, backed by Roaring bitmap posting lists.
package index
