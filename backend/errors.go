package backend

import (
	"errors"
	"fmt"
)

// ErrUnknownFormat is returned when no registered format claims a file.
var ErrUnknownFormat = errors.New("backend: unknown library format")

// ErrNameLookupUnsupported is returned by formats whose storage carries no
// spectrum names.
var ErrNameLookupUnsupported = errors.New("backend: name lookup not supported by this format")

// ErrIndexBuild is a named error type for records that cannot be indexed.
// Indexing aborts on the first occurrence.
type ErrIndexBuild struct {
	Path   string // Library file being indexed
	Number uint64 // Ordinal of the offending record
	Offset int64  // Byte offset of the offending record
	Reason string // Why the record could not be indexed
}

// Error returns the error message for a failed index build.
func (e *ErrIndexBuild) Error() string {
	return fmt.Sprintf("backend: indexing %s failed at record %d (offset %d): %s", e.Path, e.Number, e.Offset, e.Reason)
}

// ErrMalformedAttributeLine is a named error type for attribute lines that
// match none of the recognized shapes.
type ErrMalformedAttributeLine struct {
	Line   string // Raw line content
	LineNo int    // One-based line number within the record, 0 when unknown
	Record uint64 // Enclosing record number, when known
}

// Error returns the error message for a malformed attribute line.
func (e *ErrMalformedAttributeLine) Error() string {
	return fmt.Sprintf("backend: malformed attribute line %q (line %d, record %d)", e.Line, e.LineNo, e.Record)
}

// ErrMalformedPeakLine is a named error type for peak rows that cannot be
// parsed.
type ErrMalformedPeakLine struct {
	Line string // Raw line content
}

// Error returns the error message for a malformed peak line.
func (e *ErrMalformedPeakLine) Error() string {
	return fmt.Sprintf("backend: malformed peak line %q", e.Line)
}
