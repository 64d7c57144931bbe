package speclib

import (
	"errors"
	"fmt"

	"github.com/hupe1980/speclib/backend"
	"github.com/hupe1980/speclib/index"
)

var (
	// ErrNotFound is returned when a spectrum lookup matches nothing.
	ErrNotFound = errors.New("spectrum not found")

	// ErrUnknownFormat is returned when no registered format claims a file.
	ErrUnknownFormat = errors.New("unknown library format")

	// ErrNameLookupUnsupported is returned when a format's storage carries
	// no spectrum names.
	ErrNameLookupUnsupported = errors.New("name lookup not supported")

	// ErrReadOnlyFormat is returned when a conversion targets a format
	// without write support.
	ErrReadOnlyFormat = errors.New("format does not support writing")

	// ErrClosed is returned when a library is used after Close.
	ErrClosed = errors.New("library is closed")
)

// ErrParse indicates a record that could not be parsed.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrParse struct {
	Line   string
	Record uint64
	cause  error
}

func (e *ErrParse) Error() string {
	if e.Line != "" {
		return fmt.Sprintf("parse failure at record %d: %q", e.Record, e.Line)
	}

	return fmt.Sprintf("parse failure at record %d", e.Record)
}

func (e *ErrParse) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, index.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	if errors.Is(err, backend.ErrUnknownFormat) {
		return fmt.Errorf("%w: %w", ErrUnknownFormat, err)
	}

	if errors.Is(err, backend.ErrNameLookupUnsupported) {
		return fmt.Errorf("%w: %w", ErrNameLookupUnsupported, err)
	}

	// Parse normalization.
	var mal *backend.ErrMalformedAttributeLine
	if errors.As(err, &mal) {
		return &ErrParse{Line: mal.Line, Record: mal.Record, cause: err}
	}

	var mpl *backend.ErrMalformedPeakLine
	if errors.As(err, &mpl) {
		return &ErrParse{Line: mpl.Line, cause: err}
	}

	var ib *backend.ErrIndexBuild
	if errors.As(err, &ib) {
		return &ErrParse{Record: ib.Number, cause: err}
	}

	return err
}
