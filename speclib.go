package speclib

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/hupe1980/speclib/backend"
	"github.com/hupe1980/speclib/blobstore"
	"github.com/hupe1980/speclib/index"
	"github.com/hupe1980/speclib/model"
)

// Library is a read handle on one spectral library file. It wraps the
// format-specific backend with logging and metrics.
//
// A Library is not safe for concurrent use.
type Library struct {
	backend backend.Library
	path    string
	metrics MetricsCollector
	logger  *Logger
	closed  bool
}

// Open opens the spectral library at path. The format is guessed from the
// filename and, failing that, from the file contents; use WithFormat to pin
// it explicitly. Gzip-compressed text libraries are detected transparently.
func Open(ctx context.Context, path string, optFns ...Option) (*Library, error) {
	start := time.Now()
	opts := applyOptions(optFns)

	bopts := &backend.OpenOptions{
		Logger:    opts.logger.Logger,
		IndexMode: opts.indexMode,
	}

	var (
		lib backend.Library
		err error
	)

	if opts.blobStore != nil {
		lib, err = openRemote(ctx, path, opts.format, opts.blobStore, bopts)
	} else {
		lib, err = backend.Open(ctx, path, opts.format, bopts)
	}

	err = translateError(err)

	opts.metricsCollector.RecordOpen(time.Since(start), err)

	if err != nil {
		opts.logger.LogOpen(ctx, path, "", 0, err)

		return nil, err
	}

	count, _ := lib.Count()
	opts.logger.LogOpen(ctx, path, lib.Format(), uint64(count), nil)

	return &Library{
		backend: lib,
		path:    path,
		metrics: opts.metricsCollector,
		logger:  opts.logger,
	}, nil
}

// openRemote opens a library through a blob store instead of the local
// filesystem.
func openRemote(ctx context.Context, path, formatName string, store blobstore.BlobStore, bopts *backend.OpenOptions) (backend.Library, error) {
	blob, err := store.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	src, err := backend.NewByteSource(path, blob)
	if err != nil {
		_ = blob.Close()

		return nil, err
	}

	var f *backend.Format

	if formatName != "" {
		var ok bool
		if f, ok = backend.ByName(formatName); !ok {
			_ = src.Close()

			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, formatName)
		}
	} else if f, err = backend.Guess(ctx, src); err != nil {
		_ = src.Close()

		return nil, err
	}

	lib, err := f.Open(ctx, src, bopts)
	if err != nil {
		_ = src.Close()

		return nil, err
	}

	return lib, nil
}

// Path returns the path the library was opened from.
func (l *Library) Path() string { return l.path }

// Format returns the registered name of the backing format.
func (l *Library) Format() string { return l.backend.Format() }

// Header returns the library-level attributes and attribute sets.
func (l *Library) Header() *backend.Header { return l.backend.Header() }

// Count returns the number of spectra in the library.
func (l *Library) Count() (int, error) {
	if l.closed {
		return 0, ErrClosed
	}

	n, err := l.backend.Count()

	return n, translateError(err)
}

// Spectrum fetches one spectrum by its library number.
func (l *Library) Spectrum(ctx context.Context, number uint64) (*model.Spectrum, error) {
	start := time.Now()

	if l.closed {
		return nil, ErrClosed
	}

	s, err := l.backend.Spectrum(ctx, number)
	err = translateError(err)

	l.metrics.RecordLookup(time.Since(start), err)
	l.logger.LogLookup(ctx, fmt.Sprintf("number=%d", number), err)

	return s, err
}

// SpectrumByName fetches one spectrum by its name attribute. Formats whose
// storage carries no names return ErrNameLookupUnsupported.
func (l *Library) SpectrumByName(ctx context.Context, name string) (*model.Spectrum, error) {
	start := time.Now()

	if l.closed {
		return nil, ErrClosed
	}

	s, err := l.backend.SpectrumByName(ctx, name)
	err = translateError(err)

	l.metrics.RecordLookup(time.Since(start), err)
	l.logger.LogLookup(ctx, "name="+name, err)

	return s, err
}

// Read returns the next spectrum in library order, or io.EOF after the last
// one. The cursor starts before the first spectrum.
func (l *Library) Read(ctx context.Context) (*model.Spectrum, error) {
	start := time.Now()

	if l.closed {
		return nil, ErrClosed
	}

	s, err := l.backend.Read(ctx)
	if err == io.EOF {
		return nil, io.EOF
	}

	err = translateError(err)
	l.metrics.RecordRead(time.Since(start), err)

	return s, err
}

// Index returns the offset index backing the library, when the format
// exposes one.
func (l *Library) Index() (index.Index, bool) {
	if in, ok := l.backend.(backend.Indexed); ok {
		return in.Index(), true
	}

	return nil, false
}

// Cluster fetches one spectrum cluster by its key. Formats without cluster
// support return ErrNotFound for every key.
func (l *Library) Cluster(ctx context.Context, key uint64) (*model.SpectrumCluster, error) {
	if l.closed {
		return nil, ErrClosed
	}

	cr, ok := l.backend.(backend.ClusterReader)
	if !ok {
		return nil, fmt.Errorf("%w: cluster %d", ErrNotFound, key)
	}

	c, err := cr.Cluster(ctx, key)

	return c, translateError(err)
}

// ClusterKeys lists the keys of every cluster in library order.
func (l *Library) ClusterKeys(ctx context.Context) ([]uint64, error) {
	if l.closed {
		return nil, ErrClosed
	}

	cr, ok := l.backend.(backend.ClusterReader)
	if !ok {
		return nil, nil
	}

	keys, err := cr.ClusterKeys(ctx)

	return keys, translateError(err)
}

// Backend exposes the underlying format backend for callers that need
// format-specific behavior.
func (l *Library) Backend() backend.Library { return l.backend }

// Close releases the underlying source. Close is idempotent.
func (l *Library) Close() error {
	if l.closed {
		return nil
	}

	l.closed = true

	return l.backend.Close()
}

// Formats returns the names of all registered library formats.
func Formats() []string {
	fs := backend.Formats()

	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Name)
	}

	return out
}

// GuessFormat returns the format name claimed by the filename extension.
func GuessFormat(path string) (string, bool) {
	f, ok := backend.GuessFromPath(path)
	if !ok {
		return "", false
	}

	return f.Name, true
}

// NewWriter returns a writer that emits the named format to w. Only the
// "text" and "json" formats support writing.
func NewWriter(format string, w io.Writer) (backend.Writer, error) {
	switch format {
	case backend.FormatText:
		return backend.NewTextWriter(w), nil
	case backend.FormatJSON:
		return backend.NewJSONWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrReadOnlyFormat, format)
	}
}

// ConvertOptions contains options for Convert.
type ConvertOptions struct {
	// SourceFormat pins the source format instead of guessing it.
	SourceFormat string

	// TargetFormat pins the target format instead of guessing it from the
	// destination filename.
	TargetFormat string

	// IndexMode selects the offset index backing the source library.
	IndexMode backend.IndexMode

	// Logger receives progress messages. Nil disables logging.
	Logger *Logger

	// MetricsCollector receives conversion metrics. Nil disables metrics.
	MetricsCollector MetricsCollector
}

// Convert copies the library at srcPath into dstPath, translating between
// formats. The target format is guessed from the destination filename unless
// pinned; a trailing ".gz" on the destination selects gzip compression.
// It returns the number of spectra written.
func Convert(ctx context.Context, srcPath, dstPath string, optFns ...func(o *ConvertOptions)) (uint64, error) {
	start := time.Now()

	opts := ConvertOptions{
		Logger:           NoopLogger(),
		MetricsCollector: NoopMetricsCollector{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}

	if opts.MetricsCollector == nil {
		opts.MetricsCollector = NoopMetricsCollector{}
	}

	target := opts.TargetFormat
	if target == "" {
		var ok bool
		if target, ok = GuessFormat(dstPath); !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, dstPath)
		}
	}

	written, err := convert(ctx, srcPath, dstPath, target, &opts)

	opts.MetricsCollector.RecordConvert(written, time.Since(start), err)
	opts.Logger.LogConvert(ctx, srcPath, dstPath, written, err)

	return written, err
}

func convert(ctx context.Context, srcPath, dstPath, target string, opts *ConvertOptions) (uint64, error) {
	src, err := Open(ctx, srcPath,
		WithFormat(opts.SourceFormat),
		WithIndexMode(opts.IndexMode),
		WithLogger(opts.Logger),
	)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	out, err := os.Create(dstPath)
	if err != nil {
		return 0, err
	}

	var sink io.Writer = out

	var gz *gzip.Writer
	if strings.HasSuffix(strings.ToLower(dstPath), ".gz") {
		gz = gzip.NewWriter(out)
		sink = gz
	}

	w, err := NewWriter(target, sink)
	if err != nil {
		_ = out.Close()

		return 0, err
	}

	cw := &countingWriter{Writer: w}

	if err := backend.WriteLibrary(ctx, cw, src.backend); err != nil {
		_ = out.Close()

		return cw.spectra, translateError(err)
	}

	if err := w.Close(); err != nil {
		_ = out.Close()

		return cw.spectra, err
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			_ = out.Close()

			return cw.spectra, err
		}
	}

	return cw.spectra, out.Close()
}

// countingWriter counts spectra as they pass through to the wrapped writer.
type countingWriter struct {
	backend.Writer

	spectra uint64
}

func (c *countingWriter) WriteSpectrum(s *model.Spectrum) error {
	if err := c.Writer.WriteSpectrum(s); err != nil {
		return err
	}

	c.spectra++

	return nil
}

// WriteCluster forwards clusters when the wrapped writer supports them.
func (c *countingWriter) WriteCluster(cl *model.SpectrumCluster) error {
	if cw, ok := c.Writer.(backend.ClusterWriter); ok {
		return cw.WriteCluster(cl)
	}

	return nil
}
