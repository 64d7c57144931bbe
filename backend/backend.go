package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/speclib/attribute"
	"github.com/hupe1980/speclib/index"
	"github.com/hupe1980/speclib/model"
)

// Header carries the library-level metadata every format shares: the
// top-level attributes plus the reusable attribute sets declared for
// spectra, analytes, and interpretations.
type Header struct {
	Attributes         *attribute.Manager
	SpectrumSets       []*attribute.Set
	AnalyteSets        []*attribute.Set
	InterpretationSets []*attribute.Set
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{Attributes: attribute.NewManager()}
}

// SpectrumSet returns the named spectrum attribute set.
func (h *Header) SpectrumSet(name string) (*attribute.Set, bool) {
	return findSet(h.SpectrumSets, name)
}

// AnalyteSet returns the named analyte attribute set.
func (h *Header) AnalyteSet(name string) (*attribute.Set, bool) {
	return findSet(h.AnalyteSets, name)
}

// InterpretationSet returns the named interpretation attribute set.
func (h *Header) InterpretationSet(name string) (*attribute.Set, bool) {
	return findSet(h.InterpretationSets, name)
}

func findSet(sets []*attribute.Set, name string) (*attribute.Set, bool) {
	for _, s := range sets {
		if s.Name == name {
			return s, true
		}
	}

	return nil, false
}

// Library is a read handle on one spectral library.
//
// Spectrum and SpectrumByName are random access; Read is the sequential
// pull iterator. A Library is not safe for concurrent use.
type Library interface {
	// Format returns the registered name of the backing format.
	Format() string

	// Header returns the library-level attributes and attribute sets.
	Header() *Header

	// Count returns the number of spectra in the library.
	Count() (int, error)

	// Spectrum fetches one spectrum by its library number. Scanned formats
	// number records 0..N-1 in file order; database formats use their
	// native row ids.
	Spectrum(ctx context.Context, number uint64) (*model.Spectrum, error)

	// SpectrumByName fetches one spectrum by its name attribute. Formats
	// whose storage carries no names return ErrNameLookupUnsupported.
	SpectrumByName(ctx context.Context, name string) (*model.Spectrum, error)

	// Read returns the next spectrum in library order, or io.EOF after the
	// last one. The cursor starts before the first spectrum and cannot be
	// rewound without reopening the library.
	Read(ctx context.Context) (*model.Spectrum, error)

	// Close releases the underlying source.
	Close() error
}

// ClusterReader is implemented by libraries that carry spectrum clusters.
type ClusterReader interface {
	// Cluster fetches one spectrum cluster by its key.
	Cluster(ctx context.Context, key uint64) (*model.SpectrumCluster, error)

	// ClusterKeys lists the keys of every cluster in library order.
	ClusterKeys(ctx context.Context) ([]uint64, error)

	// ClusterCount returns the number of clusters.
	ClusterCount() (int, error)
}

// Indexed is implemented by libraries whose record offsets live in an
// index.Index, exposing it for range and attribute queries.
type Indexed interface {
	Index() index.Index
}

// Writer emits a library one spectrum at a time. WriteHeader must be called
// exactly once, before the first spectrum.
type Writer interface {
	WriteHeader(h *Header) error
	WriteSpectrum(s *model.Spectrum) error
	Close() error
}

// ClusterWriter is implemented by writers that can emit spectrum clusters.
// Clusters follow the last spectrum.
type ClusterWriter interface {
	WriteCluster(c *model.SpectrumCluster) error
}

// IndexMode selects where a scanned format keeps its offset index.
type IndexMode int

const (
	// IndexAuto loads an existing .splindex sidecar and otherwise scans
	// the library into an in-memory index.
	IndexAuto IndexMode = iota

	// IndexMemory always scans into memory, ignoring any sidecar.
	IndexMemory

	// IndexSQL loads the sidecar when present and builds and persists one
	// otherwise.
	IndexSQL
)

// String returns a string representation of the IndexMode.
func (m IndexMode) String() string {
	switch m {
	case IndexAuto:
		return "auto"
	case IndexMemory:
		return "memory"
	case IndexSQL:
		return "sql"
	default:
		return "unknown"
	}
}

// OpenOptions tunes how a format opens a library. The zero value scans with
// an in-memory index and stays quiet.
type OpenOptions struct {
	// Logger receives progress messages during index builds. Nil disables
	// logging.
	Logger *slog.Logger

	// IndexMode selects the offset index backing scanned formats. Database
	// formats ignore it.
	IndexMode IndexMode
}

// Format describes one registered library format.
type Format struct {
	// Name is the registry key, e.g. "text" or "msp".
	Name string

	// Extensions lists the filename suffixes the format claims. A trailing
	// ".gz" on the filename is stripped before matching; when several
	// formats claim a suffix, the longest match wins.
	Extensions []string

	// Open constructs a Library over src. opts is never nil.
	Open func(ctx context.Context, src *ByteSource, opts *OpenOptions) (Library, error)

	// Sniff reports whether the head of a decompressed stream looks like
	// this format. Nil means the format is detected by extension only.
	Sniff func(ctx context.Context, r io.Reader) bool
}

var (
	registryMu sync.RWMutex
	registry   = map[string]*Format{}
)

// Register adds a format to the registry, replacing any previous entry with
// the same name.
//
// Format implementations call this from an init() function.
func Register(f *Format) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[f.Name] = f
}

// ByName returns the registered format with the given name.
func ByName(name string) (*Format, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]

	return f, ok
}

// Formats returns all registered formats sorted by name.
func Formats() []*Format {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]*Format, 0, len(registry))
	for _, f := range registry {
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// GuessFromPath returns the format whose extension matches path. A trailing
// ".gz" is ignored.
func GuessFromPath(path string) (*Format, bool) {
	name := strings.ToLower(path)
	name = strings.TrimSuffix(name, ".gz")

	var best *Format

	bestLen := 0

	for _, f := range Formats() {
		for _, ext := range f.Extensions {
			if strings.HasSuffix(name, ext) && len(ext) > bestLen {
				best, bestLen = f, len(ext)
			}
		}
	}

	return best, best != nil
}

// sniffWindow bounds how many decompressed bytes a Sniff may inspect.
const sniffWindow = 64 * 1024

// Guess detects the format of src, first by filename and then by sniffing
// the head of the stream.
func Guess(ctx context.Context, src *ByteSource) (*Format, error) {
	if f, ok := GuessFromPath(src.Name()); ok {
		return f, nil
	}

	for _, f := range Formats() {
		if f.Sniff == nil {
			continue
		}

		r, err := src.SectionAt(0)
		if err != nil {
			return nil, err
		}

		ok := f.Sniff(ctx, io.LimitReader(r, sniffWindow))
		_ = r.Close()

		if ok {
			return f, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, src.Name())
}

// Open opens the library at path. formatName selects a registered format
// explicitly; when empty the format is guessed from the path and, failing
// that, from the file contents. opts may be nil.
func Open(ctx context.Context, path, formatName string, opts *OpenOptions) (Library, error) {
	if opts == nil {
		opts = &OpenOptions{}
	}

	src, err := OpenFile(ctx, path)
	if err != nil {
		return nil, err
	}

	var f *Format

	if formatName != "" {
		var ok bool
		if f, ok = ByName(formatName); !ok {
			_ = src.Close()

			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, formatName)
		}
	} else if f, err = Guess(ctx, src); err != nil {
		_ = src.Close()

		return nil, err
	}

	lib, err := f.Open(ctx, src, opts)
	if err != nil {
		_ = src.Close()

		return nil, err
	}

	return lib, nil
}

// WriteLibrary copies the header, every spectrum, and, when both ends
// support them, every cluster from lib to w. It does not close either end.
func WriteLibrary(ctx context.Context, w Writer, lib Library) error {
	if err := w.WriteHeader(lib.Header()); err != nil {
		return err
	}

	for {
		s, err := lib.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return err
		}

		if err := w.WriteSpectrum(s); err != nil {
			return err
		}
	}

	cr, rok := lib.(ClusterReader)
	cw, wok := w.(ClusterWriter)

	if !rok || !wok {
		return nil
	}

	keys, err := cr.ClusterKeys(ctx)
	if err != nil {
		return err
	}

	for _, key := range keys {
		c, err := cr.Cluster(ctx, key)
		if err != nil {
			return err
		}

		if err := cw.WriteCluster(c); err != nil {
			return err
		}
	}

	return nil
}
