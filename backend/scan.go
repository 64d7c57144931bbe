package backend

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/speclib/index"
)

// commitInterval is how many records are indexed between commits.
const commitInterval = 1000

// progressInterval throttles index-build progress logging.
const progressInterval = 5 * time.Second

// scanBufSize is the read buffer used for forward scans and record reads.
const scanBufSize = 256 * 1024

// scanRules adapts the shared forward scan to one line-oriented format.
// Lines are handed to the hooks with trailing CR/LF stripped.
type scanRules struct {
	// IsRecordStart reports whether a line opens a spectrum record.
	IsRecordStart func(line string) bool

	// IsClusterStart reports whether a line opens a cluster record. Nil
	// for formats without clusters.
	IsClusterStart func(line string) bool

	// ClusterKey extracts the cluster key from a cluster-start line.
	ClusterKey func(line string) (uint64, bool)

	// Name extracts the spectrum name from one line of a record, when
	// that line carries it. It is tried on the record-start line first
	// and then on every body line until a name is found.
	Name func(line string) (string, bool)
}

// scanner runs the single forward pass shared by the line-oriented
// formats: it walks the decompressed stream once, recognizes record
// boundaries through its rules, and feeds byte offsets into an index.
// It also serves the inverse primitive, reading one record's lines back
// from an offset.
type scanner struct {
	src     *ByteSource
	rules   scanRules
	logger  *slog.Logger
	limiter *rate.Limiter
}

func newScanner(src *ByteSource, rules scanRules, logger *slog.Logger) *scanner {
	return &scanner{
		src:     src,
		rules:   rules,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(progressInterval), 1),
	}
}

// buildIndex scans the whole stream and records every spectrum and cluster
// offset in idx. Records are numbered 0..N-1 in file order. The index is
// committed every commitInterval records and once more at the end, so an
// aborted build leaves a consistent partial index behind.
func (sc *scanner) buildIndex(ctx context.Context, idx index.Index) (int, error) {
	r, err := sc.src.SectionAt(0)
	if err != nil {
		return 0, err
	}
	defer func() { _ = r.Close() }()

	var (
		recordStart int64
		recordName  string
		haveName    bool
		inRecord    bool
		inCluster   bool
		clusterKey  uint64
		count       int
		clusters    int
	)

	flushSpectrum := func(offset int64) error {
		if !inRecord {
			return nil
		}

		if !haveName {
			return &ErrIndexBuild{
				Path:   sc.src.Name(),
				Number: uint64(count), //nolint:gosec // record counter, never negative
				Offset: recordStart,
				Reason: "record has no name",
			}
		}

		if err := idx.Add(index.Record{
			Number: uint64(count), //nolint:gosec // record counter, never negative
			Offset: recordStart,
			Name:   recordName,
		}); err != nil {
			return err
		}

		count++
		inRecord = false

		if count%commitInterval == 0 {
			if err := idx.Commit(); err != nil {
				return err
			}

			sc.logProgress(offset, count)
		}

		return nil
	}

	flushCluster := func() error {
		if !inCluster {
			return nil
		}

		if err := idx.AddCluster(index.ClusterRecord{Number: clusterKey, Offset: recordStart}); err != nil {
			return err
		}

		clusters++
		inCluster = false

		return nil
	}

	br := bufio.NewReaderSize(r, scanBufSize)

	var offset int64

	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		line, rerr := br.ReadString('\n')
		if line != "" {
			lineStart := offset
			offset += int64(len(line))

			trimmed := strings.TrimRight(line, "\r\n")

			switch {
			case trimmed == "":
				// Blank lines separate nothing; records end at the next
				// start marker or EOF.

			case sc.rules.IsRecordStart(trimmed):
				if err := flushSpectrum(lineStart); err != nil {
					return count, err
				}

				if err := flushCluster(); err != nil {
					return count, err
				}

				inRecord = true
				recordStart = lineStart
				recordName, haveName = sc.tryName(trimmed)

			case sc.rules.IsClusterStart != nil && sc.rules.IsClusterStart(trimmed):
				if err := flushSpectrum(lineStart); err != nil {
					return count, err
				}

				if err := flushCluster(); err != nil {
					return count, err
				}

				if key, ok := sc.rules.ClusterKey(trimmed); ok {
					inCluster = true
					recordStart = lineStart
					clusterKey = key
				}

			case inRecord && !haveName:
				recordName, haveName = sc.tryName(trimmed)
			}
		}

		if rerr == io.EOF {
			break
		}

		if rerr != nil {
			return count, fmt.Errorf("backend: scan %s: %w", sc.src.Name(), rerr)
		}
	}

	if err := flushSpectrum(offset); err != nil {
		return count, err
	}

	if err := flushCluster(); err != nil {
		return count, err
	}

	if err := idx.Commit(); err != nil {
		return count, err
	}

	if sc.logger != nil {
		sc.logger.Info("Library indexed", "path", sc.src.Name(), "spectra", count, "clusters", clusters)
	}

	return count, nil
}

func (sc *scanner) tryName(line string) (string, bool) {
	if sc.rules.Name == nil {
		return "", false
	}

	return sc.rules.Name(line)
}

func (sc *scanner) logProgress(offset int64, count int) {
	if sc.logger == nil || !sc.limiter.Allow() {
		return
	}

	// Offsets address the decompressed stream, so a percentage against the
	// stored size only makes sense for plain files.
	if sc.src.Gzipped() || sc.src.Size() == 0 {
		sc.logger.Info("Indexing library", "path", sc.src.Name(), "spectra", count)

		return
	}

	pct := float64(offset) / float64(sc.src.Size()) * 100
	sc.logger.Info("Indexing library", "path", sc.src.Name(), "spectra", count, "progress", fmt.Sprintf("%.0f%%", pct))
}

// linesFor reads the record starting at offset and returns its lines with
// line endings stripped and blank lines dropped. The record ends at the
// next record or cluster start marker, or at EOF.
func (sc *scanner) linesFor(offset int64) ([]string, error) {
	r, err := sc.src.SectionAt(offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	br := bufio.NewReaderSize(r, scanBufSize)

	var lines []string

	for {
		line, rerr := br.ReadString('\n')
		if line != "" {
			trimmed := strings.TrimRight(line, "\r\n")
			if trimmed != "" {
				if len(lines) > 0 && sc.isStart(trimmed) {
					return lines, nil
				}

				lines = append(lines, trimmed)
			}
		}

		if rerr == io.EOF {
			return lines, nil
		}

		if rerr != nil {
			return nil, fmt.Errorf("backend: read record at offset %d in %s: %w", offset, sc.src.Name(), rerr)
		}
	}
}

func (sc *scanner) isStart(line string) bool {
	if sc.rules.IsRecordStart(line) {
		return true
	}

	return sc.rules.IsClusterStart != nil && sc.rules.IsClusterStart(line)
}

// openScanIndex resolves the index an opened library scans into, honoring
// the sidecar preference. The second return reports whether a prior
// sidecar already holds the index, in which case the scan can be skipped.
func openScanIndex(src *ByteSource, mode IndexMode) (index.Index, bool, error) {
	path, local := src.LocalPath()

	switch mode {
	case IndexMemory:
		return index.NewMemoryIndex(), false, nil

	case IndexSQL:
		if !local {
			return nil, false, fmt.Errorf("backend: sql index requires a local library file, got %s", src.Name())
		}

		idx, existed, err := index.OpenSQL(path)
		if err != nil {
			return nil, false, err
		}

		return idx, existed, nil

	default:
		if local && index.HasSidecar(path) {
			idx, existed, err := index.OpenSQL(path)
			if err != nil {
				return nil, false, err
			}

			return idx, existed, nil
		}

		return index.NewMemoryIndex(), false, nil
	}
}
