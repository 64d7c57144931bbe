package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/speclib/annotation"
	"github.com/hupe1980/speclib/index"
	"github.com/hupe1980/speclib/model"
)

const textFixture = "testdata/chinese_hamster_hcd_selected_head.mzlb.txt"

func TestTextLibraryOpen(t *testing.T) {
	ctx := context.Background()

	lib, err := Open(ctx, textFixture, "", nil)
	require.NoError(t, err)
	defer lib.Close()

	require.Equal(t, FormatText, lib.Format())

	n, err := lib.Count()
	require.NoError(t, err)
	require.Equal(t, 7, n)

	h := lib.Header()
	v, ok := h.Attributes.First(TermFormatVersion)
	require.True(t, ok)
	require.Equal(t, "1.0", v.String())

	name, ok := h.Attributes.First(TermLibraryName)
	require.True(t, ok)
	require.Equal(t, "chinese_hamster_hcd_selected_head", name.String())

	require.Len(t, h.SpectrumSets, 1)
	require.Equal(t, "all", h.SpectrumSets[0].Name)
}

func TestTextLibrarySpectrum(t *testing.T) {
	ctx := context.Background()

	lib, err := Open(ctx, textFixture, FormatText, nil)
	require.NoError(t, err)
	defer lib.Close()

	s, err := lib.Spectrum(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, "AAAAGSTSVKPIFSR/2_0_44eV", s.Name())
	require.Equal(t, uint64(4), s.Key)
	require.Equal(t, int64(3), s.Index())
	require.Len(t, s.Peaks, 5)

	charge, ok := s.Attributes.First(model.TermChargeState)
	require.True(t, ok)
	i, ok := charge.AsInt64()
	require.True(t, ok)
	require.Equal(t, int64(2), i)

	analytes := s.Analytes()
	require.Len(t, analytes, 1)

	seq, ok := analytes[0].StrippedPeptide()
	require.True(t, ok)
	require.Equal(t, "AAAAGSTSVKPIFSR", seq)

	// y3/0.2ppm
	p := s.Peaks[2]
	require.InDelta(t, 419.2401, p.Mz, 1e-6)
	require.Len(t, p.Annotations, 1)
	require.Equal(t, annotation.PeptideFragment{Series: "y", Position: 3}, p.Annotations[0].Ion)

	// The single interpretation is backfilled with the lone analyte.
	interps := s.Interpretations()
	require.Len(t, interps, 1)
	require.Equal(t, 1, interps[0].AnalyteCount())
}

func TestTextLibrarySpectrumByName(t *testing.T) {
	ctx := context.Background()

	lib, err := Open(ctx, textFixture, "", nil)
	require.NoError(t, err)
	defer lib.Close()

	s, err := lib.SpectrumByName(ctx, "AAADALSDLEIKDSK/2_0_33eV")
	require.NoError(t, err)
	require.Equal(t, int64(6), s.Index())

	_, err = lib.SpectrumByName(ctx, "no such spectrum")
	require.ErrorIs(t, err, index.ErrNotFound)
}

func TestTextLibraryRead(t *testing.T) {
	ctx := context.Background()

	lib, err := Open(ctx, textFixture, "", nil)
	require.NoError(t, err)
	defer lib.Close()

	var names []string

	for {
		s, err := lib.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}

		require.NoError(t, err)

		names = append(names, s.Name())
	}

	require.Len(t, names, 7)
	require.Equal(t, "AAAACALTPGPLADLAAR/2_0_44eV", names[0])
	require.Equal(t, "AAAAGSTSVKPIFSR/2_0_44eV", names[3])
}

func TestTextLibrarySidecarIndex(t *testing.T) {
	ctx := context.Background()

	data, err := os.ReadFile(textFixture)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "library.mzlb.txt")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	lib, err := Open(ctx, path, "", &OpenOptions{IndexMode: IndexSQL})
	require.NoError(t, err)
	require.NoError(t, lib.Close())

	require.True(t, index.HasSidecar(path))

	// The second open reuses the sidecar instead of rescanning.
	lib, err = Open(ctx, path, "", nil)
	require.NoError(t, err)
	defer lib.Close()

	n, err := lib.Count()
	require.NoError(t, err)
	require.Equal(t, 7, n)

	s, err := lib.Spectrum(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, "AAAAGSTSVKPIFSR/2_0_44eV", s.Name())
}

func TestTextLibraryMalformedPeakLine(t *testing.T) {
	ctx := context.Background()

	const bad = `<mzSpecLib>
MS:1003186|library format version=1.0
<Spectrum=1>
MS:1003061|spectrum name=broken/2
<Peaks>
not-a-number	1.0	y1
`

	path := filepath.Join(t.TempDir(), "bad.mzlb.txt")
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o600))

	lib, err := Open(ctx, path, "", nil)
	require.NoError(t, err)
	defer lib.Close()

	_, err = lib.Spectrum(ctx, 0)

	var peakErr *ErrMalformedPeakLine
	require.ErrorAs(t, err, &peakErr)
	require.Contains(t, peakErr.Line, "not-a-number")
}

func TestTextWriterRoundTrip(t *testing.T) {
	ctx := context.Background()

	lib, err := Open(ctx, textFixture, "", nil)
	require.NoError(t, err)
	defer lib.Close()

	var buf bytes.Buffer

	w := NewTextWriter(&buf)
	require.NoError(t, WriteLibrary(ctx, w, lib))
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "round.mzlb.txt")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	lib2, err := Open(ctx, path, "", nil)
	require.NoError(t, err)
	defer lib2.Close()

	n, err := lib2.Count()
	require.NoError(t, err)
	require.Equal(t, 7, n)

	want, err := lib.Spectrum(ctx, 3)
	require.NoError(t, err)

	got, err := lib2.Spectrum(ctx, 3)
	require.NoError(t, err)

	require.Equal(t, want.Name(), got.Name())
	require.Equal(t, want.Key, got.Key)
	require.True(t, got.Peaks.Equal(want.Peaks))
	require.True(t, got.Attributes.Equal(want.Attributes))
}
