package speclib

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/speclib/backend"
	"github.com/hupe1980/speclib/blobstore"
)

const textFixture = "backend/testdata/chinese_hamster_hcd_selected_head.mzlb.txt"

func TestOpen(t *testing.T) {
	ctx := context.Background()

	lib, err := Open(ctx, textFixture)
	require.NoError(t, err)

	defer lib.Close()

	require.Equal(t, backend.FormatText, lib.Format())
	require.Equal(t, textFixture, lib.Path())

	count, err := lib.Count()
	require.NoError(t, err)
	require.Equal(t, 7, count)

	_, ok := lib.Index()
	require.True(t, ok)
}

func TestOpenUnknownFormat(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, textFixture, WithFormat("nope"))
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSpectrumLookup(t *testing.T) {
	ctx := context.Background()

	metrics := &BasicMetricsCollector{}

	lib, err := Open(ctx, textFixture, WithMetricsCollector(metrics))
	require.NoError(t, err)

	defer lib.Close()

	s, err := lib.Spectrum(ctx, 3)
	require.NoError(t, err)

	name := s.Name()
	require.Equal(t, "AAAAGSTSVKPIFSR/2_0_44eV", name)

	byName, err := lib.SpectrumByName(ctx, name)
	require.NoError(t, err)
	require.Equal(t, s.Key, byName.Key)

	_, err = lib.SpectrumByName(ctx, "no such spectrum")
	require.ErrorIs(t, err, ErrNotFound)

	stats := metrics.GetStats()
	require.Equal(t, int64(1), stats.OpenCount)
	require.Equal(t, int64(3), stats.LookupCount)
	require.Equal(t, int64(1), stats.LookupErrors)
}

func TestRead(t *testing.T) {
	ctx := context.Background()

	lib, err := Open(ctx, textFixture)
	require.NoError(t, err)

	defer lib.Close()

	var n int

	for {
		_, err := lib.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}

		require.NoError(t, err)

		n++
	}

	require.Equal(t, 7, n)
}

func TestClosed(t *testing.T) {
	ctx := context.Background()

	lib, err := Open(ctx, textFixture)
	require.NoError(t, err)
	require.NoError(t, lib.Close())
	require.NoError(t, lib.Close())

	_, err = lib.Spectrum(ctx, 0)
	require.ErrorIs(t, err, ErrClosed)

	_, err = lib.Read(ctx)
	require.ErrorIs(t, err, ErrClosed)
}

func TestOpenBlobStore(t *testing.T) {
	ctx := context.Background()

	data, err := os.ReadFile(textFixture)
	require.NoError(t, err)

	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "remote.mzlb.txt", data))

	lib, err := Open(ctx, "remote.mzlb.txt", WithBlobStore(store))
	require.NoError(t, err)

	defer lib.Close()

	count, err := lib.Count()
	require.NoError(t, err)
	require.Equal(t, 7, count)
}

func TestFormats(t *testing.T) {
	names := Formats()
	require.Contains(t, names, backend.FormatText)
	require.Contains(t, names, backend.FormatJSON)
	require.Contains(t, names, backend.FormatMSP)

	name, ok := GuessFormat("library.mzlb.json")
	require.True(t, ok)
	require.Equal(t, backend.FormatJSON, name)

	_, ok = GuessFormat("library.bin")
	require.False(t, ok)
}

func TestNewWriterReadOnlyFormat(t *testing.T) {
	_, err := NewWriter(backend.FormatMSP, io.Discard)
	require.ErrorIs(t, err, ErrReadOnlyFormat)
}

func TestConvert(t *testing.T) {
	ctx := context.Background()

	dst := filepath.Join(t.TempDir(), "converted.mzlb.json")

	written, err := Convert(ctx, textFixture, dst)
	require.NoError(t, err)
	require.Equal(t, uint64(7), written)

	lib, err := Open(ctx, dst)
	require.NoError(t, err)

	defer lib.Close()

	require.Equal(t, backend.FormatJSON, lib.Format())

	count, err := lib.Count()
	require.NoError(t, err)
	require.Equal(t, 7, count)
}

func TestConvertGzip(t *testing.T) {
	ctx := context.Background()

	dst := filepath.Join(t.TempDir(), "converted.mzlb.txt.gz")

	written, err := Convert(ctx, textFixture, dst, func(o *ConvertOptions) {
		o.TargetFormat = backend.FormatText
	})
	require.NoError(t, err)
	require.Equal(t, uint64(7), written)

	lib, err := Open(ctx, dst)
	require.NoError(t, err)

	defer lib.Close()

	s, err := lib.Spectrum(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, "AAAAGSTSVKPIFSR/2_0_44eV", s.Name())
}
