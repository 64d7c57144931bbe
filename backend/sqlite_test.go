package backend

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/speclib/model"
)

func encodeFloat64s(t *testing.T, vals []float64, order binary.ByteOrder, compress bool) []byte {
	t.Helper()

	raw := make([]byte, 8*len(vals))
	for i, v := range vals {
		order.PutUint64(raw[i*8:], math.Float64bits(v))
	}

	if !compress {
		return raw
	}

	return deflate(t, raw)
}

func encodeFloat32s(t *testing.T, vals []float32, order binary.ByteOrder, compress bool) []byte {
	t.Helper()

	raw := make([]byte, 4*len(vals))
	for i, v := range vals {
		order.PutUint32(raw[i*4:], math.Float32bits(v))
	}

	if !compress {
		return raw
	}

	return deflate(t, raw)
}

func deflate(t *testing.T, raw []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

func buildBlibFixture(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "library.blib")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE RefSpectra (
			id INTEGER PRIMARY KEY,
			peptideSeq TEXT, peptideModSeq TEXT,
			precursorCharge INTEGER, precursorMZ REAL,
			numPeaks INTEGER, fileID INTEGER, SpecIDinFile TEXT
		);
		CREATE TABLE RefSpectraPeaks (RefSpectraID INTEGER, peakMZ BLOB, peakIntensity BLOB);
		CREATE TABLE SpectrumSourceFiles (id INTEGER PRIMARY KEY, fileName TEXT);
	`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO SpectrumSourceFiles (id, fileName) VALUES (1, 'run01.mzML')`)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO RefSpectra (id, peptideSeq, peptideModSeq, precursorCharge, precursorMZ, numPeaks, fileID, SpecIDinFile)
		VALUES (1, 'PEPTIDEK', 'PEPTIDEK', 2, 478.7384, 3, 1, '1042')`)
	require.NoError(t, err)

	// m/z compressed, intensities raw: BiblioSpec writes either form.
	_, err = db.Exec(`INSERT INTO RefSpectraPeaks (RefSpectraID, peakMZ, peakIntensity) VALUES (1, ?, ?)`,
		encodeFloat64s(t, []float64{147.1128, 263.0874, 376.1715}, binary.LittleEndian, true),
		encodeFloat32s(t, []float32{100, 42.5, 17.3}, binary.LittleEndian, false))
	require.NoError(t, err)

	return path
}

func TestBlibLibrary(t *testing.T) {
	ctx := context.Background()

	lib, err := Open(ctx, buildBlibFixture(t), FormatBibliospec, nil)
	require.NoError(t, err)
	defer lib.Close()

	require.Equal(t, FormatBibliospec, lib.Format())

	n, err := lib.Count()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	software, ok := lib.Header().Attributes.First(termLibrarySoftware)
	require.True(t, ok)
	require.Equal(t, "BiblioSpec", software.String())

	s, err := lib.Spectrum(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), s.Key)
	require.Len(t, s.Peaks, 3)
	require.InDelta(t, 263.0874, s.Peaks[1].Mz, 1e-6)
	require.InDelta(t, 42.5, float64(s.Peaks[1].Intensity), 1e-4)

	seq, ok := s.Analytes()[0].StrippedPeptide()
	require.True(t, ok)
	require.Equal(t, "PEPTIDEK", seq)

	source, ok := s.Attributes.First(mustTerm("MS:1009008|source file"))
	require.True(t, ok)
	require.Equal(t, "run01.mzML", source.String())

	_, err = lib.SpectrumByName(ctx, "PEPTIDEK/2")
	require.ErrorIs(t, err, ErrNameLookupUnsupported)

	s, err = lib.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), s.Key)

	_, err = lib.Read(ctx)
	require.True(t, errors.Is(err, io.EOF))
}

func buildDlibFixture(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "library.dlib")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE entries (
			PeptideSeq TEXT, PeptideModSeq TEXT,
			PrecursorCharge INTEGER, PrecursorMz REAL,
			RTInSeconds REAL, SourceFile TEXT,
			MassArray BLOB, IntensityArray BLOB
		);
		CREATE TABLE peptidetoprotein (PeptideSeq TEXT, ProteinAccession TEXT, isDecoy INTEGER);
	`)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO entries (PeptideSeq, PeptideModSeq, PrecursorCharge, PrecursorMz, RTInSeconds, SourceFile, MassArray, IntensityArray)
		VALUES ('ELVISLK', 'ELVISLK', 2, 394.2478, 1380.0, 'run02.mzML', ?, ?)`,
		encodeFloat64s(t, []float64{147.1128, 260.1969}, binary.BigEndian, true),
		encodeFloat32s(t, []float32{88.0, 12.5}, binary.BigEndian, true))
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO peptidetoprotein VALUES ('ELVISLK', 'sp|P12345|TEST', 0), ('ELVISLK', 'DECOY_sp|P12345|TEST', 1)`)
	require.NoError(t, err)

	return path
}

func TestDlibLibrary(t *testing.T) {
	ctx := context.Background()

	lib, err := Open(ctx, buildDlibFixture(t), FormatEncyclopedia, nil)
	require.NoError(t, err)
	defer lib.Close()

	n, err := lib.Count()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	s, err := lib.Spectrum(ctx, 1)
	require.NoError(t, err)
	require.Len(t, s.Peaks, 2)
	require.InDelta(t, 260.1969, s.Peaks[1].Mz, 1e-6)

	// RTInSeconds surfaces in minutes.
	rt, ok := s.Attributes.First(termRetentionTime)
	require.True(t, ok)
	f, _ := rt.AsFloat64()
	require.InDelta(t, 23.0, f, 1e-9)

	analyte := s.Analytes()[0]
	accessions := analyte.Attributes.GetAll(termProteinAccession)
	require.Len(t, accessions, 2)

	// One decoy mapping flags the whole spectrum.
	decoy, ok := s.Attributes.First(termDecoySpectrum)
	require.True(t, ok)
	term, _ := decoy.AsTerm()
	require.Equal(t, termDecoyPeptideSpectrum, term)

	npeaks, ok := s.Attributes.First(model.TermNumberOfPeaks)
	require.True(t, ok)
	np, _ := npeaks.AsInt64()
	require.Equal(t, int64(2), np)
}
