package backend

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"

	"github.com/hupe1980/speclib/attribute"
	"github.com/hupe1980/speclib/model"
)

// FormatBibliospec is the registry name of the BiblioSpec .blib reader.
const FormatBibliospec = "bibliospec"

var termLibrarySoftware = mustTerm("MS:1003207|library creation software")

func init() {
	Register(&Format{
		Name:       FormatBibliospec,
		Extensions: []string{".blib"},
		Open:       openBlib,
		Sniff:      sniffBlib,
	})
}

var sqliteMagic = []byte("SQLite format 3\x00")

// sniffSQLite reports whether the head bytes are a SQLite database whose
// schema mentions the given table. The schema text lives in the first pages
// of the file, so a plain substring check is enough to tell the SQLite
// library flavors apart.
func sniffSQLite(r io.Reader, table string) bool {
	head, err := io.ReadAll(r)
	if err != nil {
		return false
	}

	return bytes.HasPrefix(head, sqliteMagic) && bytes.Contains(head, []byte(table))
}

func sniffBlib(_ context.Context, r io.Reader) bool {
	return sniffSQLite(r, "RefSpectra")
}

// BlibLibrary reads BiblioSpec .blib SQLite libraries. The RefSpectra id
// is used as the spectrum key directly, so numbers need not be contiguous.
// The format stores no plain-text spectrum names, so name lookup is
// unsupported.
type BlibLibrary struct {
	src    *ByteSource
	db     *sql.DB
	header *Header
	ids    []uint64
	cursor int
}

var _ Library = (*BlibLibrary)(nil)

func openSQLiteSource(src *ByteSource) (*sql.DB, error) {
	path, local := src.LocalPath()
	if !local {
		return nil, fmt.Errorf("backend: %s: SQLite libraries require a local file", src.Name())
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("backend: open %s: %w", src.Name(), err)
	}

	return db, nil
}

func openBlib(ctx context.Context, src *ByteSource, _ *OpenOptions) (Library, error) {
	db, err := openSQLiteSource(src)
	if err != nil {
		return nil, err
	}

	lib := &BlibLibrary{src: src, db: db}
	lib.readHeader()

	rows, err := db.QueryContext(ctx, `SELECT id FROM RefSpectra ORDER BY id`)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("backend: list RefSpectra ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("backend: scan RefSpectra id: %w", err)
		}

		lib.ids = append(lib.ids, id)
	}

	if err := rows.Err(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("backend: iterate RefSpectra ids: %w", err)
	}

	return lib, nil
}

func (b *BlibLibrary) readHeader() {
	h := NewHeader()
	h.Attributes.Add(TermFormatVersion, attribute.String(DefaultFormatVersion))
	h.Attributes.Add(termLibrarySoftware, attribute.String("BiblioSpec"))
	b.header = h
}

// Format implements Library.
func (b *BlibLibrary) Format() string { return FormatBibliospec }

// Header implements Library.
func (b *BlibLibrary) Header() *Header { return b.header }

// Count implements Library.
func (b *BlibLibrary) Count() (int, error) { return len(b.ids), nil }

// SpectrumByName implements Library. BiblioSpec stores no plain-text
// spectrum names.
func (b *BlibLibrary) SpectrumByName(_ context.Context, name string) (*model.Spectrum, error) {
	return nil, fmt.Errorf("%w: %s has no names (wanted %q)", ErrNameLookupUnsupported, FormatBibliospec, name)
}

// Spectrum implements Library. The number is the RefSpectra id.
func (b *BlibLibrary) Spectrum(ctx context.Context, number uint64) (*model.Spectrum, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, peptideSeq, peptideModSeq, precursorCharge, precursorMZ, numPeaks, fileID, SpecIDinFile
		FROM RefSpectra WHERE id = ?`, number)

	var (
		id           uint64
		peptideSeq   string
		modSeq       string
		charge       int64
		precursorMZ  float64
		numPeaks     int
		fileID       sql.NullInt64
		specIDInFile sql.NullString
	)

	if err := row.Scan(&id, &peptideSeq, &modSeq, &charge, &precursorMZ, &numPeaks, &fileID, &specIDInFile); err != nil {
		return nil, fmt.Errorf("backend: RefSpectra id %d: %w", number, err)
	}

	s := model.NewSpectrum()
	s.Key = id
	s.SetIndex(int64(id) - 1) //nolint:gosec // RefSpectra ids stay far below 2^63
	s.Attributes.Add(model.TermSelectedIonMZ, attribute.Float(precursorMZ))
	s.Attributes.Add(model.TermChargeState, attribute.Int(charge))
	s.Attributes.Add(model.TermNumberOfPeaks, attribute.Int(int64(numPeaks)))

	if fileID.Valid {
		var fileName string
		if err := b.db.QueryRowContext(ctx,
			`SELECT fileName FROM SpectrumSourceFiles WHERE id = ?`, fileID.Int64).Scan(&fileName); err == nil {
			s.Attributes.Add(mustTerm("MS:1009008|source file"), attribute.String(fileName))
		}
	}

	if specIDInFile.Valid {
		s.Attributes.Add(mustTerm("MS:1003057|scan number"), attribute.ParseValue(specIDInFile.String))
	}

	analyte := model.NewAnalyte("1")
	analyte.Attributes.Add(model.TermStrippedPeptide, attribute.String(peptideSeq))
	analyte.Attributes.Add(model.TermProForma, attribute.String(modSeq))
	s.AddAnalyte(analyte)
	s.AddInterpretation(model.NewInterpretation("1"))

	var mzBlob, intensityBlob []byte
	if err := b.db.QueryRowContext(ctx,
		`SELECT peakMZ, peakIntensity FROM RefSpectraPeaks WHERE RefSpectraID = ?`, number).
		Scan(&mzBlob, &intensityBlob); err != nil {
		return nil, fmt.Errorf("backend: RefSpectraPeaks for id %d: %w", number, err)
	}

	mzs, err := decodeFloat64Array(mzBlob, numPeaks, binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("backend: spectrum %d m/z array: %w", number, err)
	}

	intensities, err := decodeFloat32Array(intensityBlob, numPeaks, binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("backend: spectrum %d intensity array: %w", number, err)
	}

	for i, mz := range mzs {
		s.Peaks = append(s.Peaks, model.Peak{Mz: mz, Intensity: intensities[i]})
	}

	s.BackfillInterpretations()

	return s, nil
}

// Read implements Library, yielding spectra in id order.
func (b *BlibLibrary) Read(ctx context.Context) (*model.Spectrum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if b.cursor >= len(b.ids) {
		return nil, io.EOF
	}

	s, err := b.Spectrum(ctx, b.ids[b.cursor])
	if err != nil {
		return nil, err
	}

	b.cursor++

	return s, nil
}

// Close implements Library.
func (b *BlibLibrary) Close() error {
	err := b.db.Close()

	if cerr := b.src.Close(); err == nil {
		err = cerr
	}

	return err
}

// inflate decompresses a zlib stream, or passes raw data through when the
// blob was stored uncompressed. BiblioSpec writes either form.
func inflate(data []byte) []byte {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return data
	}
	defer func() { _ = zr.Close() }()

	out, err := io.ReadAll(zr)
	if err != nil {
		return data
	}

	return out
}

func decodeFloat64Array(data []byte, n int, order binary.ByteOrder) ([]float64, error) {
	raw := inflate(data)
	if len(raw) != n*8 {
		return nil, fmt.Errorf("array holds %d values, expected %d", len(raw)/8, n)
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
	}

	return out, nil
}

func decodeFloat32Array(data []byte, n int, order binary.ByteOrder) ([]float32, error) {
	raw := inflate(data)
	if len(raw) != n*4 {
		return nil, fmt.Errorf("array holds %d values, expected %d", len(raw)/4, n)
	}

	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(order.Uint32(raw[i*4:]))
	}

	return out, nil
}
