package backend

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hupe1980/speclib/attribute"
	"github.com/hupe1980/speclib/model"
)

// FormatEncyclopedia is the registry name of the EncyclopeDIA .dlib reader.
const FormatEncyclopedia = "encyclopedia"

var (
	termDecoySpectrum        = mustTerm("MS:1003192|decoy spectrum")
	termDecoyPeptideSpectrum = mustTerm("MS:1003195|unnatural peptidoform decoy spectrum")
	termProteinAccession     = mustTerm("MS:1000885|protein accession")
	termConstituentFile      = mustTerm("MS:1003203|constituent spectrum file")
)

func init() {
	Register(&Format{
		Name:       FormatEncyclopedia,
		Extensions: []string{".dlib", ".elib"},
		Open:       openDlib,
		Sniff:      sniffDlib,
	})
}

func sniffDlib(_ context.Context, r io.Reader) bool {
	return sniffSQLite(r, "peptidetoprotein")
}

// DlibLibrary reads EncyclopeDIA .dlib SQLite libraries. Entries are keyed
// by their rowid and peak arrays are zlib-compressed big-endian floats.
// The format stores no plain-text spectrum names.
type DlibLibrary struct {
	src    *ByteSource
	db     *sql.DB
	header *Header
	ids    []uint64
	cursor int
}

var _ Library = (*DlibLibrary)(nil)

func openDlib(ctx context.Context, src *ByteSource, _ *OpenOptions) (Library, error) {
	db, err := openSQLiteSource(src)
	if err != nil {
		return nil, err
	}

	lib := &DlibLibrary{src: src, db: db}
	lib.readHeader()

	rows, err := db.QueryContext(ctx, `SELECT rowid FROM entries ORDER BY rowid`)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("backend: list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("backend: scan entries rowid: %w", err)
		}

		lib.ids = append(lib.ids, id)
	}

	if err := rows.Err(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("backend: iterate entries: %w", err)
	}

	return lib, nil
}

func (d *DlibLibrary) readHeader() {
	h := NewHeader()
	h.Attributes.Add(TermFormatVersion, attribute.String(DefaultFormatVersion))
	h.Attributes.Add(termLibrarySoftware, attribute.String("EncyclopeDIA"))
	d.header = h
}

// Format implements Library.
func (d *DlibLibrary) Format() string { return FormatEncyclopedia }

// Header implements Library.
func (d *DlibLibrary) Header() *Header { return d.header }

// Count implements Library.
func (d *DlibLibrary) Count() (int, error) { return len(d.ids), nil }

// SpectrumByName implements Library. EncyclopeDIA stores no plain-text
// spectrum names.
func (d *DlibLibrary) SpectrumByName(_ context.Context, name string) (*model.Spectrum, error) {
	return nil, fmt.Errorf("%w: %s has no names (wanted %q)", ErrNameLookupUnsupported, FormatEncyclopedia, name)
}

// Spectrum implements Library. The number is the entries rowid.
func (d *DlibLibrary) Spectrum(ctx context.Context, number uint64) (*model.Spectrum, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT rowid, PeptideSeq, PeptideModSeq, PrecursorCharge, PrecursorMz, RTInSeconds, SourceFile, MassArray, IntensityArray
		FROM entries WHERE rowid = ?`, number)

	var (
		id            uint64
		peptideSeq    string
		modSeq        string
		charge        int64
		precursorMZ   float64
		rtSeconds     sql.NullFloat64
		sourceFile    sql.NullString
		massBlob      []byte
		intensityBlob []byte
	)

	if err := row.Scan(&id, &peptideSeq, &modSeq, &charge, &precursorMZ, &rtSeconds, &sourceFile, &massBlob, &intensityBlob); err != nil {
		return nil, fmt.Errorf("backend: entries rowid %d: %w", number, err)
	}

	s := model.NewSpectrum()
	s.Key = id
	s.SetIndex(int64(id) - 1) //nolint:gosec // rowids stay far below 2^63
	s.Attributes.Add(model.TermSelectedIonMZ, attribute.Float(precursorMZ))

	if rtSeconds.Valid {
		s.Attributes.Add(termRetentionTime, attribute.Float(rtSeconds.Float64/60.0))
	}

	if sourceFile.Valid {
		s.Attributes.Add(termConstituentFile, attribute.String("file://"+sourceFile.String))
	}

	analyte := model.NewAnalyte("1")
	analyte.Attributes.Add(model.TermProForma, attribute.String(modSeq))
	analyte.Attributes.Add(model.TermStrippedPeptide, attribute.String(peptideSeq))
	analyte.Attributes.Add(model.TermChargeState, attribute.Int(charge))

	hadDecoy, err := d.fillProteins(ctx, analyte, peptideSeq)
	if err != nil {
		return nil, err
	}

	if hadDecoy {
		s.Attributes.Add(termDecoySpectrum, attribute.TermValue(termDecoyPeptideSpectrum))
	}

	s.AddAnalyte(analyte)
	s.AddInterpretation(model.NewInterpretation("1"))

	mzs, err := decodeCompressedFloat64Array(massBlob)
	if err != nil {
		return nil, fmt.Errorf("backend: spectrum %d mass array: %w", number, err)
	}

	intensities, err := decodeCompressedFloat32Array(intensityBlob)
	if err != nil {
		return nil, fmt.Errorf("backend: spectrum %d intensity array: %w", number, err)
	}

	if len(mzs) != len(intensities) {
		return nil, fmt.Errorf("backend: spectrum %d: %d m/z values but %d intensities", number, len(mzs), len(intensities))
	}

	s.Attributes.Add(model.TermNumberOfPeaks, attribute.Int(int64(len(mzs))))

	// EncyclopeDIA does not record product ion identities.
	for i, mz := range mzs {
		s.Peaks = append(s.Peaks, model.Peak{Mz: mz, Intensity: intensities[i]})
	}

	s.BackfillInterpretations()

	return s, nil
}

// fillProteins adds one protein accession group per mapped protein and
// reports whether any mapping was flagged as a decoy.
func (d *DlibLibrary) fillProteins(ctx context.Context, analyte *model.Analyte, peptideSeq string) (bool, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT ProteinAccession, isDecoy FROM peptidetoprotein WHERE PeptideSeq = ?`, peptideSeq)
	if err != nil {
		return false, fmt.Errorf("backend: peptidetoprotein for %q: %w", peptideSeq, err)
	}
	defer func() { _ = rows.Close() }()

	hadDecoy := false

	for rows.Next() {
		var (
			accession string
			isDecoy   bool
		)

		if err := rows.Scan(&accession, &isDecoy); err != nil {
			return false, fmt.Errorf("backend: scan peptidetoprotein: %w", err)
		}

		hadDecoy = hadDecoy || isDecoy

		group := analyte.Attributes.NextGroup()
		analyte.Attributes.AddGrouped(termProteinAccession, attribute.String(accession), group)
	}

	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("backend: iterate peptidetoprotein: %w", err)
	}

	return hadDecoy, nil
}

// Read implements Library, yielding spectra in rowid order.
func (d *DlibLibrary) Read(ctx context.Context) (*model.Spectrum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if d.cursor >= len(d.ids) {
		return nil, io.EOF
	}

	s, err := d.Spectrum(ctx, d.ids[d.cursor])
	if err != nil {
		return nil, err
	}

	d.cursor++

	return s, nil
}

// Close implements Library.
func (d *DlibLibrary) Close() error {
	err := d.db.Close()

	if cerr := d.src.Close(); err == nil {
		err = cerr
	}

	return err
}

func decodeCompressedFloat64Array(data []byte) ([]float64, error) {
	raw := inflate(data)
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("array length %d is not a multiple of 8", len(raw))
	}

	return decodeFloat64Array(data, len(raw)/8, binary.BigEndian)
}

func decodeCompressedFloat32Array(data []byte) ([]float32, error) {
	raw := inflate(data)
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("array length %d is not a multiple of 4", len(raw))
	}

	return decodeFloat32Array(data, len(raw)/4, binary.BigEndian)
}
