package backend

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/hupe1980/speclib/annotation"
	"github.com/hupe1980/speclib/attribute"
	"github.com/hupe1980/speclib/index"
	"github.com/hupe1980/speclib/model"
)

// FormatDIANN is the registry name of the DIA-NN transition list reader.
const FormatDIANN = "dia-nn.tsv"

var (
	termPrecursorMonoMZ    = mustTerm("MS:1003208|experimental precursor monoisotopic m/z")
	termSpectrumOriginType = mustTerm("MS:1003072|spectrum origin type")
	termPredictedSpectrum  = mustTerm("MS:1003074|predicted spectrum")
)

func init() {
	Register(&Format{
		Name:       FormatDIANN,
		Extensions: []string{".tsv"},
		Open:       openDIANN,
		Sniff:      sniffDIANN,
	})
}

func sniffDIANN(_ context.Context, r io.Reader) bool {
	head, err := io.ReadAll(r)
	if err != nil {
		return false
	}

	first, _, _ := bytes.Cut(head, []byte("\n"))

	return bytes.Contains(first, []byte("\t")) && bytes.Contains(first, []byte("transition_group_id"))
}

// diannColumns resolves the header columns the reader consumes. FileName
// and UniprotID are optional; the rest are required.
type diannColumns struct {
	groupID    int
	precMZ     int
	precCharge int
	fileName   int
	uniModSeq  int
	peptideSeq int
	uniprotID  int
	productMZ  int
	intensity  int
	fragType   int
	fragNumber int
	fragCharge int
}

func resolveDIANNColumns(header []string) (diannColumns, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[name] = i
	}

	required := func(name string) (int, error) {
		i, ok := pos[name]
		if !ok {
			return 0, fmt.Errorf("%w: missing column %q", ErrUnknownFormat, name)
		}

		return i, nil
	}

	optional := func(name string) int {
		if i, ok := pos[name]; ok {
			return i
		}

		return -1
	}

	var (
		cols diannColumns
		err  error
	)

	if cols.groupID, err = required("transition_group_id"); err != nil {
		return cols, err
	}

	if cols.precMZ, err = required("PrecursorMz"); err != nil {
		return cols, err
	}

	if cols.precCharge, err = required("PrecursorCharge"); err != nil {
		return cols, err
	}

	if cols.uniModSeq, err = required("FullUniModPeptideName"); err != nil {
		return cols, err
	}

	if cols.peptideSeq, err = required("PeptideSequence"); err != nil {
		return cols, err
	}

	if cols.productMZ, err = required("ProductMz"); err != nil {
		return cols, err
	}

	if cols.intensity, err = required("LibraryIntensity"); err != nil {
		return cols, err
	}

	if cols.fragType, err = required("FragmentType"); err != nil {
		return cols, err
	}

	if cols.fragNumber, err = required("FragmentSeriesNumber"); err != nil {
		return cols, err
	}

	if cols.fragCharge, err = required("FragmentCharge"); err != nil {
		return cols, err
	}

	cols.fileName = optional("FileName")
	cols.uniprotID = optional("UniprotID")

	return cols, nil
}

// DIANNLibrary reads DIA-NN TSV transition lists. Consecutive rows sharing
// a transition_group_id form one spectrum; the group id doubles as the
// spectrum name.
type DIANNLibrary struct {
	src    *ByteSource
	logger *slog.Logger
	idx    index.Index
	header *Header
	cols   diannColumns
	count  int
	cursor uint64
}

var (
	_ Library = (*DIANNLibrary)(nil)
	_ Indexed = (*DIANNLibrary)(nil)
)

func openDIANN(ctx context.Context, src *ByteSource, opts *OpenOptions) (Library, error) {
	lib := &DIANNLibrary{src: src, logger: opts.Logger}

	if err := lib.readHeader(); err != nil {
		return nil, err
	}

	idx, existed, err := openScanIndex(src, opts.IndexMode)
	if err != nil {
		return nil, err
	}

	lib.idx = idx

	if existed {
		lib.count, err = idx.Count()
	} else {
		lib.count, err = lib.buildIndex(ctx, idx)
	}

	if err != nil {
		_ = idx.Close()

		return nil, err
	}

	return lib, nil
}

// readHeader resolves the column layout from the first line. The format
// itself carries no library-level metadata.
func (d *DIANNLibrary) readHeader() error {
	r, err := d.src.SectionAt(0)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	br := bufio.NewReaderSize(r, scanBufSize)

	line, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("backend: read header of %s: %w", d.src.Name(), err)
	}

	d.cols, err = resolveDIANNColumns(strings.Split(strings.TrimRight(line, "\r\n"), "\t"))
	if err != nil {
		return fmt.Errorf("backend: %s: %w", d.src.Name(), err)
	}

	h := NewHeader()
	h.Attributes.Add(TermFormatVersion, attribute.String(DefaultFormatVersion))
	d.header = h

	return nil
}

// buildIndex walks the file once and records the offset of the first row of
// every transition group.
func (d *DIANNLibrary) buildIndex(ctx context.Context, idx index.Index) (int, error) {
	r, err := d.src.SectionAt(0)
	if err != nil {
		return 0, err
	}
	defer func() { _ = r.Close() }()

	br := bufio.NewReaderSize(r, scanBufSize)
	limiter := rate.NewLimiter(rate.Every(progressInterval), 1)

	var (
		offset     int64
		headerSeen bool
		groupKey   string
		groupStart int64
		inGroup    bool
		count      int
	)

	flush := func() error {
		if !inGroup {
			return nil
		}

		if err := idx.Add(index.Record{
			Number: uint64(count), //nolint:gosec // record counter, never negative
			Offset: groupStart,
			Name:   groupKey,
		}); err != nil {
			return err
		}

		count++
		inGroup = false

		if count%commitInterval == 0 {
			if err := idx.Commit(); err != nil {
				return err
			}

			if d.logger != nil && limiter.Allow() {
				d.logger.Info("Indexing library", "path", d.src.Name(), "spectra", count)
			}
		}

		return nil
	}

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

			case !headerSeen:
				headerSeen = true

			default:
				key, _, _ := strings.Cut(trimmed, "\t")
				if !inGroup || key != groupKey {
					if err := flush(); err != nil {
						return count, err
					}

					inGroup = true
					groupKey = key
					groupStart = lineStart
				}
			}
		}

		if rerr == io.EOF {
			break
		}

		if rerr != nil {
			return count, fmt.Errorf("backend: scan %s: %w", d.src.Name(), rerr)
		}
	}

	if err := flush(); err != nil {
		return count, err
	}

	if err := idx.Commit(); err != nil {
		return count, err
	}

	if d.logger != nil {
		d.logger.Info("Library indexed", "path", d.src.Name(), "spectra", count)
	}

	return count, nil
}

// rowsFor reads the rows of one transition group starting at offset.
func (d *DIANNLibrary) rowsFor(offset int64) ([][]string, error) {
	r, err := d.src.SectionAt(offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	br := bufio.NewReaderSize(r, scanBufSize)

	var (
		rows     [][]string
		groupKey string
	)

	for {
		line, rerr := br.ReadString('\n')
		if line != "" {
			trimmed := strings.TrimRight(line, "\r\n")
			if trimmed != "" {
				fields := strings.Split(trimmed, "\t")

				if len(rows) == 0 {
					groupKey = fields[d.cols.groupID]
				} else if fields[d.cols.groupID] != groupKey {
					return rows, nil
				}

				rows = append(rows, fields)
			}
		}

		if rerr == io.EOF {
			return rows, nil
		}

		if rerr != nil {
			return nil, fmt.Errorf("backend: read record at offset %d in %s: %w", offset, d.src.Name(), rerr)
		}
	}
}

// rewriteUniModProForma converts DIA-NN's UniMod notation into a ProForma
// peptidoform string: PEPT(UniMod:4)IDE becomes PEPT[UNIMOD:4]IDE.
func rewriteUniModProForma(sequence string) string {
	r := strings.NewReplacer("(", "[", ")", "]", "UniMod", "UNIMOD")

	return r.Replace(sequence)
}

func (d *DIANNLibrary) parseGroup(rows [][]string, number uint64) (*model.Spectrum, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("backend: empty transition group in %s", d.src.Name())
	}

	head := rows[0]
	if len(head) <= d.cols.fragCharge {
		return nil, &ErrMalformedAttributeLine{Line: strings.Join(head, "\t"), Record: number}
	}

	s := model.NewSpectrum()
	s.Key = number + 1
	s.SetName(head[d.cols.groupID])

	precMZ, err := strconv.ParseFloat(head[d.cols.precMZ], 64)
	if err != nil {
		return nil, &ErrMalformedAttributeLine{Line: strings.Join(head, "\t"), Record: number}
	}

	charge, err := strconv.ParseInt(head[d.cols.precCharge], 10, 64)
	if err != nil {
		return nil, &ErrMalformedAttributeLine{Line: strings.Join(head, "\t"), Record: number}
	}

	s.Attributes.Add(termPrecursorMonoMZ, attribute.Float(precMZ))
	s.Attributes.Add(model.TermChargeState, attribute.Int(charge))

	if d.cols.fileName >= 0 {
		s.Attributes.Add(termConstituentFile, attribute.String(head[d.cols.fileName]))
	}

	s.Attributes.Add(termSpectrumOriginType, attribute.TermValue(termPredictedSpectrum))

	analyte := model.NewAnalyte("1")
	analyte.Attributes.Add(model.TermStrippedPeptide, attribute.String(head[d.cols.peptideSeq]))
	analyte.Attributes.Add(model.TermProForma, attribute.String(rewriteUniModProForma(head[d.cols.uniModSeq])))

	if d.cols.uniprotID >= 0 {
		analyte.Attributes.Add(termProteinAccession, attribute.String(head[d.cols.uniprotID]))
	}

	s.AddAnalyte(analyte)

	for _, row := range rows {
		peak, err := d.parseTransition(row)
		if err != nil {
			return nil, err
		}

		s.Peaks = append(s.Peaks, peak)
	}

	s.Attributes.Add(model.TermNumberOfPeaks, attribute.Int(int64(len(s.Peaks))))
	s.SetIndex(int64(number)) //nolint:gosec // ordinals stay far below 2^63
	s.BackfillInterpretations()

	return s, nil
}

// parseTransition converts one row into a peak carrying a synthetic
// backbone fragment annotation.
func (d *DIANNLibrary) parseTransition(row []string) (model.Peak, error) {
	if len(row) <= d.cols.fragCharge {
		return model.Peak{}, &ErrMalformedPeakLine{Line: strings.Join(row, "\t")}
	}

	mz, err := strconv.ParseFloat(row[d.cols.productMZ], 64)
	if err != nil {
		return model.Peak{}, &ErrMalformedPeakLine{Line: strings.Join(row, "\t")}
	}

	intensity, err := strconv.ParseFloat(row[d.cols.intensity], 64)
	if err != nil {
		return model.Peak{}, &ErrMalformedPeakLine{Line: strings.Join(row, "\t")}
	}

	ordinal, err := strconv.Atoi(row[d.cols.fragNumber])
	if err != nil {
		return model.Peak{}, &ErrMalformedPeakLine{Line: strings.Join(row, "\t")}
	}

	charge, err := strconv.Atoi(row[d.cols.fragCharge])
	if err != nil {
		return model.Peak{}, &ErrMalformedPeakLine{Line: strings.Join(row, "\t")}
	}

	ann := annotation.Annotation{
		Ion:       annotation.PeptideFragment{Series: row[d.cols.fragType], Position: ordinal},
		Charge:    charge,
		MassError: &annotation.MassError{Value: 0, Unit: "Da"},
	}

	return model.Peak{
		Mz:          mz,
		Intensity:   float32(intensity),
		Annotations: []annotation.Annotation{ann},
	}, nil
}

// Format implements Library.
func (d *DIANNLibrary) Format() string { return FormatDIANN }

// Header implements Library.
func (d *DIANNLibrary) Header() *Header { return d.header }

// Index implements Indexed.
func (d *DIANNLibrary) Index() index.Index { return d.idx }

// Count implements Library.
func (d *DIANNLibrary) Count() (int, error) { return d.count, nil }

// Spectrum implements Library.
func (d *DIANNLibrary) Spectrum(_ context.Context, number uint64) (*model.Spectrum, error) {
	rec, err := d.idx.Get(number)
	if err != nil {
		return nil, err
	}

	rows, err := d.rowsFor(rec.Offset)
	if err != nil {
		return nil, err
	}

	return d.parseGroup(rows, rec.Number)
}

// SpectrumByName implements Library.
func (d *DIANNLibrary) SpectrumByName(_ context.Context, name string) (*model.Spectrum, error) {
	rec, err := d.idx.SearchOne(name)
	if err != nil {
		return nil, err
	}

	rows, err := d.rowsFor(rec.Offset)
	if err != nil {
		return nil, err
	}

	return d.parseGroup(rows, rec.Number)
}

// Read implements Library.
func (d *DIANNLibrary) Read(ctx context.Context) (*model.Spectrum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if d.cursor >= uint64(d.count) { //nolint:gosec // count is never negative
		return nil, io.EOF
	}

	s, err := d.Spectrum(ctx, d.cursor)
	if err != nil {
		return nil, err
	}

	d.cursor++

	return s, nil
}

// Close implements Library.
func (d *DIANNLibrary) Close() error {
	err := d.idx.Close()

	if cerr := d.src.Close(); err == nil {
		err = cerr
	}

	return err
}
