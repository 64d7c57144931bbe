package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/speclib/annotation"
	"github.com/hupe1980/speclib/model"
)

const diannFixture = "transition_group_id\tPrecursorMz\tPrecursorCharge\tPeptideSequence\tFullUniModPeptideName\tUniprotID\tFileName\tProductMz\tLibraryIntensity\tFragmentType\tFragmentSeriesNumber\tFragmentCharge\n" +
	"AAAAGSTSVKPIFSR2\t745.41052\t2\tAAAAGSTSVKPIFSR\tAAAAGSTSVKPIFSR\tQ8C5H8\treport.parquet\t175.1190\t120.0\ty\t1\t1\n" +
	"AAAAGSTSVKPIFSR2\t745.41052\t2\tAAAAGSTSVKPIFSR\tAAAAGSTSVKPIFSR\tQ8C5H8\treport.parquet\t322.1874\t88.6\ty\t2\t1\n" +
	"AAAAGSTSVKPIFSR2\t745.41052\t2\tAAAAGSTSVKPIFSR\tAAAAGSTSVKPIFSR\tQ8C5H8\treport.parquet\t419.2401\t410.2\ty\t3\t1\n" +
	"AGCK2\t204.60312\t2\tAGCK\tAGC(UniMod:4)K\tP0DTC2\treport.parquet\t147.1128\t54.2\ty\t1\t1\n" +
	"AGCK2\t204.60312\t2\tAGCK\tAGC(UniMod:4)K\tP0DTC2\treport.parquet\t262.1397\t31.0\tb\t3\t1\n"

func writeDIANNFixture(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "library.tsv")
	require.NoError(t, os.WriteFile(path, []byte(diannFixture), 0o600))

	return path
}

func TestDIANNLibraryOpen(t *testing.T) {
	ctx := context.Background()

	lib, err := Open(ctx, writeDIANNFixture(t), "", nil)
	require.NoError(t, err)
	defer lib.Close()

	require.Equal(t, FormatDIANN, lib.Format())

	n, err := lib.Count()
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestDIANNSpectrum(t *testing.T) {
	ctx := context.Background()

	lib, err := Open(ctx, writeDIANNFixture(t), FormatDIANN, nil)
	require.NoError(t, err)
	defer lib.Close()

	s, err := lib.Spectrum(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "AAAAGSTSVKPIFSR2", s.Name())
	require.Equal(t, uint64(1), s.Key)
	require.Len(t, s.Peaks, 3)

	mz, ok := s.Attributes.First(termPrecursorMonoMZ)
	require.True(t, ok)
	f, _ := mz.AsFloat64()
	require.InDelta(t, 745.41052, f, 1e-6)

	// Every row becomes a peak with a synthetic backbone annotation.
	ann := s.Peaks[2].Annotations[0]
	require.Equal(t, annotation.PeptideFragment{Series: "y", Position: 3}, ann.Ion)
	require.Equal(t, 1, ann.Charge)
	require.NotNil(t, ann.MassError)

	origin, ok := s.Attributes.First(termSpectrumOriginType)
	require.True(t, ok)
	term, _ := origin.AsTerm()
	require.Equal(t, termPredictedSpectrum, term)
}

func TestDIANNProFormaRewrite(t *testing.T) {
	ctx := context.Background()

	lib, err := Open(ctx, writeDIANNFixture(t), FormatDIANN, nil)
	require.NoError(t, err)
	defer lib.Close()

	s, err := lib.SpectrumByName(ctx, "AGCK2")
	require.NoError(t, err)
	require.Equal(t, int64(1), s.Index())

	analytes := s.Analytes()
	require.Len(t, analytes, 1)

	pf, ok := analytes[0].Peptide()
	require.True(t, ok)
	require.Equal(t, "AGC[UNIMOD:4]K", pf)

	protein, ok := analytes[0].Attributes.First(termProteinAccession)
	require.True(t, ok)
	require.Equal(t, "P0DTC2", protein.String())

	npeaks, ok := s.Attributes.First(model.TermNumberOfPeaks)
	require.True(t, ok)
	n, _ := npeaks.AsInt64()
	require.Equal(t, int64(2), n)
}

func TestDIANNMissingColumn(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "broken.tsv")
	require.NoError(t, os.WriteFile(path, []byte("transition_group_id\tPrecursorMz\nA2\t745.4\n"), 0o600))

	_, err := Open(ctx, path, FormatDIANN, nil)
	require.ErrorIs(t, err, ErrUnknownFormat)
}
