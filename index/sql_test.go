package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/speclib/codec"
)

func tempLibraryPath(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "library.mzlb.txt")
	require.NoError(t, os.WriteFile(path, []byte("<mzSpecLib>\n"), 0600))

	return path
}

func TestSQLIndexCreateAndReopen(t *testing.T) {
	libPath := tempLibraryPath(t)

	si, existed, err := OpenSQL(libPath)
	require.NoError(t, err)
	require.False(t, existed)
	require.Equal(t, libPath+Extension, si.SidecarPath())

	require.NoError(t, si.Add(Record{Number: 0, Offset: 12, Name: "zero"}))
	require.NoError(t, si.Add(Record{Number: 1, Offset: 345, Name: "one", Analyte: "PEPTIDE/2"}))
	require.NoError(t, si.Commit())
	require.NoError(t, si.Close())

	si, existed, err = OpenSQL(libPath)
	require.NoError(t, err)
	require.True(t, existed)

	defer func() { require.NoError(t, si.Close()) }()

	rec, err := si.Get(1)
	require.NoError(t, err)
	require.Equal(t, int64(345), rec.Offset)
	require.Equal(t, "one", rec.Name)
	require.Equal(t, "PEPTIDE/2", rec.Analyte)

	n, err := si.Count()
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestSQLIndexEmptySidecarTreatedAbsent(t *testing.T) {
	libPath := tempLibraryPath(t)

	si, existed, err := OpenSQL(libPath)
	require.NoError(t, err)
	require.False(t, existed)
	require.NoError(t, si.Close())

	// Sidecar file exists now but holds no records.
	si, existed, err = OpenSQL(libPath)
	require.NoError(t, err)
	require.False(t, existed)
	require.NoError(t, si.Close())
}

func TestSQLIndexCreateReplacesSidecar(t *testing.T) {
	libPath := tempLibraryPath(t)

	si, _, err := OpenSQL(libPath)
	require.NoError(t, err)
	require.NoError(t, si.Add(Record{Number: 0, Name: "stale"}))
	require.NoError(t, si.Commit())
	require.NoError(t, si.Close())

	si, err = CreateSQL(libPath)
	require.NoError(t, err)

	defer func() { require.NoError(t, si.Close()) }()

	n, err := si.Count()
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestSQLIndexPendingRecordsVisible(t *testing.T) {
	libPath := tempLibraryPath(t)

	si, _, err := OpenSQL(libPath)
	require.NoError(t, err)

	defer func() { require.NoError(t, si.Close()) }()

	require.NoError(t, si.Add(Record{Number: 0, Offset: 10, Name: "pending"}))

	// Reads go through the open batch, so pending rows are visible.
	n, err := si.Count()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	rec, err := si.Get(0)
	require.NoError(t, err)
	require.Equal(t, "pending", rec.Name)
}

func TestSQLIndexSearchAndBetween(t *testing.T) {
	libPath := tempLibraryPath(t)

	si, _, err := OpenSQL(libPath)
	require.NoError(t, err)

	defer func() { require.NoError(t, si.Close()) }()

	require.NoError(t, si.Add(Record{Number: 0, Offset: 0, Name: "shared"}))
	require.NoError(t, si.Add(Record{Number: 1, Offset: 100, Name: "unique"}))
	require.NoError(t, si.Add(Record{Number: 2, Offset: 200, Name: "shared"}))
	require.NoError(t, si.Add(Record{Number: 3, Offset: 300, Name: "last"}))
	require.NoError(t, si.Commit())

	recs, err := si.SearchAll("shared")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, uint64(0), recs[0].Number)
	require.Equal(t, uint64(2), recs[1].Number)

	rec, err := si.SearchOne("shared")
	require.NoError(t, err)
	require.Equal(t, uint64(0), rec.Number)

	_, err = si.SearchAll("missing")
	require.ErrorIs(t, err, ErrNotFound)

	recs, err = si.Between(1, 3)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, uint64(1), recs[0].Number)
	require.Equal(t, uint64(2), recs[1].Number)

	all, err := si.All()
	require.NoError(t, err)
	require.Len(t, all, 4)
}

func TestSQLIndexDuplicateNumber(t *testing.T) {
	libPath := tempLibraryPath(t)

	si, _, err := OpenSQL(libPath)
	require.NoError(t, err)

	defer func() { require.NoError(t, si.Close()) }()

	require.NoError(t, si.Add(Record{Number: 5, Name: "a"}))
	require.NoError(t, si.Add(Record{Number: 5, Name: "b"}))
	require.NoError(t, si.Commit())

	_, err = si.Get(5)

	var dupErr *ErrDuplicateNumber
	require.ErrorAs(t, err, &dupErr)
	require.Equal(t, 2, dupErr.Count)
}

func TestSQLIndexClusters(t *testing.T) {
	libPath := tempLibraryPath(t)

	si, _, err := OpenSQL(libPath)
	require.NoError(t, err)

	defer func() { require.NoError(t, si.Close()) }()

	require.NoError(t, si.AddCluster(ClusterRecord{Number: 11, Offset: 1100}))
	require.NoError(t, si.AddCluster(ClusterRecord{Number: 4, Offset: 400}))
	require.NoError(t, si.Commit())

	rec, err := si.GetCluster(11)
	require.NoError(t, err)
	require.Equal(t, int64(1100), rec.Offset)

	_, err = si.GetCluster(99)
	require.ErrorIs(t, err, ErrNotFound)

	clusters, err := si.Clusters()
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	require.Equal(t, uint64(4), clusters[0].Number)

	n, err := si.ClusterCount()
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestSQLIndexMetadata(t *testing.T) {
	libPath := tempLibraryPath(t)

	si, _, err := OpenSQL(libPath)
	require.NoError(t, err)

	defer func() { require.NoError(t, si.Close()) }()

	_, ok, err := si.Metadata("format")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, si.SetMetadata("format", "text"))
	require.NoError(t, si.SetMetadata("format", "json"))

	v, ok, err := si.Metadata("format")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "json", v)

	// The attribute table holds the codec-encoded form.
	var stored string
	require.NoError(t, si.q().QueryRow(
		`SELECT value FROM spectrum_library_index_attribute WHERE name = ?`, "format").Scan(&stored))
	require.Equal(t, string(codec.MustMarshal(nil, "json")), stored)

	// Values written raw by other tools come back as-is.
	_, err = si.q().Exec(
		`INSERT INTO spectrum_library_index_attribute (name, value) VALUES (?, ?)`, "source", "library.mzlb.txt")
	require.NoError(t, err)

	v, ok, err = si.Metadata("source")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "library.mzlb.txt", v)
}

func TestSQLIndexAttributesUnsupported(t *testing.T) {
	libPath := tempLibraryPath(t)

	si, _, err := OpenSQL(libPath)
	require.NoError(t, err)

	defer func() { require.NoError(t, si.Close()) }()

	err = si.Add(Record{Number: 0, Attributes: map[string]string{"k": "v"}})
	require.ErrorIs(t, err, ErrAttributesUnsupported)
}

func TestSQLIndexCloseFlushesBatch(t *testing.T) {
	libPath := tempLibraryPath(t)

	si, _, err := OpenSQL(libPath)
	require.NoError(t, err)

	require.NoError(t, si.Add(Record{Number: 0, Name: "flushed"}))
	require.NoError(t, si.Close())

	si, existed, err := OpenSQL(libPath)
	require.NoError(t, err)
	require.True(t, existed)

	defer func() { require.NoError(t, si.Close()) }()

	rec, err := si.Get(0)
	require.NoError(t, err)
	require.Equal(t, "flushed", rec.Name)
}
