package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	// Register the sqlite3 driver used for index sidecar files.
	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/speclib/codec"
)

// Extension is appended to the library filename to form the sidecar path.
const Extension = ".splindex"

// Compile-time check
var _ Index = (*SQLIndex)(nil)

// Table layout matches the sidecar files produced by other implementations,
// so indexes can be shared across tools. The "index" column records the
// insertion ordinal of each row.
const sqlSchema = `
CREATE TABLE IF NOT EXISTS spectrum_library_index_record (
	id INTEGER PRIMARY KEY,
	number INTEGER NOT NULL,
	offset INTEGER NOT NULL,
	name TEXT NOT NULL,
	"index" INTEGER NOT NULL,
	analyte TEXT
);
CREATE INDEX IF NOT EXISTS ix_spectrum_library_index_record_number ON spectrum_library_index_record (number);
CREATE INDEX IF NOT EXISTS ix_spectrum_library_index_record_index ON spectrum_library_index_record ("index");
CREATE TABLE IF NOT EXISTS cluster_spectrum_library_index_record (
	id INTEGER PRIMARY KEY,
	number INTEGER NOT NULL,
	offset INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_cluster_spectrum_library_index_record_number ON cluster_spectrum_library_index_record (number);
CREATE TABLE IF NOT EXISTS spectrum_library_index_attribute (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	value TEXT NOT NULL
);
`

// SQLIndex persists records to a SQLite sidecar file next to the library, so
// a library only needs to be scanned once. Additions are batched inside a
// transaction that is flushed by Commit.
type SQLIndex struct {
	db          *sql.DB
	libraryPath string
	sidecarPath string

	tx          *sql.Tx
	size        int
	uncommitted int

	cache *Record
}

// querier is satisfied by both *sql.DB and *sql.Tx so reads observe pending
// rows while a batch transaction is open.
type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

// HasSidecar reports whether a non-empty index sidecar exists for the given
// library file. It never creates the sidecar.
func HasSidecar(libraryPath string) bool {
	fi, err := os.Stat(libraryPath + Extension)

	return err == nil && !fi.IsDir() && fi.Size() > 0
}

// OpenSQL opens the index sidecar for the given library file, creating it if
// needed. The second return value reports whether a non-empty sidecar already
// existed, in which case the caller can skip rebuilding the index.
func OpenSQL(libraryPath string) (*SQLIndex, bool, error) {
	sidecarPath := libraryPath + Extension

	existed := false
	if fi, err := os.Stat(sidecarPath); err == nil && !fi.IsDir() {
		existed = true
	}

	db, err := sql.Open("sqlite3", "file:"+sidecarPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, false, fmt.Errorf("index: open sidecar %s: %w", sidecarPath, err)
	}

	if _, err := db.Exec(sqlSchema); err != nil {
		_ = db.Close()

		return nil, false, fmt.Errorf("index: create schema: %w", err)
	}

	si := &SQLIndex{
		db:          db,
		libraryPath: libraryPath,
		sidecarPath: sidecarPath,
	}

	n, err := si.Count()
	if err != nil {
		_ = db.Close()

		return nil, false, err
	}

	si.size = n

	// An empty sidecar counts as absent so a fresh index gets built.
	if existed && n == 0 {
		existed = false
	}

	return si, existed, nil
}

// CreateSQL removes any existing sidecar for the library file and opens a
// fresh one.
func CreateSQL(libraryPath string) (*SQLIndex, error) {
	sidecarPath := libraryPath + Extension
	if err := os.Remove(sidecarPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("index: remove sidecar %s: %w", sidecarPath, err)
	}

	si, _, err := OpenSQL(libraryPath)

	return si, err
}

// LibraryPath returns the path of the library file this index describes.
func (si *SQLIndex) LibraryPath() string {
	return si.libraryPath
}

// SidecarPath returns the path of the SQLite sidecar file.
func (si *SQLIndex) SidecarPath() string {
	return si.sidecarPath
}

func (si *SQLIndex) q() querier {
	if si.tx != nil {
		return si.tx
	}

	return si.db
}

func (si *SQLIndex) begin() error {
	if si.tx != nil {
		return nil
	}

	tx, err := si.db.Begin()
	if err != nil {
		return fmt.Errorf("index: begin batch: %w", err)
	}

	si.tx = tx

	return nil
}

// Add appends a spectrum record to the current batch. The stored insertion
// ordinal continues across commits.
func (si *SQLIndex) Add(rec Record) error {
	if len(rec.Attributes) > 0 {
		return ErrAttributesUnsupported
	}

	if err := si.begin(); err != nil {
		return err
	}

	var analyte any
	if rec.Analyte != "" {
		analyte = rec.Analyte
	}

	_, err := si.tx.Exec(
		`INSERT INTO spectrum_library_index_record (number, offset, name, "index", analyte) VALUES (?, ?, ?, ?, ?)`,
		rec.Number, rec.Offset, rec.Name, si.size+si.uncommitted, analyte,
	)
	if err != nil {
		return fmt.Errorf("index: insert record: %w", err)
	}

	si.uncommitted++

	return nil
}

// AddCluster appends a cluster record to the current batch.
func (si *SQLIndex) AddCluster(rec ClusterRecord) error {
	if err := si.begin(); err != nil {
		return err
	}

	_, err := si.tx.Exec(
		`INSERT INTO cluster_spectrum_library_index_record (number, offset) VALUES (?, ?)`,
		rec.Number, rec.Offset,
	)
	if err != nil {
		return fmt.Errorf("index: insert cluster record: %w", err)
	}

	return nil
}

// Commit flushes the current batch to disk. With no open batch it is a no-op.
func (si *SQLIndex) Commit() error {
	if si.tx == nil {
		return nil
	}

	if err := si.tx.Commit(); err != nil {
		return fmt.Errorf("index: commit batch: %w", err)
	}

	si.tx = nil
	si.size += si.uncommitted
	si.uncommitted = 0

	return nil
}

// Get returns the record with the given spectrum number.
func (si *SQLIndex) Get(number uint64) (Record, error) {
	if si.cache != nil && si.cache.Number == number {
		return *si.cache, nil
	}

	rows, err := si.q().Query(
		`SELECT number, offset, name, analyte FROM spectrum_library_index_record WHERE number = ?`,
		number,
	)
	if err != nil {
		return Record{}, fmt.Errorf("index: query number %d: %w", number, err)
	}

	recs, err := scanRecords(rows)
	if err != nil {
		return Record{}, err
	}

	switch len(recs) {
	case 0:
		return Record{}, fmt.Errorf("%w: spectrum number %d", ErrNotFound, number)
	case 1:
		si.cache = &recs[0]

		return recs[0], nil
	default:
		return Record{}, &ErrDuplicateNumber{Number: number, Count: len(recs)}
	}
}

// Between returns the records with numbers in [start, stop), ordered by
// number.
func (si *SQLIndex) Between(start, stop uint64) ([]Record, error) {
	rows, err := si.q().Query(
		`SELECT number, offset, name, analyte FROM spectrum_library_index_record WHERE number >= ? AND number < ? ORDER BY number`,
		start, stop,
	)
	if err != nil {
		return nil, fmt.Errorf("index: query range [%d, %d): %w", start, stop, err)
	}

	return scanRecords(rows)
}

// SearchAll returns every record with the given name, ordered by number.
func (si *SQLIndex) SearchAll(name string) ([]Record, error) {
	rows, err := si.q().Query(
		`SELECT number, offset, name, analyte FROM spectrum_library_index_record WHERE name = ? ORDER BY number`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("index: query name %q: %w", name, err)
	}

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: name %q", ErrNotFound, name)
	}

	return recs, nil
}

// SearchOne returns the earliest record with the given name.
func (si *SQLIndex) SearchOne(name string) (Record, error) {
	recs, err := si.SearchAll(name)
	if err != nil {
		return Record{}, err
	}

	return recs[0], nil
}

// All returns every spectrum record, ordered by number.
func (si *SQLIndex) All() ([]Record, error) {
	rows, err := si.q().Query(
		`SELECT number, offset, name, analyte FROM spectrum_library_index_record ORDER BY number`,
	)
	if err != nil {
		return nil, fmt.Errorf("index: query all records: %w", err)
	}

	return scanRecords(rows)
}

// Count returns the number of spectrum records, including pending ones in
// the open batch.
func (si *SQLIndex) Count() (int, error) {
	var n int
	if err := si.q().QueryRow(`SELECT COUNT(id) FROM spectrum_library_index_record`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count records: %w", err)
	}

	return n, nil
}

// GetCluster returns the cluster record with the given number.
func (si *SQLIndex) GetCluster(number uint64) (ClusterRecord, error) {
	rows, err := si.q().Query(
		`SELECT number, offset FROM cluster_spectrum_library_index_record WHERE number = ?`,
		number,
	)
	if err != nil {
		return ClusterRecord{}, fmt.Errorf("index: query cluster number %d: %w", number, err)
	}

	recs, err := scanClusterRecords(rows)
	if err != nil {
		return ClusterRecord{}, err
	}

	switch len(recs) {
	case 0:
		return ClusterRecord{}, fmt.Errorf("%w: cluster number %d", ErrNotFound, number)
	case 1:
		return recs[0], nil
	default:
		return ClusterRecord{}, &ErrDuplicateNumber{Number: number, Count: len(recs)}
	}
}

// Clusters returns every cluster record, ordered by number.
func (si *SQLIndex) Clusters() ([]ClusterRecord, error) {
	rows, err := si.q().Query(
		`SELECT number, offset FROM cluster_spectrum_library_index_record ORDER BY number`,
	)
	if err != nil {
		return nil, fmt.Errorf("index: query all cluster records: %w", err)
	}

	return scanClusterRecords(rows)
}

// ClusterCount returns the number of cluster records.
func (si *SQLIndex) ClusterCount() (int, error) {
	var n int
	if err := si.q().QueryRow(`SELECT COUNT(id) FROM cluster_spectrum_library_index_record`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count cluster records: %w", err)
	}

	return n, nil
}

// SetMetadata stores a named metadata value, replacing any previous value.
// Values are encoded through codec.Default before they hit the attribute
// table.
func (si *SQLIndex) SetMetadata(name, value string) error {
	encoded, err := codec.Default.Marshal(value)
	if err != nil {
		return fmt.Errorf("index: encode metadata %q: %w", name, err)
	}

	if _, err := si.q().Exec(`DELETE FROM spectrum_library_index_attribute WHERE name = ?`, name); err != nil {
		return fmt.Errorf("index: clear metadata %q: %w", name, err)
	}

	if _, err := si.q().Exec(`INSERT INTO spectrum_library_index_attribute (name, value) VALUES (?, ?)`, name, string(encoded)); err != nil {
		return fmt.Errorf("index: set metadata %q: %w", name, err)
	}

	return nil
}

// Metadata returns a named metadata value, or false when unset. Raw values
// written by other tools pass through undecoded.
func (si *SQLIndex) Metadata(name string) (string, bool, error) {
	var stored string

	err := si.q().QueryRow(`SELECT value FROM spectrum_library_index_attribute WHERE name = ? LIMIT 1`, name).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("index: get metadata %q: %w", name, err)
	}

	var value string
	if err := codec.Default.Unmarshal([]byte(stored), &value); err != nil {
		return stored, true, nil
	}

	return value, true, nil
}

// Close flushes any open batch and closes the database.
func (si *SQLIndex) Close() error {
	if err := si.Commit(); err != nil {
		_ = si.db.Close()

		return err
	}

	if err := si.db.Close(); err != nil {
		return fmt.Errorf("index: close sidecar: %w", err)
	}

	return nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	var out []Record

	for rows.Next() {
		var (
			rec     Record
			analyte sql.NullString
		)

		if err := rows.Scan(&rec.Number, &rec.Offset, &rec.Name, &analyte); err != nil {
			return nil, fmt.Errorf("index: scan record: %w", err)
		}

		rec.Analyte = analyte.String

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: iterate records: %w", err)
	}

	return out, nil
}

func scanClusterRecords(rows *sql.Rows) ([]ClusterRecord, error) {
	defer rows.Close()

	var out []ClusterRecord

	for rows.Next() {
		var rec ClusterRecord

		if err := rows.Scan(&rec.Number, &rec.Offset); err != nil {
			return nil, fmt.Errorf("index: scan cluster record: %w", err)
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: iterate cluster records: %w", err)
	}

	return out, nil
}
