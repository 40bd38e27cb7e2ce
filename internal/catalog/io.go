package catalog

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kilupskalvis/zcurate/internal/atomicfile"
	"github.com/kilupskalvis/zcurate/internal/models"
)

// Supported catalog formats
const (
	FormatCSV    = "csv"
	FormatTSV    = "tsv"
	FormatSQLite = "sqlite"
)

// Location identifies a catalog on disk
type Location struct {
	Path   string
	Format string
	Table  string // sqlite only
}

func (l Location) String() string {
	if l.Format == FormatSQLite {
		return fmt.Sprintf("%s (table %s)", l.Path, l.table())
	}
	return l.Path
}

func (l Location) table() string {
	if l.Table == "" {
		return DefaultSQLiteTable
	}
	return l.Table
}

func (l Location) format() string {
	if l.Format != "" {
		return strings.ToLower(l.Format)
	}
	switch strings.ToLower(filepath.Ext(l.Path)) {
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	case ".tsv":
		return FormatTSV
	}
	return FormatCSV
}

// Exists reports whether the catalog file is present
func (l Location) Exists() bool {
	_, err := os.Stat(l.Path)
	return err == nil
}

// Read loads a catalog table. A missing or unreadable file is a data access error.
func Read(loc Location) (*Table, error) {
	var (
		t   *Table
		err error
	)
	switch loc.format() {
	case FormatCSV:
		t, err = readCSV(loc.Path, ',')
	case FormatTSV:
		t, err = readCSV(loc.Path, '\t')
	case FormatSQLite:
		t, err = readSQLite(loc.Path, loc.table())
	default:
		return nil, models.Configf("catalog format %q is not supported (use csv, tsv or sqlite)", loc.Format)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.DataAccessf(err, "catalog %s does not exist", loc.Path)
		}
		return nil, models.DataAccessf(err, "read catalog %s", loc)
	}
	return t, nil
}

// Write replaces the catalog file with t. The new content is fully written to a
// temporary file before it replaces the old one.
func Write(loc Location, t *Table) error {
	var err error
	switch loc.format() {
	case FormatCSV:
		err = atomicfile.Write(loc.Path, 0644, func(w io.Writer) error { return writeCSV(w, t, ',') })
	case FormatTSV:
		err = atomicfile.Write(loc.Path, 0644, func(w io.Writer) error { return writeCSV(w, t, '\t') })
	case FormatSQLite:
		err = atomicfile.WriteVia(loc.Path, func(tmp string) error { return writeSQLite(tmp, loc.table(), t) })
	default:
		return models.Configf("catalog format %q is not supported (use csv, tsv or sqlite)", loc.Format)
	}
	if err != nil {
		return models.DataAccessf(err, "write catalog %s", loc)
	}
	return nil
}
