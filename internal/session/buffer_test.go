package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/zcurate/internal/config"
	"github.com/kilupskalvis/zcurate/internal/models"
	"github.com/kilupskalvis/zcurate/internal/spectrum"
)

func makeSet(n int) []models.CatalogRecord {
	set := make([]models.CatalogRecord, n)
	for i := range set {
		rec := models.NewCatalogRecord(int64(i*10), fmt.Sprintf("src-%d", i))
		rec.SpecZ = 0.5 + float64(i)/10
		rec.Flag = i % 6
		rec.SpectrumFile = fmt.Sprintf("spec-%d.txt", i)
		rec.Has1D = true
		set[i] = rec
	}
	return set
}

var baseSnapshot = models.Snapshot{"zmin": "0.1", "zmax": "1", "review.mode": "new"}

func newTestBuffer(t *testing.T, set []models.CatalogRecord) (*Buffer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buffer.csv")
	b, err := Open(set, Options{Path: path, Snapshot: baseSnapshot, Volatile: []string{"review.mode"}})
	require.NoError(t, err)
	return b, path
}

func reopen(t *testing.T, set []models.CatalogRecord, path string, snap models.Snapshot) (*Buffer, error) {
	t.Helper()
	return Open(set, Options{Path: path, Snapshot: snap, Volatile: []string{"review.mode"}})
}

type fakeSpectra map[string]spectrum.Result

func (f fakeSpectra) Load(name string) spectrum.Result {
	if r, ok := f[name]; ok {
		return r
	}
	return spectrum.Result{Err: &models.SpectrumReadError{Path: name, Err: errors.New("missing")}}
}

// ==================== Open Tests ====================

func TestOpen_EmptyReviewSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buffer.csv")

	_, err := Open(nil, Options{Path: path, Snapshot: baseSnapshot})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrEmptyResult))
	assert.NoFileExists(t, path)
	assert.NoFileExists(t, SnapshotPath(path))
}

func TestOpen_Fresh(t *testing.T) {
	set := makeSet(3)
	b, path := newTestBuffer(t, set)

	assert.Equal(t, StateFresh, b.State())
	assert.Equal(t, 0, b.Idx())
	assert.Equal(t, 3, b.Len())
	assert.FileExists(t, path)
	assert.FileExists(t, SnapshotPath(path))

	rows, err := readRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].Idx)
	assert.Equal(t, int64(0), rows[0].InternalID)
	assert.Equal(t, "src-0", rows[0].SourceID)
	assert.Equal(t, models.UnsetRedshift, rows[0].ZPhot)
}

func TestOpen_LoadedRestoresCursor(t *testing.T) {
	set := makeSet(5)
	b, path := newTestBuffer(t, set)
	_, err := b.Advance()
	require.NoError(t, err)
	_, err = b.Advance()
	require.NoError(t, err)

	resumed, err := reopen(t, set, path, baseSnapshot)
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, resumed.State())
	assert.Equal(t, 2, resumed.Idx())
	assert.Equal(t, "src-2", resumed.Record().ID)
	assert.Len(t, resumed.Rows(), 3)
}

func TestOpen_SupersetSnapshotResumes(t *testing.T) {
	set := makeSet(2)
	_, path := newTestBuffer(t, set)

	current := models.Snapshot{"zmin": "0.1", "zmax": "1", "extra": "x", "review.mode": "resume"}
	b, err := reopen(t, set, path, current)
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, b.State())
}

func TestOpen_ChangedSnapshotFails(t *testing.T) {
	set := makeSet(2)
	_, path := newTestBuffer(t, set)

	_, err := reopen(t, set, path, models.Snapshot{"zmin": "0.2", "zmax": "1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConsistency))

	var mismatch *models.ConfigMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []string{"zmin"}, mismatch.Keys)
	assert.Contains(t, err.Error(), path)
}

func TestOpen_MissingSnapshotKeyFails(t *testing.T) {
	set := makeSet(2)
	_, path := newTestBuffer(t, set)

	_, err := reopen(t, set, path, models.Snapshot{"zmin": "0.1"})
	assert.True(t, errors.Is(err, models.ErrConsistency))
}

func TestOpen_ReviewSetChanged(t *testing.T) {
	set := makeSet(3)
	_, path := newTestBuffer(t, set)

	other := makeSet(3)
	other[0].InternalID = 99
	_, err := reopen(t, other, path, baseSnapshot)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConsistency))

	_, err = reopen(t, nil, path, baseSnapshot)
	assert.True(t, errors.Is(err, models.ErrEmptyResult))
}

func TestOpen_ReplaceOverwritesExistingBuffer(t *testing.T) {
	set := makeSet(3)
	b, path := newTestBuffer(t, set)
	_, err := b.Advance()
	require.NoError(t, err)
	require.NoError(t, b.SetFlagTemp(5))
	require.NoError(t, b.Commit())

	changed := models.Snapshot{"zmin": "0.2", "zmax": "1", "review.mode": "new"}
	replaced, err := Open(set, Options{Path: path, Snapshot: changed, Volatile: []string{"review.mode"}, Replace: true})
	require.NoError(t, err)
	assert.Equal(t, StateFresh, replaced.State())
	assert.Equal(t, 0, replaced.Idx())

	rows, err := readRows(path)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	resumed, err := reopen(t, set, path, changed)
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, resumed.State())
}

func TestOpen_ReplaceRejectedSetKeepsBuffer(t *testing.T) {
	set := makeSet(2)
	_, path := newTestBuffer(t, set)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = Open(nil, Options{Path: path, Snapshot: baseSnapshot, Replace: true})
	assert.True(t, errors.Is(err, models.ErrEmptyResult))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.FileExists(t, SnapshotPath(path))
}

func TestOpen_ResumeWithRelocatedSpectra(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(root, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[catalog]
path = "spec.csv"
id_column = "id"
ra_column = "ra"
dec_column = "dec"
z_column = "z"
flag_column = "zflag"
spectrum_column = "spec1d"

[spectra]
dir = "spectra"
`), 0644))

	host, err := config.LoadFile(cfgPath, root)
	require.NoError(t, err)
	t.Setenv(config.EnvSpectraDir, "/data/spectra")
	container, err := config.LoadFile(cfgPath, root)
	require.NoError(t, err)

	assert.Empty(t, CheckSnapshot(host.Snapshot(), container.Snapshot(), config.VolatileKeys))

	set := makeSet(2)
	path := filepath.Join(root, "buffer.csv")
	_, err = Open(set, Options{Path: path, Snapshot: host.Snapshot(), Volatile: config.VolatileKeys})
	require.NoError(t, err)
	b, err := Open(set, Options{Path: path, Snapshot: container.Snapshot(), Volatile: config.VolatileKeys})
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, b.State())
}

// ==================== Cursor Tests ====================

func TestCursorBounds(t *testing.T) {
	b, _ := newTestBuffer(t, makeSet(2))

	moved, err := b.Retreat()
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 0, b.Idx())

	moved, err = b.Advance()
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, 1, b.Idx())

	moved, err = b.Advance()
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 1, b.Idx())
}

func TestVisitPersistsOneRowPerIdx(t *testing.T) {
	b, path := newTestBuffer(t, makeSet(3))

	_, _ = b.Advance()
	_, _ = b.Retreat()
	_, _ = b.Advance()
	_, _ = b.Advance()

	rows, err := readRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, i, r.Idx)
	}
}

func TestSeek(t *testing.T) {
	b, _ := newTestBuffer(t, makeSet(4))

	require.NoError(t, b.Seek(3))
	assert.Equal(t, "src-3", b.Record().ID)
	assert.ErrorIs(t, b.Seek(4), ErrInvalidEdit)
	assert.Equal(t, 3, b.Idx())
}

// ==================== Edit Tests ====================

func TestEdits_CommitUpserts(t *testing.T) {
	set := makeSet(2)
	b, path := newTestBuffer(t, set)

	require.NoError(t, b.SetFlagTemp(4))
	require.NoError(t, b.SetVerifiedTemp(1))
	require.NoError(t, b.SetRedshiftTemp(0.731))
	assert.True(t, b.Dirty())
	require.NoError(t, b.Commit())
	assert.False(t, b.Dirty())

	require.NoError(t, b.SetFlagTemp(3))
	require.NoError(t, b.Commit())

	rows, err := readRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].FlagTemp)
	assert.Equal(t, 1, rows[0].VerifiedTemp)
	assert.Equal(t, 0.731, rows[0].ZTemp)
	assert.Equal(t, 0.5, rows[0].Z)
}

func TestEdits_DiscardedWithoutCommit(t *testing.T) {
	b, path := newTestBuffer(t, makeSet(2))

	require.NoError(t, b.SetFlagTemp(5))
	_, err := b.Advance()
	require.NoError(t, err)
	_, err = b.Retreat()
	require.NoError(t, err)

	assert.Equal(t, 0, b.Current().FlagTemp)
	rows, err := readRows(path)
	require.NoError(t, err)
	assert.Equal(t, 0, rows[0].FlagTemp)
}

func TestEdits_Ranges(t *testing.T) {
	b, _ := newTestBuffer(t, makeSet(1))

	assert.ErrorIs(t, b.SetFlagTemp(6), ErrInvalidEdit)
	assert.ErrorIs(t, b.SetFlagTemp(-1), ErrInvalidEdit)
	assert.ErrorIs(t, b.SetVerifiedTemp(2), ErrInvalidEdit)
	assert.False(t, b.Dirty())
}

func TestResetRedshift(t *testing.T) {
	b, _ := newTestBuffer(t, makeSet(1))

	require.NoError(t, b.SetRedshiftTemp(2.5))
	b.ResetRedshift()
	assert.Equal(t, b.Current().Z, b.Current().ZTemp)
}

func TestCommit_SurvivesResume(t *testing.T) {
	set := makeSet(3)
	b, path := newTestBuffer(t, set)
	var journal []models.SessionState
	b.opts.OnCommit = func(s models.SessionState) { journal = append(journal, s) }

	_, _ = b.Advance()
	require.NoError(t, b.SetVerifiedTemp(1))
	require.NoError(t, b.Commit())
	require.Len(t, journal, 1)
	assert.Equal(t, 1, journal[0].Idx)

	resumed, err := reopen(t, set, path, baseSnapshot)
	require.NoError(t, err)
	assert.Equal(t, 1, resumed.Idx())
	assert.Equal(t, 1, resumed.Current().VerifiedTemp)

	table := resumed.Table()
	assert.Equal(t, Columns, table.Columns)
	assert.Equal(t, "1", table.Get(1, ColVerifiedTemp))
}

// ==================== Spectrum Tests ====================

func TestLoadSpectrum_UnreadableIsNotFatal(t *testing.T) {
	set := makeSet(2)
	path := filepath.Join(t.TempDir(), "buffer.csv")
	src := fakeSpectra{
		"spec-1.txt": {Spectrum: &spectrum.Spectrum{Wavelength: []float64{1}, Flux: []float64{1}}},
	}
	b, err := Open(set, Options{Path: path, Snapshot: baseSnapshot, Spectra: src})
	require.NoError(t, err)

	res := b.LoadSpectrum()
	assert.False(t, res.OK())
	assert.Error(t, b.Unreadable(0))
	assert.Equal(t, 1, b.UnreadableCount())

	moved, err := b.Advance()
	require.NoError(t, err)
	assert.True(t, moved)
	assert.True(t, b.LoadSpectrum().OK())
	assert.NoError(t, b.Unreadable(1))
}

// ==================== Snapshot Tests ====================

func TestCheckSnapshot(t *testing.T) {
	saved := models.Snapshot{"zmin": "0.1", "zmax": "1.0", "review.mode": "new"}

	assert.Empty(t, CheckSnapshot(saved, models.Snapshot{"zmin": "0.1", "zmax": "1.0", "extra": "x"}, []string{"review.mode"}))
	assert.Equal(t, []string{"zmin"}, CheckSnapshot(saved, models.Snapshot{"zmin": "0.2", "zmax": "1.0"}, []string{"review.mode"}))
	assert.Equal(t, []string{"review.mode"}, CheckSnapshot(saved, models.Snapshot{"zmin": "0.1", "zmax": "1.0", "review.mode": "resume"}, nil))
}
