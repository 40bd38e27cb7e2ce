package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/zcurate/internal/catalog"
	"github.com/kilupskalvis/zcurate/internal/config"
	"github.com/kilupskalvis/zcurate/internal/models"
)

const baseTOML = `
[catalog]
path = "spec.csv"
id_column = "id"
ra_column = "ra"
dec_column = "dec"
z_column = "z"
flag_column = "zflag"
spectrum_column = "spec1d"
keep_columns = ["mag"]
selection_column = "use"

[spectra]
dir = "spectra"
`

const boxTOML = `
[catalog.bounding_box]
enabled = true
ra_min = 149.0
ra_max = 151.0
dec_min = 1.0
dec_max = 3.0
`

func newTestConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	root := t.TempDir()
	spectra := filepath.Join(root, "spectra")
	require.NoError(t, os.MkdirAll(spectra, 0755))
	for _, name := range []string{"a.txt", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(spectra, name), []byte("5000 1.0\n5001 1.1\n"), 0644))
	}

	path := filepath.Join(root, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(baseTOML+extra), 0644))
	cfg, err := config.LoadFile(path, root)
	require.NoError(t, err)
	return cfg
}

func rawTable(t *testing.T) *catalog.Table {
	t.Helper()
	tb := catalog.NewTable("id", "ra", "dec", "z", "zflag", "spec1d", "use", "mag")
	rows := [][]string{
		{"A", "150.0", "2.0", "0.5", "4", "a.txt", "1", "21.0"},
		{"B", "150.1", "2.1", "0.7", "3", "b.txt", "0", "22.0"},
		{"C", "150.2", "2.2", "1.0", "219.3", "c.txt", "1", "23.0"},
		{"D", "200.0", "2.0", "1.0", "4", "d.txt", "1", "20.0"},
		{"E", "150.3", "2.3", "2.0", "x", "", "true", ""},
	}
	for _, r := range rows {
		require.NoError(t, tb.AppendRow(r))
	}
	return tb
}

func sourceIDs(c *catalog.Catalog) []string {
	out := make([]string, len(c.Records))
	for i, r := range c.Records {
		out[i] = r.ID
	}
	return out
}

// ==================== Prepare Tests ====================

func TestPrepare(t *testing.T) {
	cfg := newTestConfig(t, boxTOML)

	c, stats, err := Prepare(cfg, rawTable(t), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "C", "E"}, sourceIDs(c))
	assert.Equal(t, PrepareStats{
		Input:       5,
		Deselected:  1,
		OutsideBox:  1,
		Kept:        3,
		WithSpectra: 2,
		Unmappable:  1,
	}, stats)

	for i, r := range c.Records {
		assert.Equal(t, int64(i), r.InternalID)
		assert.Equal(t, 0, r.Verified)
		assert.Equal(t, models.UnsetRedshift, r.UpdatedZ)
	}
	assert.Equal(t, 4, c.Records[0].Flag)
	assert.Equal(t, 3, c.Records[1].Flag)
	assert.Equal(t, 1, c.Records[1].Broadline)
	assert.Equal(t, models.FlagUnmappable, c.Records[2].Flag)
	assert.True(t, c.Records[0].Has1D)
	assert.False(t, c.Records[2].Has1D)
	assert.Equal(t, "23.0", c.Records[1].Extra["mag"])
	assert.False(t, c.Matched)
}

func TestPrepare_NothingKept(t *testing.T) {
	cfg := newTestConfig(t, boxTOML)
	cfg.Catalog.BoundingBox.RAMin, cfg.Catalog.BoundingBox.RAMax = 0, 1

	_, _, err := Prepare(cfg, rawTable(t), nil, nil)
	var empty *models.EmptySelectionError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, "catalog preparation", empty.Stage)
}

func TestPrepare_MissingColumn(t *testing.T) {
	cfg := newTestConfig(t, "")
	cfg.Catalog.KeepColumns = []string{"mag", "snr"}

	_, _, err := Prepare(cfg, rawTable(t), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
	assert.Contains(t, err.Error(), "snr")
}

func TestPrepare_ReservedKeepColumn(t *testing.T) {
	cfg := newTestConfig(t, "")
	cfg.Catalog.KeepColumns = []string{"flag"}
	raw := rawTable(t)
	raw.AddColumn("flag", "0")

	_, _, err := Prepare(cfg, raw, nil, nil)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestPrepare_BadClassKey(t *testing.T) {
	cfg := newTestConfig(t, "")
	cfg.Flags.Classes = map[string][]string{"7": {"7"}}

	_, _, err := Prepare(cfg, rawTable(t), nil, nil)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func enableMatch(cfg *config.Config) {
	cfg.Match.Enabled = true
	cfg.Match.Path = "phot.csv"
	cfg.Match.IDColumn = "pid"
	cfg.Match.RAColumn = "pra"
	cfg.Match.DecColumn = "pdec"
	cfg.Match.ZColumn = "zphot"
	cfg.Match.MaxSeparation = "1arcsec"
}

func TestPrepare_PhotometricMatch(t *testing.T) {
	cfg := newTestConfig(t, boxTOML)
	enableMatch(cfg)

	phot := catalog.NewTable("pid", "pra", "pdec", "zphot")
	require.NoError(t, phot.AppendRow([]string{"p0", "150.0", "2.0000833", "0.55"}))
	require.NoError(t, phot.AppendRow([]string{"p1", "150.2", "2.2027778", "0.9"}))

	c, stats, err := Prepare(cfg, rawTable(t), phot, nil)
	require.NoError(t, err)
	assert.True(t, c.Matched)
	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, 2, stats.Masked)

	z, ok := c.Records[0].PhotZ()
	require.True(t, ok)
	assert.Equal(t, 0.55, z)
	assert.Equal(t, "p0", c.Records[0].Phot.ID)
	assert.True(t, c.Records[1].Phot.Masked)
	assert.InDelta(t, 10, c.Records[1].Phot.Separation, 0.01)
}

func TestPrepare_EmptyPhotometricCatalog(t *testing.T) {
	cfg := newTestConfig(t, "")
	enableMatch(cfg)

	_, _, err := Prepare(cfg, rawTable(t), catalog.NewTable("pid", "pra", "pdec", "zphot"), nil)
	var empty *models.EmptyMatchCatalogError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, "phot.csv", empty.Path)
}
