package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/zcurate/internal/catalog"
	"github.com/kilupskalvis/zcurate/internal/models"
)

func masterTable(t *testing.T) *catalog.Table {
	t.Helper()
	tb := catalog.NewTable(catalog.ColInternalID, catalog.ColID, catalog.ColZSpec, catalog.ColFlag)
	require.NoError(t, tb.AppendRow([]string{"0", "A", "0.5", "3"}))
	require.NoError(t, tb.AppendRow([]string{"1", "B", "1.2", "2"}))
	require.NoError(t, tb.AppendRow([]string{"2", "C", "2.0", "4"}))
	return tb
}

func bufferTable(t *testing.T, rows ...[]string) *catalog.Table {
	t.Helper()
	tb := catalog.NewTable(catalog.ColInternalID, "z_temp", "flag_temp", "verified_temp")
	for _, r := range rows {
		require.NoError(t, tb.AppendRow(r))
	}
	return tb
}

// ==================== Merge Tests ====================

func TestMergeEdits_VerifiedRowsOnly(t *testing.T) {
	master := masterTable(t)
	edits := bufferTable(t,
		[]string{"1", "1.25", "4", "1"},
		[]string{"2.0", "2.5", "1", "0"},
	)

	out, err := MergeEdits(master, edits, BufferMapping)
	require.NoError(t, err)

	assert.Equal(t, 3, out.Len())
	assert.Equal(t, "1.25", out.Get(1, catalog.ColUpdatedZ))
	assert.Equal(t, "4", out.Get(1, catalog.ColUpdatedFlag))
	assert.Equal(t, "1", out.Get(1, catalog.ColVerified))

	assert.Equal(t, "-99", out.Get(2, catalog.ColUpdatedZ), "unverified edits are ignored")
	assert.Equal(t, "0", out.Get(0, catalog.ColVerified))

	assert.False(t, master.HasColumn(catalog.ColVerified), "master is not modified")
}

func TestMergeEdits_Idempotent(t *testing.T) {
	dir := t.TempDir()
	edits := bufferTable(t, []string{"0", "0.51", "4", "1"})

	once, err := MergeEdits(masterTable(t), edits, BufferMapping)
	require.NoError(t, err)
	twice, err := MergeEdits(once, edits, BufferMapping)
	require.NoError(t, err)

	a, b := filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")
	require.NoError(t, catalog.Write(catalog.Location{Path: a}, once))
	require.NoError(t, catalog.Write(catalog.Location{Path: b}, twice))

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, string(da), string(db))
}

func TestMergeEdits_LaterMergeOverwrites(t *testing.T) {
	first, err := MergeEdits(masterTable(t), bufferTable(t, []string{"0", "0.6", "2", "1"}), BufferMapping)
	require.NoError(t, err)
	second, err := MergeEdits(first, bufferTable(t, []string{"0", "0.7", "1", "1"}), BufferMapping)
	require.NoError(t, err)

	assert.Equal(t, "0.7", second.Get(0, catalog.ColUpdatedZ))
	assert.Equal(t, "1", second.Get(0, catalog.ColUpdatedFlag))
}

func TestMergeEdits_UnmatchedKey(t *testing.T) {
	edits := bufferTable(t, []string{"0", "0.5", "3", "1"}, []string{"17", "1", "1", "1"})

	_, err := MergeEdits(masterTable(t), edits, BufferMapping)
	require.Error(t, err)

	var unmatched *models.UnmatchedKeyError
	require.True(t, errors.As(err, &unmatched))
	assert.Equal(t, []string{"17"}, unmatched.Keys)
	assert.True(t, errors.Is(err, models.ErrUnmatchedKey))
}

func TestMergeEdits_MissingColumns(t *testing.T) {
	edits := catalog.NewTable(catalog.ColInternalID, "z_temp")
	_, err := MergeEdits(masterTable(t), edits, BufferMapping)
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	master := catalog.NewTable(catalog.ColID)
	_, err = MergeEdits(master, bufferTable(t), BufferMapping)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestMergeEdits_DuplicateMasterKey(t *testing.T) {
	master := masterTable(t)
	require.NoError(t, master.AppendRow([]string{"1.0", "D", "0.1", "1"}))

	_, err := MergeEdits(master, bufferTable(t), BufferMapping)
	assert.True(t, errors.Is(err, models.ErrConsistency))
}

func TestMergeEdits_FillsEmptyCells(t *testing.T) {
	master := masterTable(t)
	master.AddColumn(catalog.ColUpdatedZ, "")

	out, err := MergeEdits(master, bufferTable(t), BufferMapping)
	require.NoError(t, err)
	assert.Equal(t, "-99", out.Get(0, catalog.ColUpdatedZ))
}

// ==================== Report Tests ====================

func TestBuildReport(t *testing.T) {
	recs := makeRecords(4)
	recs[3].Has1D = false

	recs[0].Verified, recs[0].UpdatedZ, recs[0].UpdatedFlag = 1, 0.5, 3   // unchanged
	recs[1].Verified, recs[1].UpdatedZ, recs[1].UpdatedFlag = 1, 0.51, 3  // redshift changed
	recs[2].Verified, recs[2].UpdatedZ, recs[2].UpdatedFlag = 1, 0.501, 1 // flag changed

	r := BuildReport(recs)
	assert.Equal(t, models.Report{
		Total:            4,
		WithSpectra:      3,
		Verified:         3,
		FlagsChanged:     1,
		RedshiftsChanged: 1,
	}, r)

	text := FormatReport(r)
	assert.Contains(t, text, "Verified:          3")
	assert.Contains(t, text, "Redshifts changed: 1")
}
