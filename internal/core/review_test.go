package core

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/zcurate/internal/catalog"
	"github.com/kilupskalvis/zcurate/internal/config"
	"github.com/kilupskalvis/zcurate/internal/models"
)

// preparedWorkspace writes a working catalog of A, C, D and E; only A and C
// have spectra on disk.
func preparedWorkspace(t *testing.T) *config.Config {
	t.Helper()
	cfg := newTestConfig(t, "")
	c, _, err := Prepare(cfg, rawTable(t), nil, nil)
	require.NoError(t, err)
	require.NoError(t, catalog.WriteWorking(WorkingLocation(cfg), c))
	cfg.Review.Verified = "all"
	return cfg
}

func editsTable(t *testing.T, rows ...[]string) *catalog.Table {
	t.Helper()
	tb := catalog.NewTable(catalog.ColInternalID, "z_temp", "flag_temp", "verified_temp")
	for _, r := range rows {
		require.NoError(t, tb.AppendRow(r))
	}
	return tb
}

func recordIDs(records []models.CatalogRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

// ==================== Review Set Tests ====================

func TestSelectReviewSet(t *testing.T) {
	cfg := preparedWorkspace(t)

	set, err := SelectReviewSet(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, recordIDs(set))
}

func TestReviewSetFromIDs(t *testing.T) {
	cfg := preparedWorkspace(t)

	set, err := ReviewSetFromIDs(cfg, []int64{1, 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, recordIDs(set))

	_, err = ReviewSetFromIDs(cfg, []int64{9}, nil)
	assert.True(t, errors.Is(err, models.ErrConsistency))
}

func TestSelectReviewSet_MissingWorkingCatalog(t *testing.T) {
	cfg := newTestConfig(t, "")
	_, err := SelectReviewSet(cfg, nil)
	assert.True(t, errors.Is(err, models.ErrDataAccess))
}

// ==================== Save And Finalize Tests ====================

func TestSaveProgressAndFinalize(t *testing.T) {
	cfg := preparedWorkspace(t)

	buffer := editsTable(t,
		[]string{"1", "1.05", "4", "1"},
		[]string{"0", "0.7", "1", "0"},
	)
	out, err := SaveProgress(cfg, buffer, nil)
	require.NoError(t, err)
	assert.Equal(t, OutputLocation(cfg), out)

	saved, err := catalog.ReadWorking(out)
	require.NoError(t, err)
	require.Len(t, saved.Records, 4)
	assert.Equal(t, 1.05, saved.Records[1].UpdatedZ)
	assert.Equal(t, 4, saved.Records[1].UpdatedFlag)
	assert.Equal(t, models.UnsetRedshift, saved.Records[0].UpdatedZ)

	finalLoc, report, err := Finalize(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, models.Report{
		Total:            4,
		WithSpectra:      2,
		Verified:         1,
		FlagsChanged:     1,
		RedshiftsChanged: 1,
	}, report)

	first, err := os.ReadFile(finalLoc.Path)
	require.NoError(t, err)

	_, again, err := Finalize(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, report, again)
	second, err := os.ReadFile(finalLoc.Path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	fromFile, err := ReportFor(finalLoc)
	require.NoError(t, err)
	assert.Equal(t, report, fromFile)
}

func TestSaveProgress_Accumulates(t *testing.T) {
	cfg := preparedWorkspace(t)

	_, err := SaveProgress(cfg, editsTable(t, []string{"0", "0.52", "3", "1"}), nil)
	require.NoError(t, err)
	_, err = SaveProgress(cfg, editsTable(t, []string{"1", "1.1", "2", "1"}), nil)
	require.NoError(t, err)

	saved, err := catalog.ReadWorking(OutputLocation(cfg))
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Records[0].Verified)
	assert.Equal(t, 1, saved.Records[1].Verified)
}

func TestFinalize_WithoutOutput(t *testing.T) {
	cfg := preparedWorkspace(t)
	_, _, err := Finalize(cfg, nil)
	assert.True(t, errors.Is(err, models.ErrDataAccess))
}

func TestSelectReviewSet_SkipsFinalizedSources(t *testing.T) {
	cfg := preparedWorkspace(t)
	_, err := SaveProgress(cfg, editsTable(t, []string{"1", "1.0", "3", "1"}), nil)
	require.NoError(t, err)
	_, _, err = Finalize(cfg, nil)
	require.NoError(t, err)

	cfg.Review.Verified = "unverified"
	set, err := SelectReviewSet(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, recordIDs(set))

	cfg.Review.Verified = "verified"
	set, err = SelectReviewSet(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, recordIDs(set))
}

// ==================== Overlay Tests ====================

func TestOverlayVerification(t *testing.T) {
	records := makeRecords(3)
	for i := range records {
		records[i].ID = string(rune('a' + i))
	}

	verified := records[1]
	verified.Verified, verified.UpdatedZ, verified.UpdatedFlag = 1, 0.9, 2
	unverified := records[2]
	unverified.UpdatedZ = 5

	n, err := OverlayVerification(records, &catalog.Catalog{Records: []models.CatalogRecord{verified, unverified}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0.9, records[1].UpdatedZ)
	assert.Equal(t, models.UnsetRedshift, records[2].UpdatedZ)

	verified.ID = "zz"
	_, err = OverlayVerification(records, &catalog.Catalog{Records: []models.CatalogRecord{verified}})
	assert.True(t, errors.Is(err, models.ErrConsistency))
}
