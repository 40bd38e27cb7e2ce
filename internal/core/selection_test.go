package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/zcurate/internal/models"
)

func makeRecords(n int) []models.CatalogRecord {
	out := make([]models.CatalogRecord, n)
	for i := range out {
		r := models.NewCatalogRecord(int64(i), "src")
		r.SpecZ = 0.5
		r.Flag = 3
		r.Has1D = true
		out[i] = r
	}
	return out
}

func ids(records []models.CatalogRecord) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.InternalID
	}
	return out
}

func seed(v int64) *int64 { return &v }

func allCriteria(percent float64) Criteria {
	return Criteria{Verified: VerifiedAll, ZMin: 0, ZMax: 10, Phot: PhotIgnore, Percent: percent}
}

// ==================== Sampling Tests ====================

func TestSelectSample_Reproducible(t *testing.T) {
	records := makeRecords(100)

	a, err := SelectSample(records, allCriteria(10), NewSampleRNG(seed(42)))
	require.NoError(t, err)
	b, err := SelectSample(records, allCriteria(10), NewSampleRNG(seed(42)))
	require.NoError(t, err)
	c, err := SelectSample(records, allCriteria(10), NewSampleRNG(seed(43)))
	require.NoError(t, err)

	assert.Len(t, a, 10)
	assert.Equal(t, ids(a), ids(b))
	assert.NotEqual(t, ids(a), ids(c))

	seen := make(map[int64]bool)
	for _, id := range ids(a) {
		assert.False(t, seen[id], "sample drawn without replacement")
		seen[id] = true
	}
}

func TestSelectSample_FullPercentKeepsOrder(t *testing.T) {
	records := makeRecords(10)
	got, err := SelectSample(records, allCriteria(100), NewSampleRNG(seed(1)))
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, ids(got))
}

func TestSelectSample_TooSmall(t *testing.T) {
	records := makeRecords(10)

	_, err := SelectSample(records, allCriteria(5), NewSampleRNG(seed(1)))
	var tooSmall *models.SampleTooSmallError
	require.True(t, errors.As(err, &tooSmall))
	assert.Equal(t, 10, tooSmall.Available)
	assert.True(t, errors.Is(err, models.ErrEmptyResult))

	got, err := SelectSample(records, allCriteria(10), NewSampleRNG(seed(1)))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// ==================== Filter Tests ====================

func TestSelectSample_RequiresSpectra(t *testing.T) {
	records := makeRecords(3)
	for i := range records {
		records[i].Has1D = false
	}
	_, err := SelectSample(records, allCriteria(100), nil)

	var empty *models.EmptySelectionError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, "spectrum availability", empty.Stage)
}

func TestSelectSample_Verification(t *testing.T) {
	records := makeRecords(4)
	records[1].Verified = 1

	c := allCriteria(100)
	c.Verified = VerifiedUnverified
	got, err := SelectSample(records, c, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2, 3}, ids(got))

	c.Verified = VerifiedOnly
	got, err = SelectSample(records, c, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(got))

	records[1].Verified = 0
	_, err = SelectSample(records, c, nil)
	var empty *models.EmptySelectionError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, "verification", empty.Stage)

	c.Verified = "maybe"
	_, err = SelectSample(records, c, nil)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestSelectSample_RedshiftRangeInclusive(t *testing.T) {
	records := makeRecords(4)
	records[0].SpecZ = 0.1
	records[1].SpecZ = 0.5
	records[2].SpecZ = 1.0
	records[3].SpecZ = 1.01

	c := allCriteria(100)
	c.ZMin, c.ZMax = 0.5, 1.0
	got, err := SelectSample(records, c, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(got))

	c.ZMin, c.ZMax = 3, 4
	_, err = SelectSample(records, c, nil)
	var empty *models.EmptySelectionError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, "redshift range", empty.Stage)
}

func TestSelectSample_PhotFilter(t *testing.T) {
	records := makeRecords(4)
	for i := range records {
		records[i].SpecZ = 1.0
	}
	// residuals 0.05, 0.25 and 50
	records[0].Phot = &models.PhotMatch{Z: 1.1}
	records[1].Phot = &models.PhotMatch{Z: 1.5}
	records[2].Phot = &models.PhotMatch{Z: -99}
	records[3].Phot = &models.PhotMatch{Masked: true, Separation: 3}

	run := func(mode PhotFilter) []int64 {
		c := allCriteria(100)
		c.Phot = mode
		got, err := SelectSample(records, c, nil)
		require.NoError(t, err, mode)
		return ids(got)
	}

	assert.Equal(t, []int64{0, 1, 2, 3}, run(PhotIgnore))
	assert.Equal(t, []int64{1, 2}, run(PhotOutlier))
	assert.Equal(t, []int64{0}, run(PhotInlier))
	assert.Equal(t, []int64{2}, run(PhotNone))
}

func TestSelectSample_PhotFilterInvalid(t *testing.T) {
	c := allCriteria(100)
	c.Phot = "sideways"
	_, err := SelectSample(makeRecords(2), c, nil)

	var invalid *models.InvalidFilterModeError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "sideways", invalid.Mode)
}

func TestSelectSample_PhotFilterNeedsMatch(t *testing.T) {
	c := allCriteria(100)
	c.Phot = PhotOutlier
	_, err := SelectSample(makeRecords(2), c, nil)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestSelectSample_Quality(t *testing.T) {
	records := makeRecords(4)
	records[0].Flag = 1
	records[1].Flag = 2
	records[2].Flag = models.FlagUnmappable

	c := allCriteria(100)
	c.Quality = []int{1, 2}
	got, err := SelectSample(records, c, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, ids(got))

	c.Quality = []int{5}
	_, err = SelectSample(records, c, nil)
	var empty *models.EmptySelectionError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, "quality flag", empty.Stage)
}

func TestPhotResidual(t *testing.T) {
	assert.InDelta(t, 0.25, PhotResidual(1, 1.5), 1e-12)
	assert.InDelta(t, 0.25, PhotResidual(1, 0.5), 1e-12)
}
