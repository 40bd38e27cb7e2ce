package core

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/zcurate/internal/models"
)

// ==================== Angle Tests ====================

func TestParseAngle(t *testing.T) {
	cases := map[string]float64{
		"1arcsec":    1,
		"0.5 arcmin": 30,
		"2e-4deg":    0.72,
		"2":          2,
		" 1.5\" ":    1.5,
		"1'":         60,
	}
	for in, want := range cases {
		a, err := ParseAngle(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, a.Arcsec(), 1e-9, in)
	}

	for _, bad := range []string{"", "x", "-1arcsec", "1 parsec"} {
		_, err := ParseAngle(bad)
		assert.True(t, errors.Is(err, models.ErrConfiguration), bad)
	}
}

// ==================== Match Tests ====================

func TestMatchSky_AcceptanceRadius(t *testing.T) {
	primary := []SkyPoint{
		{RA: 150, Dec: 2},
		{RA: 151, Dec: 2},
	}
	secondary := []SkyPoint{
		{RA: 150, Dec: 2 + 0.5/3600},
		{RA: 151, Dec: 2 + 2.0/3600},
		{RA: 10, Dec: -30},
	}

	res, err := MatchSky(primary, secondary, 1)
	require.NoError(t, err)
	require.Len(t, res, 2)

	assert.Equal(t, 0, res[0].Index)
	assert.InDelta(t, 0.5, res[0].Separation, 1e-4)
	assert.False(t, res[0].Masked)

	assert.Equal(t, 1, res[1].Index)
	assert.InDelta(t, 2.0, res[1].Separation, 1e-4)
	assert.True(t, res[1].Masked)
}

func TestMatchSky_SharedSecondary(t *testing.T) {
	primary := []SkyPoint{{RA: 20, Dec: 10}, {RA: 20, Dec: 10 + 0.2/3600}}
	secondary := []SkyPoint{{RA: 20, Dec: 10 + 0.1/3600}, {RA: 40, Dec: 10}}

	res, err := MatchSky(primary, secondary, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, res[0].Index)
	assert.Equal(t, 0, res[1].Index)
}

func TestMatchSky_AgreesWithBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	point := func() SkyPoint {
		return SkyPoint{RA: 149.5 + rng.Float64(), Dec: 1.5 + rng.Float64()}
	}
	primary := make([]SkyPoint, 200)
	for i := range primary {
		primary[i] = point()
	}
	secondary := make([]SkyPoint, 500)
	for i := range secondary {
		secondary[i] = point()
	}

	res, err := MatchSky(primary, secondary, 5)
	require.NoError(t, err)

	for i, p := range primary {
		best, bestSep := -1, 0.0
		for j, s := range secondary {
			if d := Separation(p, s); best < 0 || d < bestSep {
				best, bestSep = j, d
			}
		}
		assert.Equal(t, best, res[i].Index, "primary %d", i)
		assert.InDelta(t, bestSep, res[i].Separation, 1e-6)
	}
}

func TestMatchSky_EmptySecondary(t *testing.T) {
	_, err := MatchSky([]SkyPoint{{RA: 1, Dec: 1}}, nil, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrEmptyResult))
}

func TestAttachPhotometry(t *testing.T) {
	records := []models.CatalogRecord{
		models.NewCatalogRecord(0, "a"),
		models.NewCatalogRecord(1, "b"),
	}
	records[0].RA, records[0].Dec = 150, 2
	records[1].RA, records[1].Dec = 151, 2

	phot := []PhotSource{
		{ID: "p0", RA: 150, Dec: 2 + 0.5/3600, Z: 0.8},
		{ID: "p1", RA: 151, Dec: 2 + 2.0/3600, Z: 1.2},
	}
	require.NoError(t, AttachPhotometry(records, phot, 1))

	z, ok := records[0].PhotZ()
	require.True(t, ok)
	assert.Equal(t, 0.8, z)
	assert.Equal(t, "p0", records[0].Phot.ID)

	_, ok = records[1].PhotZ()
	assert.False(t, ok)
	require.NotNil(t, records[1].Phot)
	assert.True(t, records[1].Phot.Masked)
	assert.Empty(t, records[1].Phot.ID)
	assert.InDelta(t, 2.0, records[1].Phot.Separation, 1e-4)
}
