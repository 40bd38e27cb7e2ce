package core

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/kilupskalvis/zcurate/internal/models"
)

// VerifiedMode selects records by verification status
type VerifiedMode string

const (
	VerifiedAll        VerifiedMode = "all"
	VerifiedOnly       VerifiedMode = "verified"
	VerifiedUnverified VerifiedMode = "unverified"
)

// PhotFilter selects records by agreement between spectroscopic and photometric redshift
type PhotFilter string

const (
	PhotIgnore  PhotFilter = "ignore"
	PhotOutlier PhotFilter = "outlier"
	PhotInlier  PhotFilter = "inlier"
	PhotNone    PhotFilter = "none"
)

const (
	// outlierThreshold is the normalized residual above which a source is a photo-z outlier
	outlierThreshold = 0.15
	// catastrophicThreshold is never reached by physical redshifts; the "none"
	// mode uses it to isolate broken photometric values.
	catastrophicThreshold = 7.0
)

// Criteria configures sample selection
type Criteria struct {
	Verified VerifiedMode
	ZMin     float64
	ZMax     float64
	Phot     PhotFilter
	Quality  []int
	Percent  float64
}

// NewSampleRNG returns the generator used for sampling. A nil seed draws a
// random one, so only seeded runs are reproducible.
func NewSampleRNG(seed *int64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(*seed), 0x9e3779b97f4a7c15))
}

// SelectSample runs the selection pipeline over the working catalog and returns
// the review set. Unsampled results keep catalog order; sampled results follow
// draw order.
func SelectSample(records []models.CatalogRecord, c Criteria, rng *rand.Rand) ([]models.CatalogRecord, error) {
	out := filterRecords(records, func(r *models.CatalogRecord) bool { return r.Has1D })
	if len(out) == 0 {
		return nil, &models.EmptySelectionError{Stage: "spectrum availability", Criteria: "has_1d"}
	}

	switch c.Verified {
	case VerifiedAll, "":
	case VerifiedOnly:
		out = filterRecords(out, func(r *models.CatalogRecord) bool { return r.Verified == 1 })
		if len(out) == 0 {
			return nil, &models.EmptySelectionError{Stage: "verification", Criteria: "no verified sources found"}
		}
	case VerifiedUnverified:
		out = filterRecords(out, func(r *models.CatalogRecord) bool { return r.Verified != 1 })
		if len(out) == 0 {
			return nil, &models.EmptySelectionError{Stage: "verification", Criteria: "no unverified sources found"}
		}
	default:
		return nil, models.Configf("verification mode %q is not valid (use all, verified or unverified)", c.Verified)
	}

	out = filterRecords(out, func(r *models.CatalogRecord) bool {
		return r.SpecZ >= c.ZMin && r.SpecZ <= c.ZMax
	})
	if len(out) == 0 {
		return nil, &models.EmptySelectionError{Stage: "redshift range", Criteria: fmt.Sprintf("%g <= z <= %g", c.ZMin, c.ZMax)}
	}

	out, err := filterPhot(out, c.Phot)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &models.EmptySelectionError{Stage: "photometric", Criteria: string(c.Phot)}
	}

	if len(c.Quality) > 0 {
		allowed := make(map[int]bool, len(c.Quality))
		for _, q := range c.Quality {
			allowed[q] = true
		}
		out = filterRecords(out, func(r *models.CatalogRecord) bool { return allowed[r.Flag] })
		if len(out) == 0 {
			return nil, &models.EmptySelectionError{Stage: "quality flag", Criteria: "flags " + joinInts(c.Quality)}
		}
	}

	return sampleRecords(out, c.Percent, rng)
}

// PhotResidual returns |z - zphot| / (1 + z)
func PhotResidual(z, zphot float64) float64 {
	return math.Abs(z-zphot) / (1 + z)
}

func filterPhot(records []models.CatalogRecord, mode PhotFilter) ([]models.CatalogRecord, error) {
	var keep func(d float64) bool
	switch mode {
	case PhotIgnore, "":
		return records, nil
	case PhotOutlier:
		keep = func(d float64) bool { return d > outlierThreshold }
	case PhotInlier:
		keep = func(d float64) bool { return d <= outlierThreshold }
	case PhotNone:
		keep = func(d float64) bool { return math.Abs(d) > catastrophicThreshold }
	default:
		return nil, &models.InvalidFilterModeError{Mode: string(mode)}
	}

	matched := false
	for i := range records {
		if records[i].Phot != nil {
			matched = true
			break
		}
	}
	if !matched {
		return nil, models.Configf("photometric filter %q requires a catalog prepared with photometric matching", mode)
	}

	return filterRecords(records, func(r *models.CatalogRecord) bool {
		zphot, ok := r.PhotZ()
		return ok && keep(PhotResidual(r.SpecZ, zphot))
	}), nil
}

// sampleRecords draws floor(N*percent/100) records without replacement
func sampleRecords(records []models.CatalogRecord, percent float64, rng *rand.Rand) ([]models.CatalogRecord, error) {
	n := len(records)
	k := int(math.Floor(float64(n) * percent / 100))
	if k >= n {
		return records, nil
	}
	if k < 1 {
		return nil, &models.SampleTooSmallError{Available: n, Percent: percent}
	}

	// partial Fisher-Yates: positions [0,k) hold the draw, in draw order
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		perm[i], perm[j] = perm[j], perm[i]
	}

	out := make([]models.CatalogRecord, k)
	for i := 0; i < k; i++ {
		out[i] = records[perm[i]]
	}
	return out, nil
}

func filterRecords(records []models.CatalogRecord, keep func(*models.CatalogRecord) bool) []models.CatalogRecord {
	out := make([]models.CatalogRecord, 0, len(records))
	for i := range records {
		if keep(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ",")
}
