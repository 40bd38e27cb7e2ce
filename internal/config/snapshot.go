package config

import (
	"strconv"
	"strings"

	"github.com/kilupskalvis/zcurate/internal/models"
)

// VolatileKeys are snapshot keys that may legitimately differ between the
// session that wrote a buffer and the session resuming it.
var VolatileKeys = []string{"review.mode"}

// Snapshot renders the configuration keys that decide review-set membership
// and layout. The spectra directory is not part of it: spectrum availability
// is fixed in the working catalog, and ZCURATE_SPECTRA_DIR may relocate it.
func (c *Config) Snapshot() models.Snapshot {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	quality := make([]string, len(c.Review.Quality))
	for i, q := range c.Review.Quality {
		quality[i] = strconv.Itoa(q)
	}
	seed := "none"
	if c.Review.Seed != nil {
		seed = strconv.FormatInt(*c.Review.Seed, 10)
	}

	return models.Snapshot{
		"working.path":          c.Working.Path,
		"working.format":        c.Working.Format,
		"final.path":            c.Final.Path,
		"spectra.profile":       c.Spectra.Profile,
		"review.mode":           c.Review.Mode,
		"review.verified":       c.Review.Verified,
		"review.zmin":           f(c.Review.ZMin),
		"review.zmax":           f(c.Review.ZMax),
		"review.phot_filter":    c.Review.PhotFilter,
		"review.quality":        strings.Join(quality, ","),
		"review.sample_percent": f(c.Review.SamplePercent),
		"review.seed":           seed,
		"review.buffer":         c.Review.Buffer,
		"review.output.path":    c.Review.Output.Path,
	}
}
