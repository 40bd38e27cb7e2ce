package core

import (
	"sort"
	"strconv"

	"github.com/kilupskalvis/zcurate/internal/catalog"
	"github.com/kilupskalvis/zcurate/internal/config"
	"github.com/kilupskalvis/zcurate/internal/models"
)

// DefaultClasses is the decimal-code rule set used when flags.classes is empty
var DefaultClasses = map[string][]string{
	"1": {"1"},
	"2": {"2"},
	"3": {"3", "9"},
	"4": {"4"},
}

// FlagParamsFromConfig builds normalization parameters from the flags section
func FlagParamsFromConfig(cfg *config.Config) (FlagScheme, FlagParams, error) {
	classes := cfg.Flags.Classes
	if len(classes) == 0 {
		classes = DefaultClasses
	}
	p := FlagParams{
		LowerLimit: cfg.Flags.LowerLimit,
		UpperLimit: cfg.Flags.UpperLimit,
		ZeroLimit:  cfg.Flags.ZeroLimit,
		Rules:      make(map[int][]string, len(classes)),
	}
	keys := make([]string, 0, len(classes))
	for k := range classes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		class, err := strconv.Atoi(k)
		if err != nil || !models.ValidFlag(class) {
			return "", p, models.Configf("flags.classes: %q is not a class between %d and %d", k, models.MinFlag, models.MaxFlag)
		}
		p.Rules[class] = classes[k]
	}
	return FlagScheme(cfg.Flags.Scheme), p, nil
}

// CriteriaFromConfig builds selection criteria from the review section
func CriteriaFromConfig(cfg *config.Config) Criteria {
	return Criteria{
		Verified: VerifiedMode(cfg.Review.Verified),
		ZMin:     cfg.Review.ZMin,
		ZMax:     cfg.Review.ZMax,
		Phot:     PhotFilter(cfg.Review.PhotFilter),
		Quality:  cfg.Review.Quality,
		Percent:  cfg.Review.SamplePercent,
	}
}

// InputLocation is the raw spectroscopic catalog
func InputLocation(cfg *config.Config) catalog.Location {
	return catalog.Location{Path: cfg.Resolve(cfg.Catalog.Path), Format: cfg.Catalog.Format, Table: cfg.Catalog.Table}
}

// PhotLocation is the photometric-redshift catalog
func PhotLocation(cfg *config.Config) catalog.Location {
	return catalog.Location{Path: cfg.Resolve(cfg.Match.Path), Format: cfg.Match.Format, Table: cfg.Match.Table}
}

// WorkingLocation is the prepared working catalog
func WorkingLocation(cfg *config.Config) catalog.Location {
	return fileLocation(cfg, cfg.Working)
}

// OutputLocation is the catalog a review session saves its progress into
func OutputLocation(cfg *config.Config) catalog.Location {
	return fileLocation(cfg, cfg.Review.Output)
}

// FinalLocation is the persistent master catalog
func FinalLocation(cfg *config.Config) catalog.Location {
	return fileLocation(cfg, cfg.Final)
}

// BufferPath is the session buffer file
func BufferPath(cfg *config.Config) string {
	return cfg.Resolve(cfg.Review.Buffer)
}

func fileLocation(cfg *config.Config, f config.FileConfig) catalog.Location {
	return catalog.Location{Path: cfg.Resolve(f.Path), Format: f.Format, Table: f.Table}
}
