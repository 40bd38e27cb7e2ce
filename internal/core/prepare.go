package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kilupskalvis/zcurate/internal/catalog"
	"github.com/kilupskalvis/zcurate/internal/config"
	"github.com/kilupskalvis/zcurate/internal/models"
)

// PrepareStats summarizes a preparation run
type PrepareStats struct {
	Input       int
	Deselected  int
	OutsideBox  int
	Kept        int
	WithSpectra int
	Unmappable  int
	Matched     int
	Masked      int
}

// Prepare builds the working catalog from the raw spectroscopic table: rows
// are filtered by the selection column and bounding box, assigned dense
// internal ids, flag-normalized, checked for spectra on disk and optionally
// cross-matched against the photometric table (nil when matching is off).
func Prepare(cfg *config.Config, raw, phot *catalog.Table, logger *zap.Logger) (*catalog.Catalog, PrepareStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var stats PrepareStats
	cc := cfg.Catalog

	scheme, params, err := FlagParamsFromConfig(cfg)
	if err != nil {
		return nil, stats, err
	}

	required := []string{cc.IDColumn, cc.RAColumn, cc.DecColumn, cc.ZColumn, cc.FlagColumn, cc.SpectrumColumn}
	required = append(required, cc.KeepColumns...)
	if cc.SelectionColumn != "" {
		required = append(required, cc.SelectionColumn)
	}
	if err := raw.RequireColumns(required...); err != nil {
		return nil, stats, models.Configf("input catalog %s: %v", cc.Path, err)
	}
	for _, k := range cc.KeepColumns {
		if reservedColumn(k) {
			return nil, stats, models.Configf("catalog.keep_columns: %q collides with a working catalog column", k)
		}
	}

	stats.Input = raw.Len()
	out := &catalog.Catalog{ExtraColumns: cc.KeepColumns}
	var rawFlags []string

	for i := range raw.Rows {
		if cc.SelectionColumn != "" && !catalog.ParseBool(raw.Get(i, cc.SelectionColumn)) {
			stats.Deselected++
			continue
		}

		ra, err := catalog.ParseFloat(raw.Get(i, cc.RAColumn))
		if err != nil {
			return nil, stats, fmt.Errorf("input row %d: %s: %w", i, cc.RAColumn, err)
		}
		dec, err := catalog.ParseFloat(raw.Get(i, cc.DecColumn))
		if err != nil {
			return nil, stats, fmt.Errorf("input row %d: %s: %w", i, cc.DecColumn, err)
		}
		if box := cc.BoundingBox; box.Enabled &&
			(ra < box.RAMin || ra > box.RAMax || dec < box.DecMin || dec > box.DecMax) {
			stats.OutsideBox++
			continue
		}
		z, err := catalog.ParseFloat(raw.Get(i, cc.ZColumn))
		if err != nil {
			return nil, stats, fmt.Errorf("input row %d: %s: %w", i, cc.ZColumn, err)
		}

		rec := models.NewCatalogRecord(int64(len(out.Records)), raw.Get(i, cc.IDColumn))
		rec.RA, rec.Dec, rec.SpecZ = ra, dec, z
		rec.RawFlag = raw.Get(i, cc.FlagColumn)
		rec.SpectrumFile = strings.TrimSpace(raw.Get(i, cc.SpectrumColumn))
		rec.Has1D = spectrumExists(cfg.Resolve(cfg.Spectra.Dir), rec.SpectrumFile)
		if len(cc.KeepColumns) > 0 {
			rec.Extra = make(map[string]string, len(cc.KeepColumns))
			for _, k := range cc.KeepColumns {
				rec.Extra[k] = raw.Get(i, k)
			}
		}
		out.Records = append(out.Records, rec)
		rawFlags = append(rawFlags, rec.RawFlag)
	}

	if len(out.Records) == 0 {
		return nil, stats, &models.EmptySelectionError{Stage: "catalog preparation", Criteria: "selection column and bounding box"}
	}

	flags, broad, err := NormalizeFlags(rawFlags, scheme, params)
	if err != nil {
		return nil, stats, err
	}
	for i := range out.Records {
		out.Records[i].Flag = flags[i]
		out.Records[i].Broadline = broad[i]
		if flags[i] == models.FlagUnmappable {
			stats.Unmappable++
		}
		if out.Records[i].Has1D {
			stats.WithSpectra++
		}
	}

	if cfg.Match.Enabled {
		if err := matchPhotometry(cfg, out, phot); err != nil {
			return nil, stats, err
		}
		for i := range out.Records {
			if _, ok := out.Records[i].PhotZ(); ok {
				stats.Matched++
			} else {
				stats.Masked++
			}
		}
	}

	stats.Kept = len(out.Records)
	logger.Info("catalog prepared",
		zap.Int("input", stats.Input),
		zap.Int("kept", stats.Kept),
		zap.Int("with_spectra", stats.WithSpectra),
		zap.Int("unmappable_flags", stats.Unmappable),
		zap.Int("phot_matched", stats.Matched),
		zap.Int("phot_masked", stats.Masked),
	)
	return out, stats, nil
}

func matchPhotometry(cfg *config.Config, out *catalog.Catalog, phot *catalog.Table) error {
	mc := cfg.Match
	if phot == nil || phot.Len() == 0 {
		return &models.EmptyMatchCatalogError{Path: mc.Path}
	}
	maxSep, err := ParseAngle(mc.MaxSeparation)
	if err != nil {
		return fmt.Errorf("match.max_separation: %w", err)
	}
	if err := phot.RequireColumns(mc.IDColumn, mc.RAColumn, mc.DecColumn, mc.ZColumn); err != nil {
		return models.Configf("photometric catalog %s: %v", mc.Path, err)
	}

	sources := make([]PhotSource, 0, phot.Len())
	for i := range phot.Rows {
		var s PhotSource
		s.ID = phot.Get(i, mc.IDColumn)
		if s.RA, err = catalog.ParseFloat(phot.Get(i, mc.RAColumn)); err != nil {
			return fmt.Errorf("photometric row %d: %s: %w", i, mc.RAColumn, err)
		}
		if s.Dec, err = catalog.ParseFloat(phot.Get(i, mc.DecColumn)); err != nil {
			return fmt.Errorf("photometric row %d: %s: %w", i, mc.DecColumn, err)
		}
		if s.Z, err = catalog.ParseFloat(phot.Get(i, mc.ZColumn)); err != nil {
			return fmt.Errorf("photometric row %d: %s: %w", i, mc.ZColumn, err)
		}
		sources = append(sources, s)
	}

	if err := AttachPhotometry(out.Records, sources, maxSep); err != nil {
		if e, ok := err.(*models.EmptyMatchCatalogError); ok {
			e.Path = mc.Path
		}
		return err
	}
	out.Matched = true
	return nil
}

func spectrumExists(dir, name string) bool {
	if name == "" {
		return false
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, name)
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func reservedColumn(name string) bool {
	for _, c := range catalog.WorkingColumns() {
		if c == name {
			return true
		}
	}
	return false
}
