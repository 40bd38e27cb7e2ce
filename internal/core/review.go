package core

import (
	"go.uber.org/zap"

	"github.com/kilupskalvis/zcurate/internal/catalog"
	"github.com/kilupskalvis/zcurate/internal/config"
	"github.com/kilupskalvis/zcurate/internal/models"
)

// OverlayVerification copies the verification fields of every verified final
// record onto the working record with the same internal id. It returns the
// number of records updated.
func OverlayVerification(records []models.CatalogRecord, final *catalog.Catalog) (int, error) {
	byID := make(map[int64]int, len(records))
	for i := range records {
		byID[records[i].InternalID] = i
	}

	n := 0
	for _, f := range final.Records {
		if !f.IsVerified() {
			continue
		}
		i, ok := byID[f.InternalID]
		if !ok {
			return n, models.Consistencyf("final catalog source %s (internal_id %d) is not in the working catalog", f.ID, f.InternalID)
		}
		if records[i].ID != f.ID {
			return n, models.Consistencyf("internal_id %d is %s in the working catalog but %s in the final catalog",
				f.InternalID, records[i].ID, f.ID)
		}
		records[i].Verified = f.Verified
		records[i].UpdatedZ = f.UpdatedZ
		records[i].UpdatedFlag = f.UpdatedFlag
		n++
	}
	return n, nil
}

// SelectReviewSet loads the working catalog, overlays the verification state
// of the final catalog when one exists, and runs sample selection.
func SelectReviewSet(cfg *config.Config, logger *zap.Logger) ([]models.CatalogRecord, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	records, err := loadReviewRecords(cfg, logger)
	if err != nil {
		return nil, err
	}

	set, err := SelectSample(records, CriteriaFromConfig(cfg), NewSampleRNG(cfg.Review.Seed))
	if err != nil {
		return nil, err
	}
	logger.Info("review set selected",
		zap.Int("working", len(records)),
		zap.Int("selected", len(set)),
		zap.Float64("sample_percent", cfg.Review.SamplePercent),
	)
	return set, nil
}

// ReviewSetFromIDs rebuilds a review set from its ordered internal ids
func ReviewSetFromIDs(cfg *config.Config, ids []int64, logger *zap.Logger) ([]models.CatalogRecord, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	records, err := loadReviewRecords(cfg, logger)
	if err != nil {
		return nil, err
	}
	c := &catalog.Catalog{Records: records}

	set := make([]models.CatalogRecord, 0, len(ids))
	for _, id := range ids {
		rec, ok := c.Find(id)
		if !ok {
			return nil, models.Consistencyf("review set source with internal_id %d is not in the working catalog", id)
		}
		set = append(set, *rec)
	}
	return set, nil
}

func loadReviewRecords(cfg *config.Config, logger *zap.Logger) ([]models.CatalogRecord, error) {
	working, err := catalog.ReadWorking(WorkingLocation(cfg))
	if err != nil {
		return nil, err
	}

	finalLoc := FinalLocation(cfg)
	if finalLoc.Exists() {
		final, err := catalog.ReadWorking(finalLoc)
		if err != nil {
			return nil, err
		}
		n, err := OverlayVerification(working.Records, final)
		if err != nil {
			return nil, err
		}
		logger.Debug("verification state overlaid", zap.String("final", finalLoc.Path), zap.Int("records", n))
	}
	return working.Records, nil
}

// SaveProgress merges the committed buffer rows into the session output
// catalog. The output starts as a copy of the working catalog.
func SaveProgress(cfg *config.Config, buffer *catalog.Table, logger *zap.Logger) (catalog.Location, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := OutputLocation(cfg)
	master, err := readMaster(out, WorkingLocation(cfg))
	if err != nil {
		return out, err
	}
	merged, err := MergeEdits(master, buffer, BufferMapping)
	if err != nil {
		return out, err
	}
	if err := catalog.Write(out, merged); err != nil {
		return out, err
	}
	logger.Info("progress saved", zap.String("output", out.String()), zap.Int("buffer_rows", buffer.Len()))
	return out, nil
}

// Finalize merges the verified rows of the session output catalog into the
// final catalog and reports on the result. The final catalog starts as a copy
// of the working catalog.
func Finalize(cfg *config.Config, logger *zap.Logger) (catalog.Location, models.Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	final := FinalLocation(cfg)
	edits, err := catalog.Read(OutputLocation(cfg))
	if err != nil {
		return final, models.Report{}, err
	}
	master, err := readMaster(final, WorkingLocation(cfg))
	if err != nil {
		return final, models.Report{}, err
	}

	merged, err := MergeEdits(master, edits, CatalogMapping)
	if err != nil {
		return final, models.Report{}, err
	}
	c, err := catalog.Decode(merged)
	if err != nil {
		return final, models.Report{}, err
	}
	if err := catalog.Write(final, merged); err != nil {
		return final, models.Report{}, err
	}

	report := BuildReport(c.Records)
	logger.Info("catalog finalized",
		zap.String("final", final.String()),
		zap.Int("verified", report.Verified),
		zap.Int("flags_changed", report.FlagsChanged),
		zap.Int("redshifts_changed", report.RedshiftsChanged),
	)
	return final, report, nil
}

// ReportFor decodes any working-layout catalog and reports on it
func ReportFor(loc catalog.Location) (models.Report, error) {
	c, err := catalog.ReadWorking(loc)
	if err != nil {
		return models.Report{}, err
	}
	return BuildReport(c.Records), nil
}

func readMaster(primary, fallback catalog.Location) (*catalog.Table, error) {
	if primary.Exists() {
		return catalog.Read(primary)
	}
	return catalog.Read(fallback)
}
