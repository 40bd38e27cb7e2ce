package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/kilupskalvis/zcurate/internal/catalog"
	"github.com/kilupskalvis/zcurate/internal/models"
)

// FieldMap copies edits column Source into master column Dest; master rows that
// lack Dest get Default.
type FieldMap struct {
	Dest    string
	Source  string
	Default string
}

// MergeOptions configures MergeEdits
type MergeOptions struct {
	KeyColumn      string
	VerifiedColumn string
	Fields         []FieldMap
}

// BufferMapping merges a session buffer into a catalog
var BufferMapping = MergeOptions{
	KeyColumn:      catalog.ColInternalID,
	VerifiedColumn: "verified_temp",
	Fields: []FieldMap{
		{Dest: catalog.ColUpdatedZ, Source: "z_temp", Default: catalog.VerificationDefaults[catalog.ColUpdatedZ]},
		{Dest: catalog.ColUpdatedFlag, Source: "flag_temp", Default: catalog.VerificationDefaults[catalog.ColUpdatedFlag]},
		{Dest: catalog.ColVerified, Source: "verified_temp", Default: catalog.VerificationDefaults[catalog.ColVerified]},
	},
}

// CatalogMapping merges a reviewed catalog into the final catalog
var CatalogMapping = MergeOptions{
	KeyColumn:      catalog.ColInternalID,
	VerifiedColumn: catalog.ColVerified,
	Fields: []FieldMap{
		{Dest: catalog.ColUpdatedZ, Source: catalog.ColUpdatedZ, Default: catalog.VerificationDefaults[catalog.ColUpdatedZ]},
		{Dest: catalog.ColUpdatedFlag, Source: catalog.ColUpdatedFlag, Default: catalog.VerificationDefaults[catalog.ColUpdatedFlag]},
		{Dest: catalog.ColVerified, Source: catalog.ColVerified, Default: catalog.VerificationDefaults[catalog.ColVerified]},
	},
}

// MergeEdits copies the mapped fields of every verified edits row into the
// master row with the same key. The master is not modified; a new table is
// returned. Edits whose key is missing from the master abort the merge, so
// master rows are never dropped or appended.
func MergeEdits(master, edits *catalog.Table, opts MergeOptions) (*catalog.Table, error) {
	if err := master.RequireColumns(opts.KeyColumn); err != nil {
		return nil, models.Configf("master catalog: %v", err)
	}
	required := []string{opts.KeyColumn, opts.VerifiedColumn}
	for _, f := range opts.Fields {
		required = append(required, f.Source)
	}
	if err := edits.RequireColumns(required...); err != nil {
		return nil, models.Configf("edits: %v", err)
	}

	out := master.Clone()
	for _, f := range opts.Fields {
		out.AddColumn(f.Dest, f.Default)
	}
	// rows written before the column existed may hold empty cells
	for _, f := range opts.Fields {
		c := out.ColumnIndex(f.Dest)
		for _, row := range out.Rows {
			if row[c] == "" {
				row[c] = f.Default
			}
		}
	}

	byKey := make(map[string]int, out.Len())
	keyCol := out.ColumnIndex(opts.KeyColumn)
	for i, row := range out.Rows {
		k := normalizeKey(row[keyCol])
		if _, dup := byKey[k]; dup {
			return nil, models.Consistencyf("master catalog has duplicate %s %s", opts.KeyColumn, row[keyCol])
		}
		byKey[k] = i
	}

	var unmatched []string
	for i := range edits.Rows {
		if !isOne(edits.Get(i, opts.VerifiedColumn)) {
			continue
		}
		key := edits.Get(i, opts.KeyColumn)
		target, ok := byKey[normalizeKey(key)]
		if !ok {
			unmatched = append(unmatched, key)
			continue
		}
		for _, f := range opts.Fields {
			if err := out.Set(target, f.Dest, edits.Get(i, f.Source)); err != nil {
				return nil, err
			}
		}
	}
	if len(unmatched) > 0 {
		return nil, &models.UnmatchedKeyError{Column: opts.KeyColumn, Keys: unmatched}
	}
	return out, nil
}

func normalizeKey(s string) string {
	s = strings.TrimSpace(s)
	if v, err := catalog.ParseInt(s); err == nil {
		return catalog.FormatInt(v)
	}
	return s
}

func isOne(s string) bool {
	v, err := catalog.ParseInt(s)
	return err == nil && v == 1
}

// redshiftChangeThreshold is the smallest |updated_zspec - zspec| counted as a change
const redshiftChangeThreshold = 5e-3

// BuildReport summarizes review results of a final catalog
func BuildReport(records []models.CatalogRecord) models.Report {
	var r models.Report
	r.Total = len(records)
	for i := range records {
		rec := &records[i]
		if rec.Has1D {
			r.WithSpectra++
		}
		if !rec.IsVerified() {
			continue
		}
		r.Verified++
		if rec.UpdatedFlag != rec.Flag {
			r.FlagsChanged++
		}
		if math.Abs(rec.UpdatedZ-rec.SpecZ) > redshiftChangeThreshold {
			r.RedshiftsChanged++
		}
	}
	return r
}

// FormatReport renders a report as aligned text lines
func FormatReport(r models.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sources:           %d\n", r.Total)
	fmt.Fprintf(&b, "With spectra:      %d\n", r.WithSpectra)
	fmt.Fprintf(&b, "Verified:          %d\n", r.Verified)
	fmt.Fprintf(&b, "Flags changed:     %d\n", r.FlagsChanged)
	fmt.Fprintf(&b, "Redshifts changed: %d\n", r.RedshiftsChanged)
	return b.String()
}
