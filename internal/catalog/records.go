package catalog

import (
	"fmt"

	"github.com/kilupskalvis/zcurate/internal/models"
)

// Working catalog column names
const (
	ColInternalID  = "internal_id"
	ColID          = "id"
	ColRA          = "ra"
	ColDec         = "dec"
	ColZSpec       = "zspec"
	ColFlagRaw     = "flag_raw"
	ColFlag        = "flag"
	ColBroadline   = "broadline"
	ColSpectrum    = "spectrum_file"
	ColHas1D       = "has_1d"
	ColIDPhot      = "id_phot"
	ColRAPhot      = "ra_phot"
	ColDecPhot     = "dec_phot"
	ColZPhot       = "z_phot"
	ColSeparation  = "separation"
	ColVerified    = "verified"
	ColUpdatedZ    = "updated_zspec"
	ColUpdatedFlag = "updated_flag"
)

var coreColumns = []string{
	ColInternalID, ColID, ColRA, ColDec, ColZSpec, ColFlagRaw, ColFlag, ColBroadline, ColSpectrum, ColHas1D,
}

var photColumns = []string{ColIDPhot, ColRAPhot, ColDecPhot, ColZPhot, ColSeparation}

var verificationColumns = []string{ColVerified, ColUpdatedZ, ColUpdatedFlag}

// VerificationDefaults maps each verification column to its sentinel default
var VerificationDefaults = map[string]string{
	ColVerified:    "0",
	ColUpdatedZ:    "-99",
	ColUpdatedFlag: "-99",
}

// Catalog is a typed working catalog
type Catalog struct {
	Records      []models.CatalogRecord
	ExtraColumns []string
	Matched      bool
}

// Find returns the record with the given internal id
func (c *Catalog) Find(internalID int64) (*models.CatalogRecord, bool) {
	// internal ids are dense positions unless the catalog was reordered
	if internalID >= 0 && internalID < int64(len(c.Records)) && c.Records[internalID].InternalID == internalID {
		return &c.Records[internalID], true
	}
	for i := range c.Records {
		if c.Records[i].InternalID == internalID {
			return &c.Records[i], true
		}
	}
	return nil, false
}

func isKnownColumn(name string) bool {
	for _, group := range [][]string{coreColumns, photColumns, verificationColumns} {
		for _, c := range group {
			if c == name {
				return true
			}
		}
	}
	return false
}

// Encode renders a catalog as a table. Masked photometric cells are left empty.
func Encode(c *Catalog) *Table {
	cols := append([]string(nil), coreColumns...)
	if c.Matched {
		cols = append(cols, photColumns...)
	}
	cols = append(cols, verificationColumns...)
	cols = append(cols, c.ExtraColumns...)
	t := NewTable(cols...)

	for i := range c.Records {
		r := &c.Records[i]
		has1d := "0"
		if r.Has1D {
			has1d = "1"
		}
		row := []string{
			FormatInt(r.InternalID),
			r.ID,
			FormatFloat(r.RA),
			FormatFloat(r.Dec),
			FormatFloat(r.SpecZ),
			r.RawFlag,
			FormatInt(int64(r.Flag)),
			FormatInt(int64(r.Broadline)),
			r.SpectrumFile,
			has1d,
		}
		if c.Matched {
			switch {
			case r.Phot == nil:
				row = append(row, "", "", "", "", "")
			case r.Phot.Masked:
				row = append(row, "", "", "", "", FormatFloat(r.Phot.Separation))
			default:
				row = append(row, r.Phot.ID, FormatFloat(r.Phot.RA), FormatFloat(r.Phot.Dec),
					FormatFloat(r.Phot.Z), FormatFloat(r.Phot.Separation))
			}
		}
		row = append(row,
			FormatInt(int64(r.Verified)),
			FormatFloat(r.UpdatedZ),
			FormatInt(int64(r.UpdatedFlag)),
		)
		for _, e := range c.ExtraColumns {
			row = append(row, r.Extra[e])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Decode parses a working catalog table. Verification columns are optional and
// fall back to their sentinel defaults.
func Decode(t *Table) (*Catalog, error) {
	if err := t.RequireColumns(coreColumns...); err != nil {
		return nil, models.Configf("not a working catalog: %v", err)
	}
	c := &Catalog{Matched: t.HasColumn(ColZPhot) && t.HasColumn(ColSeparation)}
	for _, col := range t.Columns {
		if !isKnownColumn(col) {
			c.ExtraColumns = append(c.ExtraColumns, col)
		}
	}

	c.Records = make([]models.CatalogRecord, 0, t.Len())
	for i := range t.Rows {
		rec, err := decodeRow(t, i, c)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		c.Records = append(c.Records, rec)
	}
	return c, nil
}

func decodeRow(t *Table, i int, c *Catalog) (models.CatalogRecord, error) {
	var r models.CatalogRecord
	var err error

	if r.InternalID, err = ParseInt(t.Get(i, ColInternalID)); err != nil {
		return r, fmt.Errorf("%s: %w", ColInternalID, err)
	}
	r.ID = t.Get(i, ColID)
	if r.RA, err = ParseFloat(t.Get(i, ColRA)); err != nil {
		return r, fmt.Errorf("%s: %w", ColRA, err)
	}
	if r.Dec, err = ParseFloat(t.Get(i, ColDec)); err != nil {
		return r, fmt.Errorf("%s: %w", ColDec, err)
	}
	if r.SpecZ, err = ParseFloat(t.Get(i, ColZSpec)); err != nil {
		return r, fmt.Errorf("%s: %w", ColZSpec, err)
	}
	r.RawFlag = t.Get(i, ColFlagRaw)
	flag, err := ParseInt(t.Get(i, ColFlag))
	if err != nil {
		return r, fmt.Errorf("%s: %w", ColFlag, err)
	}
	r.Flag = int(flag)
	broad, err := intOr(t.Get(i, ColBroadline), 0)
	if err != nil {
		return r, fmt.Errorf("%s: %w", ColBroadline, err)
	}
	r.Broadline = int(broad)
	r.SpectrumFile = t.Get(i, ColSpectrum)
	r.Has1D = ParseBool(t.Get(i, ColHas1D))

	if c.Matched {
		r.Phot, err = decodePhot(t, i)
		if err != nil {
			return r, err
		}
	}

	verified, err := intOr(t.Get(i, ColVerified), 0)
	if err != nil {
		return r, fmt.Errorf("%s: %w", ColVerified, err)
	}
	r.Verified = int(verified)
	if r.UpdatedZ, err = floatOr(t.Get(i, ColUpdatedZ), models.UnsetRedshift); err != nil {
		return r, fmt.Errorf("%s: %w", ColUpdatedZ, err)
	}
	uflag, err := intOr(t.Get(i, ColUpdatedFlag), models.UnsetUpdatedFlag)
	if err != nil {
		return r, fmt.Errorf("%s: %w", ColUpdatedFlag, err)
	}
	r.UpdatedFlag = int(uflag)

	if len(c.ExtraColumns) > 0 {
		r.Extra = make(map[string]string, len(c.ExtraColumns))
		for _, e := range c.ExtraColumns {
			r.Extra[e] = t.Get(i, e)
		}
	}
	return r, nil
}

func decodePhot(t *Table, i int) (*models.PhotMatch, error) {
	sepCell := t.Get(i, ColSeparation)
	if sepCell == "" {
		return nil, nil
	}
	sep, err := ParseFloat(sepCell)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ColSeparation, err)
	}
	p := &models.PhotMatch{Separation: sep}
	zCell := t.Get(i, ColZPhot)
	if zCell == "" {
		p.Masked = true
		return p, nil
	}
	p.ID = t.Get(i, ColIDPhot)
	if p.Z, err = ParseFloat(zCell); err != nil {
		return nil, fmt.Errorf("%s: %w", ColZPhot, err)
	}
	if p.RA, err = floatOr(t.Get(i, ColRAPhot), 0); err != nil {
		return nil, fmt.Errorf("%s: %w", ColRAPhot, err)
	}
	if p.Dec, err = floatOr(t.Get(i, ColDecPhot), 0); err != nil {
		return nil, fmt.Errorf("%s: %w", ColDecPhot, err)
	}
	return p, nil
}

func intOr(s string, def int64) (int64, error) {
	if s == "" {
		return def, nil
	}
	return ParseInt(s)
}

func floatOr(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	return ParseFloat(s)
}

// ReadWorking reads and decodes a working catalog
func ReadWorking(loc Location) (*Catalog, error) {
	t, err := Read(loc)
	if err != nil {
		return nil, err
	}
	c, err := Decode(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc, err)
	}
	return c, nil
}

// WriteWorking encodes and writes a working catalog
func WriteWorking(loc Location, c *Catalog) error {
	return Write(loc, Encode(c))
}

// WorkingColumns lists every column the working catalog layout defines
func WorkingColumns() []string {
	cols := append([]string(nil), coreColumns...)
	cols = append(cols, photColumns...)
	return append(cols, verificationColumns...)
}
