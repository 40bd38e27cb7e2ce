package models

// Sentinel values used for unmappable flags and unset verification fields.
const (
	FlagUnmappable   = -99
	UnsetRedshift    = -99.0
	UnsetUpdatedFlag = -99
)

// MinFlag and MaxFlag bound the normalized quality scale.
const (
	MinFlag = 0
	MaxFlag = 5
)

// PhotMatch holds the photometric counterpart attached by the sky cross-match
type PhotMatch struct {
	ID         string  `json:"id"`
	RA         float64 `json:"ra"`
	Dec        float64 `json:"dec"`
	Z          float64 `json:"z"`
	Separation float64 `json:"separation"` // arcsec
	Masked     bool    `json:"masked"`     // separation exceeded the acceptance radius
}

// CatalogRecord represents one spectroscopic source of the working catalog
type CatalogRecord struct {
	InternalID   int64   `json:"internal_id"`
	ID           string  `json:"id"`
	RA           float64 `json:"ra"`
	Dec          float64 `json:"dec"`
	SpecZ        float64 `json:"zspec"`
	RawFlag      string  `json:"flag_raw"`
	Flag         int     `json:"flag"`
	Broadline    int     `json:"broadline"`
	SpectrumFile string  `json:"spectrum_file"`
	Has1D        bool    `json:"has_1d"`

	Phot *PhotMatch `json:"phot,omitempty"`

	Verified    int     `json:"verified"`
	UpdatedZ    float64 `json:"updated_zspec"`
	UpdatedFlag int     `json:"updated_flag"`

	Extra map[string]string `json:"extra,omitempty"`
}

// NewCatalogRecord returns a record with unset verification fields
func NewCatalogRecord(internalID int64, id string) CatalogRecord {
	return CatalogRecord{
		InternalID:  internalID,
		ID:          id,
		Flag:        FlagUnmappable,
		UpdatedZ:    UnsetRedshift,
		UpdatedFlag: UnsetUpdatedFlag,
	}
}

// PhotZ returns the photometric redshift when a usable (unmasked) match exists
func (r *CatalogRecord) PhotZ() (float64, bool) {
	if r.Phot == nil || r.Phot.Masked {
		return 0, false
	}
	return r.Phot.Z, true
}

// IsVerified reports whether the record has been verified by a reviewer
func (r *CatalogRecord) IsVerified() bool {
	return r.Verified == 1
}

// ValidFlag reports whether f lies on the normalized 0-5 scale
func ValidFlag(f int) bool {
	return f >= MinFlag && f <= MaxFlag
}
