package models

import "time"

// SessionState is the verification state of one visited review-set position
type SessionState struct {
	Idx          int     `json:"idx"`
	InternalID   int64   `json:"internal_id"`
	SourceID     string  `json:"id_"`
	Z            float64 `json:"z"`
	ZTemp        float64 `json:"z_temp"`
	ZPhot        float64 `json:"z_phot"`
	Flag         int     `json:"flag"`
	FlagTemp     int     `json:"flag_temp"`
	Verified     int     `json:"verified"`
	VerifiedTemp int     `json:"verified_temp"`
}

// NewSessionState seeds a fresh state for idx from its catalog record
func NewSessionState(idx int, rec *CatalogRecord) SessionState {
	zphot := UnsetRedshift
	if z, ok := rec.PhotZ(); ok {
		zphot = z
	}
	flag := rec.Flag
	flagTemp := flag
	if !ValidFlag(flagTemp) {
		// unmappable flags start the review at class 0
		flagTemp = MinFlag
	}
	return SessionState{
		Idx:          idx,
		InternalID:   rec.InternalID,
		SourceID:     rec.ID,
		Z:            rec.SpecZ,
		ZTemp:        rec.SpecZ,
		ZPhot:        zphot,
		Flag:         flag,
		FlagTemp:     flagTemp,
		Verified:     rec.Verified,
		VerifiedTemp: rec.Verified,
	}
}

// Snapshot is the flattened subset of configuration that determines review-set
// membership and layout. Keys are dotted config paths.
type Snapshot map[string]string

// SessionInfo describes a review session registered in the workspace store
type SessionInfo struct {
	ID          string    `json:"id"`
	BufferPath  string    `json:"buffer_path"`
	Mode        string    `json:"mode"`
	CreatedAt   time.Time `json:"created_at"`
	LastOpened  time.Time `json:"last_opened"`
	ReviewSet   []int64   `json:"review_set"`
	CommitCount int       `json:"commit_count"`
}

// ShortID returns the first 8 characters of the session ID
func (s *SessionInfo) ShortID() string {
	if len(s.ID) > 8 {
		return s.ID[:8]
	}
	return s.ID
}

// CommitEvent records one buffer commit in the workspace journal
type CommitEvent struct {
	Seq          uint64    `json:"seq"`
	SessionID    string    `json:"session_id"`
	Timestamp    time.Time `json:"timestamp"`
	Idx          int       `json:"idx"`
	InternalID   int64     `json:"internal_id"`
	SourceID     string    `json:"id_"`
	ZTemp        float64   `json:"z_temp"`
	FlagTemp     int       `json:"flag_temp"`
	VerifiedTemp int       `json:"verified_temp"`
}

// Report summarizes a final catalog after merging
type Report struct {
	Total            int `json:"total"`
	WithSpectra      int `json:"with_spectra"`
	Verified         int `json:"verified"`
	FlagsChanged     int `json:"flags_changed"`
	RedshiftsChanged int `json:"redshifts_changed"`
}
