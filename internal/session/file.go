package session

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/kilupskalvis/zcurate/internal/atomicfile"
	"github.com/kilupskalvis/zcurate/internal/catalog"
	"github.com/kilupskalvis/zcurate/internal/models"
)

// Buffer file columns, in file order
const (
	ColIdx          = "idx"
	ColInternalID   = "internal_id"
	ColSourceID     = "id_"
	ColZ            = "z"
	ColZTemp        = "z_temp"
	ColZPhot        = "z_phot"
	ColFlag         = "flag"
	ColFlagTemp     = "flag_temp"
	ColVerified     = "verified"
	ColVerifiedTemp = "verified_temp"
)

// Columns is the buffer file layout
var Columns = []string{
	ColIdx, ColInternalID, ColSourceID, ColZ, ColZTemp, ColZPhot,
	ColFlag, ColFlagTemp, ColVerified, ColVerifiedTemp,
}

// SnapshotPath returns the sidecar snapshot path for a buffer file
func SnapshotPath(bufferPath string) string {
	return bufferPath + ".snapshot.toml"
}

func bufferLocation(path string) catalog.Location {
	return catalog.Location{Path: path, Format: catalog.FormatCSV}
}

// EncodeRows renders session rows as a buffer table
func EncodeRows(rows []models.SessionState) *catalog.Table {
	t := catalog.NewTable(Columns...)
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			catalog.FormatInt(int64(r.Idx)),
			catalog.FormatInt(r.InternalID),
			r.SourceID,
			catalog.FormatFloat(r.Z),
			catalog.FormatFloat(r.ZTemp),
			catalog.FormatFloat(r.ZPhot),
			catalog.FormatInt(int64(r.Flag)),
			catalog.FormatInt(int64(r.FlagTemp)),
			catalog.FormatInt(int64(r.Verified)),
			catalog.FormatInt(int64(r.VerifiedTemp)),
		})
	}
	return t
}

// DecodeRows parses a buffer table
func DecodeRows(t *catalog.Table) ([]models.SessionState, error) {
	if err := t.RequireColumns(Columns...); err != nil {
		return nil, models.Consistencyf("not a session buffer: %v", err)
	}

	rows := make([]models.SessionState, 0, t.Len())
	for i := range t.Rows {
		var (
			r   models.SessionState
			err error
			v   int64
		)
		ints := []struct {
			col string
			dst *int
		}{
			{ColIdx, &r.Idx}, {ColFlag, &r.Flag}, {ColFlagTemp, &r.FlagTemp},
			{ColVerified, &r.Verified}, {ColVerifiedTemp, &r.VerifiedTemp},
		}
		for _, f := range ints {
			if v, err = catalog.ParseInt(t.Get(i, f.col)); err != nil {
				return nil, fmt.Errorf("buffer row %d: %s: %w", i, f.col, err)
			}
			*f.dst = int(v)
		}
		if r.InternalID, err = catalog.ParseInt(t.Get(i, ColInternalID)); err != nil {
			return nil, fmt.Errorf("buffer row %d: %s: %w", i, ColInternalID, err)
		}
		floats := []struct {
			col string
			dst *float64
		}{
			{ColZ, &r.Z}, {ColZTemp, &r.ZTemp}, {ColZPhot, &r.ZPhot},
		}
		for _, f := range floats {
			if *f.dst, err = catalog.ParseFloat(t.Get(i, f.col)); err != nil {
				return nil, fmt.Errorf("buffer row %d: %s: %w", i, f.col, err)
			}
		}
		r.SourceID = t.Get(i, ColSourceID)
		rows = append(rows, r)
	}
	return rows, nil
}

func readRows(path string) ([]models.SessionState, error) {
	t, err := catalog.Read(bufferLocation(path))
	if err != nil {
		return nil, err
	}
	return DecodeRows(t)
}

func writeRows(path string, rows []models.SessionState) error {
	return catalog.Write(bufferLocation(path), EncodeRows(rows))
}

func readSnapshot(path string) (models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.DataAccessf(err, "read buffer snapshot %s", path)
	}
	snap := models.Snapshot{}
	if err := toml.Unmarshal(data, &snap); err != nil {
		return nil, models.Consistencyf("buffer snapshot %s is corrupt: %v", path, err)
	}
	return snap, nil
}

func writeSnapshot(path string, snap models.Snapshot) error {
	data, err := toml.Marshal(map[string]string(snap))
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := atomicfile.WriteFile(path, data, 0644); err != nil {
		return models.DataAccessf(err, "write buffer snapshot %s", path)
	}
	return nil
}

// CheckSnapshot compares a saved snapshot against the current one. Every saved
// key must exist in current with the same value; keys only in current and
// volatile keys are ignored. It returns the offending keys, sorted.
func CheckSnapshot(saved, current models.Snapshot, volatile []string) []string {
	skip := make(map[string]bool, len(volatile))
	for _, k := range volatile {
		skip[k] = true
	}

	var bad []string
	for k, v := range saved {
		if skip[k] {
			continue
		}
		cur, ok := current[k]
		if !ok || strings.TrimSpace(cur) != strings.TrimSpace(v) {
			bad = append(bad, k)
		}
	}
	sort.Strings(bad)
	return bad
}
