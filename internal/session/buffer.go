// Package session holds the resumable verification state of a review session.
package session

import (
	"errors"
	"fmt"
	"math"
	"os"

	"go.uber.org/zap"

	"github.com/kilupskalvis/zcurate/internal/catalog"
	"github.com/kilupskalvis/zcurate/internal/models"
	"github.com/kilupskalvis/zcurate/internal/spectrum"
)

// State is how a buffer was opened
type State int

const (
	// StateFresh means no buffer existed; one was created at idx 0
	StateFresh State = iota + 1
	// StateLoaded means an existing buffer was resumed
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateLoaded:
		return "loaded"
	}
	return "unknown"
}

// ErrInvalidEdit is returned for an edit value outside its allowed range
var ErrInvalidEdit = errors.New("invalid edit")

// SpectrumSource loads spectra by file name
type SpectrumSource interface {
	Load(name string) spectrum.Result
}

// Options configures Open
type Options struct {
	// Path is the buffer file; the snapshot sidecar lives next to it
	Path string
	// Snapshot is the current configuration snapshot
	Snapshot models.Snapshot
	// Volatile keys are excluded from the resume check
	Volatile []string
	// Replace starts a fresh session over an existing buffer; the old buffer
	// and snapshot are overwritten only once the new ones are written
	Replace  bool
	Spectra  SpectrumSource
	Logger   *zap.Logger
	// OnCommit is called after every successful commit
	OnCommit func(models.SessionState)
}

// Buffer is an open review session over an ordered review set. It holds the
// current record by reference and the visited rows keyed by idx.
type Buffer struct {
	opts   Options
	logger *zap.Logger
	set    []models.CatalogRecord
	state  State

	rows  []models.SessionState
	byIdx map[int]int

	idx   int
	cur   models.SessionState
	dirty bool

	unreadable map[int]error
}

// Open starts a session. Without a buffer file a fresh one is created and
// persisted immediately together with the snapshot; otherwise the saved
// snapshot is checked against opts.Snapshot and the cursor is restored to the
// last saved row. With opts.Replace an existing buffer is overwritten by a
// fresh one instead of being loaded.
func Open(set []models.CatalogRecord, opts Options) (*Buffer, error) {
	if len(set) == 0 {
		return nil, &models.EmptySelectionError{Stage: "review", Criteria: "the review set is empty"}
	}
	if opts.Path == "" {
		return nil, models.Configf("session buffer path is not set")
	}

	b := &Buffer{
		opts:       opts,
		logger:     opts.Logger,
		set:        set,
		byIdx:      make(map[int]int),
		unreadable: make(map[int]error),
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}

	_, err := os.Stat(opts.Path)
	switch {
	case err == nil && opts.Replace:
		if err := b.create(); err != nil {
			return nil, err
		}
		b.logger.Info("previous buffer replaced", zap.String("buffer", opts.Path))
	case err == nil:
		if err := b.load(); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
		if err := b.create(); err != nil {
			return nil, err
		}
	default:
		return nil, models.DataAccessf(err, "stat buffer %s", opts.Path)
	}
	return b, nil
}

func (b *Buffer) create() error {
	b.state = StateFresh
	b.idx = 0
	b.cur = models.NewSessionState(0, &b.set[0])
	b.upsert(b.cur)

	if err := writeSnapshot(SnapshotPath(b.opts.Path), b.opts.Snapshot); err != nil {
		return err
	}
	if err := b.persist(); err != nil {
		return err
	}
	b.logger.Info("session buffer created", zap.String("buffer", b.opts.Path), zap.Int("review_set", len(b.set)))
	return nil
}

func (b *Buffer) load() error {
	snapPath := SnapshotPath(b.opts.Path)
	if _, err := os.Stat(snapPath); err != nil {
		return models.Consistencyf("buffer %s has no configuration snapshot %s; remove the buffer to start a new session", b.opts.Path, snapPath)
	}
	saved, err := readSnapshot(snapPath)
	if err != nil {
		return err
	}
	if bad := CheckSnapshot(saved, b.opts.Snapshot, b.opts.Volatile); len(bad) > 0 {
		return &models.ConfigMismatchError{BufferPath: b.opts.Path, SnapshotPath: snapPath, Keys: bad}
	}

	rows, err := readRows(b.opts.Path)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return models.Consistencyf("buffer %s has no rows; remove it and %s to start a new session", b.opts.Path, snapPath)
	}
	for _, r := range rows {
		if r.Idx < 0 || r.Idx >= len(b.set) {
			return models.Consistencyf("buffer %s row idx %d is outside the review set of %d sources", b.opts.Path, r.Idx, len(b.set))
		}
		if want := b.set[r.Idx].InternalID; r.InternalID != want {
			return models.Consistencyf("buffer %s row idx %d holds internal_id %d but the review set has %d there",
				b.opts.Path, r.Idx, r.InternalID, want)
		}
		if _, dup := b.byIdx[r.Idx]; dup {
			return models.Consistencyf("buffer %s has more than one row for idx %d", b.opts.Path, r.Idx)
		}
		b.upsert(r)
	}

	b.state = StateLoaded
	b.idx = rows[len(rows)-1].Idx
	b.cur = rows[len(rows)-1]
	b.logger.Info("session buffer loaded",
		zap.String("buffer", b.opts.Path),
		zap.Int("rows", len(rows)),
		zap.Int("idx", b.idx),
	)
	return nil
}

// State returns how the buffer was opened
func (b *Buffer) State() State { return b.state }

// Path returns the buffer file path
func (b *Buffer) Path() string { return b.opts.Path }

// Idx returns the cursor position
func (b *Buffer) Idx() int { return b.idx }

// Len returns the size of the review set
func (b *Buffer) Len() int { return len(b.set) }

// Dirty reports whether the current row has uncommitted edits
func (b *Buffer) Dirty() bool { return b.dirty }

// Current returns the in-memory state of the current row, edits included
func (b *Buffer) Current() models.SessionState { return b.cur }

// Record returns the catalog record under the cursor
func (b *Buffer) Record() *models.CatalogRecord { return &b.set[b.idx] }

// Rows returns a copy of the saved rows in file order
func (b *Buffer) Rows() []models.SessionState {
	return append([]models.SessionState(nil), b.rows...)
}

// Table renders the saved rows as a buffer table
func (b *Buffer) Table() *catalog.Table {
	return EncodeRows(b.rows)
}

// Advance moves to the next record. It returns false at the end of the review
// set, leaving the cursor unchanged. Uncommitted edits are discarded.
func (b *Buffer) Advance() (bool, error) {
	if b.idx+1 >= len(b.set) {
		return false, nil
	}
	return true, b.visit(b.idx + 1)
}

// Retreat moves to the previous record. It returns false at idx 0.
func (b *Buffer) Retreat() (bool, error) {
	if b.idx == 0 {
		return false, nil
	}
	return true, b.visit(b.idx - 1)
}

// Seek moves the cursor to idx
func (b *Buffer) Seek(idx int) error {
	if idx < 0 || idx >= len(b.set) {
		return fmt.Errorf("%w: position %d is outside 0..%d", ErrInvalidEdit, idx, len(b.set)-1)
	}
	return b.visit(idx)
}

func (b *Buffer) visit(idx int) error {
	b.idx = idx
	b.dirty = false
	if i, ok := b.byIdx[idx]; ok {
		b.cur = b.rows[i]
		return nil
	}
	b.cur = models.NewSessionState(idx, &b.set[idx])
	b.upsert(b.cur)
	return b.persist()
}

// SetFlagTemp edits the flag of the current row
func (b *Buffer) SetFlagTemp(f int) error {
	if !models.ValidFlag(f) {
		return fmt.Errorf("%w: flag %d is outside %d..%d", ErrInvalidEdit, f, models.MinFlag, models.MaxFlag)
	}
	b.cur.FlagTemp = f
	b.dirty = true
	return nil
}

// SetVerifiedTemp edits the verification state of the current row
func (b *Buffer) SetVerifiedTemp(v int) error {
	if v != 0 && v != 1 {
		return fmt.Errorf("%w: verified must be 0 or 1, got %d", ErrInvalidEdit, v)
	}
	b.cur.VerifiedTemp = v
	b.dirty = true
	return nil
}

// SetRedshiftTemp edits the redshift of the current row
func (b *Buffer) SetRedshiftTemp(z float64) error {
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return fmt.Errorf("%w: redshift %v is not finite", ErrInvalidEdit, z)
	}
	b.cur.ZTemp = z
	b.dirty = true
	return nil
}

// ResetRedshift restores the edited redshift to the catalog value
func (b *Buffer) ResetRedshift() {
	b.cur.ZTemp = b.cur.Z
	b.dirty = true
}

// Commit upserts the current row and rewrites the buffer file
func (b *Buffer) Commit() error {
	b.upsert(b.cur)
	if err := b.persist(); err != nil {
		return err
	}
	b.dirty = false
	b.logger.Debug("buffer committed",
		zap.Int("idx", b.cur.Idx),
		zap.Int64("internal_id", b.cur.InternalID),
		zap.Float64("z_temp", b.cur.ZTemp),
		zap.Int("flag_temp", b.cur.FlagTemp),
		zap.Int("verified_temp", b.cur.VerifiedTemp),
	)
	if b.opts.OnCommit != nil {
		b.opts.OnCommit(b.cur)
	}
	return nil
}

// LoadSpectrum loads the spectrum of the current record. A failure marks the
// record unreadable and is returned in the result.
func (b *Buffer) LoadSpectrum() spectrum.Result {
	rec := b.Record()
	var res spectrum.Result
	switch {
	case b.opts.Spectra == nil:
		res = spectrum.Result{Err: &models.SpectrumReadError{Path: rec.SpectrumFile, Err: errors.New("no spectrum source configured")}}
	case rec.SpectrumFile == "":
		res = spectrum.Result{Err: &models.SpectrumReadError{Path: rec.SpectrumFile, Err: errors.New("source has no spectrum file")}}
	default:
		res = b.opts.Spectra.Load(rec.SpectrumFile)
	}

	if res.Err != nil {
		b.unreadable[b.idx] = res.Err
	} else {
		delete(b.unreadable, b.idx)
	}
	return res
}

// Unreadable returns the spectrum error recorded for idx, or nil
func (b *Buffer) Unreadable(idx int) error {
	return b.unreadable[idx]
}

// UnreadableCount returns the number of records whose spectrum failed to load
func (b *Buffer) UnreadableCount() int {
	return len(b.unreadable)
}

func (b *Buffer) upsert(r models.SessionState) {
	if i, ok := b.byIdx[r.Idx]; ok {
		b.rows[i] = r
		return
	}
	b.byIdx[r.Idx] = len(b.rows)
	b.rows = append(b.rows, r)
}

func (b *Buffer) persist() error {
	return writeRows(b.opts.Path, b.rows)
}
