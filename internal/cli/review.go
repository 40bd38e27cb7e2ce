package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kilupskalvis/zcurate/internal/config"
	"github.com/kilupskalvis/zcurate/internal/core"
	"github.com/kilupskalvis/zcurate/internal/lines"
	"github.com/kilupskalvis/zcurate/internal/models"
	"github.com/kilupskalvis/zcurate/internal/session"
	"github.com/kilupskalvis/zcurate/internal/spectrum"
	"github.com/kilupskalvis/zcurate/internal/store"
	"github.com/kilupskalvis/zcurate/internal/tui"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Verify redshifts interactively",
	Long: `Open a review session over the selected sample of the working catalog.

--mode new selects a new sample and starts a buffer at its first source.
--mode resume continues the existing buffer where it was left; without a
buffer it starts a new session.`,
	Run: runReview,
}

var (
	reviewMode   string
	reviewForce  bool
	reviewDryRun bool
)

func init() {
	reviewCmd.Flags().StringVarP(&reviewMode, "mode", "m", "", "Session mode: new or resume (default from config)")
	reviewCmd.Flags().BoolVar(&reviewForce, "force", false, "With --mode new, discard an existing buffer")
	reviewCmd.Flags().BoolVar(&reviewDryRun, "dry-run", false, "Select the sample and report its size without opening a session")
	_ = reviewCmd.RegisterFlagCompletionFunc("mode", completeMode)
}

func runReview(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	cfg := c.Config
	if reviewMode != "" {
		if reviewMode != "new" && reviewMode != "resume" {
			exitErr(models.Configf("--mode must be new or resume, got %q", reviewMode))
		}
		cfg = cfg.WithMode(reviewMode)
	}

	if reviewDryRun {
		set, err := core.SelectReviewSet(cfg, c.Logger)
		if err != nil {
			exitErr(err)
		}
		fmt.Printf("%d sources would be reviewed\n", len(set))
		return
	}

	bufferPath := core.BufferPath(cfg)
	_, statErr := os.Stat(bufferPath)
	bufferExists := statErr == nil

	yellow := color.New(color.FgYellow)
	if cfg.Review.Mode == "resume" && !bufferExists {
		yellow.Println("No session buffer found, starting a new session")
		cfg = cfg.WithMode("new")
	}

	replace := false
	if cfg.Review.Mode == "new" {
		if !core.WorkingLocation(cfg).Exists() {
			exitError("working catalog %s does not exist; run 'zcurate prepare' first", core.WorkingLocation(cfg))
		}
		if bufferExists && !reviewForce {
			exitError("session buffer %s already exists; use --mode resume or --force to discard it", bufferPath)
		}
		replace = bufferExists
	}

	// everything that can fail on configuration runs before the buffer is touched
	set, info := loadReviewSet(c, cfg, bufferPath)

	src, err := spectrum.NewSourceFromConfig(cfg, c.Logger)
	if err != nil {
		exitErr(err)
	}
	lineList, err := loadLines(cfg)
	if err != nil {
		exitErr(err)
	}

	var sessionID string
	if info != nil {
		sessionID = info.ID
	}
	buf, err := session.Open(set, session.Options{
		Path:     bufferPath,
		Snapshot: cfg.Snapshot(),
		Volatile: config.VolatileKeys,
		Replace:  replace,
		Spectra:  src,
		Logger:   c.Logger,
		OnCommit: func(s models.SessionState) {
			journalCommit(c, sessionID, s)
		},
	})
	if err != nil {
		exitErr(err)
	}

	if info == nil {
		info, err = registerSession(c.Store, buf, cfg.Review.Mode, set)
		if err != nil {
			exitError("failed to register session: %v", err)
		}
		sessionID = info.ID
	} else if err := c.Store.TouchSession(info.ID, cfg.Review.Mode); err != nil {
		c.Logger.Warn("session registry not updated", zap.Error(err))
	}

	fmt.Printf("Session %s (%s): %d sources, at %d\n", info.ShortID(), buf.State(), buf.Len(), buf.Idx()+1)
	model := tui.New(buf, tui.Options{
		Lines:   lineList,
		Medium:  lines.Medium(cfg.Display.WavelengthType),
		Display: lines.Display(cfg.Display.Lines),
		ZStep:   cfg.Display.ZStep,
		SaveProgress: func() (string, error) {
			loc, err := core.SaveProgress(cfg, buf.Table(), c.Logger)
			return loc.String(), err
		},
	})
	if err := tui.Run(model); err != nil {
		exitError("reviewer failed: %v", err)
	}

	fmt.Printf("Buffer saved to %s (%d of %d sources visited)\n", bufferPath, len(buf.Rows()), buf.Len())
	if n := buf.UnreadableCount(); n > 0 {
		yellow.Printf("%d spectra could not be read; see %s\n", n, cfg.LogPath())
	}
}

// loadReviewSet picks the review set for the session mode. A resumed session
// rebuilds the set from its registered ids; a new one selects it afresh.
func loadReviewSet(c *cmdContext, cfg *config.Config, bufferPath string) ([]models.CatalogRecord, *models.SessionInfo) {
	if cfg.Review.Mode == "resume" {
		info, err := c.Store.GetSessionByBuffer(bufferPath)
		if err != nil {
			exitError("failed to read session registry: %v", err)
		}
		if info != nil {
			set, err := core.ReviewSetFromIDs(cfg, info.ReviewSet, c.Logger)
			if err != nil {
				exitErr(err)
			}
			return set, info
		}
		color.New(color.FgYellow).Println("Session not registered in this workspace, selecting the review set again")
		c.Logger.Warn("resuming unregistered buffer", zap.String("buffer", bufferPath))
	}

	set, err := core.SelectReviewSet(cfg, c.Logger)
	if err != nil {
		exitErr(err)
	}
	return set, nil
}

// registerSession records a new session and its review set. A buffer created
// by this run is removed again when the registry cannot be written, so the
// next resume does not find an unregistered buffer.
func registerSession(st *store.Store, buf *session.Buffer, mode string, set []models.CatalogRecord) (*models.SessionInfo, error) {
	ids := make([]int64, len(set))
	for i := range set {
		ids[i] = set[i].InternalID
	}
	info, err := st.CreateSession(buf.Path(), mode, ids)
	if err == nil {
		return info, nil
	}
	if buf.State() == session.StateFresh {
		for _, p := range []string{buf.Path(), session.SnapshotPath(buf.Path())} {
			if rmErr := os.Remove(p); rmErr != nil && !os.IsNotExist(rmErr) {
				return nil, fmt.Errorf("%w (and removing %s failed: %v)", err, p, rmErr)
			}
		}
	}
	return nil, err
}

func journalCommit(c *cmdContext, sessionID string, s models.SessionState) {
	err := c.Store.RecordCommit(&models.CommitEvent{
		SessionID:    sessionID,
		Idx:          s.Idx,
		InternalID:   s.InternalID,
		SourceID:     s.SourceID,
		ZTemp:        s.ZTemp,
		FlagTemp:     s.FlagTemp,
		VerifiedTemp: s.VerifiedTemp,
	})
	if err != nil {
		c.Logger.Warn("commit not journaled", zap.Int("idx", s.Idx), zap.Error(err))
	}
}

func loadLines(cfg *config.Config) ([]lines.Line, error) {
	if cfg.Display.LinesFile == "" {
		return lines.Default, nil
	}
	list, err := lines.Load(cfg.Resolve(cfg.Display.LinesFile), lines.Medium(cfg.Display.WavelengthType))
	if err != nil {
		return nil, models.Configf("display.lines_file: %v", err)
	}
	return list, nil
}
