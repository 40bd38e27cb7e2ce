// Package cli implements the command-line interface for zcurate.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kilupskalvis/zcurate/internal/config"
	"github.com/kilupskalvis/zcurate/internal/logging"
	"github.com/kilupskalvis/zcurate/internal/models"
	"github.com/kilupskalvis/zcurate/internal/store"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config *config.Config
	Store  *store.Store
	Logger *zap.Logger
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
	if c.Store != nil {
		c.Store.Close()
	}
}

var (
	configPath string
	verbose    bool
)

// initContext loads the configuration, opens the log and takes the
// workspace lock by opening the state database
func initContext() *cmdContext {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr(err)
	}

	logger, err := logging.New(logging.Options{
		Path:       cfg.LogPath(),
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Verbose:    verbose,
	})
	if err != nil {
		exitErr(err)
	}

	st, err := store.New(cfg.StatePath())
	if err != nil {
		exitErr(err)
	}
	if err := st.Initialize(); err != nil {
		st.Close()
		exitError("failed to initialize store: %v", err)
	}

	return &cmdContext{Config: cfg, Store: st, Logger: logger}
}

var rootCmd = &cobra.Command{
	Use:   "zcurate",
	Short: "Spectroscopic redshift catalog curation",
	Long: `zcurate curates spectroscopic redshift catalogs: it normalizes survey
quality flags, cross-matches photometric redshifts, selects a reproducible
review sample, runs a resumable visual verification session and merges the
verified redshifts back into a final catalog.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (TOML or YAML), default .zcurate/config.toml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Also log to stderr")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(prepareCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(finalizeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(completionCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// exitErr prints err with a hint for its category and exits
func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	if hint := hintFor(err); hint != "" {
		fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
	}
	os.Exit(1)
}

func hintFor(err error) string {
	var mismatch *models.ConfigMismatchError
	switch {
	case errors.As(err, &mismatch):
		return fmt.Sprintf("the buffer belongs to another configuration; restore it or remove %s and %s", mismatch.BufferPath, mismatch.SnapshotPath)
	case errors.Is(err, models.ErrConsistency):
		return "remove the stale session buffer and its snapshot, then run 'zcurate review --mode new'"
	case errors.Is(err, models.ErrEmptyResult):
		return "relax the selection in the [review] section of the config"
	case errors.Is(err, models.ErrUnmatchedKey):
		return "the edits were made against a different working catalog; nothing was written"
	}
	return ""
}
