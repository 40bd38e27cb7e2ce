package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/zcurate/internal/catalog"
	"github.com/kilupskalvis/zcurate/internal/core"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Build the working catalog",
	Long: `Read the input spectroscopic catalog, apply the selection column and
bounding box, normalize the quality flags, check which spectra exist and,
when enabled, cross-match the photometric-redshift catalog. The result is
written to the working catalog.`,
	Run: runPrepare,
}

func runPrepare(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()
	cfg := c.Config

	raw, err := catalog.Read(core.InputLocation(cfg))
	if err != nil {
		exitErr(err)
	}

	var phot *catalog.Table
	if cfg.Match.Enabled {
		phot, err = catalog.Read(core.PhotLocation(cfg))
		if err != nil {
			exitErr(err)
		}
	}

	working, stats, err := core.Prepare(cfg, raw, phot, c.Logger)
	if err != nil {
		exitErr(err)
	}

	loc := core.WorkingLocation(cfg)
	if err := catalog.WriteWorking(loc, working); err != nil {
		exitErr(err)
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Printf("Input sources:      %d\n", stats.Input)
	if stats.Deselected > 0 {
		fmt.Printf("Deselected:         %d\n", stats.Deselected)
	}
	if stats.OutsideBox > 0 {
		fmt.Printf("Outside box:        %d\n", stats.OutsideBox)
	}
	fmt.Printf("Kept:               %d\n", stats.Kept)
	fmt.Printf("With spectra:       %d\n", stats.WithSpectra)
	if stats.Unmappable > 0 {
		yellow.Printf("Unmappable flags:   %d\n", stats.Unmappable)
	}
	if cfg.Match.Enabled {
		fmt.Printf("Photo-z matched:    %d (%d masked)\n", stats.Matched, stats.Masked)
	}
	green.Printf("\nWorking catalog written to %s\n", loc)
}
