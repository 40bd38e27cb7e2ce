package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/zcurate/internal/catalog"
	"github.com/kilupskalvis/zcurate/internal/core"
	"github.com/kilupskalvis/zcurate/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the workspace status",
	Long:  `Show the working catalog, the review session buffer and the final catalog of the workspace.`,
	Run:   runStatus,
}

func runStatus(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()
	cfg := c.Config

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	fmt.Printf("Workspace: %s\n\n", cfg.Root())

	working := core.WorkingLocation(cfg)
	if !working.Exists() {
		yellow.Println("No working catalog yet; run 'zcurate prepare'")
		return
	}
	wc, err := catalog.ReadWorking(working)
	if err != nil {
		exitErr(err)
	}
	report := core.BuildReport(wc.Records)
	fmt.Printf("Working catalog %s\n", working)
	fmt.Printf("  %d sources, %d with spectra\n", report.Total, report.WithSpectra)

	bufferPath := core.BufferPath(cfg)
	fmt.Printf("\nSession buffer %s\n", bufferPath)
	info, err := c.Store.GetSessionByBuffer(bufferPath)
	if err != nil {
		exitError("failed to read session registry: %v", err)
	}
	if t, err := catalog.Read(catalog.Location{Path: bufferPath, Format: catalog.FormatCSV}); err == nil {
		rows, err := session.DecodeRows(t)
		if err != nil {
			exitErr(err)
		}
		verified := 0
		for _, r := range rows {
			if r.VerifiedTemp == 1 {
				verified++
			}
		}
		total := "?"
		if info != nil {
			total = fmt.Sprint(len(info.ReviewSet))
		}
		fmt.Printf("  %d of %s sources visited, %d verified\n", len(rows), total, verified)
		if len(rows) > 0 {
			fmt.Printf("  cursor at %d\n", rows[len(rows)-1].Idx+1)
		}
	} else {
		fmt.Println("  no buffer; run 'zcurate review --mode new'")
	}
	if info != nil {
		cyan.Printf("  session %s", info.ShortID())
		fmt.Printf(" opened %s, %d commits\n", info.LastOpened.Local().Format(time.DateTime), info.CommitCount)
	}

	final := core.FinalLocation(cfg)
	fmt.Printf("\nFinal catalog %s\n", final)
	if !final.Exists() {
		fmt.Println("  not written yet; run 'zcurate finalize'")
		return
	}
	fc, err := catalog.ReadWorking(final)
	if err != nil {
		exitErr(err)
	}
	fr := core.BuildReport(fc.Records)
	green.Printf("  %d verified", fr.Verified)
	fmt.Printf(", %d flags and %d redshifts changed\n", fr.FlagsChanged, fr.RedshiftsChanged)
}
