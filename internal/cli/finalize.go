package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/zcurate/internal/core"
)

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Merge reviewed sources into the final catalog",
	Long: `Merge every verified source of the session output catalog into the final
catalog, creating it from the working catalog on first use, and print a
summary of the review. Running finalize twice with the same output gives the
same final catalog.`,
	Run: runFinalize,
}

func runFinalize(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	loc, report, err := core.Finalize(c.Config, c.Logger)
	if err != nil {
		exitErr(err)
	}

	fmt.Print(core.FormatReport(report))
	color.New(color.FgGreen).Printf("\nFinal catalog written to %s\n", loc)
}
