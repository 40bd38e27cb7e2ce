package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/zcurate/internal/catalog"
	"github.com/kilupskalvis/zcurate/internal/core"
)

var reportCmd = &cobra.Command{
	Use:   "report [catalog]",
	Short: "Summarize the review state of a catalog",
	Long:  `Summarize a catalog in working layout, by default the final catalog, without merging anything.`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runReport,
}

var reportFormat string

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "", "Catalog format: csv, tsv or sqlite (default from extension)")
}

func runReport(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	loc := core.FinalLocation(c.Config)
	if len(args) == 1 {
		loc = catalog.Location{Path: args[0], Format: reportFormat}
	}

	report, err := core.ReportFor(loc)
	if err != nil {
		exitErr(err)
	}
	fmt.Printf("Catalog: %s\n\n", loc)
	fmt.Print(core.FormatReport(report))
}
