package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/zcurate/internal/models"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show buffer commit history",
	Long:  `Display the journal of buffer commits recorded during review sessions, newest first.`,
	Run:   runLog,
}

var (
	logOneline bool
	logLimit   int
	logSession string
)

func init() {
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "Show each commit on a single line")
	logCmd.Flags().IntVarP(&logLimit, "n", "n", 0, "Limit the number of commits to show")
	logCmd.Flags().StringVar(&logSession, "session", "", "Only show commits of this session (id or prefix)")
}

func runLog(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	st := c.Store
	sessionID := logSession
	if sessionID != "" {
		info, err := st.GetSession(sessionID)
		if err != nil {
			exitError("%v", err)
		}
		sessionID = info.ID
	}

	events, err := st.ListEvents(sessionID, logLimit)
	if err != nil {
		exitError("failed to read commit journal: %v", err)
	}
	if len(events) == 0 {
		fmt.Println("No commits yet")
		return
	}

	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)

	for _, ev := range events {
		if logOneline {
			yellow.Printf("%6d ", ev.Seq)
			fmt.Printf("#%d %s z=%s flag=%d%s\n", ev.Idx+1, ev.SourceID, formatZ(ev.ZTemp), ev.FlagTemp, verifiedMark(ev))
			continue
		}
		yellow.Printf("commit %d\n", ev.Seq)
		fmt.Printf("Session:  %s\n", shortID(ev.SessionID))
		fmt.Printf("Date:     %s\n", ev.Timestamp.Local().Format(time.RFC1123))
		fmt.Printf("Source:   %s (internal_id %d, position %d)\n", ev.SourceID, ev.InternalID, ev.Idx+1)
		fmt.Printf("Redshift: %s\n", formatZ(ev.ZTemp))
		fmt.Printf("Flag:     %d\n", ev.FlagTemp)
		if ev.VerifiedTemp == 1 {
			green.Println("Verified")
		}
		fmt.Println()
	}
}

func verifiedMark(ev *models.CommitEvent) string {
	if ev.VerifiedTemp == 1 {
		return " verified"
	}
	return ""
}

func formatZ(z float64) string {
	return fmt.Sprintf("%.5f", z)
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
