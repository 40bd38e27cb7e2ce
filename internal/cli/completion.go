package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Print a shell completion script",
	Long: `Print a completion script for bash, zsh, fish or powershell.

Completion covers subcommands and flags, including the values of
'review --mode'. Load it for the current shell with, for example:

  source <(zcurate completion bash)
  zcurate completion fish | source`,
	ValidArgs:             completionShells,
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeCompletion(cmd.Root(), args[0], cmd.OutOrStdout())
	},
}

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

// completeMode offers the review session modes for --mode
func completeMode(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return []string{"new\tselect a new sample", "resume\tcontinue the session buffer"}, cobra.ShellCompDirectiveNoFileComp
}

func writeCompletion(root *cobra.Command, shell string, w io.Writer) error {
	switch shell {
	case "bash":
		return root.GenBashCompletionV2(w, true)
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	case "powershell":
		return root.GenPowerShellCompletionWithDesc(w)
	}
	return fmt.Errorf("unsupported shell %q", shell)
}
