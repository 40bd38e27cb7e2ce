package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/zcurate/internal/config"
	"github.com/kilupskalvis/zcurate/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new zcurate workspace",
	Long: `Initialize a new zcurate workspace in the current directory.
This creates a .zcurate directory holding the configuration, the session
registry and the logs.`,
	Run: runInit,
}

func runInit(cmd *cobra.Command, args []string) {
	if _, err := config.FindRoot(); err == nil {
		exitError("zcurate workspace already exists")
	}

	cwd, err := os.Getwd()
	if err != nil {
		exitError("%v", err)
	}

	wsPath, err := config.Initialize(cwd)
	if err != nil {
		exitError("failed to initialize workspace: %v", err)
	}

	st, err := store.New(filepath.Join(wsPath, config.StateFile))
	if err != nil {
		exitErr(err)
	}
	defer st.Close()

	if err := st.Initialize(); err != nil {
		exitError("failed to initialize store: %v", err)
	}

	fmt.Printf("Initialized empty zcurate workspace in %s/\n", config.WorkspaceDir)
	fmt.Printf("Edit %s and run 'zcurate prepare'.\n", filepath.Join(config.WorkspaceDir, config.ConfigFile))
}
