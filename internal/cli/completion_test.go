package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== Completion Tests ====================

func TestWriteCompletion_AllShells(t *testing.T) {
	for _, shell := range completionShells {
		t.Run(shell, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeCompletion(rootCmd, shell, &buf))
			assert.Contains(t, buf.String(), "zcurate")
		})
	}
}

func TestWriteCompletion_UnknownShell(t *testing.T) {
	err := writeCompletion(rootCmd, "tcsh", &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tcsh")
}

func TestCompletionCmd_RejectsUnknownShell(t *testing.T) {
	assert.Error(t, completionCmd.Args(completionCmd, []string{"tcsh"}))
	assert.Error(t, completionCmd.Args(completionCmd, nil))
	assert.NoError(t, completionCmd.Args(completionCmd, []string{"powershell"}))
}

func TestCompleteMode(t *testing.T) {
	values, directive := completeMode(reviewCmd, nil, "")
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
	require.Len(t, values, 2)
	assert.True(t, strings.HasPrefix(values[0], "new\t"))
	assert.True(t, strings.HasPrefix(values[1], "resume\t"))
}
