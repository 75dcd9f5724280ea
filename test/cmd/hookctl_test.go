//go:build integration
// +build integration

package cmd

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHookctl builds the hookctl binary and drives it in stdin mode.
func TestHookctl(t *testing.T) {
	// Skip if not running integration tests
	if os.Getenv("INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test; set INTEGRATION_TESTS=true to run")
	}

	tempDir := t.TempDir()
	binary := filepath.Join(tempDir, "hookctl")

	buildCmd := exec.Command("go", "build", "-o", binary, "../../cmd/hookctl")
	buildOutput, err := buildCmd.CombinedOutput()
	require.NoError(t, err, "Failed to build hookctl: %s", buildOutput)

	script := filepath.Join(tempDir, "hooks.lua")
	require.NoError(t, os.WriteFile(script, []byte(`
		function after_mul(p)
			return p.result + 0.5
		end
	`), 0600))

	cmd := exec.Command(binary, "-s",
		"--script", script,
		"--chronicle", "cli-test",
		"--journal", filepath.Join(tempDir, "journal.db"),
		"--env-file", filepath.Join(tempDir, "none.env"),
		"--log-level", "error",
	)
	cmd.Stdin = bytes.NewBufferString("# transcript\nmul 2 3\n!journal\n!members\n!quit\n")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	require.NoError(t, cmd.Run())

	output := stdout.String()
	assert.Contains(t, output, "stdin mode")
	assert.Contains(t, output, "hookctl::cli-test> mul 2 3")
	assert.Contains(t, output, "mul => 6.5")
	assert.Contains(t, output, "result=6.5")
	assert.Contains(t, output, "Goodbye!")
}
