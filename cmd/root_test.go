package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

func TestGlobalFlagsRegistered(t *testing.T) {
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("json"))
}

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["scan"])
	assert.True(t, names["audit"])
}

func TestNewScanCmdFlags(t *testing.T) {
	cmd := NewScanCmd()
	assert.Equal(t, "scan", cmd.Name())

	for _, flag := range []string{
		"string", "diff", "only-allowlisted", "baseline",
		"verify", "workers", "min-line-length",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}

	assert.Equal(t, "s", cmd.Flags().Lookup("string").Shorthand)
	assert.Equal(t, "d", cmd.Flags().Lookup("diff").Shorthand)
}

func TestNewAuditCmdFlags(t *testing.T) {
	cmd := NewAuditCmd()
	assert.Equal(t, "audit", cmd.Name())

	for _, flag := range []string{
		"baseline", "only-real", "only-false", "recover", "report-json",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}
}

func TestFilesToScan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "config"), []byte("x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("b\n"), 0o644))

	files := filesToScan([]string{dir})
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "sub", "b.txt"),
	}, files)

	t.Run("plain files pass through", func(t *testing.T) {
		single := filepath.Join(dir, "a.txt")
		assert.Equal(t, []string{single}, filesToScan([]string{single}))
	})

	t.Run("missing paths are skipped", func(t *testing.T) {
		assert.Empty(t, filesToScan([]string{filepath.Join(dir, "gone")}))
	})
}
