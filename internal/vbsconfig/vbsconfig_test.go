package vbsconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CLIOverrideTakesPrecedenceOverConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vbls.yaml"),
		[]byte("workspace_root: /from/config\nencoding: shift_jis\n"), 0o644))

	cfg, err := Load([]string{dir}, "/from/cli", "")
	require.NoError(t, err)
	assert.Equal(t, "/from/cli", cfg.WorkspaceRoot)
	assert.Equal(t, "shift_jis", cfg.Encoding)
}

func TestLoad_DefaultsApplyWhenNoConfigOrFlags(t *testing.T) {
	cfg, err := Load([]string{t.TempDir()}, "", "")
	require.NoError(t, err)
	assert.Empty(t, cfg.WorkspaceRoot)
	assert.Equal(t, "utf-8", cfg.Encoding)
	assert.Equal(t, DefaultScanThreshold, cfg.ScanThreshold)
}

func TestLoad_EncodingOverrideWinsOverConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vbls.yaml"),
		[]byte("encoding: shift_jis\n"), 0o644))

	cfg, err := Load([]string{dir}, "", "cp932")
	require.NoError(t, err)
	assert.Equal(t, "cp932", cfg.Encoding)
}
