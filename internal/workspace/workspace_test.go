package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okurashoichi/serena-vbs/internal/vbslog"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestScan_FindsRecognizedExtensionsOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.vbs", "Function F()\nEnd Function\n")
	writeFile(t, root, "b.asp", "<%Function G()\nEnd Function%>\n")
	writeFile(t, root, "c.inc", "Sub S()\nEnd Sub\n")
	writeFile(t, root, "readme.txt", "not source")

	var opened []string
	result := Scan(Options{Root: root}, vbslog.Nop(), func(uri, content string) {
		opened = append(opened, uri)
	})

	assert.Equal(t, 3, result.FilesFound)
	assert.Len(t, opened, 3)
}

func TestScan_SkipsExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep/a.vbs", "Function F()\nEnd Function\n")
	writeFile(t, root, "node_modules/skip.vbs", "Function F()\nEnd Function\n")
	writeFile(t, root, ".git/skip2.vbs", "Function F()\nEnd Function\n")
	writeFile(t, root, "bin/skip3.vbs", "Function F()\nEnd Function\n")

	result := Scan(Options{Root: root}, vbslog.Nop(), func(uri, content string) {})
	assert.Equal(t, 1, result.FilesFound)
}

func TestScan_CaseInsensitiveExtensionMatching(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.VBS", "Function F()\nEnd Function\n")

	result := Scan(Options{Root: root}, vbslog.Nop(), func(uri, content string) {})
	assert.Equal(t, 1, result.FilesFound)
}

func TestScan_ThresholdWarningDoesNotAffectFileCount(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.vbs", "Function F()\nEnd Function\n")
	writeFile(t, root, "b.vbs", "Function G()\nEnd Function\n")

	// Two files exceed a threshold of 1, so the extra warning is logged.
	result := Scan(Options{Root: root, ScanThreshold: 1}, vbslog.Nop(), func(uri, content string) {})
	assert.Equal(t, 2, result.FilesFound)
}

func TestDecode_InvalidUTF8FallsBackToReplacement(t *testing.T) {
	invalid := []byte{0xff, 0xfe, 'x'}
	out, err := decode(invalid, "")
	require.NoError(t, err)
	assert.NotContains(t, out, string([]byte{0xff}))
}
