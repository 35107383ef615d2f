// Package workspace implements the one-shot recursive filesystem scan
// described by spec.md §4.8: walk the configured root, skip excluded
// directories, decode each source file, and feed it through the same
// pipeline a client's textDocument/didOpen would use.
package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/okurashoichi/serena-vbs/internal/vbslog"
)

// sourceExtensions is the case-insensitive set of file suffixes scanned.
var sourceExtensions = map[string]bool{
	".vbs": true,
	".asp": true,
	".inc": true,
}

// excludedDirs is the fixed set of directory names skipped regardless of
// project config, matching original_source/vbscript_language_server.py's
// IGNORED_DIRS.
var excludedDirs = map[string]bool{
	"node_modules": true,
	"Backup":       true,
	"bin":          true,
	"obj":          true,
}

// OpenFunc is invoked once per scanned source file, playing the role of a
// client's textDocument/didOpen for files discovered on disk rather than
// opened interactively.
type OpenFunc func(uri, content string)

// Options configures one scan.
type Options struct {
	Root string
	// Encoding names a decode tried before UTF-8 for every file:
	// "shift_jis", "cp932", or "" (UTF-8 with replacement only).
	Encoding string
	// ExtraExcludeGlobs are additional doublestar patterns (matched
	// against each directory name), additive to the fixed excludedDirs
	// set. vbsconfig has no setting for them, so the server's own scan
	// passes none.
	ExtraExcludeGlobs []string
	// ScanThreshold triggers an extra warning when file count exceeds it.
	ScanThreshold int
}

// Result summarizes a completed scan.
type Result struct {
	FilesFound int
	Errors     int
}

// Scan walks Options.Root, invoking open for every regular source file
// found, and returns once the walk completes (the scan is synchronous,
// per spec.md §4.8/§5).
func Scan(opts Options, log *vbslog.Logger, open OpenFunc) Result {
	var result Result

	filepath.Walk(opts.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warnf("workspace scan: %s: %v", path, err)
			result.Errors++
			return nil
		}
		if info.IsDir() {
			if path != opts.Root && isExcludedDir(info.Name(), opts.ExtraExcludeGlobs) {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warnf("workspace scan: reading %s: %v", path, err)
			result.Errors++
			return nil
		}
		content, err := decode(raw, opts.Encoding)
		if err != nil {
			log.Warnf("workspace scan: decoding %s: %v", path, err)
			result.Errors++
			return nil
		}

		uri := pathToURI(path)
		log.Debugf("workspace scan: processing %s", uri)
		open(uri, content)
		result.FilesFound++
		return nil
	})

	log.Infof("Found %d source files", result.FilesFound)
	threshold := opts.ScanThreshold
	if threshold <= 0 {
		threshold = 1000
	}
	if result.FilesFound > threshold {
		log.Warnf("workspace contains %d source files, exceeding the %d-file scan threshold; expect slower startup", result.FilesFound, threshold)
	}
	return result
}

func isExcludedDir(name string, extraGlobs []string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if excludedDirs[name] {
		return true
	}
	for _, pattern := range extraGlobs {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// decode returns raw as UTF-8 text. If fallback names a supported encoding,
// that decode is tried first, regardless of whether raw happens to also be
// valid UTF-8; otherwise raw is used as-is if already valid UTF-8. Either
// way, UTF-8 with the standard library's automatic replacement-character
// behavior for invalid sequences is the last resort (spec.md §4.8/§6: a
// configured encoding is tried first, and UTF-8-with-replacement is the
// fallback).
func decode(raw []byte, fallback string) (string, error) {
	switch strings.ToLower(fallback) {
	case "shift_jis", "shiftjis", "sjis", "cp932": // CP932 is a superset of the Shift_JIS table Go ships
		if s, err := transcode(raw, japanese.ShiftJIS.NewDecoder()); err == nil {
			return s, nil
		}
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	return strings.ToValidUTF8(string(raw), "�"), nil
}

func transcode(raw []byte, enc transform.Transformer) (string, error) {
	out, _, err := transform.Bytes(enc, raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func pathToURI(p string) string {
	slashed := filepath.ToSlash(p)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	return "file://" + slashed
}
