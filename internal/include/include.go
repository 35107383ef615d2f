// Package include extracts and resolves Classic ASP
// <!--#include file="..."--> / <!--#include virtual="..."--> directives.
package include

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/okurashoichi/serena-vbs/internal/position"
)

// Type distinguishes the two ASP include forms.
type Type int

const (
	File Type = iota
	Virtual
)

// Directive is an immutable record of one include directive occurrence.
type Directive struct {
	Type         Type
	RawPath      string
	ResolvedURI  string // empty if unresolved
	Range        position.Range
	IsValid      bool
	ErrorMessage string
}

var includePattern = regexp.MustCompile(`(?is)<!--\s*#include\s+(file|virtual)\s*=\s*("[^"]*"|'[^']*')\s*-->`)

// Extract finds every include directive in content. sourceURI is the file
// URI of the document being scanned (used to resolve `file=` paths);
// workspaceRoot is the file URI of the configured workspace root, or empty
// if none was configured (used to resolve `virtual=` paths).
func Extract(content, sourceURI, workspaceRoot string) []Directive {
	li := position.NewLineIndex(content)
	var out []Directive
	for _, m := range includePattern.FindAllStringSubmatchIndex(content, -1) {
		typeStart, typeEnd := m[2], m[3]
		pathStart, pathEnd := m[4], m[5]

		kindStr := strings.ToLower(content[typeStart:typeEnd])
		raw := content[pathStart+1 : pathEnd-1] // strip quotes

		var t Type
		if kindStr == "virtual" {
			t = Virtual
		} else {
			t = File
		}

		resolvedURI, isValid, errMsg := resolve(t, raw, sourceURI, workspaceRoot)

		out = append(out, Directive{
			Type:         t,
			RawPath:      raw,
			ResolvedURI:  resolvedURI,
			Range:        li.MakeRange(m[0], m[1]),
			IsValid:      isValid,
			ErrorMessage: errMsg,
		})
	}
	return out
}

func resolve(t Type, raw, sourceURI, workspaceRoot string) (resolvedURI string, isValid bool, errMsg string) {
	if raw == "" {
		return "", false, "empty path in include directive"
	}
	switch t {
	case File:
		return resolveFilePath(raw, sourceURI)
	default:
		return resolveVirtualPath(raw, workspaceRoot)
	}
}

func resolveFilePath(raw, sourceURI string) (string, bool, string) {
	sourcePath, err := uriToPath(sourceURI)
	if err != nil {
		return "", false, "cannot resolve source document path: " + err.Error()
	}
	sourceDir := filepath.Dir(sourcePath)
	normalized := strings.ReplaceAll(raw, "\\", "/")
	resolved := filepath.Clean(filepath.Join(sourceDir, filepath.FromSlash(normalized)))
	return pathToURI(resolved), true, ""
}

func resolveVirtualPath(raw, workspaceRoot string) (string, bool, string) {
	if workspaceRoot == "" {
		return "", false, "cannot resolve virtual path: workspace root not configured"
	}
	rootPath, err := uriToPath(workspaceRoot)
	if err != nil {
		return "", false, "invalid workspace root: " + err.Error()
	}
	relative := strings.TrimLeft(raw, "/")
	normalized := strings.ReplaceAll(relative, "\\", "/")
	resolved := filepath.Clean(filepath.Join(rootPath, filepath.FromSlash(normalized)))
	return pathToURI(resolved), true, ""
}

func uriToPath(u string) (string, error) {
	if u == "" {
		return "", errEmptyURI
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" {
		// Already a bare filesystem path.
		return u, nil
	}
	p, err := url.PathUnescape(parsed.Path)
	if err != nil {
		return "", err
	}
	return filepath.FromSlash(p), nil
}

func pathToURI(p string) string {
	slashed := filepath.ToSlash(p)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	return "file://" + path.Clean(slashed)
}

type uriError string

func (e uriError) Error() string { return string(e) }

const errEmptyURI = uriError("empty uri")
