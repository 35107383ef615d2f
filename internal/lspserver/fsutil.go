package lspserver

import (
	"net/url"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// readFileURI reads the file named by a file:// URI. The returned error is
// wrapped with call-site context (spec.md §7: "File I/O error during scan
// or lazy load: log WARNING, skip the file, continue") — the caller logs
// it and moves on rather than failing the triggering request.
func readFileURI(uri string) (string, error) {
	p, err := uriToPath(uri)
	if err != nil {
		return "", errors.Wrapf(err, "resolving include target %s", uri)
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		return "", errors.Wrapf(err, "reading lazily-loaded include target %s", p)
	}
	return string(raw), nil
}

func uriToPath(u string) (string, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" {
		return u, nil
	}
	p, err := url.PathUnescape(parsed.Path)
	if err != nil {
		return "", err
	}
	return filepath.FromSlash(p), nil
}
