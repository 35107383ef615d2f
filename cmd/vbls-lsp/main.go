// Command vbls-lsp is the Language Server Protocol entry point for
// VBScript and Classic ASP sources: it loads configuration, runs the
// initial workspace scan, and then serves LSP requests over stdio.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/okurashoichi/serena-vbs/internal/lspserver"
	"github.com/okurashoichi/serena-vbs/internal/vbsconfig"
	"github.com/okurashoichi/serena-vbs/internal/vbslog"
	"github.com/okurashoichi/serena-vbs/internal/workspace"
)

var (
	workspaceRoot string
	encoding      string
	logLevel      string
)

var rootCmd = &cobra.Command{
	Use:   "vbls-lsp",
	Short: "Language Server for VBScript and Classic ASP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&workspaceRoot, "workspace-root", "", "root directory to scan and serve (defaults to the client's initialize rootUri)")
	rootCmd.PersistentFlags().StringVar(&encoding, "encoding", "", "encoding tried before UTF-8 when reading source files (shift_jis, cp932)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	searchPaths := []string{"."}
	if workspaceRoot != "" {
		searchPaths = append(searchPaths, workspaceRoot)
	}
	cfg, err := vbsconfig.Load(searchPaths, workspaceRoot, encoding)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if cfg.WorkspaceRoot != "" {
		if _, err := os.Stat(cfg.WorkspaceRoot); err != nil {
			return fmt.Errorf("workspace root %s: %w", cfg.WorkspaceRoot, err)
		}
	}

	log := vbslog.New(cfg.LogLevel)

	scanOpts := workspace.Options{
		Encoding:      cfg.Encoding,
		ScanThreshold: cfg.ScanThreshold,
	}

	var rootURI string
	if cfg.WorkspaceRoot != "" {
		rootURI = pathToFileURI(cfg.WorkspaceRoot)
	}
	srv := lspserver.New(os.Stdout, rootURI, scanOpts, log)

	// If a root was configured (flag, config file or environment), scan it
	// immediately rather than waiting on initialize (spec.md §6:
	// "--workspace-root ... optional; defaults to the LSP rootUri" — when
	// it's given explicitly there's no need to wait for the client).
	if cfg.WorkspaceRoot != "" {
		srv.ScanNow(cfg.WorkspaceRoot)
	}

	srv.Run(os.Stdin)
	return nil
}

func pathToFileURI(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	return "file://" + filepath.ToSlash(abs)
}
