// Package vbsconfig loads server configuration from an optional project
// file (vbls.yaml / vbls.json), environment variables, and CLI flags, in
// that increasing order of precedence, via github.com/spf13/viper.
package vbsconfig

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultScanThreshold is the file-count above which the workspace
// scanner logs an additional warning (spec.md §4.8).
const DefaultScanThreshold = 1000

// Config is the resolved server configuration.
type Config struct {
	WorkspaceRoot string `mapstructure:"workspace_root"`
	Encoding      string `mapstructure:"encoding"`
	ScanThreshold int    `mapstructure:"scan_threshold"`
	LogLevel      string `mapstructure:"log_level"`
}

// Load builds a Config from vbls.yaml/vbls.json in searchPaths (if any is
// found), VBLS_-prefixed environment variables, and the given overrides
// (typically CLI flag values; an empty override leaves the lower-priority
// value in place).
func Load(searchPaths []string, workspaceRootOverride, encodingOverride string) (Config, error) {
	v := viper.New()
	v.SetConfigName("vbls")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("VBLS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("encoding", "utf-8")
	v.SetDefault("scan_threshold", DefaultScanThreshold)
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, errors.Wrap(err, "reading vbls config file")
		}
	}

	if workspaceRootOverride != "" {
		v.Set("workspace_root", workspaceRootOverride)
	}
	if encodingOverride != "" {
		v.Set("encoding", encodingOverride)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshalling vbls config")
	}
	// WorkspaceRoot may legitimately be empty here: per spec.md §6 it
	// defaults to the LSP client's initialize rootUri, resolved later by
	// the dispatcher rather than at config-load time.
	if cfg.ScanThreshold <= 0 {
		cfg.ScanThreshold = DefaultScanThreshold
	}
	return cfg, nil
}
