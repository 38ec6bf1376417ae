package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const configFileName = "gdfplan.toml"

type projectConfig struct {
	Compile compileConfig `toml:"compile"`
}

// compileConfig mirrors the plan command flags. Flags given on the command
// line override these values.
type compileConfig struct {
	Exec        string `toml:"exec"`
	Strict      bool   `toml:"strict"`
	MemBudgetMB int64  `toml:"mem_budget_mb"`
	Cost        string `toml:"cost"`
	Jobs        int    `toml:"jobs"`
	Cache       bool   `toml:"cache"`
	CacheDir    string `toml:"cache_dir"`
	Export      string `toml:"export"`
}

// findConfig walks up from startDir looking for gdfplan.toml.
func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadConfig decodes path. Relative directories in the file are resolved
// against the file's directory.
func loadConfig(path string) (projectConfig, error) {
	var cfg projectConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return projectConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return projectConfig{}, fmt.Errorf("%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("compile", "mem_budget_mb") && cfg.Compile.MemBudgetMB <= 0 {
		return projectConfig{}, fmt.Errorf("%s: [compile].mem_budget_mb must be positive", path)
	}
	if cfg.Compile.Jobs < 0 {
		return projectConfig{}, fmt.Errorf("%s: [compile].jobs must not be negative", path)
	}
	base := filepath.Dir(path)
	for _, dir := range []*string{&cfg.Compile.CacheDir, &cfg.Compile.Export} {
		if *dir != "" && !filepath.IsAbs(*dir) {
			*dir = filepath.Join(base, filepath.FromSlash(*dir))
		}
	}
	return cfg, nil
}

// resolveConfig loads the file named by --config, or the nearest
// gdfplan.toml. A missing file yields the zero config.
func resolveConfig(explicit string) (projectConfig, string, error) {
	path := explicit
	if path == "" {
		found, ok, err := findConfig(".")
		if err != nil || !ok {
			return projectConfig{}, "", err
		}
		path = found
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return projectConfig{}, "", err
	}
	return cfg, path, nil
}
