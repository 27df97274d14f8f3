// Package config loads ariadne.toml and overlays ARIADNE_* environment
// variables on top of it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

const (
	// ConfigFilename is the name of the project configuration file, searched
	// for by walking up from the current directory.
	ConfigFilename = "ariadne.toml"

	// DefaultIndexPath is where the SQLite index lives relative to the
	// project root when not overridden.
	DefaultIndexPath = ".ariadne/index.db"

	// DefaultTargetDir is the dbt compile output directory.
	DefaultTargetDir = "target"

	// DefaultTokenBudget is used when a capsule request doesn't specify one.
	DefaultTokenBudget = 10_000

	// DefaultMaxPivots bounds how many pivot models a capsule build resolves.
	DefaultMaxPivots = 3
)

// IntentDepth is the upstream/downstream BFS depth used for one intent.
type IntentDepth struct {
	Upstream   int `toml:"upstream"`
	Downstream int `toml:"downstream"`
}

// DefaultIntentDepths mirrors the original project's per-intent expansion
// defaults. debug favors upstream (root-cause), add_feature and refactor
// favor downstream (blast radius), test and explore stay shallow.
func DefaultIntentDepths() map[string]IntentDepth {
	return map[string]IntentDepth{
		"debug":       {Upstream: 2, Downstream: 1},
		"add_feature": {Upstream: 1, Downstream: 2},
		"refactor":    {Upstream: 1, Downstream: 3},
		"test":        {Upstream: 0, Downstream: 0},
		"document":    {Upstream: 1, Downstream: 1},
		"explore":     {Upstream: 1, Downstream: 1},
	}
}

// CapsuleConfig controls capsule-builder defaults.
type CapsuleConfig struct {
	DefaultTokenBudget int                    `toml:"default_token_budget"`
	MaxPivots          int                    `toml:"max_pivots"`
	IntentDepths       map[string]IntentDepth `toml:"intent_depths"`
}

// WatchConfig controls the optional manifest watcher.
type WatchConfig struct {
	Enabled bool `toml:"enabled"`
}

// fileConfig is the raw shape decoded from ariadne.toml.
type fileConfig struct {
	Project struct {
		DBTProjectRoot string `toml:"dbt_project_root"`
		TargetDir      string `toml:"target_dir"`
		IndexPath      string `toml:"index_path"`
	} `toml:"project"`
	Capsule struct {
		DefaultTokenBudget int                    `toml:"default_token_budget"`
		MaxPivots          int                    `toml:"max_pivots"`
		IntentDepths       map[string]IntentDepth `toml:"intent_depths"`
	} `toml:"capsule"`
	Watch struct {
		Enabled bool `toml:"enabled"`
	} `toml:"watch"`
}

// EngineConfig is the fully-resolved configuration used by the rest of the
// engine.
type EngineConfig struct {
	DBTProjectRoot string
	TargetDir      string
	IndexPath      string
	Capsule        CapsuleConfig
	Watch          WatchConfig
}

// ManifestPath returns the resolved path to manifest.json.
func (c EngineConfig) ManifestPath() string {
	return filepath.Join(c.DBTProjectRoot, c.TargetDir, "manifest.json")
}

// CatalogPath returns the resolved path to catalog.json.
func (c EngineConfig) CatalogPath() string {
	return filepath.Join(c.DBTProjectRoot, c.TargetDir, "catalog.json")
}

// RunResultsPath returns the resolved path to run_results.json.
func (c EngineConfig) RunResultsPath() string {
	return filepath.Join(c.DBTProjectRoot, c.TargetDir, "run_results.json")
}

// AbsoluteIndexPath returns IndexPath resolved against DBTProjectRoot when
// it isn't already absolute.
func (c EngineConfig) AbsoluteIndexPath() string {
	if filepath.IsAbs(c.IndexPath) {
		return c.IndexPath
	}
	return filepath.Join(c.DBTProjectRoot, c.IndexPath)
}

// Load searches upward from searchRoot (cwd if empty) for ariadne.toml,
// decodes it, and overlays ARIADNE_* environment variables via viper.
func Load(searchRoot string) (EngineConfig, error) {
	start := searchRoot
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return EngineConfig{}, fmt.Errorf("resolving working directory: %w", err)
		}
		start = cwd
	}
	start, err := filepath.Abs(start)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("resolving config search root: %w", err)
	}

	configPath := findUpward(start, ConfigFilename)

	var raw fileConfig
	if configPath != "" {
		if _, err := toml.DecodeFile(configPath, &raw); err != nil {
			return EngineConfig{}, fmt.Errorf("decoding %s: %w", configPath, err)
		}
	}

	projectRoot := start
	if configPath != "" {
		projectRoot = filepath.Dir(configPath)
	}

	v := viper.New()
	v.SetEnvPrefix("ARIADNE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	dbtRoot := raw.Project.DBTProjectRoot
	if dbtRoot == "" {
		dbtRoot = findDBTProjectRoot(projectRoot)
	} else if !filepath.IsAbs(dbtRoot) {
		dbtRoot = filepath.Join(projectRoot, dbtRoot)
	}
	if override := v.GetString("dbt_project_root"); override != "" {
		dbtRoot = override
	}

	targetDir := orDefault(raw.Project.TargetDir, DefaultTargetDir)
	if override := v.GetString("target_dir"); override != "" {
		targetDir = override
	}

	indexPath := orDefault(raw.Project.IndexPath, DefaultIndexPath)
	if override := v.GetString("index_path"); override != "" {
		indexPath = override
	}

	tokenBudget := raw.Capsule.DefaultTokenBudget
	if tokenBudget == 0 {
		tokenBudget = DefaultTokenBudget
	}
	if override := v.GetInt("default_token_budget"); override != 0 {
		tokenBudget = override
	}

	maxPivots := raw.Capsule.MaxPivots
	if maxPivots == 0 {
		maxPivots = DefaultMaxPivots
	}
	if override := v.GetInt("max_pivots"); override != 0 {
		maxPivots = override
	}

	depths := DefaultIntentDepths()
	for intent, d := range raw.Capsule.IntentDepths {
		depths[intent] = d
	}

	return EngineConfig{
		DBTProjectRoot: dbtRoot,
		TargetDir:      targetDir,
		IndexPath:      indexPath,
		Capsule: CapsuleConfig{
			DefaultTokenBudget: tokenBudget,
			MaxPivots:          maxPivots,
			IntentDepths:       depths,
		},
		Watch: WatchConfig{Enabled: raw.Watch.Enabled},
	}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// findUpward walks from start to the filesystem root looking for filename.
func findUpward(start, filename string) string {
	dir := start
	for {
		candidate := filepath.Join(dir, filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// findDBTProjectRoot walks up from start looking for dbt_project.yml,
// falling back to start if none is found.
func findDBTProjectRoot(start string) string {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "dbt_project.yml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}
