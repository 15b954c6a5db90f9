// internal/config/config.go
//
// This package loads the optional .nbimport.yaml file from a project root and
// turns it into finder, logging and cluster settings for the CLI.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// FileName is the project configuration file looked up in the project dir.
	FileName = ".nbimport.yaml"

	// StateDir holds logs written by the CLI.
	StateDir = ".nbimport"

	defaultExtension  = ".ipynb"
	defaultExcludeTag = "noimport"
	defaultLogLevel   = "info"
)

const defaultProjectConfigYAML = `# nbimport project configuration
version: 1

# Where notebooks are looked up. Relative paths resolve against the project dir.
search:
  dir: .
  extension: .ipynb

# Which code cells are never imported.
filters:
  directive_prefixes: ["%"]
  exclude_tag: noimport

log:
  level: info
  # file: true writes .nbimport/logs/nbimport.log as well.
  file: false

cluster:
  # 0 means one worker per CPU.
  workers: 0
  threads_per_worker: 1
`

// SearchConfig controls name-to-path resolution.
type SearchConfig struct {
	Dir       string `yaml:"dir"`
	Extension string `yaml:"extension"`
}

// FilterConfig controls which code cells are skipped.
type FilterConfig struct {
	DirectivePrefixes []string `yaml:"directive_prefixes"`
	ExcludeTag        string   `yaml:"exclude_tag"`
}

// LogConfig controls CLI logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  bool   `yaml:"file"`
}

// ClusterConfig sizes the local worker pool.
type ClusterConfig struct {
	Workers          int `yaml:"workers"`
	ThreadsPerWorker int `yaml:"threads_per_worker"`
}

// ProjectConfig models .nbimport.yaml.
type ProjectConfig struct {
	Version int           `yaml:"version"`
	Search  SearchConfig  `yaml:"search"`
	Filters FilterConfig  `yaml:"filters"`
	Log     LogConfig     `yaml:"log"`
	Cluster ClusterConfig `yaml:"cluster"`
}

// Config holds the resolved configuration for one project directory.
type Config struct {
	ProjectDir string
	// Path is the config file that was loaded, or empty when defaults are used.
	Path    string
	Project ProjectConfig
}

// Load reads the config file at path, or ProjectDir/.nbimport.yaml when path
// is empty. A missing file yields defaults. Environment overrides apply last.
func Load(projectDir, path string) (*Config, error) {
	cfg := &Config{ProjectDir: projectDir, Project: defaultProjectConfig()}
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = filepath.Join(projectDir, FileName)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var parsed ProjectConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.Project = parsed
		cfg.Path = path
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg.Project.applyEnvOverrides()
	cfg.Project.applyDefaults()
	cfg.Project.normalize(projectDir)
	if err := cfg.Project.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// WriteDefault creates ProjectDir/.nbimport.yaml unless it already exists.
func WriteDefault(projectDir string) (string, error) {
	path := filepath.Join(projectDir, FileName)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	if err := os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644); err != nil {
		return "", fmt.Errorf("config: write %s: %w", path, err)
	}
	return path, nil
}

// SearchDir returns the absolute notebook search directory.
func (c *Config) SearchDir() string {
	return c.Project.Search.Dir
}

// LogsDir returns the directory for the log file, or empty when file logging is off.
func (c *Config) LogsDir() string {
	if !c.Project.Log.File {
		return ""
	}
	return filepath.Join(c.ProjectDir, StateDir, "logs")
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Search:  SearchConfig{Dir: ".", Extension: defaultExtension},
		Filters: FilterConfig{
			DirectivePrefixes: []string{"%"},
			ExcludeTag:        defaultExcludeTag,
		},
		Log:     LogConfig{Level: defaultLogLevel},
		Cluster: ClusterConfig{ThreadsPerWorker: 1},
	}
}

func (pc *ProjectConfig) applyEnvOverrides() {
	if dir := strings.TrimSpace(os.Getenv("NBIMPORT_DIR")); dir != "" {
		pc.Search.Dir = dir
	}
	if level := strings.TrimSpace(os.Getenv("NBIMPORT_LOG_LEVEL")); level != "" {
		pc.Log.Level = level
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Search.Dir) == "" {
		pc.Search.Dir = "."
	}
	if strings.TrimSpace(pc.Search.Extension) == "" {
		pc.Search.Extension = defaultExtension
	}
	if len(pc.Filters.DirectivePrefixes) == 0 {
		pc.Filters.DirectivePrefixes = []string{"%"}
	}
	if strings.TrimSpace(pc.Filters.ExcludeTag) == "" {
		pc.Filters.ExcludeTag = defaultExcludeTag
	}
	if strings.TrimSpace(pc.Log.Level) == "" {
		pc.Log.Level = defaultLogLevel
	}
	if pc.Cluster.ThreadsPerWorker == 0 {
		pc.Cluster.ThreadsPerWorker = 1
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Search.Dir = resolvePath(base, pc.Search.Dir)
	pc.Search.Extension = strings.TrimSpace(pc.Search.Extension)
	if !strings.HasPrefix(pc.Search.Extension, ".") {
		pc.Search.Extension = "." + pc.Search.Extension
	}
	prefixes := pc.Filters.DirectivePrefixes[:0]
	for _, p := range pc.Filters.DirectivePrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	pc.Filters.DirectivePrefixes = prefixes
	pc.Filters.ExcludeTag = strings.TrimSpace(pc.Filters.ExcludeTag)
	pc.Log.Level = strings.ToLower(strings.TrimSpace(pc.Log.Level))
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Search.Extension == "." {
		return fmt.Errorf("search.extension is required")
	}
	if len(pc.Filters.DirectivePrefixes) == 0 {
		return fmt.Errorf("filters.directive_prefixes must list at least one prefix")
	}
	switch pc.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	if pc.Cluster.Workers < 0 {
		return fmt.Errorf("cluster.workers must be >= 0")
	}
	if pc.Cluster.ThreadsPerWorker < 0 {
		return fmt.Errorf("cluster.threads_per_worker must be >= 0")
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
