package local

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Project configuration folder and file names.
const (
	FolderName = ".ropeproject"
	ConfigName = "config.yaml"
)

// Config is the per-project configuration stored in
// .ropeproject/config.yaml.
type Config struct {
	// SourceExtensions lists the file extensions analysed as source.
	SourceExtensions []string `yaml:"source_extensions"`

	// Ignored holds glob patterns matched against every path segment.
	Ignored []string `yaml:"ignored"`

	// MaxHistory bounds the undo history.
	MaxHistory int `yaml:"max_history"`

	// PackageInit is the base name of a package's initialisation module.
	PackageInit string `yaml:"package_init"`
}

// DefaultConfig returns the configuration written to new projects.
func DefaultConfig() Config {
	return Config{
		SourceExtensions: []string{".py"},
		Ignored:          []string{"*.pyc", "*~", ".git", ".hg", ".svn", "__pycache__", FolderName},
		MaxHistory:       32,
		PackageInit:      "__init__",
	}
}

// loadConfig reads the project configuration. A missing file yields the
// defaults; when create is set the folder and file are written first.
func loadConfig(root string, create bool) (Config, bool, error) {
	cfg := DefaultConfig()
	path := filepath.Join(root, FolderName, ConfigName)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if !create {
			return cfg, false, nil
		}
		if err := writeConfig(path, cfg); err != nil {
			return cfg, false, err
		}
		return cfg, true, nil
	case err != nil:
		return cfg, false, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, true, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(cfg.SourceExtensions) == 0 {
		cfg.SourceExtensions = DefaultConfig().SourceExtensions
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultConfig().MaxHistory
	}
	if cfg.PackageInit == "" {
		cfg.PackageInit = DefaultConfig().PackageInit
	}
	return cfg, true, nil
}

func writeConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding project config: %w", err)
	}
	header := []byte("# ropestorm project configuration\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}

// ignored reports whether any segment of the slash path matches an ignore
// pattern.
func (c Config) ignored(path string) bool {
	for _, seg := range splitPath(path) {
		for _, pattern := range c.Ignored {
			if ok, _ := filepath.Match(pattern, seg); ok {
				return true
			}
		}
	}
	return false
}

// sourceExt reports whether ext is a source extension.
func (c Config) sourceExt(ext string) bool {
	for _, e := range c.SourceExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
