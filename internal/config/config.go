package config

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/ropestorm/internal/config/loader"
	"github.com/dshills/ropestorm/internal/keyseq"
)

// Option names.
const (
	ConfirmSaving      = "confirm_saving"
	CodeAssistMaxFixes = "code_assist_max_fixes"
	GlobalPrefix       = "global_prefix"
	LogLevel           = "log_level"
	keysTable          = "keys"
)

// Options are the user settings.
type Options struct {
	// ConfirmSaving asks before saving each modified buffer.
	ConfirmSaving bool `toml:"confirm_saving"`
	// CodeAssistMaxFixes bounds the syntax repairs code assist attempts.
	CodeAssistMaxFixes int `toml:"code_assist_max_fixes"`
	// GlobalPrefix is the key prefix that marks a binding global.
	GlobalPrefix string `toml:"global_prefix"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
	// Keys overrides the default key of a command, by command name. An
	// empty key unbinds the command.
	Keys map[string]string `toml:"keys,omitempty"`
}

// Default returns the built-in options.
func Default() Options {
	return Options{
		ConfirmSaving:      true,
		CodeAssistMaxFixes: 1,
		GlobalPrefix:       "C-x",
		LogLevel:           "info",
	}
}

// EnvVars maps the environment variables read by Load to options.
var EnvVars = map[string]loader.Var{
	"ROPESTORM_CONFIRM_SAVING":        {Key: ConfirmSaving, Kind: loader.Bool},
	"ROPESTORM_CODE_ASSIST_MAX_FIXES": {Key: CodeAssistMaxFixes, Kind: loader.Int},
	"ROPESTORM_GLOBAL_PREFIX":         {Key: GlobalPrefix},
	"ROPESTORM_LOG_LEVEL":             {Key: LogLevel},
}

// DefaultPath returns the user's options file.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".ropestorm", "config.toml")
	}
	return filepath.Join(dir, "ropestorm", "config.toml")
}

// Load layers the file at path and the environment over the defaults. A
// missing file is not an error.
func Load(path string) (Options, error) {
	return LoadLayers(loader.NewTOMLLoader(path), loader.NewEnvLoader(EnvVars))
}

// LoadLayers merges layers in order over the defaults and validates the
// result.
func LoadLayers(layers ...loader.Loader) (Options, error) {
	merged := make(map[string]any)
	for _, l := range layers {
		m, err := l.Load()
		if err != nil {
			return Default(), err
		}
		merged = loader.Merge(merged, m)
	}

	opts := Default()
	if len(merged) > 0 {
		data, err := toml.Marshal(merged)
		if err != nil {
			return Default(), fmt.Errorf("config: encoding layers: %w", err)
		}
		if err := toml.Unmarshal(data, &opts); err != nil {
			return Default(), &loader.ParseError{Path: "<merged>", Message: err.Error(), Err: err}
		}
	}
	if err := opts.Validate(); err != nil {
		return Default(), err
	}
	return opts, nil
}

// Save writes opts to path as TOML.
func Save(path string, opts Options) error {
	data, err := toml.Marshal(opts)
	if err != nil {
		return fmt.Errorf("config: encoding options: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: creating %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks every option.
func (o Options) Validate() error {
	if o.CodeAssistMaxFixes < 0 {
		return &ValueError{Option: CodeAssistMaxFixes, Value: fmt.Sprint(o.CodeAssistMaxFixes)}
	}
	if _, err := keyseq.Parse(o.GlobalPrefix); err != nil {
		return &ValueError{Option: GlobalPrefix, Value: o.GlobalPrefix, Err: err}
	}
	if _, err := ParseLogLevel(o.LogLevel); err != nil {
		return &ValueError{Option: LogLevel, Value: o.LogLevel, Err: err}
	}
	for cmd, key := range o.Keys {
		if key == "" {
			continue
		}
		if _, err := keyseq.Parse(key); err != nil {
			return &ValueError{Option: keysTable + "." + cmd, Value: key, Err: err}
		}
	}
	return nil
}

// Prefix returns the parsed global prefix.
func (o Options) Prefix() keyseq.Sequence {
	seq, err := keyseq.Parse(o.GlobalPrefix)
	if err != nil {
		return keyseq.MustParse(Default().GlobalPrefix)
	}
	return seq
}

// KeyFor returns the key for command: the override when one is set,
// otherwise def.
func (o Options) KeyFor(command, def string) string {
	if key, ok := o.Keys[command]; ok {
		return key
	}
	return def
}

func (o Options) clone() Options {
	o.Keys = maps.Clone(o.Keys)
	return o
}

// ParseLogLevel accepts debug, info, warn (or warning) and error in any
// case.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Names returns the settable option names.
func Names() []string {
	names := []string{ConfirmSaving, CodeAssistMaxFixes, GlobalPrefix, LogLevel}
	sort.Strings(names)
	return names
}
