package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/milestone/pkg/adapter"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configKey is used to store the loaded config in context.
type configKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// EnvPrefix prefixes environment variables read into the configuration.
const EnvPrefix = "MILESTONE_"

var configNames = []string{"milestone.yaml", "milestone.yml"}

// configExistsIn returns the config file in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range configNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findProjectRootUpward searches upward from startDir for a milestone config file.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot picks the directory of an explicit config file, then the
// nearest directory upward holding milestone.yaml, then the working directory.
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
		return filepath.Dir(cfgFile)
	}
	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := findProjectRootUpward(cwd); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load reads configuration from defaults, milestone.yaml, MILESTONE_*
// environment variables and changed flags, in increasing precedence. A .env
// file in the project root is loaded into the environment first.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	projectRoot := inferProjectRoot(cfgFile)

	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"jobs_dir":    DefaultJobsDir,
		"state_path":  DefaultStateFile,
		"environment": DefaultEnv,
		"verbose":     false,
		"log_level":   DefaultLogLevel,
		"output":      DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		cfgFile = configExistsIn(projectRoot)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment: MILESTONE_STATE_PATH -> state_path, MILESTONE_TARGET__HOST -> target.host
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot
	cfg.JobsDir = resolvePathRelativeTo(cfg.JobsDir, projectRoot)
	cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)

	if envCfg, ok := cfg.Environments[cfg.Environment]; ok {
		if envCfg.Dialect != "" {
			cfg.Dialect = envCfg.Dialect
		}
		if envCfg.Target != nil {
			cfg.Target = MergeTargetConfig(cfg.Target, envCfg.Target)
		}
	}
	if cfg.Target != nil {
		expandTargetEnvVars(cfg.Target)
		if cfg.Target.Path != "" {
			cfg.Target.Path = resolvePathRelativeTo(cfg.Target.Path, projectRoot)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func flagKey(name string) string {
	switch name {
	case "state":
		return "state_path"
	case "env":
		return "environment"
	}
	return strings.ReplaceAll(name, "-", "_")
}

// WithLogger stores the logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

// WithConfig stores the loaded config in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the config stored in ctx, or the defaults.
func FromContext(ctx context.Context) *Config {
	if ctx != nil {
		if c, ok := ctx.Value(configKey{}).(*Config); ok {
			return c
		}
	}
	return &Config{
		JobsDir:      DefaultJobsDir,
		StatePath:    DefaultStateFile,
		Environment:  DefaultEnv,
		LogLevel:     DefaultLogLevel,
		OutputFormat: DefaultOutput,
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns. Unset variables are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// expandTargetEnvVars expands environment variables in sensitive target fields.
func expandTargetEnvVars(t *adapter.Config) {
	t.Password = expandEnvVars(t.Password)
	t.Username = expandEnvVars(t.Username)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
	t.Path = expandEnvVars(t.Path)
}

// MergeTargetConfig merges two target configs, with override taking precedence.
func MergeTargetConfig(base, override *adapter.Config) *adapter.Config {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	merged.Options = make(map[string]string, len(base.Options)+len(override.Options))
	merged.Params = make(map[string]any, len(base.Params)+len(override.Params))
	maps.Copy(merged.Options, base.Options)
	maps.Copy(merged.Params, base.Params)

	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Path != "" {
		merged.Path = override.Path
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Username != "" {
		merged.Username = override.Username
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	maps.Copy(merged.Options, override.Options)
	maps.Copy(merged.Params, override.Params)
	return &merged
}
