package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/dshills/querystorm/internal/config/loader"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "QUERYSTORM_"

// Options selects the sources read by Load.
type Options struct {
	// Path is the config file. Empty means no file. A missing file is not an error.
	Path string

	// Overrides are applied last, keyed by dot path ("server.addr").
	Overrides map[string]any

	// FS reads the config file. Defaults to the OS file system.
	FS loader.FileSystem

	// Env reads environment variables. Defaults to a QUERYSTORM_ loader.
	Env loader.Loader
}

// Load builds a Config from defaults, the file, the environment and the
// overrides, then validates it.
func Load(opts Options) (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, err
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = loader.DefaultFS()
	}
	env := opts.Env
	if env == nil {
		env = defaultEnvLoader()
	}

	var sources []loader.Loader
	if opts.Path != "" {
		sources = append(sources, loader.ForFile(fsys, opts.Path))
	}
	sources = append(sources, env)

	for _, src := range sources {
		m, err := src.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, m)
	}

	for path, value := range opts.Overrides {
		loader.SetByPath(merged, path, value)
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultEnvLoader() *loader.EnvLoader {
	env := loader.NewEnvLoader(EnvPrefix)
	env.AddMapping("QUERYSTORM_LOG_LEVEL", "logging.level")
	return env
}

// toMap converts a Config into the generic form used for merging.
func toMap(cfg Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding defaults: %w", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encoding defaults: %w", err)
	}
	return m, nil
}

// fromMap decodes a merged map into a Config.
func fromMap(m map[string]any) (*Config, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding merged config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &cfg, nil
}
