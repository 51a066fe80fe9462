package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/efebarandurmaz/modgraph/internal/qualitygate"
)

var validate = validator.New()

// Config holds all application configuration.
type Config struct {
	Analysis AnalysisConfig         `mapstructure:"analysis"`
	Detect   DetectConfig           `mapstructure:"detect"`
	Resolver ResolverConfig         `mapstructure:"resolver"`
	Graph    GraphConfig            `mapstructure:"graph"`
	Tracing  TracingConfig          `mapstructure:"tracing"`
	Metrics  MetricsConfig          `mapstructure:"metrics"`
	Gates    qualitygate.GateConfig `mapstructure:"gates"`
	Log      LogConfig              `mapstructure:"log"`
}

type AnalysisConfig struct {
	// Strategies lists "current" and/or detector names, run in this order.
	Strategies      []string `mapstructure:"strategies" validate:"min=1,dive,required"`
	SharedThreshold int      `mapstructure:"shared_threshold" validate:"min=1"`
	OutputDir       string   `mapstructure:"output_dir" validate:"required"`
	Format          string   `mapstructure:"format" validate:"oneof=json yaml"`
}

type DetectConfig struct {
	Resolution        float64 `mapstructure:"resolution" validate:"gt=0"`
	FilesPerCommunity int     `mapstructure:"files_per_community" validate:"min=1"`
	Seed              int64   `mapstructure:"seed"`
	MaxIterations     int     `mapstructure:"max_iterations" validate:"min=1"`
}

type ResolverConfig struct {
	Command       string   `mapstructure:"command" validate:"required"`
	Exclude       string   `mapstructure:"exclude"`
	TSConfig      string   `mapstructure:"ts_config"`
	WebpackConfig string   `mapstructure:"webpack_config"`
	RequireConfig string   `mapstructure:"require_config"`
	Extensions    []string `mapstructure:"extensions"`
}

type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRate   float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

type MetricsConfig struct {
	// Textfile is a node-exporter textfile path; empty disables the write.
	Textfile string `mapstructure:"textfile"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// defaults are plain values; decoding them cannot fail
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("analysis.strategies", []string{"current", "greedy", "louvain"})
	v.SetDefault("analysis.shared_threshold", 3)
	v.SetDefault("analysis.output_dir", "output")
	v.SetDefault("analysis.format", "json")

	v.SetDefault("detect.resolution", 1.5)
	v.SetDefault("detect.files_per_community", 30)
	v.SetDefault("detect.seed", 0)
	v.SetDefault("detect.max_iterations", 100)

	v.SetDefault("resolver.command", "madge")
	v.SetDefault("resolver.exclude", "")
	v.SetDefault("resolver.ts_config", "")
	v.SetDefault("resolver.webpack_config", "")
	v.SetDefault("resolver.require_config", "")
	v.SetDefault("resolver.extensions", []string{})

	v.SetDefault("graph.uri", "")
	v.SetDefault("graph.username", "")
	v.SetDefault("graph.password", "")

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.service_name", "modgraph")
	v.SetDefault("tracing.sample_rate", 1.0)

	v.SetDefault("gates.enabled", true)
	v.SetDefault("gates.max_outer_connections", 0)
	v.SetDefault("gates.connections_severity", "advisory")
	v.SetDefault("gates.max_outer_exports_one_file", 0)
	v.SetDefault("gates.hotspot_severity", "required")
	v.SetDefault("gates.max_shared_ratio", 0.5)
	v.SetDefault("gates.shared_severity", "advisory")
	v.SetDefault("gates.max_unattributed_imports", -1)
	v.SetDefault("gates.unattributed_severity", "advisory")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Check runs the struct-tag validation and returns every violation.
func (c *Config) Check() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Graph.URI != "" && c.Graph.Username == "" {
		warnings = append(warnings, fmt.Sprintf("graph uri '%s' is configured but username is empty", c.Graph.URI))
	}

	if c.Detect.Resolution < 1 {
		warnings = append(warnings, fmt.Sprintf("detect resolution %.2f below 1 tends to produce a few large communities", c.Detect.Resolution))
	}

	seen := make(map[string]bool)
	for _, s := range c.Analysis.Strategies {
		if seen[s] {
			warnings = append(warnings, fmt.Sprintf("strategy '%s' is listed more than once", s))
		}
		seen[s] = true
	}

	if c.Gates.Enabled && c.Gates.MaxOuterConnections == 0 && c.Gates.MaxOuterExportsOneFile == 0 &&
		c.Gates.MaxSharedRatio == 0 && c.Gates.MaxUnattributed < 0 {
		warnings = append(warnings, "gates are enabled but every limit is disabled")
	}

	return warnings
}

// Load reads configuration from file and environment. A missing file is
// not an error: defaults and MODGRAPH_* variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix("MODGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Warn("config file not found, using defaults", "path", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
