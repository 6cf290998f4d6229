package callout

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	defaultRetryCount     = 2
	defaultConnectTimeout = 5 * time.Second
	defaultReadTimeout    = 5 * time.Second
	defaultServerTimeout  = 10 * time.Second
)

type Config struct {
	ConfigVersion string       `json:"config_version" yaml:"config_version" toml:"config_version" validate:"required,oneof=v1"`
	Name          string       `json:"name" yaml:"name" toml:"name" validate:"required"`
	Debug         bool         `json:"debug" yaml:"debug" toml:"debug"`
	Engine        EngineConfig `json:"engine" yaml:"engine" toml:"engine" validate:"required"`
	Server        ServerConfig `json:"server" yaml:"server" toml:"server"`
}

// EngineConfig carries the invocation policy. It is consumed once at engine
// construction; later changes to the file have no effect on a running engine.
type EngineConfig struct {
	// RetryCount is the number of additional attempts after a first attempt
	// whose status lands in the retriable range. A pointer so that an explicit
	// zero (a valid no-retry policy) survives defaulting; nil means unset.
	RetryCount *int `json:"retry_count" yaml:"retry_count" toml:"retry_count" validate:"omitempty,min=0"`

	ConnectTimeout           time.Duration `json:"connect_timeout" yaml:"connect_timeout" toml:"connect_timeout"`
	ConnectionRequestTimeout time.Duration `json:"connection_request_timeout" yaml:"connection_request_timeout" toml:"connection_request_timeout"`
	ReadTimeout              time.Duration `json:"read_timeout" yaml:"read_timeout" toml:"read_timeout"`

	// AllowedDomains is the parent-domain allow-list. Empty means every host
	// is permitted.
	AllowedDomains []string `json:"allowed_domains" yaml:"allowed_domains" toml:"allowed_domains"`

	MaxResponseBodySize    int64 `json:"max_response_body_size" yaml:"max_response_body_size" toml:"max_response_body_size"`
	MaxParallelInvocations int64 `json:"max_parallel_invocations" yaml:"max_parallel_invocations" toml:"max_parallel_invocations"`

	Metrics MetricsConfig `json:"metrics" yaml:"metrics" toml:"metrics"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Provider string `json:"provider" yaml:"provider" toml:"provider"`
}

// ServerConfig configures the optional sidecar HTTP service exposed by the
// serve command.
type ServerConfig struct {
	Port        int               `json:"port" yaml:"port" toml:"port" validate:"omitempty,min=1,max=65535"`
	Timeout     time.Duration     `json:"timeout" yaml:"timeout" toml:"timeout"`
	RateLimiter RateLimiterConfig `json:"rate_limiter" yaml:"rate_limiter" toml:"rate_limiter"`
}

type RateLimiterConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled" toml:"enabled"`
	Limit   int           `json:"limit" yaml:"limit" toml:"limit"`
	Window  time.Duration `json:"window" yaml:"window" toml:"window"`
}

// DefaultEngineConfig returns the engine configuration used when no
// configuration file is supplied.
func DefaultEngineConfig() EngineConfig {
	var cfg Config

	ensureDefaults(&cfg)

	return cfg.Engine
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read configuration file: %w", err)
	}

	var cfg Config

	switch filepath.Ext(path) {
	case ".json":
		if err = json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("cannot parse configuration file: %w", err)
		}
	case ".yaml", ".yml":
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("cannot parse configuration file: %w", err)
		}
	case ".toml":
		if err = toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("cannot parse configuration file: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("unknown configuration file extension: %s", filepath.Ext(path))
	}

	ensureDefaults(&cfg)

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get(strings.TrimPrefix(filepath.Ext(path), "."))
		if name == "" || name == "-" {
			return strings.ToLower(fld.Name)
		}

		return strings.ToLower(strings.Split(name, ",")[0])
	})

	if err = v.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", formatValidationError(err))
	}

	return cfg, nil
}

// ensureDefaults ensures that default values are used in required configuration fields if they are not explicitly set.
func ensureDefaults(cfg *Config) {
	if cfg.Engine.RetryCount == nil {
		retries := defaultRetryCount
		cfg.Engine.RetryCount = &retries
	}

	if cfg.Engine.ConnectTimeout == 0 {
		cfg.Engine.ConnectTimeout = defaultConnectTimeout
	}

	if cfg.Engine.ReadTimeout == 0 {
		cfg.Engine.ReadTimeout = defaultReadTimeout
	}

	if cfg.Engine.MaxParallelInvocations < 1 {
		cfg.Engine.MaxParallelInvocations = int64(2 * runtime.NumCPU()) //nolint:mnd // shut up mnt
	}

	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = defaultServerTimeout
	}
}

func formatValidationError(err error) error {
	var ves validator.ValidationErrors

	if ok := errors.As(err, &ves); !ok {
		return err
	}

	var messages []string

	for _, fe := range ves {
		path := strings.TrimPrefix(fe.Namespace(), "Config.")

		messages = append(messages, fmt.Sprintf(
			"%s: %s",
			path,
			humanMessage(fe),
		))
	}

	return errors.New(strings.Join(messages, "\n"))
}

func humanMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"

	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())

	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())

	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())

	default:
		return fmt.Sprintf("validation failed on '%s'", fe.Tag())
	}
}
