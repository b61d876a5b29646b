package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// matches $(VAR_NAME)
var envPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// replaces $(VAR) with os.Getenv(VAR)
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(envPattern.FindStringSubmatch(m)[1])
	})
}

// Load builds the effective configuration in three layers: defaults, then
// the YAML file when path is non-empty, then environment overrides. The
// result is validated before it is returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		// expand $(ENV_VAR) placeholders
		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("unmarshalling yaml: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv maps the environment variables of the container image onto the
// config. Variables win over file values.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("RAW_DATA_DIR"); v != "" {
		cfg.Source.Path = v
	}

	if v := os.Getenv("PREPARED_DATA_DIR"); v != "" {
		cfg.Destination.Path = v
	}

	if v := os.Getenv("LIBREOFFICE_PATH"); v != "" {
		cfg.Converter.Binary = v
	}

	if v := os.Getenv("API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("API_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	if v := os.Getenv("CONVERT_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("CONVERT_TIMEOUT: %w", err)
		}
		cfg.Converter.Timeout = d
	}

	if v := os.Getenv("CONVERT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CONVERT_WORKERS: %w", err)
		}
		cfg.Converter.Workers = n
	}

	if v := os.Getenv("COPY_PASSTHROUGH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COPY_PASSTHROUGH: %w", err)
		}
		cfg.Converter.CopyPassthrough = b
	}

	if v := os.Getenv("FAIL_ON_EMPTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FAIL_ON_EMPTY: %w", err)
		}
		cfg.Converter.FailOnEmpty = b
	}

	if v := os.Getenv("CONVERT_SCHEDULE"); v != "" {
		cfg.Schedule.Cron = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	return nil
}

// parseDuration accepts Go duration strings ("90s", "2m") and, for container
// ergonomics, bare integers meaning seconds ("120").
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	return time.ParseDuration(v)
}

func (c *Config) Validate() error {
	if c.Source.Path == "" {
		return fmt.Errorf("source.path must not be empty")
	}

	if c.Destination.Path == "" {
		return fmt.Errorf("destination.path must not be empty")
	}

	if c.Converter.Timeout <= 0 {
		return fmt.Errorf("converter.timeout must be positive, got %s", c.Converter.Timeout)
	}

	if c.Converter.Workers < 1 {
		return fmt.Errorf("converter.workers must be at least 1, got %d", c.Converter.Workers)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	return nil
}
