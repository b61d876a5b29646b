package config

import "time"

type Config struct {
	Source      SourceConfig      `yaml:"source"`
	Destination DestinationConfig `yaml:"destination"`
	Converter   ConverterConfig   `yaml:"converter"`
	Server      ServerConfig      `yaml:"server"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type SourceConfig struct {
	Path string `yaml:"path"`
}

type DestinationConfig struct {
	Path string `yaml:"path"`
}

type ConverterConfig struct {
	Binary          string        `yaml:"binary"`  // empty means probe well-known locations
	Timeout         time.Duration `yaml:"timeout"` // per file, e.g. 120s
	Workers         int           `yaml:"workers"`
	CopyPassthrough bool          `yaml:"copyPassthrough"`
	FailOnEmpty     bool          `yaml:"failOnEmpty"`
	FormatsFile     string        `yaml:"formatsFile"` // extra format definitions, TOML
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type ScheduleConfig struct {
	Cron string `yaml:"cron"` // standard 5-field spec, empty disables scheduled passes
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text", "json"
}

// Default returns the configuration the service runs with when no file and
// no environment overrides are present. Paths follow the container layout.
func Default() *Config {
	return &Config{
		Source:      SourceConfig{Path: "/app/raw_data"},
		Destination: DestinationConfig{Path: "/app/prepared_data"},
		Converter: ConverterConfig{
			Timeout: 2 * time.Minute,
			Workers: 2,
		},
		Server:  ServerConfig{Port: 8000},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
