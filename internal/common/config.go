// Package common provides shared utilities for the KI7MT air-quality lab tools.
package common

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"
)

// DefaultSource is the cleaned PRSA Aotizhongxin hourly dataset (2013-03 .. 2017-02).
const DefaultSource = "https://raw.githubusercontent.com/rompahel/airquality/refs/heads/main/data/Cleaned_PRSA_Data_20130301-20170228(2).csv"

// Config holds common configuration for all applications.
type Config struct {
	Source       string        `yaml:"source"`
	OutputDir    string        `yaml:"output_dir"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	PreviewRows  int           `yaml:"preview_rows"`

	ClickHouseHost     string `yaml:"clickhouse_host"`
	ClickHousePort     int    `yaml:"clickhouse_port"`
	ClickHouseDatabase string `yaml:"clickhouse_database"`
	ClickHouseUser     string `yaml:"clickhouse_user"`
	ClickHousePassword string `yaml:"clickhouse_password"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Source:             getEnv("AQ_SOURCE", DefaultSource),
		OutputDir:          getEnv("AQ_OUTPUT_DIR", "./out"),
		FetchTimeout:       getEnvDuration("AQ_FETCH_TIMEOUT", 60*time.Second),
		PreviewRows:        getEnvInt("AQ_PREVIEW_ROWS", 5),
		ClickHouseHost:     getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort:     getEnvInt("CLICKHOUSE_PORT", 9000),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "airquality"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
	}
}

// LoadConfig returns DefaultConfig overlaid with the YAML file at path.
// An empty path returns the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// ClickHouseAddr returns host:port for the native protocol.
func (c *Config) ClickHouseAddr() string {
	return c.ClickHouseHost + ":" + strconv.Itoa(c.ClickHousePort)
}

// ChartDir returns the PNG chart output directory.
func (c *Config) ChartDir() string {
	return filepath.Join(c.OutputDir, "charts")
}

// WorkbookPath returns the XLSX report path.
func (c *Config) WorkbookPath() string {
	return filepath.Join(c.OutputDir, "airquality_report.xlsx")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
