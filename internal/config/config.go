// Package config loads the aligncore service configuration from a YAML file
// with ALIGNCORE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record store drivers.
const (
	RecordsMemory   = "memory"
	RecordsSQLite   = "sqlite"
	RecordsPostgres = "postgres"
)

// Progress store drivers.
const (
	ProgressMemory   = "memory"
	ProgressBlob     = "blob"
	ProgressSQLite   = "sqlite"
	ProgressPostgres = "postgres"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	CORSOrigin string `yaml:"cors_origin"`
}

// RecordsConfig selects the record store.
type RecordsConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	Table       string `yaml:"table"`
}

// S3Config configures the S3 blob driver.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// BlobConfig configures the blob store holding processed.json and
// discarded.json.
type BlobConfig struct {
	Driver string   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	Prefix string   `yaml:"prefix"`
	S3     S3Config `yaml:"s3"`
}

// ProgressConfig selects the progress store.
type ProgressConfig struct {
	Driver      string     `yaml:"driver"`
	Blob        BlobConfig `yaml:"blob"`
	SQLitePath  string     `yaml:"sqlite_path"`
	PostgresDSN string     `yaml:"postgres_dsn"`
}

// RequirementsConfig points at the requirements table.
type RequirementsConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig toggles the metric exporters.
type MetricsConfig struct {
	Prometheus bool   `yaml:"prometheus"`
	Expvar     bool   `yaml:"expvar"`
	ExpvarName string `yaml:"expvar_name"`
}

// Config is the full service configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Records      RecordsConfig      `yaml:"records"`
	Progress     ProgressConfig     `yaml:"progress"`
	Requirements RequirementsConfig `yaml:"requirements"`
	Log          LogConfig          `yaml:"log"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// Default mirrors the original on-disk layout: the record table in
// data/tacred_align.sqlite, progress files under data/, and
// requirements.json in the working directory.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":5000", CORSOrigin: "*"},
		Records: RecordsConfig{
			Driver:     RecordsSQLite,
			SQLitePath: "data/tacred_align.sqlite",
			Table:      "align",
		},
		Progress: ProgressConfig{
			Driver: ProgressBlob,
			Blob:   BlobConfig{Driver: "fs", FSRoot: "data", S3: S3Config{Region: "us-east-1"}},
		},
		Requirements: RequirementsConfig{Path: "requirements.json"},
		Log:          LogConfig{Level: "info", Format: "text"},
		Metrics:      MetricsConfig{Prometheus: true},
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result. A missing file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator supplied config path
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("config: %s not found", path)
			}
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from ALIGNCORE_* variables.
//
//	ALIGNCORE_ADDR, ALIGNCORE_CORS_ORIGIN
//	ALIGNCORE_RECORDS_DRIVER: memory|sqlite|postgres
//	ALIGNCORE_RECORDS_SQLITE_PATH, ALIGNCORE_RECORDS_POSTGRES_DSN, ALIGNCORE_RECORDS_TABLE
//	ALIGNCORE_PROGRESS_DRIVER: memory|blob|sqlite|postgres
//	ALIGNCORE_PROGRESS_SQLITE_PATH, ALIGNCORE_PROGRESS_POSTGRES_DSN
//	ALIGNCORE_BLOB_DRIVER: fs|s3|memory, ALIGNCORE_BLOB_FS_ROOT, ALIGNCORE_BLOB_PREFIX
//	ALIGNCORE_BLOB_S3_BUCKET, ALIGNCORE_BLOB_S3_REGION, ALIGNCORE_BLOB_S3_ENDPOINT,
//	ALIGNCORE_BLOB_S3_PATH_STYLE=true|false
//	ALIGNCORE_REQUIREMENTS_PATH, ALIGNCORE_LOG_LEVEL, ALIGNCORE_LOG_FORMAT
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ALIGNCORE_ADDR":                  &c.Server.Addr,
		"ALIGNCORE_CORS_ORIGIN":           &c.Server.CORSOrigin,
		"ALIGNCORE_RECORDS_DRIVER":        &c.Records.Driver,
		"ALIGNCORE_RECORDS_SQLITE_PATH":   &c.Records.SQLitePath,
		"ALIGNCORE_RECORDS_POSTGRES_DSN":  &c.Records.PostgresDSN,
		"ALIGNCORE_RECORDS_TABLE":         &c.Records.Table,
		"ALIGNCORE_PROGRESS_DRIVER":       &c.Progress.Driver,
		"ALIGNCORE_PROGRESS_SQLITE_PATH":  &c.Progress.SQLitePath,
		"ALIGNCORE_PROGRESS_POSTGRES_DSN": &c.Progress.PostgresDSN,
		"ALIGNCORE_BLOB_DRIVER":           &c.Progress.Blob.Driver,
		"ALIGNCORE_BLOB_FS_ROOT":          &c.Progress.Blob.FSRoot,
		"ALIGNCORE_BLOB_PREFIX":           &c.Progress.Blob.Prefix,
		"ALIGNCORE_BLOB_S3_BUCKET":        &c.Progress.Blob.S3.Bucket,
		"ALIGNCORE_BLOB_S3_REGION":        &c.Progress.Blob.S3.Region,
		"ALIGNCORE_BLOB_S3_ENDPOINT":      &c.Progress.Blob.S3.Endpoint,
		"ALIGNCORE_REQUIREMENTS_PATH":     &c.Requirements.Path,
		"ALIGNCORE_LOG_LEVEL":             &c.Log.Level,
		"ALIGNCORE_LOG_FORMAT":            &c.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	if v, ok := lookup("ALIGNCORE_BLOB_S3_PATH_STYLE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: ALIGNCORE_BLOB_S3_PATH_STYLE: %w", err)
		}
		c.Progress.Blob.S3.PathStyle = b
	}
	return nil
}

// Validate checks driver names and the settings each driver requires.
func (c Config) Validate() error {
	switch c.Records.Driver {
	case RecordsMemory:
	case RecordsSQLite:
		if c.Records.SQLitePath == "" {
			return fmt.Errorf("config: records.sqlite_path required for sqlite driver")
		}
	case RecordsPostgres:
	default:
		return fmt.Errorf("config: unknown records driver %q", c.Records.Driver)
	}
	switch c.Progress.Driver {
	case ProgressMemory, ProgressSQLite, ProgressPostgres:
	case ProgressBlob:
		switch c.Progress.Blob.Driver {
		case "fs", "memory":
		case "s3":
			if c.Progress.Blob.S3.Bucket == "" {
				return fmt.Errorf("config: progress.blob.s3.bucket required for s3 driver")
			}
		default:
			return fmt.Errorf("config: unknown blob driver %q", c.Progress.Blob.Driver)
		}
	default:
		return fmt.Errorf("config: unknown progress driver %q", c.Progress.Driver)
	}
	if c.Requirements.Path == "" {
		return fmt.Errorf("config: requirements.path required")
	}
	return nil
}

// NewLogger builds a slog logger writing to w.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
