// Package config handles the runtime configuration of the reconciliation
// job: which log bucket and prefix to scan, which catalog table to maintain,
// and operational knobs such as the run timeout and logging.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for one reconciliation run. The core never
// reads the environment directly; everything it needs arrives through this
// struct so it stays testable without environment simulation.
type Config struct {
	Bucket      string        // Organization CloudTrail log bucket
	Prefix      string        // Key prefix above the per-account folders, no trailing slash
	Database    string        // Glue database holding the projected table
	Table       string        // Glue table carrying the projection properties
	Region      string        // AWS region for the API clients (empty = SDK resolution chain)
	ReportS3URI string        // Optional S3 URI for the run report (s3://bucket/key)
	RunTimeout  time.Duration // Upper bound for the whole run
	DryRun      bool          // If true, compute and log changes without writing
	LogLevel    string        // debug|info|warn|error
	LogFormat   string        // json|console
}

// FromEnv builds a Config from the process environment. A .env file in the
// working directory is loaded first when present, matching how the job is
// configured by its scheduler (plain environment variables, no arguments).
func FromEnv() (*Config, error) {
	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(".env")

	v := viper.New()
	v.SetDefault("prefix", "AWSLogs")
	v.SetDefault("run_timeout", "10m")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	if err := v.BindEnv("region", "REGION", "AWS_REGION"); err != nil {
		return nil, err
	}
	v.AutomaticEnv()

	return &Config{
		Bucket:      v.GetString("bucket"),
		Prefix:      v.GetString("prefix"),
		Database:    v.GetString("database"),
		Table:       v.GetString("table"),
		Region:      v.GetString("region"),
		ReportS3URI: v.GetString("report_s3_uri"),
		RunTimeout:  v.GetDuration("run_timeout"),
		DryRun:      v.GetBool("dry_run"),
		LogLevel:    v.GetString("log_level"),
		LogFormat:   v.GetString("log_format"),
	}, nil
}

// Validate ensures all required fields are present and have valid values.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}

	if c.Prefix == "" {
		return fmt.Errorf("prefix is required")
	}
	// The listing adapter appends the delimiter itself; a trailing slash
	// here would produce an empty folder level.
	if strings.HasSuffix(c.Prefix, "/") {
		return fmt.Errorf("prefix must not end with /")
	}

	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Table == "" {
		return fmt.Errorf("table name is required")
	}

	if c.ReportS3URI != "" {
		u, err := url.Parse(c.ReportS3URI)
		if err != nil {
			return fmt.Errorf("invalid report S3 URI: %w", err)
		}
		if u.Scheme != "s3" {
			return fmt.Errorf("report S3 URI must use s3 scheme")
		}
		if u.Host == "" || strings.TrimPrefix(u.Path, "/") == "" {
			return fmt.Errorf("report S3 URI must be of the form s3://bucket/key")
		}
	}

	if c.RunTimeout < time.Second {
		return fmt.Errorf("run timeout must be at least 1 second")
	}

	return nil
}
