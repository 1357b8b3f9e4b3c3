// Package config provides configuration loading and validation for the
// catalog sync daemon.
package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/candleworks/catalogsync/internal/cron"
)

// Defaults applied when the corresponding fields are omitted.
const (
	DefaultRemotePort      = 22
	DefaultRemoteTimeout   = 30 * time.Second
	DefaultStagingDir      = "./staging"
	DefaultRetentionHours  = 24
	DefaultCompletedGrace  = 2 * time.Second
	DefaultErrorGrace      = 15 * time.Second
	DefaultTimezone        = "UTC"
	DefaultServerAddress   = ":8080"
	DefaultPublishPageSize = 100
)

// Option defines the interface for configuration loader options
type Option func(*loaderConfig) error

type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(p string) Option {
	return func(cfg *loaderConfig) error {
		if p == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(p)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", p)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Remote configures the SFTP host the legacy export is fetched from
	Remote RemoteConfig `yaml:"remote"`

	// Schedule configures the recurring sync schedule
	Schedule ScheduleConfig `yaml:"schedule"`

	// Staging configures the local staging directory for fetched payloads
	Staging StagingConfig `yaml:"staging"`

	// Parser configures the legacy record parser
	Parser ParserConfig `yaml:"parser"`

	// Publisher configures the downstream catalog API client.
	// When nil, publication is disabled and parsed records are only staged.
	Publisher *PublisherConfig `yaml:"publisher,omitempty"`

	// Server configures the HTTP API surface
	Server ServerConfig `yaml:"server"`

	// Grace configures the post-run grace delays
	Grace GraceConfig `yaml:"grace"`
}

// RemoteConfig defines the SFTP source settings
type RemoteConfig struct {
	// Host is the SFTP server hostname or IP address
	Host string `yaml:"host"`

	// Port is the SFTP server port, defaults to 22
	Port int `yaml:"port,omitempty"`

	// User is the SFTP username
	User string `yaml:"user"`

	// Password is the SFTP password. Prefer PasswordFile or the
	// CATALOGSYNC_REMOTE_PASSWORD environment variable in production.
	Password string `yaml:"password,omitempty"`

	// PasswordFile is the path to a file containing the SFTP password.
	// The file should contain only the password with optional trailing whitespace.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// KeyFile is the path to a PEM-encoded private key for key-based auth
	KeyFile string `yaml:"keyFile,omitempty"`

	// Dir is the remote directory holding the export files
	Dir string `yaml:"dir"`

	// FilePattern is a glob pattern selecting candidate export files,
	// e.g. "inventory_*.sql"
	FilePattern string `yaml:"filePattern"`

	// Timeout bounds the SFTP dial and each transfer operation (e.g. "30s")
	Timeout string `yaml:"timeout,omitempty"`
}

// ScheduleConfig defines the recurring sync schedule
type ScheduleConfig struct {
	// Expression is a standard 5-field cron expression
	Expression string `yaml:"expression"`

	// Timezone is the IANA timezone the expression is evaluated in,
	// defaults to UTC
	Timezone string `yaml:"timezone,omitempty"`
}

// StagingConfig defines the local staging area settings
type StagingConfig struct {
	// Dir is the directory fetched payloads are staged in
	Dir string `yaml:"dir,omitempty"`

	// RetentionHours is how long staged payloads are kept before the
	// finalize phase purges them
	RetentionHours int `yaml:"retentionHours,omitempty"`
}

// ParserConfig defines record parser behavior
type ParserConfig struct {
	// CleanNames enables product name normalization, defaults to true
	CleanNames *bool `yaml:"cleanNames,omitempty"`

	// Validate enables the record validation gate, defaults to true
	Validate *bool `yaml:"validate,omitempty"`
}

// PublisherConfig defines the downstream catalog API settings
type PublisherConfig struct {
	// Endpoint is the base catalog API URL (without path)
	Endpoint string `yaml:"endpoint"`

	// PageSize is the number of records sent per batch request
	PageSize int `yaml:"pageSize,omitempty"`
}

// ServerConfig defines the HTTP API surface settings
type ServerConfig struct {
	// Address is the listen address, defaults to ":8080"
	Address string `yaml:"address,omitempty"`
}

// GraceConfig defines the post-run grace delays before returning to idle
type GraceConfig struct {
	// Completed is the delay after a successful run (e.g. "2s")
	Completed string `yaml:"completed,omitempty"`

	// Error is the delay after a failed run (e.g. "15s"). Kept longer than
	// Completed so scheduled triggers cannot produce rapid retry storms.
	Error string `yaml:"error,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := c.Remote.validate(); err != nil {
		return err
	}
	if err := c.Schedule.validate(); err != nil {
		return err
	}
	if err := c.Staging.validate(); err != nil {
		return err
	}
	if c.Publisher != nil {
		if err := c.Publisher.validate(); err != nil {
			return err
		}
	}
	return c.Grace.validate()
}

func (r *RemoteConfig) validate() error {
	if r.Host == "" {
		return fmt.Errorf("remote.host is required")
	}
	if r.User == "" {
		return fmt.Errorf("remote.user is required")
	}
	if r.Dir == "" {
		return fmt.Errorf("remote.dir is required")
	}
	if r.FilePattern == "" {
		return fmt.Errorf("remote.filePattern is required")
	}
	// Probe the pattern against a dummy name so a malformed glob fails
	// at load time rather than mid-run.
	if _, err := path.Match(r.FilePattern, "probe"); err != nil {
		return fmt.Errorf("remote.filePattern is not a valid glob pattern: %w", err)
	}
	if r.Port < 0 || r.Port > 65535 {
		return fmt.Errorf("remote.port must be between 0 and 65535, got %d", r.Port)
	}
	if r.Timeout != "" {
		if _, err := time.ParseDuration(r.Timeout); err != nil {
			return fmt.Errorf("remote.timeout must be a valid duration (e.g. '30s'): %w", err)
		}
	}
	return nil
}

func (s *ScheduleConfig) validate() error {
	if s.Expression == "" {
		return fmt.Errorf("schedule.expression is required")
	}
	if err := cron.Validate(s.Expression); err != nil {
		return fmt.Errorf("schedule.expression is not a valid cron expression: %w", err)
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("schedule.timezone is not a valid IANA timezone: %w", err)
		}
	}
	return nil
}

func (s *StagingConfig) validate() error {
	if s.RetentionHours < 0 {
		return fmt.Errorf("staging.retentionHours must not be negative, got %d", s.RetentionHours)
	}
	return nil
}

func (p *PublisherConfig) validate() error {
	if p.Endpoint == "" {
		return fmt.Errorf("publisher.endpoint is required")
	}
	if !strings.HasPrefix(p.Endpoint, "http://") && !strings.HasPrefix(p.Endpoint, "https://") {
		return fmt.Errorf("publisher.endpoint must be an http(s) URL, got %s", p.Endpoint)
	}
	if p.PageSize < 0 {
		return fmt.Errorf("publisher.pageSize must not be negative, got %d", p.PageSize)
	}
	return nil
}

func (g *GraceConfig) validate() error {
	if g.Completed != "" {
		if _, err := time.ParseDuration(g.Completed); err != nil {
			return fmt.Errorf("grace.completed must be a valid duration: %w", err)
		}
	}
	if g.Error != "" {
		if _, err := time.ParseDuration(g.Error); err != nil {
			return fmt.Errorf("grace.error must be a valid duration: %w", err)
		}
	}
	return nil
}

// GetPassword returns the SFTP password using the following priority:
// 1. Inline Password field
// 2. Read from PasswordFile if specified
// 3. Read from CATALOGSYNC_REMOTE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
// Returns an empty string without error when no password is configured,
// since key-based auth may be in use.
func (r *RemoteConfig) GetPassword() (string, error) {
	if r.Password != "" {
		return r.Password, nil
	}

	if r.PasswordFile != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(r.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", r.PasswordFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	return os.Getenv("CATALOGSYNC_REMOTE_PASSWORD"), nil
}

// GetPort returns the remote port, using 22 if not specified
func (r *RemoteConfig) GetPort() int {
	if r.Port == 0 {
		return DefaultRemotePort
	}
	return r.Port
}

// GetTimeout returns the remote operation timeout, using the default if
// not specified
func (r *RemoteConfig) GetTimeout() time.Duration {
	if r.Timeout == "" {
		return DefaultRemoteTimeout
	}
	d, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return DefaultRemoteTimeout
	}
	return d
}

// GetTimezone returns the schedule timezone, using UTC if not specified
func (s *ScheduleConfig) GetTimezone() string {
	if s.Timezone == "" {
		return DefaultTimezone
	}
	return s.Timezone
}

// GetDir returns the staging directory, using the default if not specified
func (s *StagingConfig) GetDir() string {
	if s.Dir == "" {
		return DefaultStagingDir
	}
	return s.Dir
}

// GetRetention returns the staging retention window as a duration
func (s *StagingConfig) GetRetention() time.Duration {
	hours := s.RetentionHours
	if hours == 0 {
		hours = DefaultRetentionHours
	}
	return time.Duration(hours) * time.Hour
}

// GetCleanNames reports whether name normalization is enabled, defaulting
// to true
func (p *ParserConfig) GetCleanNames() bool {
	if p.CleanNames == nil {
		return true
	}
	return *p.CleanNames
}

// GetValidate reports whether the validation gate is enabled, defaulting
// to true
func (p *ParserConfig) GetValidate() bool {
	if p.Validate == nil {
		return true
	}
	return *p.Validate
}

// GetPageSize returns the publish batch size, using the default if not
// specified
func (p *PublisherConfig) GetPageSize() int {
	if p.PageSize == 0 {
		return DefaultPublishPageSize
	}
	return p.PageSize
}

// GetAddress returns the HTTP listen address, using ":8080" if not specified
func (s *ServerConfig) GetAddress() string {
	if s.Address == "" {
		return DefaultServerAddress
	}
	return s.Address
}

// GetCompleted returns the post-success grace delay
func (g *GraceConfig) GetCompleted() time.Duration {
	if g.Completed == "" {
		return DefaultCompletedGrace
	}
	d, err := time.ParseDuration(g.Completed)
	if err != nil {
		return DefaultCompletedGrace
	}
	return d
}

// GetError returns the post-failure grace delay
func (g *GraceConfig) GetError() time.Duration {
	if g.Error == "" {
		return DefaultErrorGrace
	}
	d, err := time.ParseDuration(g.Error)
	if err != nil {
		return DefaultErrorGrace
	}
	return d
}
