// Package config resolves runtime settings for the incident-report tools.
// Values are layered: built-in defaults, then an optional YAML file, then a
// .env file, then INCIDENT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "INCIDENT_"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Duration is a time.Duration that reads Go duration strings from YAML.
type Duration time.Duration

// UnmarshalYAML accepts "5s", "1m30s" or a bare integer of seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type API struct {
	BaseURL string   `yaml:"base_url"`
	Token   string   `yaml:"token"`
	Timeout Duration `yaml:"timeout"`
}

type Report struct {
	OutputDir   string   `yaml:"output_dir"`
	Title       string   `yaml:"title"`
	LogoPath    string   `yaml:"logo_path"`
	LogoURL     string   `yaml:"logo_url"`
	LogoTimeout Duration `yaml:"logo_timeout"`
	Overwrite   bool     `yaml:"overwrite"`
}

// Minio configures the optional report archive. Archiving is off while
// Endpoint is empty.
type Minio struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled reports whether an archive endpoint is configured.
func (m Minio) Enabled() bool { return strings.TrimSpace(m.Endpoint) != "" }

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Stub struct {
	Addr  string `yaml:"addr"`
	Token string `yaml:"token"`
}

// Config is the resolved configuration.
type Config struct {
	API    API    `yaml:"api"`
	Report Report `yaml:"report"`
	Minio  Minio  `yaml:"minio"`
	Log    Log    `yaml:"log"`
	Stub   Stub   `yaml:"stub"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		API: API{
			BaseURL: "http://localhost:8085",
			Timeout: Duration(30 * time.Second),
		},
		Report: Report{
			OutputDir: ".",
		},
		Minio: Minio{
			Bucket: "incident-reports",
			Prefix: "reports",
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
		Stub: Stub{
			Addr: ":8085",
		},
	}
}

type loader struct {
	file    string
	envFile string
	lookup  func(string) (string, bool)
}

// Option configures Load.
type Option func(*loader)

// WithFile reads path as YAML. A missing path is an error.
func WithFile(path string) Option {
	return func(l *loader) {
		l.file = path
	}
}

// WithEnvFile sets the dotenv file to read. Defaults to ".env"; a missing
// file is ignored.
func WithEnvFile(path string) Option {
	return func(l *loader) {
		l.envFile = path
	}
}

// WithLookup replaces os.LookupEnv.
func WithLookup(fn func(string) (string, bool)) Option {
	return func(l *loader) {
		if fn != nil {
			l.lookup = fn
		}
	}
}

// Load resolves and validates the configuration.
func Load(options ...Option) (Config, error) {
	l := &loader{envFile: ".env", lookup: os.LookupEnv}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}

	cfg := Default()
	if l.file != "" {
		raw, err := os.ReadFile(l.file)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", l.file, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", l.file, err)
		}
	}

	lookup := l.lookup
	if l.envFile != "" {
		dotenv, err := godotenv.Read(l.envFile)
		switch {
		case err == nil:
			lookup = layered(l.lookup, dotenv)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", l.envFile, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// layered prefers the real environment over dotenv values, matching
// godotenv.Load which never overrides variables already set.
func layered(env func(string) (string, bool), dotenv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := env(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"API_BASE_URL":     &c.API.BaseURL,
		"API_TOKEN":        &c.API.Token,
		"OUTPUT_DIR":       &c.Report.OutputDir,
		"REPORT_TITLE":     &c.Report.Title,
		"LOGO_PATH":        &c.Report.LogoPath,
		"LOGO_URL":         &c.Report.LogoURL,
		"MINIO_ENDPOINT":   &c.Minio.Endpoint,
		"MINIO_ACCESS_KEY": &c.Minio.AccessKey,
		"MINIO_SECRET_KEY": &c.Minio.SecretKey,
		"MINIO_BUCKET":     &c.Minio.Bucket,
		"MINIO_PREFIX":     &c.Minio.Prefix,
		"LOG_LEVEL":        &c.Log.Level,
		"LOG_FORMAT":       &c.Log.Format,
		"STUB_ADDR":        &c.Stub.Addr,
		"STUB_TOKEN":       &c.Stub.Token,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	durations := map[string]*Duration{
		"API_TIMEOUT":  &c.API.Timeout,
		"LOGO_TIMEOUT": &c.Report.LogoTimeout,
	}
	for key, dst := range durations {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
		*dst = Duration(d)
	}

	bools := map[string]*bool{
		"MINIO_USE_SSL":    &c.Minio.UseSSL,
		"REPORT_OVERWRITE": &c.Report.Overwrite,
	}
	for key, dst := range bools {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
		*dst = b
	}
	return nil
}

// Validate checks the resolved values.
func (c Config) Validate() error {
	var errs []error
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL))
		}
	}
	if c.API.Timeout < 0 {
		errs = append(errs, errors.New("api.timeout must not be negative"))
	}
	if c.Report.LogoTimeout < 0 {
		errs = append(errs, errors.New("report.logo_timeout must not be negative"))
	}
	if c.Report.LogoPath != "" && c.Report.LogoURL != "" {
		errs = append(errs, errors.New("report.logo_path and report.logo_url are mutually exclusive"))
	}
	if strings.TrimSpace(c.Report.OutputDir) == "" {
		errs = append(errs, errors.New("report.output_dir is required"))
	}
	if c.Minio.Enabled() && strings.TrimSpace(c.Minio.Bucket) == "" {
		errs = append(errs, errors.New("minio.bucket is required when minio.endpoint is set"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be console or json", c.Log.Format))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(raw)
}
