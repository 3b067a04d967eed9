package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	License  LicenseConfig  `yaml:"license" envconfig:"LICENSE"`
	Package  PackageConfig  `yaml:"package" envconfig:"PACKAGE"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8178" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	// InstallTimeout bounds a whole install run at the route level.
	InstallTimeout time.Duration `yaml:"install_timeout" envconfig:"INSTALL_TIMEOUT" default:"10m"`
}

// LicenseConfig contains license verification configuration.
type LicenseConfig struct {
	VerifyURL string        `yaml:"verify_url" envconfig:"VERIFY_URL" default:"https://api.monolithos.app/v1/license/verify" validate:"required,url"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s"`
}

// PackageConfig describes the install package.
type PackageConfig struct {
	DownloadURL string `yaml:"download_url" envconfig:"DOWNLOAD_URL" default:"https://releases.monolithos.app/monolithos-latest.zip" validate:"required,url"`
	// Version is the nominal version string recorded in settings after a
	// successful install. The package itself carries no version metadata.
	Version string `yaml:"version" envconfig:"VERSION" default:"1.4.2" validate:"required"`
	// ManifestURL points at the published release manifest used for update
	// checks.
	ManifestURL         string        `yaml:"manifest_url" envconfig:"MANIFEST_URL" default:"https://releases.monolithos.app/latest.json" validate:"required,url"`
	UpdateCheckInterval time.Duration `yaml:"update_check_interval" envconfig:"UPDATE_CHECK_INTERVAL" default:"6h"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"20"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/installerd.log"`
}

// PathsConfig contains file system path configuration.
type PathsConfig struct {
	// ConfigDir is the host configuration directory that plugin and
	// snippet files are installed under.
	ConfigDir    string `yaml:"config_dir" envconfig:"CONFIG_DIR" default:"config" validate:"required"`
	SettingsFile string `yaml:"settings_file" envconfig:"SETTINGS_FILE" default:"installer-settings.json"`
}

// Load loads configuration from environment variables and an optional
// YAML file (explicit file values take precedence), then validates the
// result.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("MONO", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := configFilePath(); configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileCfg, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = mergeConfigs(*fileCfg, cfg)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration against struct validation rules.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// configFilePath returns the YAML config file location, overridable
// through MONO_CONFIG_FILE.
func configFilePath() string {
	if path := os.Getenv("MONO_CONFIG_FILE"); path != "" {
		return path
	}
	return "monoinstall.yml"
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs overlays explicitly-set file values onto the env-derived
// config; unset file fields keep the env/default values.
func mergeConfigs(fileConfig, envConfig Config) Config {
	merged := envConfig

	if fileConfig.Server.Port != 0 {
		merged.Server.Port = fileConfig.Server.Port
	}
	if fileConfig.License.VerifyURL != "" {
		merged.License.VerifyURL = fileConfig.License.VerifyURL
	}
	if fileConfig.License.Timeout != 0 {
		merged.License.Timeout = fileConfig.License.Timeout
	}
	if fileConfig.Package.DownloadURL != "" {
		merged.Package.DownloadURL = fileConfig.Package.DownloadURL
	}
	if fileConfig.Package.Version != "" {
		merged.Package.Version = fileConfig.Package.Version
	}
	if fileConfig.Paths.ConfigDir != "" {
		merged.Paths.ConfigDir = fileConfig.Paths.ConfigDir
	}
	if fileConfig.Paths.SettingsFile != "" {
		merged.Paths.SettingsFile = fileConfig.Paths.SettingsFile
	}
	if fileConfig.Logging.Level != "" {
		merged.Logging.Level = fileConfig.Logging.Level
	}
	if fileConfig.Logging.Output != "" {
		merged.Logging.Output = fileConfig.Logging.Output
	}

	return merged
}
