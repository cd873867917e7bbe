package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server         ServerConfig   `mapstructure:"server" yaml:"server"`
	Auth           AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Defaults       DefaultsConfig `mapstructure:"defaults" yaml:"defaults"`
	Log            LogConfig      `mapstructure:"log" yaml:"log"`
	KeyringBackend string         `mapstructure:"keyring_backend" yaml:"keyring_backend,omitempty"`
}

type ServerConfig struct {
	BaseURL            string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout            time.Duration `mapstructure:"timeout" yaml:"timeout"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

type AuthConfig struct {
	// Username is the address the server knows the account by. It also
	// decides which messages count as self-sent.
	Username      string `mapstructure:"username" yaml:"username"`
	Password      string `mapstructure:"password" yaml:"password,omitempty"`
	UsernameField string `mapstructure:"username_field" yaml:"username_field"`
	Session       string `mapstructure:"session" yaml:"-"`

	PasswordSource string `mapstructure:"-" yaml:"-"`
	SessionSource  string `mapstructure:"-" yaml:"-"`
}

type DefaultsConfig struct {
	Mailbox string `mapstructure:"mailbox" yaml:"mailbox"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			BaseURL: "http://127.0.0.1:8000",
			Timeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			UsernameField: "email",
		},
		Defaults: DefaultsConfig{
			Mailbox: "inbox",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MAILVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func Save(cfg Config) (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}

	return path, nil
}

func Redact(cfg Config) Config {
	masked := cfg
	if masked.Auth.Password != "" {
		masked.Auth.Password = "****"
	}
	return masked
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("server.base_url", cfg.Server.BaseURL)
	v.SetDefault("server.timeout", cfg.Server.Timeout)
	v.SetDefault("server.insecure_skip_verify", cfg.Server.InsecureSkipVerify)

	// Registered so AutomaticEnv picks up MAILVIEW_AUTH_* overrides.
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.session", "")
	v.SetDefault("auth.username_field", cfg.Auth.UsernameField)

	v.SetDefault("defaults.mailbox", cfg.Defaults.Mailbox)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}

func Validate(cfg Config) error {
	if err := ValidateServer(cfg); err != nil {
		return err
	}
	if cfg.Auth.Username == "" {
		return fmt.Errorf("auth.username is required")
	}
	return nil
}

func ValidateServer(cfg Config) error {
	if cfg.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	u, err := url.Parse(cfg.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("server.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url must be http or https, got %q", cfg.Server.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("server.base_url has no host")
	}
	if cfg.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must not be negative")
	}
	return nil
}

// ValidateSession is required by every command that talks to the mailbox API.
func ValidateSession(cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if cfg.Auth.Session == "" {
		return fmt.Errorf("not logged in; run `mailview auth login`")
	}
	return nil
}
