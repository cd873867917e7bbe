package cli

import (
	"errors"
	"os"

	"mailview/internal/config"
	"mailview/internal/secrets"
)

// loadConfig resolves the password and the session cookie on top of the
// config file: environment first, then the file, then the keyring.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}

	if err := resolvePassword(&cfg); err != nil {
		return cfg, err
	}
	if err := resolveSession(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func resolvePassword(cfg *config.Config) error {
	if _, ok := os.LookupEnv("MAILVIEW_AUTH_PASSWORD"); ok {
		cfg.Auth.PasswordSource = "env"
		return nil
	}
	if cfg.Auth.Password != "" {
		cfg.Auth.PasswordSource = "config"
		return nil
	}
	if cfg.Auth.Username == "" {
		return nil
	}

	password, err := secrets.GetPassword(cfg.Auth.Username)
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return nil
		}
		return err
	}
	cfg.Auth.Password = password
	cfg.Auth.PasswordSource = "keyring"
	return nil
}

func resolveSession(cfg *config.Config) error {
	if cfg.Auth.Session != "" {
		cfg.Auth.SessionSource = "env"
		return nil
	}
	if cfg.Auth.Username == "" {
		return nil
	}

	session, err := secrets.GetSession(cfg.Auth.Username)
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return nil
		}
		return err
	}
	cfg.Auth.Session = session
	cfg.Auth.SessionSource = "keyring"
	return nil
}
