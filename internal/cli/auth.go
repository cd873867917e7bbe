package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"mailview/internal/config"
	"mailview/internal/secrets"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Log in to the mail server and manage the stored session",
	}
	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		server        string
		insecure      bool
		username      string
		password      string
		usernameField string
		skipKeyring   bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session in the keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			fromConfig := cfg.Auth.Password != ""
			if _, ok := os.LookupEnv("MAILVIEW_AUTH_PASSWORD"); ok {
				fromConfig = false
			}

			if cmd.Flags().Changed("server") {
				cfg.Server.BaseURL = server
			}
			if cmd.Flags().Changed("insecure") {
				cfg.Server.InsecureSkipVerify = insecure
			}
			if cmd.Flags().Changed("username") {
				cfg.Auth.Username = username
			}
			if cmd.Flags().Changed("username-field") {
				cfg.Auth.UsernameField = usernameField
			}
			if cmd.Flags().Changed("password") {
				cfg.Auth.Password = password
				fromConfig = false
			}

			if err := config.Validate(cfg); err != nil {
				return err
			}

			if cfg.Auth.Password == "" {
				if !skipKeyring {
					if stored, err := secrets.GetPassword(cfg.Auth.Username); err == nil {
						cfg.Auth.Password = stored
					}
				}
				if cfg.Auth.Password == "" {
					pw, err := promptPassword(cmd, cfg.Auth.Username)
					if err != nil {
						return err
					}
					cfg.Auth.Password = pw
				}
			}

			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			client, err := newClient(cfg, logger)
			if err != nil {
				return err
			}
			if err := client.Login(cmd.Context(), cfg.Auth.Username, cfg.Auth.Password); err != nil {
				return err
			}

			if !skipKeyring {
				if err := secrets.SetSession(cfg.Auth.Username, client.SessionCookie()); err != nil {
					return fmt.Errorf("store session: %w", err)
				}
				if !fromConfig {
					if err := secrets.SetPassword(cfg.Auth.Username, cfg.Auth.Password); err != nil {
						return fmt.Errorf("store password: %w", err)
					}
				}
			}
			if !fromConfig {
				cfg.Auth.Password = ""
			}

			path, err := config.Save(cfg)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", cfg.Auth.Username)
			fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", path)
			if skipKeyring {
				fmt.Fprintf(cmd.OutOrStdout(), "Session not stored; export MAILVIEW_AUTH_SESSION=%s\n", client.SessionCookie())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server base URL, e.g. http://127.0.0.1:8000")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "Skip TLS verification")
	cmd.Flags().StringVar(&username, "username", "", "Account email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	cmd.Flags().StringVar(&usernameField, "username-field", "", "Login form field for the account name")
	cmd.Flags().BoolVar(&skipKeyring, "no-keyring", false, "Do not read or write the keyring")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the server session and forget it locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.Username == "" {
				return fmt.Errorf("auth.username is required")
			}

			if cfg.Auth.Session != "" {
				logger, err := newLogger(cmd, cfg)
				if err != nil {
					return err
				}
				client, err := newClient(cfg, logger)
				if err != nil {
					return err
				}
				client.SetSessionCookie(cfg.Auth.Session)
				if err := client.Logout(cmd.Context()); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: server logout failed: %v\n", err)
				}
			}

			if err := secrets.DeleteSession(cfg.Auth.Username); err != nil && !errors.Is(err, secrets.ErrSecretNotFound) {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
	return cmd
}

func promptPassword(cmd *cobra.Command, username string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("password required: use --password or MAILVIEW_AUTH_PASSWORD")
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Password for %s: ", username)
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	pw := strings.TrimRight(string(data), "\r\n")
	if pw == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return pw, nil
}
