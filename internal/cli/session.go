package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"mailview/internal/api"
	"mailview/internal/config"
	"mailview/internal/history"
	"mailview/internal/logging"
	"mailview/internal/mailbox"
	"mailview/internal/view"
)

// session wires one command invocation: config, logger, transport,
// controller and router.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	client *api.Client
	ctrl   *mailbox.Controller
	router *history.Router
	alerts *alertLog
}

func newLogger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return logging.New(cmd.ErrOrStderr(), cfg.Log, verbose)
}

func newClient(cfg config.Config, logger *slog.Logger) (*api.Client, error) {
	return api.New(api.Options{
		BaseURL:            cfg.Server.BaseURL,
		Timeout:            cfg.Server.Timeout,
		InsecureSkipVerify: cfg.Server.InsecureSkipVerify,
		UsernameField:      cfg.Auth.UsernameField,
		Logger:             logger,
	})
}

// openSession loads the config and restores the stored login. Commands that
// need the mailbox API call it first. A renderer that is also an Alerter
// receives the alerts too.
func openSession(cmd *cobra.Command, renderer mailbox.Renderer) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := config.ValidateSession(cfg); err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}
	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	client.SetSessionCookie(cfg.Auth.Session)

	alerts := &alertLog{}
	var alerter mailbox.Alerter = alerts
	if a, ok := renderer.(mailbox.Alerter); ok {
		alerter = a
	}
	ctrl := mailbox.New(client, mailbox.Options{
		CurrentUser: cfg.Auth.Username,
		Renderer:    renderer,
		Alerter:     alerter,
		Logger:      logger,
	})
	logger.Debug("session opened", "server", cfg.Server.BaseURL, "user", cfg.Auth.Username, "session_source", cfg.Auth.SessionSource)

	return &session{
		cfg:    cfg,
		logger: logger,
		client: client,
		ctrl:   ctrl,
		router: history.NewRouter(ctrl, nil, logger),
		alerts: alerts,
	}, nil
}

// settle waits for background work and returns the current view, or the
// error it failed to load with.
func (s *session) settle() (view.View, error) {
	s.ctrl.Wait()
	v := s.ctrl.Current()
	if v.Err != nil {
		return v, loginHint(v.Err)
	}
	return v, nil
}

// finish prints alerts that did not already surface as err.
func (s *session) finish(w io.Writer, err error) error {
	s.ctrl.Close()
	for _, a := range s.alerts.drain() {
		if err != nil && errors.Is(a, err) {
			continue
		}
		fmt.Fprintf(w, "warning: %v\n", a)
	}
	return loginHint(err)
}

type loginRequiredError struct{ err error }

func (e *loginRequiredError) Error() string {
	return e.err.Error() + "; run `mailview auth login`"
}

func (e *loginRequiredError) Unwrap() error { return e.err }

func loginHint(err error) error {
	var hinted *loginRequiredError
	if errors.As(err, &hinted) || !errors.Is(err, api.ErrAuthenticationRequired) {
		return err
	}
	return &loginRequiredError{err: err}
}

type alertLog struct {
	mu     sync.Mutex
	alerts []error
}

func (l *alertLog) Alert(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.alerts = append(l.alerts, err)
}

func (l *alertLog) drain() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.alerts
	l.alerts = nil
	return out
}
