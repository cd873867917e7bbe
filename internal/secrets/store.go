package secrets

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"mailview/internal/config"
)

const (
	keyringPasswordEnv = "MAILVIEW_KEYRING_PASSWORD" //nolint:gosec // env var name, not a credential
	keyringBackendEnv  = "MAILVIEW_KEYRING_BACKEND"  //nolint:gosec // env var name, not a credential
)

var (
	ErrSecretNotFound        = errors.New("secret not found")
	errMissingSecretKey      = errors.New("missing secret key")
	errMissingUsername       = errors.New("missing username")
	errMissingSecret         = errors.New("missing secret value")
	errNoTTY                 = errors.New("no TTY available for keyring file backend password prompt")
	errInvalidKeyringBackend = errors.New("invalid keyring backend")
	errKeyringTimeout        = errors.New("keyring connection timed out")
	openKeyringFunc          = openKeyring
	keyringOpenFunc          = keyring.Open
)

type BackendInfo struct {
	Value  string
	Source string
}

const (
	backendSourceEnv     = "env"
	backendSourceConfig  = "config"
	backendSourceDefault = "default"
	backendAuto          = "auto"
)

// keyringOpenTimeout bounds keyring.Open. On headless Linux the D-Bus
// SecretService can hang when gnome-keyring is installed but not running.
const keyringOpenTimeout = 5 * time.Second

type backendConfig struct {
	KeyringBackend string `yaml:"keyring_backend"`
}

func readBackendConfig() (backendConfig, error) {
	path, err := config.ConfigPath()
	if err != nil {
		return backendConfig{}, err
	}

	b, err := os.ReadFile(path) //nolint:gosec // config path is trusted
	if err != nil {
		if os.IsNotExist(err) {
			return backendConfig{}, nil
		}
		return backendConfig{}, fmt.Errorf("read config: %w", err)
	}

	var cfg backendConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return backendConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

func ResolveBackendInfo() (BackendInfo, error) {
	if v := normalize(os.Getenv(keyringBackendEnv)); v != "" {
		return BackendInfo{Value: v, Source: backendSourceEnv}, nil
	}

	cfg, err := readBackendConfig()
	if err != nil {
		return BackendInfo{}, fmt.Errorf("resolve keyring backend: %w", err)
	}

	if v := normalize(cfg.KeyringBackend); v != "" {
		return BackendInfo{Value: v, Source: backendSourceConfig}, nil
	}

	return BackendInfo{Value: backendAuto, Source: backendSourceDefault}, nil
}

func allowedBackends(info BackendInfo) ([]keyring.BackendType, error) {
	switch info.Value {
	case "", backendAuto:
		return nil, nil
	case "keychain":
		return []keyring.BackendType{keyring.KeychainBackend}, nil
	case "secret-service":
		return []keyring.BackendType{keyring.SecretServiceBackend}, nil
	case "file":
		return []keyring.BackendType{keyring.FileBackend}, nil
	default:
		return nil, fmt.Errorf("%w: %q (expected %s, keychain, secret-service, or file)", errInvalidKeyringBackend, info.Value, backendAuto)
	}
}

func filePasswordFuncFrom(password string, passwordSet bool, isTTY bool) keyring.PromptFunc {
	// An empty passphrase set on purpose is still a passphrase.
	if passwordSet {
		return keyring.FixedStringPrompt(password)
	}

	if isTTY {
		return keyring.TerminalPrompt
	}

	return func(_ string) (string, error) {
		return "", fmt.Errorf("%w; set %s", errNoTTY, keyringPasswordEnv)
	}
}

func forceFileBackend(goos string, info BackendInfo, dbusAddr string) bool {
	return goos == "linux" && info.Value == backendAuto && dbusAddr == ""
}

func useOpenTimeout(goos string, info BackendInfo, dbusAddr string) bool {
	return goos == "linux" && info.Value == backendAuto && dbusAddr != ""
}

func openKeyring() (keyring.Keyring, error) {
	dir, err := config.EnsureKeyringDir()
	if err != nil {
		return nil, err
	}

	info, err := ResolveBackendInfo()
	if err != nil {
		return nil, err
	}

	backends, err := allowedBackends(info)
	if err != nil {
		return nil, err
	}

	dbusAddr := os.Getenv("DBUS_SESSION_BUS_ADDRESS")
	if forceFileBackend(runtime.GOOS, info, dbusAddr) {
		backends = []keyring.BackendType{keyring.FileBackend}
	}

	password, passwordSet := os.LookupEnv(keyringPasswordEnv)
	cfg := keyring.Config{
		ServiceName:              config.AppName,
		KeychainTrustApplication: false,
		AllowedBackends:          backends,
		FileDir:                  dir,
		FilePasswordFunc:         filePasswordFuncFrom(password, passwordSet, term.IsTerminal(int(os.Stdin.Fd()))),
	}

	if useOpenTimeout(runtime.GOOS, info, dbusAddr) {
		return openWithTimeout(cfg, keyringOpenTimeout)
	}

	ring, err := keyringOpenFunc(cfg)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ring, nil
}

func openWithTimeout(cfg keyring.Config, timeout time.Duration) (keyring.Keyring, error) {
	type result struct {
		ring keyring.Keyring
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		ring, err := keyringOpenFunc(cfg)
		ch <- result{ring, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("open keyring: %w", res.err)
		}
		return res.ring, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w after %v; set %s=file and %s=<password> to use encrypted file storage",
			errKeyringTimeout, timeout, keyringBackendEnv, keyringPasswordEnv)
	}
}

func setSecret(key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errMissingSecretKey
	}

	ring, err := openKeyringFunc()
	if err != nil {
		return err
	}

	item := keyring.Item{Key: key, Data: value, Label: config.AppName}
	if err := ring.Set(item); err != nil {
		return fmt.Errorf("store secret: %w", err)
	}
	return nil
}

func getSecret(key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errMissingSecretKey
	}

	ring, err := openKeyringFunc()
	if err != nil {
		return nil, err
	}

	item, err := ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrSecretNotFound
		}
		return nil, fmt.Errorf("read secret: %w", err)
	}
	return item.Data, nil
}

func removeSecret(key string) error {
	ring, err := openKeyringFunc()
	if err != nil {
		return err
	}
	if err := ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) && !os.IsNotExist(err) {
		return fmt.Errorf("remove secret: %w", err)
	}
	return nil
}

func SetPassword(username, password string) error {
	return setUserSecret("password", username, password)
}

func GetPassword(username string) (string, error) {
	return getUserSecret("password", username)
}

// SetSession stores the server's session cookie value for username.
func SetSession(username, session string) error {
	return setUserSecret("session", username, session)
}

func GetSession(username string) (string, error) {
	return getUserSecret("session", username)
}

func DeleteSession(username string) error {
	user := normalize(username)
	if user == "" {
		return errMissingUsername
	}
	return removeSecret(secretKey("session", user))
}

func setUserSecret(kind, username, value string) error {
	user := normalize(username)
	if user == "" {
		return errMissingUsername
	}
	if value == "" {
		return errMissingSecret
	}
	return setSecret(secretKey(kind, user), []byte(value))
}

func getUserSecret(kind, username string) (string, error) {
	user := normalize(username)
	if user == "" {
		return "", errMissingUsername
	}
	data, err := getSecret(secretKey(kind, user))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func secretKey(kind, username string) string {
	return fmt.Sprintf("auth:%s:%s", kind, username)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
