package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
)

func useArrayKeyring(t *testing.T) *keyring.ArrayKeyring {
	t.Helper()
	ring := keyring.NewArrayKeyring(nil)
	orig := openKeyringFunc
	openKeyringFunc = func() (keyring.Keyring, error) { return ring, nil }
	t.Cleanup(func() { openKeyringFunc = orig })
	return ring
}

func TestSessionRoundTrip(t *testing.T) {
	useArrayKeyring(t)

	if err := SetSession("User@Example.com ", "sess-123"); err != nil {
		t.Fatalf("set session: %v", err)
	}
	got, err := GetSession("user@example.com")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got != "sess-123" {
		t.Fatalf("expected sess-123, got %q", got)
	}

	if err := DeleteSession("user@example.com"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := GetSession("user@example.com"); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
}

func TestPasswordAndSessionAreSeparate(t *testing.T) {
	useArrayKeyring(t)

	if err := SetPassword("a@b.c", "pw"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if _, err := GetSession("a@b.c"); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected no session, got %v", err)
	}
	pw, err := GetPassword("a@b.c")
	if err != nil || pw != "pw" {
		t.Fatalf("GetPassword = %q, %v", pw, err)
	}
}

func TestSetRejectsEmpty(t *testing.T) {
	useArrayKeyring(t)

	if err := SetSession("", "x"); !errors.Is(err, errMissingUsername) {
		t.Fatalf("expected errMissingUsername, got %v", err)
	}
	if err := SetSession("a@b.c", ""); !errors.Is(err, errMissingSecret) {
		t.Fatalf("expected errMissingSecret, got %v", err)
	}
}

func TestResolveBackendInfo(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MAILVIEW_CONFIG_DIR", dir)
	t.Setenv(keyringBackendEnv, "")

	info, err := ResolveBackendInfo()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if info.Value != backendAuto || info.Source != backendSourceDefault {
		t.Fatalf("unexpected default backend %+v", info)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("keyring_backend: File\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	info, err = ResolveBackendInfo()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if info.Value != "file" || info.Source != backendSourceConfig {
		t.Fatalf("expected file backend from config, got %+v", info)
	}

	t.Setenv(keyringBackendEnv, "keychain")
	info, err = ResolveBackendInfo()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if info.Value != "keychain" || info.Source != backendSourceEnv {
		t.Fatalf("expected env override, got %+v", info)
	}
}

func TestAllowedBackendsRejectsUnknown(t *testing.T) {
	if _, err := allowedBackends(BackendInfo{Value: "vault"}); !errors.Is(err, errInvalidKeyringBackend) {
		t.Fatalf("expected errInvalidKeyringBackend, got %v", err)
	}
	backends, err := allowedBackends(BackendInfo{Value: "file"})
	if err != nil || len(backends) != 1 || backends[0] != keyring.FileBackend {
		t.Fatalf("unexpected backends %v, %v", backends, err)
	}
}

func TestForceFileBackendOnHeadlessLinux(t *testing.T) {
	auto := BackendInfo{Value: backendAuto}
	if !forceFileBackend("linux", auto, "") {
		t.Fatalf("expected file backend without D-Bus")
	}
	if forceFileBackend("darwin", auto, "") {
		t.Fatalf("macOS must keep keychain")
	}
	if !useOpenTimeout("linux", auto, "unix:path=/run/bus") {
		t.Fatalf("expected open timeout with D-Bus present")
	}
}
