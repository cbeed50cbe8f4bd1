package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// Service groups the app's secrets in the OS keychain.
	KeyringService = "nhsjobs"
)

var ErrNotFound = errors.New("store password not found")

// StorePassword resolves the snapshot store password. A credentials file wins
// over the keyring; an empty file path skips straight to the keyring.
func StorePassword(credentialsFile, keyringAccount string) (string, error) {
	if path := strings.TrimSpace(credentialsFile); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read credentials file: %w", err)
		}
		if pw := strings.TrimSpace(string(b)); pw != "" {
			return pw, nil
		}
	}

	if strings.TrimSpace(keyringAccount) != "" {
		pw, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("keyring: %w", err)
		}
	}

	return "", ErrNotFound
}

func SetStorePassword(keyringAccount string, password string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, password)
}

func DeleteStorePassword(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}

// StoreKeyringAccount names the keychain entry for a store backend, e.g. "nhsjobs:store:postgres".
func StoreKeyringAccount(backend string) string {
	return fmt.Sprintf("nhsjobs:store:%s", backend)
}
