package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// MissingCredentialError reports an API key environment variable that is
// unset or empty.
type MissingCredentialError struct {
	Var string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("environment variable %s is not set", e.Var)
}

// LoadDotEnv loads environment variables from path. Missing files are
// ignored and variables already present in the process win.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// ResolveAPIKey reads the API key from the named environment variable using
// getenv (os.Getenv when nil).
func ResolveAPIKey(getenv func(string) string, envVar string) (string, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	key := strings.TrimSpace(getenv(envVar))
	if key == "" {
		return "", &MissingCredentialError{Var: envVar}
	}
	return key, nil
}
