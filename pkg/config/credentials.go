package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables holding the valid login.
const (
	EnvUsername = "TEST_USERNAME"
	EnvPassword = "TEST_PASSWORD"
)

// Credentials are the valid login the suite signs in with.
type Credentials struct {
	Username string
	Password string
}

// IsSet reports whether both values are present.
func (c Credentials) IsSet() bool {
	return c.Username != "" && c.Password != ""
}

// LoadCredentials reads TEST_USERNAME and TEST_PASSWORD. Values from the
// optional env files are loaded first without overriding the real
// environment; missing files are ignored.
func LoadCredentials(envFiles ...string) (Credentials, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, err
		}
	}
	return Credentials{
		Username: os.Getenv(EnvUsername),
		Password: os.Getenv(EnvPassword),
	}, nil
}
