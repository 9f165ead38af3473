package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read when no env file is configured.
const DefaultEnvFile = ".env"

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = DefaultEnvFile
	}

	err := godotenv.Load(ExpandPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
