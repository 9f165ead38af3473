// Package config loads presets, provider settings and file locations.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultDatabasePath is used when database.path is not configured.
const DefaultDatabasePath = "~/.local/share/bucketeer/bucketeer.db"

const memoryDatabase = ":memory:"

// DatabasePath resolves database.path, falling back to DefaultDatabasePath.
func DatabasePath(v *viper.Viper) string {
	path := strings.TrimSpace(v.GetString("database.path"))
	switch path {
	case "":
		path = DefaultDatabasePath
	case memoryDatabase:
		return path
	}
	return ExpandPath(path)
}

// ExpandPath expands a leading ~ and $VAR references.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return os.ExpandEnv(path)
}
