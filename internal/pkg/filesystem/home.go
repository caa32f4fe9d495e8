package filesystem

import (
	"os"
	"path/filepath"
	"strings"
)

// UserHomeDir returns the current user's home directory.
// If the home directory cannot be determined, it returns "." as a fallback.
func UserHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// AppDir is the askcmd state directory (~/.askcmd).
func AppDir() string {
	return filepath.Join(UserHomeDir(), ".askcmd")
}

// ExpandPath resolves "~/" prefixes and relative paths against the home directory.
func ExpandPath(path string) string {
	switch {
	case path == "":
		return ""
	case filepath.IsAbs(path):
		return path
	case path == "~":
		return UserHomeDir()
	case strings.HasPrefix(path, "~/"):
		return filepath.Join(UserHomeDir(), path[2:])
	default:
		return filepath.Join(UserHomeDir(), path)
	}
}
