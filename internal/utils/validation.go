package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateDirectory resolves path to a clean absolute directory, following
// symlinks when the path climbs with "..".
func ValidateDirectory(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	absPath, err := filepath.Abs(ExpandHome(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	cleanPath := filepath.Clean(absPath)

	if strings.Contains(path, "..") {
		evalPath, err := filepath.EvalSymlinks(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to evaluate path: %w", err)
		}
		cleanPath = evalPath
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path does not exist: %s", cleanPath)
		}
		return "", fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", cleanPath)
	}

	return cleanPath, nil
}
