package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from .env files.
//
// Search order:
//  1. Explicit paths, if provided
//  2. .env next to the config file, if configPath is set
//  3. .env in the current directory
//
// Existing environment variables are NOT overwritten, so the first file
// that sets a variable wins.
func LoadDotEnv(configPath string, paths ...string) {
	for _, path := range paths {
		if path != "" {
			loadIfExists(path)
		}
	}

	if configPath != "" {
		if absPath, err := filepath.Abs(configPath); err == nil {
			loadIfExists(filepath.Join(filepath.Dir(absPath), ".env"))
		}
	}

	loadIfExists(".env")
}

// loadIfExists loads a .env file if it exists.
func loadIfExists(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return
	}

	if err := godotenv.Load(path); err != nil {
		slog.Debug("Failed to load .env file", "path", path, "error", err)
		return
	}

	slog.Debug("Loaded environment from .env", "path", path)
}
