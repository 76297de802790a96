package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/logger"
)

// Default locations.
const (
	DefaultDirName = ".filingqa"
	ConfigFileName = "config.toml"
	EnvFileName    = ".env"
)

// DefaultDir returns ~/.filingqa.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, DefaultDirName), nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Load resolves the configuration: defaults, then the TOML file at path
// (a missing file is fine), then .env files from the working directory
// and the data directory, then API keys from the environment.
//
// The result is not validated; callers decide which problems are fatal.
func Load(path string) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("no config file at %s, using defaults", path)
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: parse %s: %w", domain.ErrConfig, path, err)
		}
	}

	cfg.Storage.DataDir = ExpandHome(cfg.Storage.DataDir)
	cfg.Ingest.InboxDir = ExpandHome(cfg.Ingest.InboxDir)

	if err := loadEnvFiles(EnvFileName, filepath.Join(cfg.Storage.DataDir, EnvFileName)); err != nil {
		return cfg, err
	}
	cfg.ResolveSecrets(os.Getenv)
	return cfg, nil
}

// loadEnvFiles loads each existing file without overriding variables
// that are already set.
func loadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("%w: load %s: %w", domain.ErrConfig, p, err)
		}
		logger.Debug("loaded environment from %s", p)
	}
	return nil
}
