package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	TaskDir  string `yaml:"task_dir"`  // taskwarrior data directory holding taskchampion.sqlite3
	StateDir string `yaml:"state_dir"` // where merge backups are kept
	Keep     int    `yaml:"keep"`      // backup directories to retain
	LogLevel string `yaml:"log_level"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables (TCMERGE_*)
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/tcmerge/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		Keep:     100,
		LogLevel: "info",
	}

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// Load ~/.config/tcmerge/config.yaml if it exists
	if err := loadYAMLConfig(cfg); err != nil {
		// YAML config is optional, so we don't fail if it doesn't exist
	}

	// Override with environment variables
	if taskDir := os.Getenv("TCMERGE_TASK_DIR"); taskDir != "" {
		cfg.TaskDir = taskDir
	}
	if stateDir := os.Getenv("TCMERGE_STATE_DIR"); stateDir != "" {
		cfg.StateDir = stateDir
	}
	if keep := os.Getenv("TCMERGE_KEEP"); keep != "" {
		n, err := strconv.Atoi(keep)
		if err != nil {
			return nil, fmt.Errorf("invalid TCMERGE_KEEP value %q: %w", keep, err)
		}
		cfg.Keep = n
	}
	if logLevel := os.Getenv("TCMERGE_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Set defaults if not configured
	if cfg.TaskDir == "" {
		cfg.TaskDir = defaultTaskDir()
	}
	if cfg.StateDir == "" {
		cfg.StateDir = defaultStateDir()
	}

	return cfg, nil
}

// defaultTaskDir is taskwarrior's default data location:
// $XDG_DATA_HOME/task, falling back to ~/.local/share/task.
func defaultTaskDir() string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "task")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "task"
	}
	return filepath.Join(homeDir, ".local", "share", "task")
}

// defaultStateDir is $XDG_STATE_HOME/tcmerge, falling back to
// ~/.local/state/tcmerge.
func defaultStateDir() string {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, "tcmerge")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "tcmerge-state"
	}
	return filepath.Join(homeDir, ".local", "state", "tcmerge")
}

// loadYAMLConfig loads configuration from ~/.config/tcmerge/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "tcmerge", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, just check cwd
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Clean paths for reliable comparison
	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		// Stop if we've reached home directory
		if dir == homeDir {
			break
		}

		// Get parent directory
		parent := filepath.Dir(dir)

		// Stop if we've reached the filesystem root
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
