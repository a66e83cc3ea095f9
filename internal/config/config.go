package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	SourceRoot          string  `toml:"source_root"`
	DestRoot            string  `toml:"dest_root"`
	NotesSubdir         string  `toml:"notes_subdir"`
	AssetSubdir         string  `toml:"asset_subdir"`
	SettleDelaySeconds  float64 `toml:"settle_delay_seconds"`
	ScanIntervalSeconds float64 `toml:"scan_interval_seconds"`
	RepoBaseURL         string  `toml:"repo_base_url"`
	RepoBranch          string  `toml:"repo_branch"`
	LocalRepoPath       string  `toml:"local_repo_path"`
	StateFile           string  `toml:"state_file"`
	IgnoreFile          string  `toml:"ignore_file"`
	LogLevel            string  `toml:"log_level"`
	Port                int     `toml:"port"`
	NatsURL             string  `toml:"nats_url"`
	NatsToken           string  `toml:"nats_token"`
	DatabaseURL         string  `toml:"database_url"`
	SlackBotToken       string  `toml:"slack_bot_token"`
	SlackChannel        string  `toml:"slack_channel"`
}

func Default() Config {
	return Config{
		SourceRoot:          "~/.gemini/antigravity/brain",
		DestRoot:            "~/ming/ming-note",
		NotesSubdir:         "notes/develop",
		AssetSubdir:         "src",
		SettleDelaySeconds:  60,
		ScanIntervalSeconds: 29 * 60,
		RepoBranch:          "main",
		StateFile:           "~/.brainsync/sync_state.json",
		IgnoreFile:          "~/.brainsync/ignore_strings.json",
		LogLevel:            "info",
		Port:                8760,
	}
}

// Load builds the configuration from defaults, the optional TOML file at path,
// and finally environment overrides. An empty path or a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(ExpandHome(path))
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.SourceRoot = envStr("BRAINSYNC_SOURCE_ROOT", cfg.SourceRoot)
	cfg.DestRoot = envStr("BRAINSYNC_DEST_ROOT", cfg.DestRoot)
	cfg.NotesSubdir = envStr("BRAINSYNC_NOTES_SUBDIR", cfg.NotesSubdir)
	cfg.AssetSubdir = envStr("BRAINSYNC_ASSET_SUBDIR", cfg.AssetSubdir)
	cfg.SettleDelaySeconds = envFloat("BRAINSYNC_SETTLE_DELAY", cfg.SettleDelaySeconds)
	cfg.ScanIntervalSeconds = envFloat("BRAINSYNC_SCAN_INTERVAL", cfg.ScanIntervalSeconds)
	cfg.RepoBaseURL = envStr("BRAINSYNC_REPO_BASE_URL", cfg.RepoBaseURL)
	cfg.RepoBranch = envStr("BRAINSYNC_REPO_BRANCH", cfg.RepoBranch)
	cfg.LocalRepoPath = envStr("BRAINSYNC_LOCAL_REPO_PATH", cfg.LocalRepoPath)
	cfg.StateFile = envStr("BRAINSYNC_STATE_FILE", cfg.StateFile)
	cfg.IgnoreFile = envStr("BRAINSYNC_IGNORE_FILE", cfg.IgnoreFile)
	cfg.LogLevel = envStr("LOG_LEVEL", cfg.LogLevel)
	cfg.Port = envInt("BRAINSYNC_PORT", cfg.Port)
	cfg.NatsURL = envStr("NATS_URL", cfg.NatsURL)
	cfg.NatsToken = envStr("NATS_TOKEN", cfg.NatsToken)
	cfg.DatabaseURL = envStr("DATABASE_URL", cfg.DatabaseURL)
	cfg.SlackBotToken = envStr("SLACK_BOT_TOKEN", cfg.SlackBotToken)
	cfg.SlackChannel = envStr("SLACK_CHANNEL", cfg.SlackChannel)

	cfg.SourceRoot = ExpandHome(strings.TrimSpace(cfg.SourceRoot))
	cfg.DestRoot = ExpandHome(strings.TrimSpace(cfg.DestRoot))
	cfg.StateFile = ExpandHome(cfg.StateFile)
	cfg.IgnoreFile = ExpandHome(cfg.IgnoreFile)
	cfg.RepoBaseURL = strings.TrimRight(cfg.RepoBaseURL, "/")
	cfg.LocalRepoPath = strings.TrimRight(cfg.LocalRepoPath, "/")

	return cfg, nil
}

// Validate reports configuration that would make the sync loop meaningless.
func (c Config) Validate() error {
	if c.SourceRoot == "" {
		return errors.New("source_root is required")
	}
	if c.DestRoot == "" {
		return errors.New("dest_root is required")
	}
	if c.SettleDelaySeconds <= 0 {
		return fmt.Errorf("settle_delay_seconds must be positive, got %v", c.SettleDelaySeconds)
	}
	if c.ScanIntervalSeconds <= 0 {
		return fmt.Errorf("scan_interval_seconds must be positive, got %v", c.ScanIntervalSeconds)
	}
	return nil
}

// NotesDir is the directory generated notes are written to.
func (c Config) NotesDir() string {
	return filepath.Join(c.DestRoot, c.NotesSubdir)
}

// AssetDir is the directory copied images are written to.
func (c Config) AssetDir() string {
	return filepath.Join(c.NotesDir(), c.AssetSubdir)
}

func (c Config) SettleDelay() time.Duration {
	return seconds(c.SettleDelaySeconds)
}

func (c Config) ScanInterval() time.Duration {
	return seconds(c.ScanIntervalSeconds)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
