package factories

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"convokit/bridge"
	"convokit/core"
	"convokit/orchestrator"
	"convokit/services/backend"

	"github.com/bytedance/sonic"
)

// SettingsConfig is the top-level config loaded from settings.json.
type SettingsConfig struct {
	// Backend points at the chat, speech and users endpoints. The backend answers for any
	// collaborator that has no provider configured below.
	Backend      backend.Config           `json:"backend"`
	Assistant    AssistantFactoryConfig   `json:"assistant"`
	Synthesizer  SynthesizerFactoryConfig `json:"synthesizer"`
	Capture      CaptureFactoryConfig     `json:"capture"`
	Player       PlayerFactoryConfig      `json:"player"`
	Orchestrator orchestrator.Config      `json:"orchestrator"`
	Bridge       bridge.Config            `json:"bridge"`
	// IdentityDB is the SQLite file remembering the signed-in user.
	IdentityDB string `json:"identity_db"`
	// LogDir, when set, receives one .jsonl file per conversation.
	LogDir   string `json:"log_dir,omitempty"`
	LogLevel string `json:"log_level"`
}

// DefaultSettingsConfig returns a SettingsConfig pre-filled with defaults.
func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Backend:      backend.DefaultConfig(),
		Capture:      DefaultCaptureFactoryConfig(),
		Orchestrator: orchestrator.DefaultConfig(),
		Bridge:       bridge.DefaultConfig(),
		IdentityDB:   defaultIdentityDB(),
		LogLevel:     "info",
	}
}

func defaultIdentityDB() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "convokit.db"
	}
	return filepath.Join(dir, "convokit", "identity.db")
}

// SettingsConfigFromJSON parses a JSON blob on top of DefaultSettingsConfig, so absent fields
// keep their defaults.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	cfg := DefaultSettingsConfig()
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return SettingsConfig{}, fmt.Errorf("settings: %w", err)
	}
	return cfg, nil
}

// SettingsConfigFromFile reads and parses a SettingsConfig from a JSON file.
func SettingsConfigFromFile(path string) (SettingsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettingsConfig(), fmt.Errorf("settings: read %q: %w", path, err)
	}
	return SettingsConfigFromJSON(data)
}

// LoadSettings reads SETTINGS_JSON_B64 when set, otherwise the file at SETTINGS_PATH (default
// ./settings.json), then applies keys and endpoints from the environment. Unreadable settings
// fall back to defaults with a warning.
func LoadSettings(logger *core.Logger) SettingsConfig {
	if logger == nil {
		logger = core.GetLogger()
	}
	var (
		settings SettingsConfig
		err      error
	)
	if b64 := os.Getenv("SETTINGS_JSON_B64"); b64 != "" {
		data, decErr := base64.StdEncoding.DecodeString(b64)
		if decErr != nil {
			logger.WithError(decErr).Error("failed to decode SETTINGS_JSON_B64")
			settings = DefaultSettingsConfig()
		} else if settings, err = SettingsConfigFromJSON(data); err != nil {
			logger.WithError(err).Error("failed to parse SETTINGS_JSON_B64")
			settings = DefaultSettingsConfig()
		} else {
			logger.Debug("loaded settings from SETTINGS_JSON_B64")
		}
	} else {
		settingsPath := getEnv("SETTINGS_PATH", "./settings.json")
		settings, err = SettingsConfigFromFile(settingsPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logger.With(map[string]any{"path": settingsPath, "error": err}).Warn("failed to load settings, using defaults")
			}
			settings = DefaultSettingsConfig()
		}
	}
	settings.InjectAPIKeys(APIKeysFromEnv())
	settings.InjectEndpoints(EndpointsFromEnv())
	return settings
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
