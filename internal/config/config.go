package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Store backends
const (
	StoreFile      = "file"
	StoreFirestore = "firestore"
)

// Config holds application configuration
type Config struct {
	GoogleCloudProject    string `json:"google_cloud_project"`
	GoogleCloudLocation   string `json:"google_cloud_location"`
	GoogleCredentialsPath string `json:"google_credentials_path"`
	TextModel             string `json:"text_model"`
	SpeechModel           string `json:"speech_model"`
	SpeechVoice           string `json:"speech_voice"`
	StoreBackend          string `json:"store_backend"`
	FirestoreDatabase     string `json:"firestore_database"`
	DataDir               string `json:"data_dir"`
	InterviewSettingsPath string `json:"interview_settings_path"`
	Port                  string `json:"port"`
	AllowedOrigins        string `json:"allowed_origins"`
	MaxUploadMB           int    `json:"max_upload_mb"`
	ApprovedEmails        string `json:"approved_emails"`
}

// DefaultConfig returns a new config with default values
func DefaultConfig() *Config {
	return &Config{
		GoogleCloudLocation: "us-central1",
		TextModel:           "gemini-2.5-flash",
		SpeechModel:         "gemini-2.5-flash-preview-tts",
		SpeechVoice:         "Kore",
		StoreBackend:        StoreFile,
		FirestoreDatabase:   "(default)",
		DataDir:             "data",
		Port:                "8080",
		AllowedOrigins:      "*",
		MaxUploadMB:         20,
	}
}

// GetConfigPath returns the path to the configuration file
// On Windows: %APPDATA%/InterviewCoach/config.json
// On Unix: ~/.config/InterviewCoach/config.json
func GetConfigPath() (string, error) {
	var configDir string

	if os.Getenv("APPDATA") != "" {
		configDir = filepath.Join(os.Getenv("APPDATA"), "InterviewCoach")
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "InterviewCoach")
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Load loads configuration from the default config path, then applies
// .env and environment overrides. On first run the defaults are written to
// the config path so they can be edited.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := cfg.Save(); err != nil {
			log.Printf("config: could not write defaults: %v", err)
		} else {
			log.Printf("config: wrote default configuration to %s", configPath)
		}
	}

	LoadDotEnv()
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// LoadFrom loads configuration from a specific path
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Save saves the configuration to the default config path
func (c *Config) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	return c.SaveTo(configPath)
}

// SaveTo saves the configuration to a specific path
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.GoogleCloudProject == "" {
		return fmt.Errorf("google_cloud_project is required")
	}

	if c.GoogleCloudLocation == "" {
		return fmt.Errorf("google_cloud_location is required")
	}

	if c.GoogleCredentialsPath != "" {
		if _, err := os.Stat(c.GoogleCredentialsPath); err != nil {
			return fmt.Errorf("google credentials file not found: %w", err)
		}
	}

	switch c.StoreBackend {
	case StoreFile:
		if c.DataDir == "" {
			return fmt.Errorf("data_dir is required for the file store")
		}
	case StoreFirestore:
	default:
		return fmt.Errorf("unknown store_backend %q", c.StoreBackend)
	}

	if c.TextModel == "" || c.SpeechModel == "" {
		return fmt.Errorf("text_model and speech_model are required")
	}

	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive")
	}

	return nil
}

// MaxUploadBytes returns the upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// ApprovedEmailList splits the comma separated seed list of approved users
func (c *Config) ApprovedEmailList() []string {
	return splitList(c.ApprovedEmails)
}

// AllowedOriginList splits the comma separated CORS origins
func (c *Config) AllowedOriginList() []string {
	return splitList(c.AllowedOrigins)
}

// ApplyToEnv applies configuration values to environment variables
func (c *Config) ApplyToEnv() {
	if c.GoogleCloudProject != "" {
		os.Setenv("GOOGLE_CLOUD_PROJECT", c.GoogleCloudProject)
	}
	if c.GoogleCloudLocation != "" {
		os.Setenv("GOOGLE_CLOUD_LOCATION", c.GoogleCloudLocation)
	}
	if c.GoogleCredentialsPath != "" {
		os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", c.GoogleCredentialsPath)
	}
}

// ApplyEnvOverrides lets environment variables win over file values
func (c *Config) ApplyEnvOverrides() {
	c.GoogleCloudProject = envOrDefault("GOOGLE_CLOUD_PROJECT", c.GoogleCloudProject)
	c.GoogleCloudLocation = envOrDefault("GOOGLE_CLOUD_LOCATION", c.GoogleCloudLocation)
	c.GoogleCredentialsPath = envOrDefault("GOOGLE_APPLICATION_CREDENTIALS", c.GoogleCredentialsPath)
	c.TextModel = envOrDefault("COACH_TEXT_MODEL", c.TextModel)
	c.SpeechModel = envOrDefault("COACH_SPEECH_MODEL", c.SpeechModel)
	c.SpeechVoice = envOrDefault("COACH_SPEECH_VOICE", c.SpeechVoice)
	c.StoreBackend = envOrDefault("COACH_STORE_BACKEND", c.StoreBackend)
	c.FirestoreDatabase = envOrDefault("COACH_FIRESTORE_DATABASE", c.FirestoreDatabase)
	c.DataDir = envOrDefault("COACH_DATA_DIR", c.DataDir)
	c.InterviewSettingsPath = envOrDefault("COACH_INTERVIEW_SETTINGS", c.InterviewSettingsPath)
	c.Port = envOrDefault("PORT", c.Port)
	c.AllowedOrigins = envOrDefault("COACH_ALLOWED_ORIGINS", c.AllowedOrigins)
	c.MaxUploadMB = envOrDefaultInt("COACH_MAX_UPLOAD_MB", c.MaxUploadMB)
	c.ApprovedEmails = envOrDefault("COACH_APPROVED_EMAILS", c.ApprovedEmails)
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
