package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 18791
	DefaultBufSize        = 100
	DefaultStorageBackend = "file"
	DefaultPollInterval   = "1m"
	DefaultDueSoonWindow  = "30m"
	DefaultTaskAlertDelay = "1s"
	DefaultPreference     = "all"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	StorageBackendFile    = "file"
	StorageBackendSQLite  = "sqlite"
	StorageBackendMemory  = "memory"
	defaultSQLiteFileName = "mytodo.db"
	defaultDataDirName    = "data"
	defaultConfigDirName  = ".mytodo"
	defaultConfigFileName = "config.json"
)

type Config struct {
	Storage     StorageConfig     `json:"storage"`
	Scheduler   SchedulerConfig   `json:"scheduler"`
	Channels    ChannelsConfig    `json:"channels"`
	Gateway     GatewayConfig     `json:"gateway"`
	Suggestions SuggestionsConfig `json:"suggestions"`
	Log         LogConfig         `json:"log"`
}

type StorageConfig struct {
	Backend string `json:"backend"` // "file" (default), "sqlite" or "memory"
	Dir     string `json:"dir,omitempty"`
	DBPath  string `json:"dbPath,omitempty"`
}

type SchedulerConfig struct {
	PollInterval   string `json:"pollInterval"`
	DueSoonWindow  string `json:"dueSoonWindow"`
	TaskAlertDelay string `json:"taskAlertDelay"`
}

type ChannelsConfig struct {
	Console  ConsoleConfig  `json:"console"`
	Telegram TelegramConfig `json:"telegram"`
	WebUI    WebUIConfig    `json:"webui"`
}

type ConsoleConfig struct {
	Enabled bool `json:"enabled"`
}

type TelegramConfig struct {
	Enabled bool    `json:"enabled"`
	Token   string  `json:"token"`
	ChatIDs []int64 `json:"chatIds"`
	Proxy   string  `json:"proxy,omitempty"`
}

type WebUIConfig struct {
	Enabled bool `json:"enabled"`
}

type GatewayConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	AllowedOrigins []string `json:"allowedOrigins,omitempty"` // CORS; empty disables it
}

type SuggestionsConfig struct {
	Preference  string `json:"preference"`
	CatalogPath string `json:"catalogPath,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // "console" or "json"
}

// Durations is the parsed form of SchedulerConfig.
type Durations struct {
	PollInterval   time.Duration
	DueSoonWindow  time.Duration
	TaskAlertDelay time.Duration
}

func (s SchedulerConfig) Durations() (Durations, error) {
	var d Durations
	var err error
	if d.PollInterval, err = parsePositive("pollInterval", s.PollInterval, DefaultPollInterval); err != nil {
		return Durations{}, err
	}
	if d.DueSoonWindow, err = parsePositive("dueSoonWindow", s.DueSoonWindow, DefaultDueSoonWindow); err != nil {
		return Durations{}, err
	}
	if d.TaskAlertDelay, err = time.ParseDuration(orDefault(s.TaskAlertDelay, DefaultTaskAlertDelay)); err != nil {
		return Durations{}, fmt.Errorf("parse taskAlertDelay: %w", err)
	}
	if d.TaskAlertDelay < 0 {
		return Durations{}, fmt.Errorf("taskAlertDelay must not be negative")
	}
	return d, nil
}

func parsePositive(name, value, def string) (time.Duration, error) {
	d, err := time.ParseDuration(orDefault(value, def))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func DefaultConfig() *Config {
	dataDir := filepath.Join(ConfigDir(), defaultDataDirName)
	return &Config{
		Storage: StorageConfig{
			Backend: DefaultStorageBackend,
			Dir:     dataDir,
			DBPath:  filepath.Join(dataDir, defaultSQLiteFileName),
		},
		Scheduler: SchedulerConfig{
			PollInterval:   DefaultPollInterval,
			DueSoonWindow:  DefaultDueSoonWindow,
			TaskAlertDelay: DefaultTaskAlertDelay,
		},
		Channels: ChannelsConfig{
			Console: ConsoleConfig{Enabled: true},
			WebUI:   WebUIConfig{Enabled: true},
		},
		Gateway: GatewayConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Suggestions: SuggestionsConfig{
			Preference: DefaultPreference,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

func ConfigDir() string {
	if dir := os.Getenv("MYTODO_HOME"); dir != "" {
		return dir
	}
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, defaultConfigDirName)
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), defaultConfigFileName)
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if backend := os.Getenv("MYTODO_STORAGE_BACKEND"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if dir := os.Getenv("MYTODO_DATA_DIR"); dir != "" {
		cfg.Storage.Dir = dir
	}
	if dbPath := os.Getenv("MYTODO_DB_PATH"); dbPath != "" {
		cfg.Storage.DBPath = dbPath
	}
	if poll := os.Getenv("MYTODO_POLL_INTERVAL"); poll != "" {
		cfg.Scheduler.PollInterval = poll
	}
	if token := os.Getenv("MYTODO_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if chatID := os.Getenv("MYTODO_TELEGRAM_CHAT_ID"); chatID != "" {
		if parsed, err := strconv.ParseInt(chatID, 10, 64); err == nil {
			cfg.Channels.Telegram.ChatIDs = append(cfg.Channels.Telegram.ChatIDs, parsed)
		}
	}
	if port := os.Getenv("MYTODO_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Gateway.Port = parsed
		}
	}
	if pref := os.Getenv("MYTODO_PREFERENCE"); pref != "" {
		cfg.Suggestions.Preference = pref
	}
	if level := os.Getenv("MYTODO_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if format := os.Getenv("MYTODO_LOG_FORMAT"); format != "" {
		cfg.Log.Format = format
	}

	def := DefaultConfig()
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = def.Storage.Dir
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = filepath.Join(cfg.Storage.Dir, defaultSQLiteFileName)
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = DefaultPort
	}
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = DefaultHost
	}
	if cfg.Suggestions.Preference == "" {
		cfg.Suggestions.Preference = DefaultPreference
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
