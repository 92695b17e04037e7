package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	Discord struct {
		AppID    string `koanf:"app_id" yaml:"app_id"`
		BotToken string `koanf:"bot_token" yaml:"bot_token"`
		// Announce posts the list of commands to every guild on startup.
		Announce bool `koanf:"announce" yaml:"announce"`
	} `koanf:"discord" yaml:"discord"`

	OpenAI struct {
		APIKey  string        `koanf:"api_key" yaml:"api_key"`
		Model   string        `koanf:"model" yaml:"model"`
		BaseURL string        `koanf:"base_url" yaml:"base_url"`
		Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
	} `koanf:"openai" yaml:"openai"`

	Deadlines struct {
		// ChannelID and MessageID locate the pinned deadlines message.
		ChannelID string `koanf:"channel_id" yaml:"channel_id"`
		MessageID string `koanf:"message_id" yaml:"message_id"`
		// ReminderChannelID is where reminders are posted.
		ReminderChannelID string `koanf:"reminder_channel_id" yaml:"reminder_channel_id"`
		// Cron overrides AlertTime when set.
		Cron            string `koanf:"cron" yaml:"cron"`
		AlertTime       string `koanf:"alert_time" yaml:"alert_time"`
		Timezone        string `koanf:"timezone" yaml:"timezone"`
		Thresholds      []int  `koanf:"thresholds" yaml:"thresholds"`
		MentionEveryone bool   `koanf:"mention_everyone" yaml:"mention_everyone"`
	} `koanf:"deadlines" yaml:"deadlines"`

	Exams struct {
		// Directory is walked on every search; FilesJSON is used when Directory is empty.
		Directory     string `koanf:"directory" yaml:"directory"`
		FilesJSON     string `koanf:"files_json" yaml:"files_json"`
		ShareBaseURL  string `koanf:"share_base_url" yaml:"share_base_url"`
		MaxCandidates int    `koanf:"max_candidates" yaml:"max_candidates"`
	} `koanf:"exams" yaml:"exams"`

	Log struct {
		Level string `koanf:"level" yaml:"level"`
	} `koanf:"log" yaml:"log"`
}

// DefaultFilesJSON is the exam catalog read when no exam directory is configured.
const DefaultFilesJSON = "old_exams.json"

// DefaultLocations are searched in order for a YAML config file.
var DefaultLocations = []string{
	"/etc/heiabot/config.yaml",        // Standard system location
	"/config/config.yaml",             // Docker mounted volume location
	filepath.Join(".", "config.yaml"), // Local file in current directory
}

// legacyEnv maps the variable names used by the bot's first deployment to config keys.
var legacyEnv = map[string]string{
	"DISCORD_TOKEN":          "discord.bot_token",
	"DISCORD_APP_ID":         "discord.app_id",
	"OPENAI_API_KEY":         "openai.api_key",
	"OPENAI_MODEL":           "openai.model",
	"RENDU_CHANNEL_ID":       "deadlines.channel_id",
	"RENDU_MESSAGE_ID":       "deadlines.message_id",
	"GENERAL_CHANNEL_ID":     "deadlines.reminder_channel_id",
	"DEADLINE_ALERT_HOUR":    "deadlines.alert_time",
	"FILES_JSON":             "exams.files_json",
	"SHARE_BASE_URL":         "exams.share_base_url",
	"MAX_CANDIDATES_FOR_LLM": "exams.max_candidates",
}

// Global singleton config instance
var (
	cfg  *AppConfig
	once sync.Once
)

// Get returns the global AppConfig instance
func Get() *AppConfig {
	once.Do(func() {
		// A missing .env file is fine.
		_ = godotenv.Load()

		var err error
		cfg, err = Load(DefaultLocations)
		if err != nil {
			slog.Error("failed to load configuration", "error", err)
			os.Exit(1)
		}
	})
	return cfg
}

// Load reads defaults, the first config file found in locations and the environment,
// in increasing order of precedence, and validates the result.
func Load(locations []string) (*AppConfig, error) {
	k := koanf.New(".")

	defaultConfig := map[string]interface{}{
		"openai.model":               "gpt-4o-mini",
		"openai.timeout":             "30s",
		"deadlines.alert_time":       "17:17",
		"deadlines.timezone":         "Europe/Zurich",
		"deadlines.thresholds":       []int{7, 3, 1, 0},
		"deadlines.mention_everyone": true,
		"exams.files_json":           DefaultFilesJSON,
		"exams.share_base_url":       "https://drive.switch.ch/index.php/s/BnL19x4G1Xk0Ran",
		"exams.max_candidates":       350,
		"log.level":                  "debug",
	}
	if err := k.Load(confmap.Provider(defaultConfig, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	configLoaded := false
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			slog.Info("loading configuration file", "path", loc)
			if err := k.Load(file.Provider(loc), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config file %s: %w", loc, err)
			}
			configLoaded = true
			break
		}
	}

	if !configLoaded {
		slog.Warn("no config file found in any of the expected locations",
			"searched_locations", locations)
	}

	// Historical variable names come first so the APP_ form wins when both are set.
	legacy := func(s string) string {
		return legacyEnv[s]
	}
	if err := k.Load(env.Provider("", ".", legacy), nil); err != nil {
		return nil, fmt.Errorf("error loading legacy environment variables: %w", err)
	}

	// APP_DISCORD__BOT_TOKEN -> discord.bot_token
	callback := func(s string) string {
		s = strings.TrimPrefix(s, "APP_")
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}
	if err := k.Load(env.Provider("APP_", ".", callback), nil); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var out AppConfig
	decoderConfig := koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				stringToSliceHook(","),
			),
			WeaklyTypedInput: true,
			Result:           &out,
		},
	}
	if err := k.UnmarshalWithConf("", &out, decoderConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	slog.Debug("configuration loaded",
		"discord_app_id", out.Discord.AppID,
		"bot_token_present", out.Discord.BotToken != "",
		"openai_key_present", out.OpenAI.APIKey != "",
		"openai_model", out.OpenAI.Model,
		"deadlines_channel", out.Deadlines.ChannelID,
		"reminder_channel", out.Deadlines.ReminderChannelID,
		"exams_directory", out.Exams.Directory,
		"exams_files_json", out.Exams.FilesJSON)

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// stringToSliceHook splits a string such as "5,2,0" for any slice target. The elements are then
// converted by the weakly typed decoder, so []int works as well as []string.
func stringToSliceHook(sep string) mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
			return data, nil
		}
		raw := strings.TrimSpace(reflect.ValueOf(data).String())
		if raw == "" {
			return []string{}, nil
		}
		parts := strings.Split(raw, sep)
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		return parts, nil
	}
}

// Validate reports every missing or malformed required setting at once.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Discord.BotToken == "" {
		errs = append(errs, errors.New("discord.bot_token is required"))
	}
	if c.Discord.AppID == "" {
		errs = append(errs, errors.New("discord.app_id is required"))
	}
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("openai.api_key is required"))
	}
	if c.Deadlines.ChannelID == "" || c.Deadlines.MessageID == "" {
		errs = append(errs, errors.New("deadlines.channel_id and deadlines.message_id are required"))
	}
	if c.Deadlines.ReminderChannelID == "" {
		errs = append(errs, errors.New("deadlines.reminder_channel_id is required"))
	}
	if _, err := c.ReminderCron(); err != nil {
		errs = append(errs, err)
	}
	hasZero := false
	for _, th := range c.Deadlines.Thresholds {
		if th < 0 {
			errs = append(errs, fmt.Errorf("deadlines.thresholds: negative value %d", th))
		}
		if th == 0 {
			hasZero = true
		}
	}
	if !hasZero {
		errs = append(errs, errors.New("deadlines.thresholds must contain 0"))
	}
	if c.Exams.Directory == "" && c.Exams.FilesJSON == "" {
		errs = append(errs, errors.New("exams.directory or exams.files_json is required"))
	}
	return errors.Join(errs...)
}

// ReminderCron returns the cron expression for the daily deadline check, derived from
// alert_time (HH:MM) unless cron is set explicitly.
func (c *AppConfig) ReminderCron() (string, error) {
	if c.Deadlines.Cron != "" {
		return c.Deadlines.Cron, nil
	}
	hh, mm, ok := strings.Cut(c.Deadlines.AlertTime, ":")
	if !ok {
		return "", fmt.Errorf("deadlines.alert_time %q is not HH:MM", c.Deadlines.AlertTime)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("deadlines.alert_time %q has an invalid hour", c.Deadlines.AlertTime)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("deadlines.alert_time %q has an invalid minute", c.Deadlines.AlertTime)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// Location resolves the deadlines timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	if c.Deadlines.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Deadlines.Timezone)
	if err != nil {
		slog.Warn("unknown timezone, using UTC", "timezone", c.Deadlines.Timezone, "error", err)
		return time.UTC
	}
	return loc
}
