package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
discord:
  app_id: "1349959098543767602"
  bot_token: file-token
openai:
  api_key: sk-file
deadlines:
  channel_id: "111"
  message_id: "222"
  reminder_channel_id: "333"
  thresholds: [14, 7, 0]
exams:
  directory: /srv/exams
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	cfg, err := Load([]string{filepath.Join(t.TempDir(), "missing.yaml"), path})
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Discord.BotToken)
	assert.Equal(t, "sk-file", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 30*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, []int{14, 7, 0}, cfg.Deadlines.Thresholds)
	assert.Equal(t, "/srv/exams", cfg.Exams.Directory)
	assert.Equal(t, 350, cfg.Exams.MaxCandidates)
	assert.True(t, cfg.Deadlines.MentionEveryone)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv("APP_DISCORD__BOT_TOKEN", "env-token")
	t.Setenv("APP_DEADLINES__THRESHOLDS", "5,2,0")
	t.Setenv("APP_OPENAI__TIMEOUT", "10s")
	t.Setenv("RENDU_MESSAGE_ID", "999")
	t.Setenv("MAX_CANDIDATES_FOR_LLM", "42")

	cfg, err := Load([]string{path})
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Discord.BotToken)
	assert.Equal(t, []int{5, 2, 0}, cfg.Deadlines.Thresholds)
	assert.Equal(t, 10*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, "999", cfg.Deadlines.MessageID)
	assert.Equal(t, 42, cfg.Exams.MaxCandidates)
}

func TestStringToSliceHook(t *testing.T) {
	var out struct {
		Thresholds []int
		Names      []string
		Empty      []int
		Level      string
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       stringToSliceHook(","),
		WeaklyTypedInput: true,
		Result:           &out,
	})
	require.NoError(t, err)

	require.NoError(t, decoder.Decode(map[string]interface{}{
		"thresholds": "14, 7,0",
		"names":      "a,b",
		"empty":      "",
		"level":      "debug,info",
	}))
	assert.Equal(t, []int{14, 7, 0}, out.Thresholds)
	assert.Equal(t, []string{"a", "b"}, out.Names)
	assert.Empty(t, out.Empty)
	assert.Equal(t, "debug,info", out.Level)
}

func TestLoadRejectsIncompleteConfig(t *testing.T) {
	path := writeConfig(t, "discord:\n  app_id: \"1\"\n")
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load([]string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord.bot_token is required")
	assert.Contains(t, err.Error(), "openai.api_key is required")
	assert.Contains(t, err.Error(), "deadlines.reminder_channel_id is required")
}

func TestValidateThresholds(t *testing.T) {
	var cfg AppConfig
	cfg.Discord.AppID = "1"
	cfg.Discord.BotToken = "t"
	cfg.OpenAI.APIKey = "k"
	cfg.Deadlines.ChannelID = "c"
	cfg.Deadlines.MessageID = "m"
	cfg.Deadlines.ReminderChannelID = "r"
	cfg.Deadlines.AlertTime = "08:30"
	cfg.Exams.FilesJSON = "old_exams.json"

	cfg.Deadlines.Thresholds = []int{7, 3}
	assert.ErrorContains(t, cfg.Validate(), "must contain 0")

	cfg.Deadlines.Thresholds = []int{7, -1, 0}
	assert.ErrorContains(t, cfg.Validate(), "negative")

	cfg.Deadlines.Thresholds = []int{3, 0}
	assert.NoError(t, cfg.Validate())
}

func TestReminderCron(t *testing.T) {
	tests := []struct {
		name      string
		cron      string
		alertTime string
		want      string
		wantErr   bool
	}{
		{name: "from alert time", alertTime: "17:17", want: "17 17 * * *"},
		{name: "leading zeros", alertTime: "08:05", want: "5 8 * * *"},
		{name: "explicit cron wins", cron: "0 9 * * 1-5", alertTime: "17:17", want: "0 9 * * 1-5"},
		{name: "missing colon", alertTime: "1717", wantErr: true},
		{name: "bad hour", alertTime: "25:00", wantErr: true},
		{name: "bad minute", alertTime: "10:61", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg AppConfig
			cfg.Deadlines.Cron = tt.cron
			cfg.Deadlines.AlertTime = tt.alertTime
			got, err := cfg.ReminderCron()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	var cfg AppConfig
	cfg.Deadlines.Timezone = "Mars/Olympus_Mons"
	assert.Equal(t, time.UTC, cfg.Location())

	cfg.Deadlines.Timezone = ""
	assert.Equal(t, time.UTC, cfg.Location())
}
