package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/brensch/heiabot/config"
	"github.com/brensch/heiabot/deadline"
	"github.com/brensch/heiabot/discord"
	"github.com/brensch/heiabot/exams"
	"github.com/brensch/heiabot/llm"
	"github.com/brensch/heiabot/log"
)

func main() {
	// Load configuration
	cfg := config.Get()
	loc := cfg.Location()

	if err := log.Setup(os.Stdout, cfg.Log.Level, loc); err != nil {
		slog.Error("invalid log level", "level", cfg.Log.Level, "error", err)
		os.Exit(1)
	}
	slog.Info("discord bot starting", "timezone", loc.String())

	reminderCron, err := cfg.ReminderCron()
	if err != nil {
		slog.Error("invalid reminder schedule", "error", err)
		os.Exit(1)
	}

	bot, err := discord.NewBot(discord.BotConfig{
		AppID:    cfg.Discord.AppID,
		BotToken: cfg.Discord.BotToken,
		Announce: cfg.Discord.Announce,
		Location: loc,
	})
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	// The bot is both the reader of the pinned message and the sender of reminders.
	reminder, err := deadline.NewReminder(deadline.ReminderConfig{
		ChannelID:         cfg.Deadlines.ChannelID,
		MessageID:         cfg.Deadlines.MessageID,
		ReminderChannelID: cfg.Deadlines.ReminderChannelID,
		Thresholds:        cfg.Deadlines.Thresholds,
		Location:          loc,
		MentionEveryone:   cfg.Deadlines.MentionEveryone,
	}, bot, bot)
	if err != nil {
		slog.Error("failed to create deadline reminder", "error", err)
		os.Exit(1)
	}

	completer, err := llm.NewClient(llm.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.OpenAI.Timeout,
	})
	if err != nil {
		slog.Error("failed to create completion client", "error", err)
		os.Exit(1)
	}

	var lister exams.Lister = exams.JSONLister{Path: cfg.Exams.FilesJSON}
	if cfg.Exams.Directory != "" {
		lister = exams.DirLister{Root: cfg.Exams.Directory}
	}
	slog.Info("exam listing configured", "directory", cfg.Exams.Directory, "files_json", cfg.Exams.FilesJSON)

	searcher := exams.NewSearcher(lister, completer, cfg.Exams.MaxCandidates)
	examHandler := exams.NewHandler(searcher, lister, cfg.Exams.ShareBaseURL)

	functions := []discord.BotFunctionI{
		examHandler.DiscordFunctionOldExam(),
		reminder.DiscordFunctionDeadlines(),
	}

	schedules := []discord.BotScheduleI{
		reminder.DiscordScheduleReminder(reminderCron),
	}

	if err := bot.Start(functions, schedules); err != nil {
		slog.Error("failed to start bot", "error", err)
		bot.Close()
		os.Exit(1)
	}

	// Log successful startup.
	slog.Info("bot is now running", "reminder_cron", reminderCron)

	// Wait for an interrupt signal to gracefully shut down.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if err := bot.Close(); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
}
