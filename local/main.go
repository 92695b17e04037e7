package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/brensch/heiabot/config"
	"github.com/brensch/heiabot/deadline"
	"github.com/brensch/heiabot/exams"
	"github.com/brensch/heiabot/llm"
	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
)

// fileMessages stands in for Discord: the pinned message is read from a file and sent messages
// are printed.
type fileMessages struct {
	path string
}

func (f fileMessages) FetchMessage(_ context.Context, channelID, messageID string) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (f fileMessages) SendMessage(_ context.Context, channelID string, msg *discordgo.MessageSend) error {
	fmt.Printf("--> #%s\n%s\n", channelID, msg.Content)
	for _, e := range msg.Embeds {
		fmt.Printf("[%s]\n%s\n", e.Title, e.Description)
	}
	return nil
}

func main() {
	pinned := flag.String("deadlines", "", "text file holding a pinned deadlines message")
	at := flag.String("at", "", "pretend the check runs on this day (2006-01-02)")
	query := flag.String("exam", "", "old exam query to run against the catalog")
	year := flag.Int("year", 1, "academic year of the exam query")
	count := flag.Int("n", 1, "number of exam results")
	files := flag.String("files", config.DefaultFilesJSON, "exam catalog JSON")
	flag.Parse()

	// Configure pretty colored logging with tint.
	handler := tint.NewHandler(colorable.NewColorableStdout(), &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "15:04:05.000",
		AddSource:  true,
	})
	slog.SetDefault(slog.New(handler))

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *pinned == "" && *query == "" {
		slog.Error("nothing to do, pass -deadlines and/or -exam")
		flag.Usage()
		os.Exit(2)
	}

	if *pinned != "" {
		if err := runDeadlines(ctx, *pinned, *at); err != nil {
			slog.Error("deadline check failed", "error", err)
			os.Exit(1)
		}
	}

	if *query != "" {
		if err := runExam(ctx, *files, exams.Query{Text: *query, Year: *year, Count: *count}); err != nil {
			slog.Error("exam search failed", "error", err)
			os.Exit(1)
		}
	}
}

func runDeadlines(ctx context.Context, path, at string) error {
	now := time.Now
	if at != "" {
		day, err := time.ParseInLocation("2006-01-02", at, time.Local)
		if err != nil {
			return fmt.Errorf("invalid -at: %w", err)
		}
		now = func() time.Time { return day.Add(17 * time.Hour) }
	}

	messages := fileMessages{path: path}
	reminder, err := deadline.NewReminder(deadline.ReminderConfig{
		ChannelID:         "pinned",
		MessageID:         "local",
		ReminderChannelID: "general",
		Location:          time.Local,
	}, messages, messages, deadline.WithClock(now))
	if err != nil {
		return err
	}

	upcoming, err := reminder.Upcoming(ctx)
	if err != nil {
		return err
	}
	for _, e := range upcoming {
		slog.Info("deadline", "label", e.Label, "due", e.Due.Format("2006-01-02"))
	}
	return reminder.Tick(ctx)
}

func runExam(ctx context.Context, files string, q exams.Query) error {
	client, err := llm.NewClient(llm.Config{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   os.Getenv("OPENAI_MODEL"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	})
	if err != nil {
		return err
	}

	searcher := exams.NewSearcher(exams.JSONLister{Path: files}, client, exams.DefaultMaxCandidates)
	result, err := searcher.Search(ctx, q)
	if err != nil {
		return err
	}
	slog.Info("search done", "candidates", result.Candidates, "matches", len(result.Files))
	for _, f := range result.Files {
		fmt.Println(f)
	}
	return nil
}
