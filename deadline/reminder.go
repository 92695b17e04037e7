package deadline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// DefaultThresholds are the days-before-due at which a reminder goes out.
var DefaultThresholds = []int{7, 3, 1, 0}

// MessageFetcher reads the text of a Discord message.
type MessageFetcher interface {
	FetchMessage(ctx context.Context, channelID, messageID string) (string, error)
}

// MessageSender posts a message to a Discord channel.
type MessageSender interface {
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) error
}

// ReminderConfig locates the pinned message and the channel reminders go to.
type ReminderConfig struct {
	ChannelID         string
	MessageID         string
	ReminderChannelID string
	// Thresholds defaults to DefaultThresholds. It must contain 0.
	Thresholds      []int
	Location        *time.Location
	MentionEveryone bool
}

// Option modifies a Reminder.
type Option func(*Reminder)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reminder) {
		r.now = now
	}
}

// Reminder re-reads the pinned message on every tick and announces deadlines that crossed a
// threshold since the last announcement.
type Reminder struct {
	cfg        ReminderConfig
	thresholds []int // ascending
	fetcher    MessageFetcher
	sender     MessageSender
	now        func() time.Time

	mu sync.Mutex
	// announced holds, per Entry.Key, the smallest threshold already announced.
	announced map[string]int
}

// NewReminder validates cfg and returns a Reminder with an empty notification table.
func NewReminder(cfg ReminderConfig, fetcher MessageFetcher, sender MessageSender, options ...Option) (*Reminder, error) {
	if cfg.ChannelID == "" || cfg.MessageID == "" {
		return nil, errors.New("pinned message channel and message IDs are required")
	}
	if cfg.ReminderChannelID == "" {
		return nil, errors.New("reminder channel ID is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	thresholds, err := normaliseThresholds(cfg.Thresholds)
	if err != nil {
		return nil, err
	}

	r := &Reminder{
		cfg:        cfg,
		thresholds: thresholds,
		fetcher:    fetcher,
		sender:     sender,
		now:        time.Now,
		announced:  make(map[string]int),
	}
	for _, option := range options {
		option(r)
	}
	return r, nil
}

func normaliseThresholds(in []int) ([]int, error) {
	if len(in) == 0 {
		in = DefaultThresholds
	}
	seen := make(map[int]bool, len(in))
	var out []int
	for _, t := range in {
		if t < 0 {
			return nil, fmt.Errorf("negative threshold %d", t)
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	if !seen[0] {
		return nil, errors.New("thresholds must contain 0 so every deadline is announced on its due day")
	}
	sort.Ints(out)
	return out, nil
}

// crossed returns the smallest threshold at or above daysUntilDue.
func (r *Reminder) crossed(daysUntilDue int) (int, bool) {
	for _, t := range r.thresholds {
		if t >= daysUntilDue {
			return t, true
		}
	}
	return 0, false
}

type pending struct {
	entry     Entry
	days      int
	threshold int
}

// Tick runs one deadline check. A fetch failure skips the tick without sending anything; a send
// failure leaves the notification table untouched so the next tick tries again.
func (r *Reminder) Tick(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	text, err := r.fetcher.FetchMessage(ctx, r.cfg.ChannelID, r.cfg.MessageID)
	if err != nil {
		slog.Error("could not fetch pinned deadlines message, skipping tick",
			"channel", r.cfg.ChannelID, "message", r.cfg.MessageID, "error", err)
		return fmt.Errorf("fetching pinned message: %w", err)
	}

	now := r.now().In(r.cfg.Location)
	today := dateOf(now)
	entries := Parse(text, now)
	slog.Debug("parsed pinned message", "entries", len(entries), "today", today.Format("2006-01-02"))

	current := make(map[string]bool, len(entries))
	var due []pending
	for _, e := range entries {
		days := DaysUntil(today, e.Due)
		if days < 0 {
			continue
		}
		key := e.Key()
		if current[key] {
			continue
		}
		current[key] = true

		threshold, ok := r.crossed(days)
		if !ok {
			continue
		}
		if last, ok := r.announced[key]; ok && threshold >= last {
			continue
		}
		due = append(due, pending{entry: e, days: days, threshold: threshold})
	}

	// Rows for deadlines that passed or were removed from the message are dropped.
	for key := range r.announced {
		if !current[key] {
			delete(r.announced, key)
		}
	}

	if len(due) == 0 {
		slog.Info("no deadline reminders due", "deadlines", len(current))
		return nil
	}

	msg := r.buildMessage(due, now)
	if err := r.sender.SendMessage(ctx, r.cfg.ReminderChannelID, msg); err != nil {
		slog.Error("failed to send deadline reminder", "channel", r.cfg.ReminderChannelID, "error", err)
		return fmt.Errorf("sending reminder: %w", err)
	}

	for _, p := range due {
		r.announced[p.entry.Key()] = p.threshold
	}
	slog.Info("deadline reminder sent", "deadlines", len(due))
	return nil
}

// Upcoming returns the deadlines that are not past yet, soonest first.
func (r *Reminder) Upcoming(ctx context.Context) ([]Entry, error) {
	text, err := r.fetcher.FetchMessage(ctx, r.cfg.ChannelID, r.cfg.MessageID)
	if err != nil {
		return nil, fmt.Errorf("fetching pinned message: %w", err)
	}

	now := r.now().In(r.cfg.Location)
	today := dateOf(now)

	r.mu.Lock()
	defer r.mu.Unlock()

	var upcoming []Entry
	for _, e := range Parse(text, now) {
		if DaysUntil(today, e.Due) < 0 {
			continue
		}
		_, e.Notified = r.announced[e.Key()]
		upcoming = append(upcoming, e)
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Due.Before(upcoming[j].Due)
	})
	return upcoming, nil
}

func (r *Reminder) buildMessage(due []pending, now time.Time) *discordgo.MessageSend {
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].days < due[j].days
	})

	var lines []string
	for _, p := range due {
		lines = append(lines, fmt.Sprintf("• **%s**: %s", p.entry.Label, describeDue(p.days, p.entry.Due)))
	}

	msg := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "📅 Rendus à venir",
			Description: truncate(strings.Join(lines, "\n"), 4096),
			Color:       0x3498DB,
			Timestamp:   now.Format(time.RFC3339),
			Footer: &discordgo.MessageEmbedFooter{
				Text: "Rappel automatique du message épinglé",
			},
		}},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{},
		},
	}
	if r.cfg.MentionEveryone {
		msg.Content = "@everyone Rappel de rendu 👇"
		msg.AllowedMentions.Parse = []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone}
	} else {
		msg.Content = "Rappel de rendu 👇"
	}
	return msg
}

func describeDue(days int, due time.Time) string {
	date := due.Format("02.01.2006")
	switch days {
	case 0:
		return fmt.Sprintf("aujourd'hui (%s)", date)
	case 1:
		return fmt.Sprintf("demain (%s)", date)
	default:
		return fmt.Sprintf("dans %d jours (%s)", days, date)
	}
}
