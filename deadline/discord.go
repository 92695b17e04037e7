package deadline

import (
	"context"
	"fmt"
	"strings"

	"github.com/brensch/heiabot/discord"
	"github.com/bwmarrin/discordgo"
)

// DeadlinesRequest defines the inputs of the /deadlines command.
type DeadlinesRequest struct {
	Days int `discord:"days,optional,description:Only list deadlines due within this many days"`
}

// DiscordScheduleReminder returns the scheduled deadline check.
func (r *Reminder) DiscordScheduleReminder(cronExpression string) discord.BotScheduleI {
	return discord.NewBotSchedule("deadline_reminder", cronExpression, r.Tick)
}

// DiscordFunctionDeadlines returns the /deadlines command listing what the pinned message announces.
func (r *Reminder) DiscordFunctionDeadlines() discord.BotFunctionI {
	return discord.NewBotFunction("deadlines", "List the upcoming deadlines of the pinned message", r.handleDeadlinesCommand, nil)
}

func (r *Reminder) handleDeadlinesCommand(ctx context.Context, req DeadlinesRequest) (*discordgo.InteractionResponseData, error) {
	entries, err := r.Upcoming(ctx)
	if err != nil {
		return &discordgo.InteractionResponseData{
			Content: "Could not read the pinned deadlines message, try again later.",
		}, nil
	}

	today := dateOf(r.now().In(r.cfg.Location))
	var lines []string
	for _, e := range entries {
		days := DaysUntil(today, e.Due)
		if req.Days > 0 && days > req.Days {
			continue
		}
		line := fmt.Sprintf("• **%s**: %s", e.Label, describeDue(days, e.Due))
		if e.Notified {
			line += " 🔔"
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return &discordgo.InteractionResponseData{
			Content: "No upcoming deadlines 🎉",
		}, nil
	}

	return &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "📅 Prochains rendus",
			Description: truncate(strings.Join(lines, "\n"), 4096),
			Color:       0x3498DB,
		}},
	}, nil
}

// truncate cuts s to at most n bytes on a line boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := strings.LastIndex(s[:n], "\n")
	if cut < 0 {
		cut = n
	}
	return s[:cut]
}
