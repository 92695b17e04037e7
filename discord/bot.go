package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Bot encapsulates the discordgo session, configuration, registered functions, and schedules.
type Bot struct {
	session         *discordgo.Session
	config          BotConfig
	functions       []BotFunctionI
	schedules       []BotScheduleI
	scheduleManager *scheduleManager
}

// BotConfig contains configuration for the bot.
type BotConfig struct {
	AppID    string
	BotToken string
	// Announce sends the list of commands to the first text channel of every guild on startup.
	Announce bool
	// Location is the time zone schedules are evaluated in. Defaults to UTC.
	Location *time.Location
	// CommandTimeout bounds a single command invocation. Defaults to 60s.
	CommandTimeout time.Duration
}

const defaultCommandTimeout = 60 * time.Second

// NewBot creates the Discord session without connecting it. Components that need to fetch or
// send messages can hold the returned Bot before Start is called.
func NewBot(cfg BotConfig) (*Bot, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("bot token is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}

	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}

	// Message content is needed to read the pinned deadlines message.
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	return &Bot{
		session: dg,
		config:  cfg,
	}, nil
}

// Start opens the websocket connection, re-registers each command function on a per-guild basis,
// optionally announces the available commands, and starts the scheduled tasks.
func (b *Bot) Start(functions []BotFunctionI, schedules []BotScheduleI) error {
	b.functions = functions
	b.schedules = schedules

	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	commands := make([]*discordgo.ApplicationCommand, 0, len(functions))
	for _, fn := range functions {
		options, err := structToCommandOptions(fn.GetRequestPrototype())
		if err != nil {
			slog.Error("failed to generate command options", "command", fn.GetName(), "error", err)
			return err
		}
		slog.Debug("initialising function", "name", fn.GetName(), "options", len(options))
		commands = append(commands, &discordgo.ApplicationCommand{
			Name:        fn.GetName(),
			Description: fn.GetDescription(),
			Options:     options,
		})
	}

	for _, guild := range b.session.State.Guilds {
		if err := b.registerGuildCommands(guild.ID, commands); err != nil {
			return err
		}
	}

	if b.config.Announce {
		b.announce()
	}

	if len(schedules) > 0 {
		b.scheduleManager = newScheduleManager(schedules, b.config.Location)
		if err := b.scheduleManager.start(); err != nil {
			slog.Error("failed to start schedule manager", "error", err)
			return err
		}
	}

	return nil
}

// registerGuildCommands deletes all existing bot commands of a guild and registers the new ones.
func (b *Bot) registerGuildCommands(guildID string, commands []*discordgo.ApplicationCommand) error {
	existingCommands, err := b.session.ApplicationCommands(b.config.AppID, guildID)
	if err != nil {
		slog.Error("failed to get commands for guild", "guild", guildID, "error", err)
		return nil
	}
	for _, cmd := range existingCommands {
		err := b.session.ApplicationCommandDelete(b.config.AppID, guildID, cmd.ID)
		if err != nil {
			slog.Error("failed to delete command", "guild", guildID, "command", cmd.Name, "error", err)
		} else {
			slog.Debug("deleted command", "guild", guildID, "command", cmd.Name)
		}
	}
	for _, cmd := range commands {
		_, err := b.session.ApplicationCommandCreate(b.config.AppID, guildID, cmd)
		if err != nil {
			slog.Error("failed to create guild slash command", "guild", guildID, "command", cmd.Name, "error", err)
			return fmt.Errorf("failed to create command %s: %w", cmd.Name, err)
		}
	}
	return nil
}

// announce sends the online message to the first text channel of every guild the bot is in.
func (b *Bot) announce() {
	var availableCommands []string
	for _, fn := range b.functions {
		availableCommands = append(availableCommands, "/"+fn.GetName())
	}
	var activeSchedules []string
	for _, schedule := range b.schedules {
		activeSchedules = append(activeSchedules, fmt.Sprintf("%s (%s)", schedule.GetName(), schedule.GetCronExpression()))
	}

	commandsMessage := fmt.Sprintf("Bot online. Available commands: %s", strings.Join(availableCommands, ", "))
	if len(activeSchedules) > 0 {
		commandsMessage += fmt.Sprintf("\nActive schedules: %s", strings.Join(activeSchedules, ", "))
	}

	for _, guild := range b.session.State.Guilds {
		targetChannel, err := b.getFirstTextChannel(guild.ID)
		if err != nil {
			slog.Error("failed to find a text channel", "guild", guild.ID, "error", err)
			continue
		}
		if _, err := b.session.ChannelMessageSend(targetChannel, commandsMessage); err != nil {
			slog.Error("failed to send online message", "guild", guild.ID, "error", err)
		}
	}
}

// onInteractionCreate routes interactions to the correct BotFunction based on the command name.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.handleAutocomplete(s, i)
	default:
		slog.Debug("ignoring interaction", "type", int(i.Type))
	}
}

func (b *Bot) findFunction(name string) BotFunctionI {
	for _, f := range b.functions {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	cmdData := i.ApplicationCommandData()
	slog.Debug("received interaction", "command", cmdData.Name, "options", len(cmdData.Options))

	fn := b.findFunction(cmdData.Name)
	if fn == nil {
		slog.Warn("received unknown command", "command", cmdData.Name)
		s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{errorEmbed("Unknown command: " + cmdData.Name)},
			},
		})
		return
	}

	// Handlers may call slow services, so acknowledge first and edit the reply afterwards.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		slog.Error("failed to defer command", "command", fn.GetName(), "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.config.CommandTimeout)
	defer cancel()

	respData, err := fn.HandleInteraction(ctx, &cmdData)
	if err != nil {
		slog.Error("failed to execute command", "command", fn.GetName(), "error", err)
		respData = &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{errorEmbed(fmt.Sprintf("```%v```", err))},
		}
	}

	_, err = s.InteractionResponseEdit(i.Interaction, toWebhookEdit(respData))
	if err != nil {
		slog.Error("failed to respond to command", "command", fn.GetName(), "error", err)
		// Attempt a follow-up if editing the deferred response fails.
		s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Embeds: []*discordgo.MessageEmbed{errorEmbed(fmt.Sprintf("```%v```", err))},
		})
	}
}

func (b *Bot) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	cmdData := i.ApplicationCommandData()
	fn := b.findFunction(cmdData.Name)
	if fn == nil || fn.GetAutocomplete() == nil {
		return
	}

	var input string
	for _, opt := range cmdData.Options {
		if opt.Focused {
			input = fmt.Sprint(opt.Value)
			break
		}
	}

	choices, err := fn.GetAutocomplete().Complete(input)
	if err != nil {
		slog.Error("autocomplete failed", "command", fn.GetName(), "error", err)
		choices = nil
	}
	// Discord accepts at most 25 choices.
	if len(choices) > 25 {
		choices = choices[:25]
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		slog.Error("failed to send autocomplete choices", "command", fn.GetName(), "error", err)
	}
}

// toWebhookEdit converts handler response data into an edit of the deferred reply.
func toWebhookEdit(data *discordgo.InteractionResponseData) *discordgo.WebhookEdit {
	if data == nil {
		data = &discordgo.InteractionResponseData{Content: "Done."}
	}
	content := data.Content
	embeds := data.Embeds
	if embeds == nil {
		embeds = []*discordgo.MessageEmbed{}
	}
	return &discordgo.WebhookEdit{
		Content:         &content,
		Embeds:          &embeds,
		AllowedMentions: data.AllowedMentions,
	}
}

func errorEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Error",
		Description: description,
		Color:       0xFF0000,
	}
}

// Close gracefully closes the Discord session and stops the schedule manager.
func (b *Bot) Close() error {
	slog.Info("shutting down bot")

	if b.scheduleManager != nil {
		b.scheduleManager.stop()
	}

	return b.session.Close()
}
