package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// getFirstTextChannel returns the ID of the first available text channel in the given guild.
// If no text channel is found, it returns an error.
func (b *Bot) getFirstTextChannel(guildID string) (string, error) {
	channels, err := b.session.GuildChannels(guildID)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve channels for guild %s: %w", guildID, err)
	}

	for _, channel := range channels {
		if channel.Type == discordgo.ChannelTypeGuildText {
			return channel.ID, nil
		}
	}
	return "", fmt.Errorf("no text channel found in guild %s", guildID)
}

// FetchMessage returns the text content of a single message.
func (b *Bot) FetchMessage(ctx context.Context, channelID, messageID string) (string, error) {
	msg, err := b.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to fetch message %s in channel %s: %w", messageID, channelID, err)
	}
	if msg.Content == "" {
		slog.Warn("fetched message has no content, is the message content intent enabled?",
			"channel", channelID, "message", messageID)
	}
	return msg.Content, nil
}

// SendMessage posts a message to the given channel.
func (b *Bot) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) error {
	if msg == nil {
		return errors.New("nothing to send")
	}
	sent, err := b.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	slog.Info("message sent", "channel", channelID, "message", sent.ID, "embeds", len(msg.Embeds))
	return nil
}
