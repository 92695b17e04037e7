package discord

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBot(t *testing.T) {
	_, err := NewBot(BotConfig{AppID: "123"})
	assert.Error(t, err)

	bot, err := NewBot(BotConfig{AppID: "123", BotToken: "token"})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, bot.config.Location)
	assert.Equal(t, defaultCommandTimeout, bot.config.CommandTimeout)
	assert.NotZero(t, bot.session.Identify.Intents&discordgo.IntentsMessageContent)
	assert.Equal(t, "Bot token", bot.session.Token)
}

func TestFindFunction(t *testing.T) {
	bot := &Bot{functions: []BotFunctionI{
		NewBotFunction[sampleRequest]("a", "", nil, nil),
		NewBotFunction[sampleRequest]("b", "", nil, nil),
	}}

	require.NotNil(t, bot.findFunction("b"))
	assert.Equal(t, "b", bot.findFunction("b").GetName())
	assert.Nil(t, bot.findFunction("c"))
}

func TestToWebhookEdit(t *testing.T) {
	edit := toWebhookEdit(nil)
	require.NotNil(t, edit.Content)
	assert.Equal(t, "Done.", *edit.Content)
	require.NotNil(t, edit.Embeds)
	assert.Empty(t, *edit.Embeds)

	embed := &discordgo.MessageEmbed{Title: "TE1.pdf"}
	edit = toWebhookEdit(&discordgo.InteractionResponseData{
		Content: "found",
		Embeds:  []*discordgo.MessageEmbed{embed},
	})
	assert.Equal(t, "found", *edit.Content)
	assert.Equal(t, []*discordgo.MessageEmbed{embed}, *edit.Embeds)
}

func TestErrorEmbed(t *testing.T) {
	e := errorEmbed("nope")
	assert.Equal(t, "Error", e.Title)
	assert.Equal(t, "nope", e.Description)
	assert.Equal(t, 0xFF0000, e.Color)
}
