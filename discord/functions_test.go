package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func option(name string, value interface{}) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Value: value}
}

func TestHandleInteractionDecodesOptions(t *testing.T) {
	var got sampleRequest
	fn := NewBotFunction("sample", "A sample command", func(_ context.Context, req sampleRequest) (*discordgo.InteractionResponseData, error) {
		got = req
		return &discordgo.InteractionResponseData{Content: "ok"}, nil
	}, nil)

	resp, err := fn.HandleInteraction(context.Background(), &discordgo.ApplicationCommandInteractionData{
		Name: "sample",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			option("query", "TE1"),
			// Discord sends every number as a JSON number.
			option("level", float64(2)),
			option("ratio", 0.25),
			option("verbose", true),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, sampleRequest{Level: 2, Query: "TE1", Ratio: 0.25, Verbose: true}, got)
}

func TestHandleInteractionAppliesDefaults(t *testing.T) {
	var got sampleRequest
	fn := NewBotFunction("sample", "", func(_ context.Context, req sampleRequest) (*discordgo.InteractionResponseData, error) {
		got = req
		return nil, nil
	}, nil)

	_, err := fn.HandleInteraction(context.Background(), &discordgo.ApplicationCommandInteractionData{
		Options: []*discordgo.ApplicationCommandInteractionDataOption{option("query", "TE1")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Level)
	assert.Equal(t, "Auto-generated command for sample", fn.GetDescription())
}

func TestHandleInteractionErrors(t *testing.T) {
	handlerErr := errors.New("boom")
	fn := NewBotFunction("sample", "", func(_ context.Context, req sampleRequest) (*discordgo.InteractionResponseData, error) {
		return nil, handlerErr
	}, nil)

	_, err := fn.HandleInteraction(context.Background(), &discordgo.ApplicationCommandInteractionData{})
	assert.ErrorIs(t, err, handlerErr)

	_, err = fn.HandleInteraction(context.Background(), &discordgo.ApplicationCommandInteractionData{
		Options: []*discordgo.ApplicationCommandInteractionDataOption{option("level", "loud")},
	})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, handlerErr)
}

type staticAutocomplete []string

func (s staticAutocomplete) Complete(input string) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, v := range s {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: v, Value: v})
	}
	return choices, nil
}

func TestBotFunctionAccessors(t *testing.T) {
	auto := staticAutocomplete{"a", "b"}
	fn := NewBotFunction("sample", "Does things", func(context.Context, sampleRequest) (*discordgo.InteractionResponseData, error) {
		return nil, nil
	}, auto)

	assert.Equal(t, "sample", fn.GetName())
	assert.Equal(t, "Does things", fn.GetDescription())
	assert.Equal(t, sampleRequest{}, fn.GetRequestPrototype())
	assert.Equal(t, auto, fn.GetAutocomplete())
}
