package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/mitchellh/mapstructure"
)

// Request is a blank interface for the command request definitions.
type Request interface{}

// Autocomplete is an interface for types that can provide autocomplete suggestions.
type Autocomplete interface {
	// Complete takes an input string and returns a list of choices for the option.
	Complete(input string) ([]*discordgo.ApplicationCommandOptionChoice, error)
}

// BotFunctionI is the common interface for all bot command functions.
type BotFunctionI interface {
	GetName() string
	GetDescription() string
	GetRequestPrototype() Request
	GetAutocomplete() Autocomplete
	// HandleInteraction decodes interaction data into a request struct and calls the handler.
	// It returns the response data that can be sent directly to Discord.
	HandleInteraction(ctx context.Context, data *discordgo.ApplicationCommandInteractionData) (*discordgo.InteractionResponseData, error)
}

// GenericBotFunction is a generic implementation of BotFunctionI.
type GenericBotFunction[T Request] struct {
	// Name is the command name.
	Name string
	// Description is shown to users in the command picker.
	Description string
	// RequestPrototype is an instance of the request type (typically the zero value)
	// used for reflection to generate command options.
	RequestPrototype T
	// Handler is the function to execute for the command.
	Handler func(context.Context, T) (*discordgo.InteractionResponseData, error)
	// Autocomplete is an optional implementation for providing autocomplete choices.
	Autocomplete Autocomplete
}

// GetName returns the command's name.
func (bf *GenericBotFunction[T]) GetName() string {
	return bf.Name
}

// GetDescription returns the command's description.
func (bf *GenericBotFunction[T]) GetDescription() string {
	if bf.Description == "" {
		return "Auto-generated command for " + bf.Name
	}
	return bf.Description
}

// GetRequestPrototype returns the command's request prototype.
func (bf *GenericBotFunction[T]) GetRequestPrototype() Request {
	return bf.RequestPrototype
}

// GetAutocomplete returns the command's autocomplete provider, or nil.
func (bf *GenericBotFunction[T]) GetAutocomplete() Autocomplete {
	return bf.Autocomplete
}

// HandleInteraction processes the interaction by constructing a request of type T from the data
// and then invoking the handler. It decodes the options using mapstructure and then applies any defaults.
func (bf *GenericBotFunction[T]) HandleInteraction(ctx context.Context, data *discordgo.ApplicationCommandInteractionData) (*discordgo.InteractionResponseData, error) {
	req, err := decodeRequest[T](data.Options)
	if err != nil {
		return nil, err
	}
	return bf.Handler(ctx, req)
}

// decodeRequest maps option values onto a request struct and fills in tag defaults.
func decodeRequest[T Request](options []*discordgo.ApplicationCommandInteractionDataOption) (T, error) {
	var req T

	optsMap := make(map[string]interface{}, len(options))
	for _, opt := range options {
		optsMap[opt.Name] = opt.Value
	}

	// The first element of the "discord" tag is the option name, which is what mapstructure keys on.
	decoderConfig := mapstructure.DecoderConfig{
		TagName:          "discord",
		Result:           &req,
		WeaklyTypedInput: true, // integer options arrive as float64.
	}
	decoder, err := mapstructure.NewDecoder(&decoderConfig)
	if err != nil {
		return req, err
	}
	if err := decoder.Decode(optsMap); err != nil {
		return req, err
	}

	if err := setDefaults(&req); err != nil {
		return req, err
	}
	return req, nil
}

// NewBotFunction is a generic constructor that creates a new BotFunctionI command handler.
// It instantiates a GenericBotFunction with a zero-value prototype of type T (your request struct).
// This prototype is later used with the mapstructure decoder to automatically map Discord interaction
// options into your custom request struct. Your request struct can use the "discord" struct tag to control
// how each field is processed. The first tag element is the option name (empty means the lowercased
// field name); the remaining elements are:
//
//   - optional:     Marks the field as not required (the command won't error if it's missing).
//   - description:  Overrides the auto-generated option description with a custom text.
//   - choices:      Provides a semicolon-separated list of choices in the format "value|Label" for the option.
//   - default:      Specifies a default value to assign if the field remains unset after decoding.
//   - autocomplete: Asks Discord to query the function's Autocomplete while the user types.
//
// Tag values cannot contain commas.
func NewBotFunction[T Request](name, description string, handler func(context.Context, T) (*discordgo.InteractionResponseData, error), autocomplete Autocomplete) BotFunctionI {
	var reqPrototype T
	return &GenericBotFunction[T]{
		Name:             name,
		Description:      description,
		RequestPrototype: reqPrototype,
		Handler:          handler,
		Autocomplete:     autocomplete,
	}
}
