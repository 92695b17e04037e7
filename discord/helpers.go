package discord

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// discordTag is a parsed "discord" struct tag.
type discordTag struct {
	name    string
	options map[string]string
}

// parseDiscordTag parses a struct tag value (e.g. "year,optional,description:desc,choices:1|One;2|Two,default:1").
// The first element is the option name; the rest are keys with optional ":value".
func parseDiscordTag(tag string) discordTag {
	parts := strings.Split(tag, ",")
	result := discordTag{
		name:    strings.TrimSpace(parts[0]),
		options: make(map[string]string),
	}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) == 2 {
			key := strings.TrimSpace(kv[0])
			value := strings.TrimSpace(kv[1])
			result.options[key] = value
		} else {
			result.options[part] = "true"
		}
	}
	return result
}

// optionName returns the Discord option name of a struct field.
func optionName(field reflect.StructField) string {
	if tag := parseDiscordTag(field.Tag.Get("discord")); tag.name != "" {
		return tag.name
	}
	return strings.ToLower(field.Name)
}

// parseChoices parses a choices string (e.g. "val1|Label1;val2|Label2") into choices whose values
// have the Go type of the field, so integer options get integer choices.
func parseChoices(s string, t reflect.Type) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	var choices []*discordgo.ApplicationCommandOptionChoice
	pairs := strings.Split(s, ";")
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		// Expect a pair separated by a pipe ("|").
		parts := strings.SplitN(pair, "|", 2)
		raw, name := parts[0], parts[0]
		if len(parts) == 2 {
			name = parts[1]
		}
		value, err := convertType(raw, t)
		if err != nil {
			return nil, fmt.Errorf("choice %q: %w", raw, err)
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  name,
			Value: value.Interface(),
		})
	}
	return choices, nil
}

// setDefaults iterates over the fields of a struct pointed to by req and, if a field is zero,
// sets it to the default value specified by the "default" key in the "discord" tag.
func setDefaults(req interface{}) error {
	v := reflect.ValueOf(req)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("setDefaults: req is not a pointer to struct")
	}
	v = v.Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)
		if !fieldVal.CanSet() || !fieldVal.IsZero() {
			continue
		}
		tag := field.Tag.Get("discord")
		if tag == "" {
			continue
		}
		if def, ok := parseDiscordTag(tag).options["default"]; ok && def != "" {
			converted, err := convertType(def, field.Type)
			if err != nil {
				return err
			}
			fieldVal.Set(converted)
		}
	}

	return nil
}

// convertType converts a string value to a reflect.Value of type t for basic types.
func convertType(val string, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(val).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(i).Convert(t), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(f).Convert(t), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b).Convert(t), nil
	default:
		return reflect.Value{}, fmt.Errorf("unsupported type for conversion: %s", t.Kind())
	}
}

// structToCommandOptions uses reflection to generate Discord command options from a request struct.
// It also uses custom struct tags (key "discord") for options like optional, choices, description, and default.
func structToCommandOptions(req Request) ([]*discordgo.ApplicationCommandOption, error) {
	t := reflect.TypeOf(req)
	if t == nil {
		return nil, fmt.Errorf("request is nil")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("request is not a struct")
	}

	var options []*discordgo.ApplicationCommandOption
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := optionName(field)
		var optionType discordgo.ApplicationCommandOptionType

		// Map common Go types to Discord option types.
		switch field.Type.Kind() {
		case reflect.String:
			optionType = discordgo.ApplicationCommandOptionString
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			optionType = discordgo.ApplicationCommandOptionInteger
		case reflect.Float32, reflect.Float64:
			optionType = discordgo.ApplicationCommandOptionNumber
		case reflect.Bool:
			optionType = discordgo.ApplicationCommandOptionBoolean
		default:
			optionType = discordgo.ApplicationCommandOptionString
		}

		opt := &discordgo.ApplicationCommandOption{
			Type:        optionType,
			Name:        name,
			Description: "Auto-generated option for " + name,
			Required:    true,
		}

		if tagValue := field.Tag.Get("discord"); tagValue != "" {
			tags := parseDiscordTag(tagValue).options
			if _, ok := tags["optional"]; ok {
				opt.Required = false
			}
			if desc, ok := tags["description"]; ok && desc != "" {
				opt.Description = desc
			}
			if choicesStr, ok := tags["choices"]; ok && choicesStr != "" {
				choices, err := parseChoices(choicesStr, field.Type)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", field.Name, err)
				}
				opt.Choices = choices
			}
			if _, ok := tags["autocomplete"]; ok {
				opt.Autocomplete = true
			}
		}

		options = append(options, opt)
	}

	// Discord requires required options to precede optional ones.
	ordered := make([]*discordgo.ApplicationCommandOption, 0, len(options))
	for _, opt := range options {
		if opt.Required {
			ordered = append(ordered, opt)
		}
	}
	for _, opt := range options {
		if !opt.Required {
			ordered = append(ordered, opt)
		}
	}

	return ordered, nil
}
