package exams

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/brensch/heiabot/discord"
	"github.com/bwmarrin/discordgo"
)

// OldExamRequest defines the inputs of the /old-exam command.
type OldExamRequest struct {
	Query string `discord:"query,description:What you are looking for (e.g. Teleinformatique TE1),autocomplete"`
	Year  int    `discord:"year,description:Academic year,choices:1|1ère;2|2ème;3|3ème"`
	N     int    `discord:"n,optional,description:How many results to return (1-5),default:1"`
}

// maxEchoedQuery caps the query repeated back in replies; message content is limited to 2000 characters.
const maxEchoedQuery = 200

// autocompleteTimeout keeps course suggestions within Discord's three second window.
const autocompleteTimeout = 2 * time.Second

// Handler turns /old-exam interactions into searches and replies.
type Handler struct {
	searcher     *Searcher
	lister       Lister
	shareBaseURL string
}

// NewHandler returns a Handler linking results to folders of shareBaseURL.
func NewHandler(searcher *Searcher, lister Lister, shareBaseURL string) *Handler {
	return &Handler{
		searcher:     searcher,
		lister:       lister,
		shareBaseURL: shareBaseURL,
	}
}

// DiscordFunctionOldExam returns the /old-exam command.
func (h *Handler) DiscordFunctionOldExam() discord.BotFunctionI {
	return discord.NewBotFunction(
		"old-exam",
		"Find an old exam and get a link to its folder",
		h.handleOldExamCommand,
		courseCompleter{lister: h.lister},
	)
}

func (h *Handler) handleOldExamCommand(ctx context.Context, req OldExamRequest) (*discordgo.InteractionResponseData, error) {
	q := Query{Text: strings.TrimSpace(req.Query), Year: req.Year, Count: req.N}

	result, err := h.searcher.Search(ctx, q)
	if errors.Is(err, ErrUnavailable) {
		slog.Error("exam search unavailable", "query", q.Text, "year", q.Year, "error", err)
		return &discordgo.InteractionResponseData{
			Content: "Search unavailable, try again later.",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	echoed := shorten(q.Text, maxEchoedQuery)
	if len(result.Files) == 0 {
		return &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("No matches found for `%s` in year %s. Try a different query.", echoed, yearLabels[q.Year]),
		}, nil
	}

	return &discordgo.InteractionResponseData{
		Content: fmt.Sprintf("🔎 **Query:** `%s` • **Year:** %s", echoed, yearLabels[q.Year]),
		Embeds:  h.resultEmbeds(result.Files),
	}, nil
}

func (h *Handler) resultEmbeds(files []string) []*discordgo.MessageEmbed {
	embeds := make([]*discordgo.MessageEmbed, 0, len(files))
	for _, f := range files {
		folderURL := FolderURL(h.shareBaseURL, f)
		embeds = append(embeds, &discordgo.MessageEmbed{
			Title:       path.Base(f),
			URL:         folderURL,
			Description: fmt.Sprintf("**Folder** (opens viewer): %s", folderURL),
			Color:       0x2F3136,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Path", Value: "`" + f + "`"},
			},
		})
	}
	return embeds
}

// shorten cuts s to at most n runes, marking the cut with an ellipsis. Backticks are dropped so the
// text stays inside its code span.
func shorten(s string, n int) string {
	s = strings.ReplaceAll(s, "`", "")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// courseCompleter suggests course folders for the query option.
type courseCompleter struct {
	lister Lister
}

func (c courseCompleter) Complete(input string) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	ctx, cancel := context.WithTimeout(context.Background(), autocompleteTimeout)
	defer cancel()

	files, err := c.lister.ListFiles(ctx)
	if err != nil {
		return nil, err
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, course := range Courses(files, input) {
		// Choice names and values are limited to 100 characters.
		if len(course) > 100 {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  course,
			Value: course,
		})
	}
	return choices, nil
}

// Courses returns the distinct course folders (the folder below the year) whose name starts with
// prefix, case-insensitively, sorted.
func Courses(files []string, prefix string) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	var courses []string
	for _, f := range files {
		parts := strings.Split(f, "/")
		if len(parts) < 3 {
			continue
		}
		course := parts[1]
		if strings.HasPrefix(strings.ToLower(course), prefix) {
			courses = append(courses, course)
		}
	}
	slices.Sort(courses)
	return slices.Compact(courses)
}
