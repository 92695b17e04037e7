package deadline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestParseLines(t *testing.T) {
	now := time.Date(2024, time.March, 10, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		line  string
		label string
		due   time.Time
	}{
		{name: "slash without year", line: "TE1 rendu 15/03", label: "TE1 rendu", due: day(2024, time.March, 15)},
		{name: "past date rolls to next year", line: "Rapport 05.01", label: "Rapport", due: day(2025, time.January, 5)},
		{name: "today stays this year", line: "Projet: 10/03", label: "Projet", due: day(2024, time.March, 10)},
		{name: "markdown bullet with year", line: "- **Labo 3** : 12.04.2024", label: "Labo 3", due: day(2024, time.April, 12)},
		{name: "two digit year", line: "Exam 15/03/25", label: "Exam", due: day(2025, time.March, 15)},
		{name: "french month name", line: "Présentation 1er avril", label: "Présentation", due: day(2024, time.April, 1)},
		{name: "weekday and month name first", line: "lundi 18 mars: Quiz", label: "Quiz", due: day(2024, time.March, 18)},
		{name: "english month with year", line: "Essay due 3 June 2024", label: "Essay due", due: day(2024, time.June, 3)},
		{name: "iso date", line: "Deadline 2024-03-20 TP", label: "Deadline TP", due: day(2024, time.March, 20)},
		{name: "dash separator", line: "TP4 – 22-03", label: "TP4", due: day(2024, time.March, 22)},
		{name: "first date wins", line: "Semestre 18.03 puis 25.03", label: "Semestre puis 25.03", due: day(2024, time.March, 18)},
		{name: "section number before slash date", line: "Série 2.1: 15/03", label: "Série 2.1", due: day(2024, time.March, 15)},
		{name: "dotted numbering in label", line: "Exercices 3.4 à rendre le 15/03", label: "Exercices 3.4 à rendre le", due: day(2024, time.March, 15)},
		{name: "date range starts the deadline", line: "TE1 15/03-22/03", label: "TE1", due: day(2024, time.March, 15)},
		{name: "spelled out range", line: "Labo 15.03 au 22.03", label: "Labo", due: day(2024, time.March, 15)},
		{name: "month name beats slash", line: "Quiz 2/3 le 20 mars", label: "Quiz 2/3 le", due: day(2024, time.March, 20)},
		{name: "brackets kept balanced", line: "TP 15/03 (note 4.5)", label: "TP (note 4.5)", due: day(2024, time.March, 15)},
		{name: "empty brackets dropped", line: "TE1 (15/03)", label: "TE1", due: day(2024, time.March, 15)},
		{name: "dangling bracket dropped", line: "Projet [rendu 15/03", label: "Projet rendu", due: day(2024, time.March, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := Parse(tt.line, now)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.label, entries[0].Label)
			assert.True(t, tt.due.Equal(entries[0].Due), "due %s, want %s", entries[0].Due, tt.due)
			assert.False(t, entries[0].Notified)
		})
	}
}

func TestCleanLabel(t *testing.T) {
	assert.Equal(t, "TP (note 4.5)", cleanLabel("TP  (note 4.5) "))
	assert.Equal(t, "Labo [B]", cleanLabel(" - Labo [B] :"))
	assert.Equal(t, "Quiz", cleanLabel("Quiz ( )"))
	assert.Equal(t, "Rapport", cleanLabel("(Rapport"))
	assert.Equal(t, "Rapport", cleanLabel("Rapport)"))
	assert.Equal(t, "", cleanLabel(" ( ) - "))
}

func TestParseSkipsLinesWithoutDeadline(t *testing.T) {
	now := time.Date(2024, time.March, 10, 10, 0, 0, 0, time.UTC)
	text := "**Rendus du semestre**\n" +
		"-----\n" +
		"\n" +
		"15/03\n" +
		"Labo 31/02\n" +
		"Voir Moodle pour les détails"

	assert.Empty(t, Parse(text, now))
	assert.Empty(t, Parse("", now))
}

func TestParseMessage(t *testing.T) {
	now := time.Date(2024, time.December, 20, 9, 0, 0, 0, time.UTC)
	text := "📌 **Rendus**\n" +
		"• TE1 rendu 23/12\n" +
		"• Projet intégré 10/01\n" +
		"> Rapport final 2024-12-01\n"

	entries := Parse(text, now)
	require.Len(t, entries, 3)

	assert.Equal(t, "TE1 rendu", entries[0].Label)
	assert.True(t, day(2024, time.December, 23).Equal(entries[0].Due))

	// The year boundary: January is next year.
	assert.Equal(t, "Projet intégré", entries[1].Label)
	assert.True(t, day(2025, time.January, 10).Equal(entries[1].Due))

	// Explicit years are kept even when past.
	assert.Equal(t, "Rapport final", entries[2].Label)
	assert.True(t, day(2024, time.December, 1).Equal(entries[2].Due))
}

func TestParseUsesLocationOfNow(t *testing.T) {
	zurich := time.FixedZone("CET", 3600)
	// 23:30 UTC on the 10th is already the 11th in Zurich.
	now := time.Date(2024, time.March, 10, 23, 30, 0, 0, time.UTC).In(zurich)

	entries := Parse("Quiz 10/03", now)
	require.Len(t, entries, 1)
	assert.Equal(t, 2025, entries[0].Due.Year())
	assert.Equal(t, zurich, entries[0].Due.Location())
}

func TestEntryKey(t *testing.T) {
	a := Entry{Label: "TE1 Rendu", Due: day(2024, time.March, 15)}
	b := Entry{Label: "te1 rendu", Due: day(2024, time.March, 15)}
	c := Entry{Label: "TE1 Rendu", Due: day(2024, time.March, 16)}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestDaysUntil(t *testing.T) {
	today := day(2024, time.March, 10)
	assert.Equal(t, 0, DaysUntil(today, day(2024, time.March, 10)))
	assert.Equal(t, 5, DaysUntil(today, day(2024, time.March, 15)))
	assert.Equal(t, -1, DaysUntil(today, day(2024, time.March, 9)))
	assert.Equal(t, 22, DaysUntil(today, day(2024, time.April, 1)))
}
