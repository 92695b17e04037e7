package catalog

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() *Node {
	return &Node{Dir: true, Children: []*Node{
		{Name: "1ere", Path: "1ere", Dir: true, Children: []*Node{
			{Name: "Teleinformatique", Path: "1ere/Teleinformatique", Dir: true, Children: []*Node{
				{Name: "TE1_2023.pdf", Path: "1ere/Teleinformatique/TE1_2023.pdf"},
				{Name: "TE1_2019.pdf", Path: "1ere/Teleinformatique/TE1_2019.pdf"},
				{Name: "Examen_1819", Path: "1ere/Teleinformatique/Examen_1819", Dir: true, Children: []*Node{
					{Name: "TE.pdf", Path: "1ere/Teleinformatique/Examen_1819/TE.pdf"},
				}},
			}},
			{Name: "TP", Path: "1ere/TP", Dir: true, Children: []*Node{
				{Name: "tp1.pdf", Path: "1ere/TP/tp1.pdf"},
			}},
			{Name: "Exos%20Simulation%20Matlab", Path: "1ere/Exos%20Simulation%20Matlab", Dir: true, Children: []*Node{
				{Name: "ex.m", Path: "1ere/Exos%20Simulation%20Matlab/ex.m"},
			}},
		}},
		{Name: "README.md", Path: "README.md"},
		{Name: "Makefile", Path: "Makefile"},
	}}
}

func TestFilterSkip(t *testing.T) {
	tests := []struct {
		name string
		skip bool
	}{
		{"", false},
		{"TP", true},
		{"tps", true},
		{"Projet_Integre", true},
		{"exos simulation matlab", true},
		{"Exos%20Simulation%20Matlab", true},
		{"TE1_2020.pdf", true},
		{"Examen_1920", true},
		{"README.md", true},
		{"TE1_2023.pdf", false},
		{"Teleinformatique", false},
		{"Tpi", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.skip, DefaultFilter.Skip(tt.name), "name %q", tt.name)
	}
}

func TestFilterApply(t *testing.T) {
	tree := sampleTree()
	filtered := DefaultFilter.Apply(tree)

	assert.Equal(t, []string{"1ere/Teleinformatique/TE1_2023.pdf"}, Files(filtered))
	// The input tree is left untouched.
	assert.Len(t, Files(tree), 6)

	assert.Nil(t, Filter{SkipNames: []string{"root"}}.Apply(&Node{Name: "Root", Dir: true}))
}

func TestFiles(t *testing.T) {
	files := Files(sampleTree())
	assert.Equal(t, []string{
		"1ere/Exos%20Simulation%20Matlab/ex.m",
		"1ere/TP/tp1.pdf",
		"1ere/Teleinformatique/Examen_1819/TE.pdf",
		"1ere/Teleinformatique/TE1_2019.pdf",
		"1ere/Teleinformatique/TE1_2023.pdf",
		"README.md",
	}, files)
	assert.Empty(t, Files(nil))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []string{"1ere/Mathématiques/A&B.pdf"}))
	assert.Equal(t, "[\n  \"1ere/Mathématiques/A&B.pdf\"\n]\n", buf.String())

	var decoded []string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, []string{"1ere/Mathématiques/A&B.pdf"}, decoded)
}
