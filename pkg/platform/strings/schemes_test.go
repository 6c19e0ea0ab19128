package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNames(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "lowercases and trims", input: []string{" DOI ", "Oai"}, expected: []string{"doi", "oai"}},
		{name: "drops repeats after normalization", input: []string{"doi", "DOI", " doi"}, expected: []string{"doi"}},
		{name: "drops blanks", input: []string{"", "  ", "ark"}, expected: []string{"ark"}},
		{name: "keeps first-seen order", input: []string{"oai", "doi", "oai"}, expected: []string{"oai", "doi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeNames(tt.input))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{}, SplitList(""))
	assert.Equal(t, []string{}, SplitList("   "))
	assert.Equal(t, []string{"doi", "oai"}, SplitList("doi, OAI,,doi"))
}
