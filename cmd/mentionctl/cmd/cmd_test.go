package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestMatchPrintsFirstTerm(t *testing.T) {
	out, err := execute(t, "", "match", "--keyword", "latte", "--location", "Seattle",
		"Best", "latte", "in", "Seattle")
	require.NoError(t, err)
	assert.Equal(t, "Keyword match \"latte\" at offset 5\nBest [latte] in Seattle\n", out)
}

func TestMatchReadsStdin(t *testing.T) {
	out, err := execute(t, "moving to seattle next week\n", "match", "--location", "Seattle")
	require.NoError(t, err)
	assert.Contains(t, out, "Location match \"Seattle\" at offset 10")
	assert.Contains(t, out, "[seattle]")
}

func TestMatchNoMatchAndJSON(t *testing.T) {
	out, err := execute(t, "", "match", "--keyword", "latte", "nothing", "here")
	require.NoError(t, err)
	assert.Equal(t, "no match\n", out)

	out, err = execute(t, "", "match", "--json", "--business", "Acme", "I love acme products")
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, "Acme", m["term"])
	assert.Equal(t, "business", m["category"])
	assert.EqualValues(t, 7, m["offset"])
}

func TestMatchRequiresTerms(t *testing.T) {
	_, err := execute(t, "", "match", "some text")
	assert.Error(t, err)
}

func TestHighlight(t *testing.T) {
	out, err := execute(t, "", "highlight", "go", "Go go GO")
	require.NoError(t, err)
	assert.Equal(t, "[Go] [go] [GO]\n", out)

	out, err = execute(t, "", "highlight", "--html", "b", "a<b>")
	require.NoError(t, err)
	assert.Equal(t, "a&lt;<mark>b</mark>&gt;\n", out)
}

func TestSuggestKeywords(t *testing.T) {
	out, err := execute(t, "", "suggest", "keywords", "--industry", "coffee", "--business", "Bean There", "--max", "5")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "coffee", lines[0])
	assert.Equal(t, "Bean There", lines[1])

	_, err = execute(t, "", "suggest", "keywords")
	assert.Error(t, err)
}

func TestSuggestSubreddits(t *testing.T) {
	out, err := execute(t, "", "suggest", "subreddits", "--industry", "coffee", "--location", "Seattle")
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		assert.True(t, strings.HasPrefix(line, "r/"), line)
	}
}
