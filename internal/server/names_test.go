package server

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/herbgraph/pkg/kgapi"
)

func TestSuggestRanking(t *testing.T) {
	idx := NewNameIndex([]string{"Ginseng", "American ginseng", "ginger", "Siberian Ginseng", "gin"})

	assert.Equal(t, []string{"Ginseng", "ginger", "gin", "American ginseng", "Siberian Ginseng"}, idx.Suggest("GIN", 10))
	assert.Equal(t, []string{"Ginseng", "ginger"}, idx.Suggest("  gin ", 2))
	assert.Empty(t, idx.Suggest("   ", 10))
	assert.NotNil(t, idx.Suggest("zzz", 10), "no match is an empty list, not null")
}

func TestSuggestDefaultLimit(t *testing.T) {
	var names []string
	for i := 0; i < 25; i++ {
		names = append(names, fmt.Sprintf("参%02d", i))
	}
	idx := NewNameIndex(names)
	assert.Len(t, idx.Suggest("参", 0), DefaultMaxSuggestions)
}

func TestReadNames(t *testing.T) {
	names, err := ReadNames(strings.NewReader("\ufeffname,family\n人参,五加科\n,空\n 黄芪 ,豆科\nshort\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"人参", "黄芪", "short"}, names)

	_, err = ReadNames(strings.NewReader("title\nx\n"))
	assert.ErrorContains(t, err, `"name" column`)

	names, err = ReadNames(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestScriptPromptDefaults(t *testing.T) {
	p := ScriptPrompt(kgapi.ScriptRequest{PlantName: "黄芪", N: 3})
	assert.Contains(t, p, "为平台「video」面向「大众」创作3套脚本建议")
	assert.Contains(t, p, "别名：无")
	assert.NotContains(t, p, "脚本风格")

	p = ScriptPrompt(kgapi.ScriptRequest{PlantName: "黄芪", Style: "轻松", N: 1})
	assert.Contains(t, p, "脚本风格为「轻松」")
}

func TestGeneratePromptBlankInfoUsesPlaceholders(t *testing.T) {
	p := GeneratePrompt(kgapi.GenerateRequest{PlantName: "黄芪", Info: map[string]string{"生境": "  "}, N: 1})
	assert.Contains(t, p, "【生境】：未知")
	assert.Contains(t, p, "【别名】：无")
}
