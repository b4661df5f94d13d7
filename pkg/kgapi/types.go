// Package kgapi defines the JSON shapes exchanged between hg and the
// knowledge-graph backend.
package kgapi

import (
	"bytes"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/herbgraph/pkg/graphstate"
)

// Endpoint paths.
const (
	PathQuery             = "/query"
	PathDetails           = "/details"
	PathAutocomplete      = "/autocomplete"
	PathTaxonomy          = "/taxonomy"
	PathStructuredInfo    = "/get_structured_info"
	PathGenerate          = "/generate"
	PathScriptSuggestions = "/script_suggestions"
)

// Subgraph is the response of GET /query.
type Subgraph struct {
	Nodes []graphstate.Node `json:"nodes"`
	Links []graphstate.Link `json:"links"`
}

// Details is the response of GET /details.
type Details struct {
	Entity     string                         `json:"entity"`
	Properties []graphstate.Property          `json:"properties"`
	NodeInfo   map[string]graphstate.NodeMeta `json:"node_info"`
}

// TaxonomyEntry is one row of GET /taxonomy: a genus within a family and the
// plants filed under it.
type TaxonomyEntry struct {
	Family string   `json:"科"`
	Genus  string   `json:"属"`
	Plants []string `json:"植物列表"`
}

// InfoValue is a structured-info attribute. The backend sends a single
// string when a predicate has one value and an array when it has several.
type InfoValue []string

// UnmarshalJSON accepts a string, an array of strings or null.
func (v *InfoValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var many []string
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*v = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*v = InfoValue{one}
	return nil
}

// MarshalJSON writes a single value as a string and several as an array.
func (v InfoValue) MarshalJSON() ([]byte, error) {
	if len(v) == 1 {
		return json.Marshal(v[0])
	}
	return json.Marshal([]string(v))
}

// String joins multiple values with the Chinese enumeration comma.
func (v InfoValue) String() string {
	return strings.Join(v, "、")
}

// PlantInfo maps predicate labels to values.
type PlantInfo map[string]InfoValue

// Get returns the joined value of key or fallback when absent or empty.
func (p PlantInfo) Get(key, fallback string) string {
	if v, ok := p[key]; ok && len(v) > 0 && v.String() != "" {
		return v.String()
	}
	return fallback
}

// StructuredInfo is the response of GET /get_structured_info.
type StructuredInfo struct {
	Info PlantInfo `json:"info"`
}

// Info card fields in display order, with the placeholder shown when a
// field is missing.
var InfoFields = []struct {
	Key      string
	Fallback string
}{
	{"特征", "无"},
	{"治疗", "无"},
	{"拉丁学名", "未知"},
	{"属于科", "未知"},
	{"属于属", "未知"},
	{"国内分布于", "未知"},
	{"国际分布于", "未知"},
	{"生境", "未知"},
}

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	PlantName string            `json:"plant_name" validate:"required,max=200"`
	Info      map[string]string `json:"info"`
	Addition  string            `json:"addition" validate:"max=2000"`
	N         int               `json:"n" validate:"min=1,max=10"`
}

// ScriptRequest is the body of POST /script_suggestions.
type ScriptRequest struct {
	PlantName string            `json:"plant_name" validate:"required,max=200"`
	Info      map[string]string `json:"info"`
	Platform  string            `json:"platform"`
	Style     string            `json:"style"`
	Audience  string            `json:"audience"`
	N         int               `json:"n" validate:"min=1,max=10"`
}

// ScriptResponse is the body returned by POST /script_suggestions. Older
// backends return the suggestion payload under Data instead.
type ScriptResponse struct {
	ScriptSuggestions string          `json:"script_suggestions"`
	Data              json.RawMessage `json:"data,omitempty"`
	Error             string          `json:"error,omitempty"`
}

// Flatten converts structured info into the string map sent with generation
// requests.
func (p PlantInfo) Flatten() map[string]string {
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v.String()
	}
	return out
}
