package kgstore

import "strings"

// Display metadata for subjects of a query.
const (
	PlantType  = "植物"
	PlantColor = "#4CAF50"
)

type typeColor struct {
	Type, Color string
}

var predicateTypes = map[string]typeColor{
	"属于科":   {"科", "#2196F3"},
	"属于属":   {"属", "#3F51B5"},
	"拉丁学名":  {"拉丁学名", "#9E9E9E"},
	"国内分布于": {"国内分布地", "#FF5722"},
	"国际分布于": {"国际分布地", "#FFC107"},
	"别名":    {"别名", "#9C27B0"},
	"花期":    {"花期", "#FF69B4"},
	"果期":    {"果期", "#8BC34A"},
	"生境":    {"生境", "#795548"},
	"治疗":    {"药用价值", "#008B8B"},
}

// TypeColor returns the node type and color for objects reached through
// predicate label pred.
func TypeColor(pred string) (string, string) {
	if tc, ok := predicateTypes[pred]; ok {
		return tc.Type, tc.Color
	}
	return "未知", "#ccc"
}

// ExtractLabel returns the local part of an identifier: the text after the
// last '#', or after the last '/' when there is no '#'.
func ExtractLabel(v string) string {
	if i := strings.LastIndex(v, "#"); i >= 0 {
		return v[i+1:]
	}
	if i := strings.LastIndex(v, "/"); i >= 0 {
		return v[i+1:]
	}
	return v
}

// isURI reports whether an object should be shown by its label.
func isURI(v string) bool {
	return strings.HasPrefix(v, "http")
}
