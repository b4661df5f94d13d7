package ui

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/herbgraph/pkg/explorer"
	"github.com/vanderheijden86/herbgraph/pkg/graphstate"
	"github.com/vanderheijden86/herbgraph/pkg/kgapi"
)

// detailMarkdown builds the right-hand pane: the selected graph node, the
// plant info card, script suggestions and generated copy.
func detailMarkdown(exp *explorer.Explorer, selected graphstate.Node, hasSelected bool) string {
	var sb strings.Builder

	if hasSelected {
		sb.WriteString(fmt.Sprintf("## %s\n\n", selected.Label()))
		if selected.Type != "" {
			sb.WriteString(fmt.Sprintf("**类型**: %s  \n", selected.Type))
		}
		sb.WriteString(fmt.Sprintf("`%s`\n\n", selected.ID))
	}

	card := exp.Info()
	switch {
	case card.Name == "":
		sb.WriteString("_选择植物后显示植物信息_\n\n")
	case card.Loading:
		sb.WriteString(fmt.Sprintf("## 🌿 %s\n\n正在加载植物信息…\n\n", card.Name))
	case card.Err != nil:
		sb.WriteString(fmt.Sprintf("## 🌿 %s\n\n获取植物信息失败：%v\n\n", card.Name, card.Err))
	default:
		sb.WriteString(fmt.Sprintf("## 🌿 %s\n\n", card.Name))
		for _, f := range kgapi.InfoFields {
			sb.WriteString(fmt.Sprintf("- **%s**: %s\n", f.Key, card.Field(f.Key)))
		}
		sb.WriteString("\n")
	}

	if script := exp.Script(); script != "" {
		sb.WriteString("### 🎬 脚本建议\n\n")
		sb.WriteString(script + "\n\n")
	}

	if gen := exp.Generated(); gen != "" {
		sb.WriteString("### ✍️ 生成文案\n\n")
		sb.WriteString(gen + "\n\n")
	}

	return sb.String()
}
