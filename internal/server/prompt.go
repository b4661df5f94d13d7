package server

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/herbgraph/pkg/kgapi"
)

func infoOr(info map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(info[key]); v != "" {
		return v
	}
	return fallback
}

// GeneratePrompt builds the free-form introduction prompt.
func GeneratePrompt(req kgapi.GenerateRequest) string {
	info := req.Info
	addition := strings.TrimSpace(req.Addition)
	if addition == "" {
		addition = "无"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "你是一个植物学专家，以下是植物「%s」的结构化知识信息，根据所提供的数据资料，撰写关于植物的文字介绍。请以自然流畅的方式组织语言，仅描述已有信息，不需要对缺失内容做出任何说明或标注。\n\n", req.PlantName)
	fmt.Fprintf(&b, "【科】：%s\n", infoOr(info, "属于科", "未知"))
	fmt.Fprintf(&b, "【属】：%s\n", infoOr(info, "属于属", "未知"))
	fmt.Fprintf(&b, "【拉丁学名】：%s\n", infoOr(info, "拉丁学名", "未知"))
	fmt.Fprintf(&b, "【别名】：%s\n", infoOr(info, "别名", "无"))
	fmt.Fprintf(&b, "【花期】：%s\n", infoOr(info, "花期", "未知"))
	fmt.Fprintf(&b, "【果期】：%s\n", infoOr(info, "果期", "未知"))
	fmt.Fprintf(&b, "【国内分布地】：%s\n", infoOr(info, "国内分布于", "未知"))
	fmt.Fprintf(&b, "【国际分布地】：%s\n", infoOr(info, "国际分布于", "未知"))
	fmt.Fprintf(&b, "【生境】：%s\n", infoOr(info, "生境", "未知"))
	fmt.Fprintf(&b, "【植物特征】：%s\n", infoOr(info, "特征", "未知"))
	fmt.Fprintf(&b, "【治疗】：%s\n\n", infoOr(info, "治疗", "未知"))
	b.WriteString("【格式说明】\n")
	b.WriteString("1. 以植物中文名和拉丁学名开始，格式为：植物中文名（XX科XX属，拉丁名），若植物存在别名，请以“又名××”的格式紧随其后；若无别名信息，请省略。\n")
	b.WriteString("2. 花果期介绍：若花期信息存在，则输出句子“花期为××。” 若果期信息存在，则输出句子“果期为××。” 任一信息缺失或为“未知”时，请智能省略对应句子。\n")
	b.WriteString("3. 分布情况：国内分布请以“在中国，分布于××等地”描述。若涉及多个省份，请按“省份+代表性地名”的方式归纳。国际分布表达为“亦见于××地区”。\n")
	b.WriteString("4. 生境描述：若存在，则以“多生于××环境”总结；如为“未知”，请省略整段。\n")
	b.WriteString("5. 分析适应性：可采用“××因其××特性，与××地区的××环境相适应”结构。\n\n")
	fmt.Fprintf(&b, "请生成 %d 种不同风格或结构的文本（如无法实现，则生成完整描述即可）。\n\n", req.N)
	fmt.Fprintf(&b, "【补充要求】：%s\n", addition)
	return b.String()
}

// ScriptPrompt builds the short-video script suggestion prompt.
func ScriptPrompt(req kgapi.ScriptRequest) string {
	info := req.Info
	platform := req.Platform
	if platform == "" {
		platform = "video"
	}
	audience := req.Audience
	if audience == "" {
		audience = "大众"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "你是一位专业的植物学内容策划师。用户查询了植物「%s」的信息，需要为平台「%s」面向「%s」创作%d套脚本建议。", req.PlantName, platform, audience, req.N)
	if req.Style != "" {
		fmt.Fprintf(&b, "脚本风格为「%s」。", req.Style)
	}
	b.WriteString("以下为植物结构化信息：\n\n")
	fmt.Fprintf(&b, "科：%s\n", infoOr(info, "属于科", "未知"))
	fmt.Fprintf(&b, "属：%s\n", infoOr(info, "属于属", "未知"))
	fmt.Fprintf(&b, "拉丁学名：%s\n", infoOr(info, "拉丁学名", "未知"))
	fmt.Fprintf(&b, "别名：%s\n", infoOr(info, "别名", "无"))
	fmt.Fprintf(&b, "花期：%s\n", infoOr(info, "花期", "未知"))
	fmt.Fprintf(&b, "果期：%s\n", infoOr(info, "果期", "未知"))
	fmt.Fprintf(&b, "国内分布：%s\n", infoOr(info, "国内分布于", "未知"))
	fmt.Fprintf(&b, "国际分布：%s\n", infoOr(info, "国际分布于", "未知"))
	fmt.Fprintf(&b, "生境：%s\n", infoOr(info, "生境", "未知"))
	fmt.Fprintf(&b, "植物特征：%s\n", infoOr(info, "特征", "未知"))
	fmt.Fprintf(&b, "治疗/药用：%s\n", infoOr(info, "治疗", "未知"))
	return b.String()
}
