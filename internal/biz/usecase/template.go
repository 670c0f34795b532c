package usecase

import (
	"fmt"
	"strings"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
)

// Rendered holds the three forms of a formatted message
type Rendered struct {
	// Body is the plain-text form including the image count hint
	Body string
	// HTML is the email body, with cid:image_<i> references
	HTML string
	// ChainText is the plain-text form sent alongside images
	ChainText string
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML escapes the five HTML-sensitive characters
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

const preStyle = `<pre style="white-space: pre-wrap; word-wrap: break-word; margin: 0;">`

// Render formats a message with the given template.
// Unknown templates fall back to the default layout.
func Render(tpl domain.Template, label, text, timestamp string, imageCount int) Rendered {
	hint := ""
	if imageCount > 0 {
		hint = fmt.Sprintf("\n[包含 %d 张图片]", imageCount)
	}

	var images strings.Builder
	if imageCount > 0 {
		images.WriteString("<p><b>图片内容:</b></p>")
		for i := 0; i < imageCount; i++ {
			fmt.Fprintf(&images,
				`<p><img src="cid:%s" alt="附件图片 %d" style="max-width: 100%%; height: auto; border: 1px solid #ddd; padding: 2px;"/></p>`,
				repo.InlineImageID(i), i+1)
		}
	}
	imgHTML := images.String()

	eLabel := EscapeHTML(label)
	eTime := EscapeHTML(timestamp)
	pre := preStyle + EscapeHTML(text) + "</pre>"

	var r Rendered
	switch tpl {
	case domain.TemplateEmoji:
		r.ChainText = fmt.Sprintf("🔢 来源：%s\n📝 内容：%s\n⏰ 时间：%s", label, text, timestamp)
		r.Body = r.ChainText + hint
		r.HTML = fmt.Sprintf("<p>🔢 来源：%s</p><p>📝 内容：</p>%s%s<p>⏰ 时间：%s</p>", eLabel, pre, imgHTML, eTime)

	case domain.TemplateBrackets:
		r.ChainText = fmt.Sprintf("【来源】『%s』\n【内容】「%s」\n【时间】『%s』", label, text, timestamp)
		r.Body = r.ChainText + hint
		r.HTML = fmt.Sprintf("<p>【来源】『%s』</p><p>【内容】「%s」</p>%s<p>【时间】『%s』</p>", eLabel, pre, imgHTML, eTime)

	case domain.TemplateSymbols:
		r.ChainText = fmt.Sprintf("✦ 来源：%s\n✧ 内容：%s\n✦ 时间：%s", label, text, timestamp)
		r.Body = r.ChainText + hint
		r.HTML = fmt.Sprintf("<p>✦ 来源：%s</p><p>✧ 内容：</p>%s%s<p>✦ 时间：%s</p>", eLabel, pre, imgHTML, eTime)

	case domain.TemplateMarkdownLines:
		head := fmt.Sprintf("---\n### 来源\n%s\n\n### 内容\n%s\n\n### 时间\n%s", label, text, timestamp)
		r.ChainText = head + "\n---"
		r.Body = head + hint + "\n---"
		r.HTML = fmt.Sprintf("<hr><h3>来源</h3><p>%s</p><h3>内容</h3>%s%s<h3>时间</h3><p>%s</p><hr>", eLabel, pre, imgHTML, eTime)

	case domain.TemplateMarkdownBold:
		r.ChainText = fmt.Sprintf("**来源**：%s\n**内容**：%s\n**时间**：%s", label, text, timestamp)
		r.Body = r.ChainText + hint
		r.HTML = fmt.Sprintf("<p><b>来源</b>：%s</p><p><b>内容</b>：</p>%s%s<p><b>时间</b>：%s</p>", eLabel, pre, imgHTML, eTime)

	case domain.TemplateMarkdownTable:
		table := "| 项目 | 内容       |\n|------|------------|\n| 来源 | %s   |\n| 内容 | %s |\n| 时间 | %s    |"
		r.ChainText = fmt.Sprintf(table, label, text+"    ", timestamp)
		r.Body = fmt.Sprintf(table, label, text+hint, timestamp)
		r.HTML = `<table border="1" style="border-collapse: collapse; width: 100%;">` +
			`<thead><tr><th style="padding: 5px; text-align: left;">项目</th><th style="padding: 5px; text-align: left;">内容</th></tr></thead>` +
			`<tbody>` +
			`<tr><td style="padding: 5px;">来源</td><td style="padding: 5px;">` + eLabel + `</td></tr>` +
			`<tr><td style="padding: 5px;">内容</td><td style="padding: 5px;">` + pre + imgHTML + `</td></tr>` +
			`<tr><td style="padding: 5px;">时间</td><td style="padding: 5px;">` + eTime + `</td></tr>` +
			`</tbody></table>`

	default:
		r.ChainText = fmt.Sprintf("来源: %s\n内容: %s\n时间: %s", label, text, timestamp)
		r.Body = r.ChainText + hint
		r.HTML = fmt.Sprintf("<p><b>来源</b>: %s</p><p><b>内容</b>：</p>%s%s<p><b>时间</b>: %s</p>", eLabel, pre, imgHTML, eTime)
	}
	return r
}

// EmailSubject returns the subject line for a forwarded message
func EmailSubject(label string) string {
	return "BuyTheWay 消息匹配: " + label
}
