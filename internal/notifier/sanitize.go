package notifier

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	mdBold     = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// Escape makes s safe to embed in a Telegram HTML message.
func Escape(s string) string {
	return html.EscapeString(s)
}

// StripHTML returns the visible text of an HTML fragment with whitespace
// collapsed. Feed descriptions go through this before reaching a prompt.
func StripHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// SanitizeHTML rewrites free-form model output into the HTML subset the
// Telegram Bot API accepts. Unsupported tags are unwrapped, block elements
// become line breaks, text is re-escaped and **bold** markdown is converted.
func SanitizeHTML(s string) string {
	s = mdBold.ReplaceAllString(s, "<b>$1</b>")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return Escape(s)
	}
	var b strings.Builder
	renderAll(&b, doc.Find("body").Contents())
	out := strings.ReplaceAll(b.String(), "\r\n", "\n")
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func renderAll(b *strings.Builder, sel *goquery.Selection) {
	sel.Each(func(_ int, n *goquery.Selection) {
		render(b, n)
	})
}

func render(b *strings.Builder, n *goquery.Selection) {
	name := goquery.NodeName(n)
	switch name {
	case "#text":
		b.WriteString(Escape(n.Text()))
	case "#comment", "script", "style", "head":
	case "b", "strong", "i", "em", "u", "ins", "s", "strike", "del", "code", "pre", "blockquote":
		b.WriteString("<" + name + ">")
		renderAll(b, n.Contents())
		b.WriteString("</" + name + ">")
	case "a":
		href, ok := n.Attr("href")
		if !ok || !(strings.HasPrefix(href, "https://") || strings.HasPrefix(href, "http://")) {
			renderAll(b, n.Contents())
			return
		}
		b.WriteString(`<a href="` + Escape(href) + `">`)
		renderAll(b, n.Contents())
		b.WriteString("</a>")
	case "br":
		b.WriteString("\n")
	case "li":
		b.WriteString("• ")
		renderAll(b, n.Contents())
		b.WriteString("\n")
	case "h1", "h2", "h3", "h4", "h5", "h6":
		b.WriteString("<b>")
		renderAll(b, n.Contents())
		b.WriteString("</b>\n")
	case "p", "div", "ul", "ol", "table", "tr":
		renderAll(b, n.Contents())
		b.WriteString("\n")
	default:
		renderAll(b, n.Contents())
	}
}
