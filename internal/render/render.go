// Package render turns transcript markdown into HTML and extracts document structure.
package render

import (
	"bytes"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"paper-reader/internal/chat"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown converts one markdown message to HTML. Raw HTML in the source is omitted.
func Markdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Transcript renders a conversation as an HTML fragment, one block per present side.
func Transcript(turns []chat.Turn) (string, error) {
	var b strings.Builder
	b.WriteString(`<div class="transcript">` + "\n")
	for _, t := range turns {
		if t.User != nil {
			b.WriteString(`<div class="message user">`)
			b.WriteString(html.EscapeString(*t.User))
			b.WriteString("</div>\n")
		}
		if t.Assistant != nil {
			body, err := Markdown(*t.Assistant)
			if err != nil {
				return "", err
			}
			b.WriteString(`<div class="message assistant">` + "\n")
			b.WriteString(body)
			b.WriteString("</div>\n")
		}
	}
	b.WriteString("</div>\n")
	return b.String(), nil
}

// Headings returns the text of every heading in src, in document order.
func Headings(src string) []string {
	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))

	var headings []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if title := strings.TrimSpace(inlineText(h, source)); title != "" {
			headings = append(headings, title)
		}
		return ast.WalkSkipChildren, nil
	})
	return headings
}

func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		default:
			b.WriteString(inlineText(c, source))
		}
	}
	return b.String()
}
