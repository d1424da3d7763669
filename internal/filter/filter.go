package filter

import (
	"bytes"
	stdhtml "html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

const (
	Markdown = "markdown_filter"
	Textile  = "textile_filter"
	Plain    = "plain_filter"
)

// Renderer turns a stored body into html.
type Renderer interface {
	Render(body string) (string, error)
}

type markdownRenderer struct {
	md goldmark.Markdown
}

func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)}
}

func (r *markdownRenderer) Render(body string) (string, error) {
	var out bytes.Buffer
	if err := r.md.Convert([]byte(body), &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

// paragraphRenderer escapes text and wraps blank-line separated blocks in
// <p>. Single newlines become <br/>.
type paragraphRenderer struct{}

var blankLines = regexp.MustCompile(`\n\s*\n`)

func (paragraphRenderer) Render(body string) (string, error) {
	body = strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))
	if body == "" {
		return "", nil
	}
	blocks := blankLines.Split(body, -1)
	var out strings.Builder
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		out.WriteString("<p>")
		out.WriteString(strings.ReplaceAll(stdhtml.EscapeString(block), "\n", "<br/>\n"))
		out.WriteString("</p>\n")
	}
	return out.String(), nil
}

var markdown = newMarkdownRenderer()

// Normalize maps "markdown" and "markdown_filter" to the same filter name.
// An empty name stays empty.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || strings.HasSuffix(name, "_filter") {
		return name
	}
	return name + "_filter"
}

// For returns the renderer for a filter name. Unknown names render as
// escaped paragraphs.
func For(name string) Renderer {
	if Normalize(name) == Markdown {
		return markdown
	}
	return paragraphRenderer{}
}

func Render(name, body string) (string, error) {
	return For(name).Render(body)
}
