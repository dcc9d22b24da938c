package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// DefaultMathJaxURL loads MathJax 2 with the TeX and MathML input processors.
const DefaultMathJaxURL = "https://cdnjs.cloudflare.com/ajax/libs/mathjax/2.7.5/latest.js?config=TeX-MML-AM_CHTML"

// mathSpan matches inline $...$ math on a single line.
var mathSpan = regexp.MustCompile(`\$[^$\n]+\$`)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// MarkdownToHTML converts report Markdown to an HTML fragment. Inline math is
// shielded from Markdown emphasis and escapes and reaches the output as text
// for MathJax to typeset. Raw HTML in the input is dropped.
func MarkdownToHTML(src string) (string, error) {
	var spans []string
	shielded := mathSpan.ReplaceAllStringFunc(src, func(s string) string {
		spans = append(spans, s)
		return fmt.Sprintf("QFMATH%dQF", len(spans)-1)
	})

	var buf bytes.Buffer
	if err := md.Convert([]byte(shielded), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}

	out := buf.String()
	for i := len(spans) - 1; i >= 0; i-- {
		out = strings.ReplaceAll(out, fmt.Sprintf("QFMATH%dQF", i), templ.EscapeString(spans[i]))
	}
	return out, nil
}

// DocumentOptions controls the standalone HTML page.
type DocumentOptions struct {
	Title      string
	Lang       string
	MathJaxURL string // empty uses DefaultMathJaxURL
}

// Document wraps an HTML fragment in a page that typesets $...$ math with
// MathJax. The page is what gets printed to PDF.
func Document(body string, opts DocumentOptions) templ.Component {
	mathJax := opts.MathJaxURL
	if mathJax == "" {
		mathJax = DefaultMathJaxURL
	}
	lang := opts.Lang
	if lang == "" {
		lang = "en"
	}
	return document(body, opts.Title, lang, mathJax)
}

// HTMLDocument renders report Markdown into a complete HTML page.
func HTMLDocument(ctx context.Context, src string, opts DocumentOptions) ([]byte, error) {
	body, err := MarkdownToHTML(src)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := Document(body, opts).Render(ctx, &buf); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return buf.Bytes(), nil
}
