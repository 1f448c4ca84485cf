package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// pageTemplate wraps rendered markdown in a standalone page.
const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
  <style>
    body { font-family: system-ui, sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; color: #1f2937; }
    table { border-collapse: collapse; margin-bottom: 1rem; }
    th, td { border: 1px solid #d1d5db; padding: .3rem .6rem; text-align: left; }
    th { background: #f3f4f6; }
    pre { padding: .8rem; border-radius: 6px; overflow-x: auto; }
  </style>
</head>
<body>
{{.Content}}
</body>
</html>
`

var page = template.Must(template.New("page").Parse(pageTemplate))

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
}

// HTML renders the snapshot as a standalone HTML page.
func HTML(w io.Writer, s Snapshot) error {
	var body bytes.Buffer
	if err := newMarkdown().Convert([]byte(Markdown(s)), &body); err != nil {
		return fmt.Errorf("converting markdown: %w", err)
	}

	return page.Execute(w, struct {
		Title   string
		Content template.HTML
	}{
		Title:   s.Title,
		Content: template.HTML(body.String()),
	})
}
