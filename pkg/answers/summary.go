package answers

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.tpl
var templatesFS embed.FS

const summaryTemplate = "templates/summary.tpl"

// DefaultTitle heads the text summary.
const DefaultTitle = "Unsafe Act / Near Miss Report"

var (
	setOnce    sync.Once
	summarySet *pongo2.TemplateSet
	summaryTpl *pongo2.Template
	setErr     error
)

// RenderText renders answers as an aligned plain-text summary for review
// before submission. Multi-line values are indented under their label.
func RenderText(title string, answers []Answer) (string, error) {
	tpl, err := summary()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}

	width := 0
	rows := make([]map[string]any, 0, len(answers))
	for _, a := range answers {
		if l := len(a.Label); l > width {
			width = l
		}
		rows = append(rows, map[string]any{
			"label": a.Label,
			"value": a.Value,
		})
	}

	out, err := tpl.Execute(pongo2.Context{
		"title":   title,
		"rule":    strings.Repeat("=", len(title)),
		"answers": rows,
		"width":   width,
		"indent":  width + 2,
	})
	if err != nil {
		return "", fmt.Errorf("answers: render summary: %w", err)
	}
	return out, nil
}

func summary() (*pongo2.Template, error) {
	setOnce.Do(func() {
		if !pongo2.FilterExists("hangindent") {
			if err := pongo2.RegisterFilter("hangindent", filterHangIndent); err != nil {
				setErr = fmt.Errorf("answers: register filter: %w", err)
				return
			}
		}
		summarySet = pongo2.NewSet("answers", pongo2.NewFSLoader(templatesFS))
		summaryTpl, setErr = summarySet.FromFile(summaryTemplate)
		if setErr != nil {
			setErr = fmt.Errorf("answers: load template: %w", setErr)
		}
	})
	return summaryTpl, setErr
}

// filterHangIndent indents every line after the first by param spaces.
func filterHangIndent(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	text := in.String()
	n := 0
	if param != nil && param.IsInteger() {
		n = param.Integer()
	}
	if n <= 0 || !strings.Contains(text, "\n") {
		return pongo2.AsValue(text), nil
	}
	pad := strings.Repeat(" ", n)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = pad + lines[i]
	}
	return pongo2.AsValue(strings.Join(lines, "\n")), nil
}
