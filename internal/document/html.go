package document

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"

	"careerkit/internal/render"
)

var pageTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
@page { {{.PageCSS}} }
html, body { margin: 0; padding: 0; }
.block { white-space: pre-wrap; tab-size: 4; margin: 0; }
</style>
</head>
<body>
{{- range .Blocks}}
<div class="block {{.Class}}" style="{{.CSS}}">{{range .Runs}}{{if .Bold}}<b>{{.Text}}</b>{{else}}{{.Text}}{{end}}{{end}}</div>
{{- end}}
</body>
</html>
`))

type htmlPage struct {
	PageCSS template.CSS
	Blocks  []htmlBlock
}

type htmlBlock struct {
	Class string
	CSS   template.CSS
	Runs  []htmlRun
}

type htmlRun struct {
	Text string
	Bold bool
}

// RenderHTML lays doc out as a print-ready HTML page. Each block becomes a
// div whose inline style carries the block's typography.
func RenderHTML(doc render.Document) ([]byte, error) {
	data := htmlPage{PageCSS: pageCSS(doc.Page)}

	for _, block := range doc.Blocks {
		hb := htmlBlock{
			Class: strings.ToLower(block.Tag),
			CSS:   blockCSS(block.Style),
		}
		for _, run := range block.Runs {
			hb.Runs = append(hb.Runs, htmlRun{Text: run.Text, Bold: block.IsBold(run)})
		}
		data.Blocks = append(data.Blocks, hb)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute page template: %w", err)
	}
	return buf.Bytes(), nil
}

func pageCSS(page render.PageLayout) template.CSS {
	m := page.Margins
	return template.CSS(fmt.Sprintf("size: %s %s; margin: %s %s %s %s;",
		pt(page.Width), pt(page.Height), pt(m.Top), pt(m.Right), pt(m.Bottom), pt(m.Left)))
}

// blockCSS maps paragraph spacing to padding so that the spacing of
// adjacent blocks adds up instead of collapsing.
func blockCSS(style render.Style) template.CSS {
	var rules []string

	if style.FontFamily != "" {
		rules = append(rules, fmt.Sprintf("font-family: '%s', sans-serif", cssString(style.FontFamily)))
	}
	if style.FontSize > 0 {
		rules = append(rules, "font-size: "+pt(style.FontSize))
	}
	if style.Bold {
		rules = append(rules, "font-weight: bold")
	}
	align := style.Align
	if align == "" {
		align = render.AlignLeft
	}
	rules = append(rules, "text-align: "+string(align))
	if style.LineSpacing > 0 {
		rules = append(rules, "line-height: "+strconv.FormatFloat(style.LineSpacing, 'f', -1, 64))
	}
	rules = append(rules,
		"padding-top: "+pt(style.SpaceBefore),
		"padding-bottom: "+pt(style.SpaceAfter),
	)
	if style.BorderBottom {
		rules = append(rules, "border-bottom: 1px solid #000")
	}

	return template.CSS(strings.Join(rules, "; ") + ";")
}

func pt(points float64) string {
	return strconv.FormatFloat(math.Round(points*100)/100, 'f', -1, 64) + "pt"
}

func cssString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`, "<", "", ">", "").Replace(s)
}
