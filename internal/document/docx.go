package document

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strings"

	apperrors "careerkit/internal/errors"
	"careerkit/internal/render"

	"github.com/nguyenthenguyen/docx"
)

// DOCXContentType is the media type of a WordprocessingML package.
const DOCXContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

//go:embed template.docx
var templateDocx []byte

// DOCXWriter writes documents as .docx packages built on an embedded
// empty template.
type DOCXWriter struct{}

// NewDOCXWriter creates a docx writer.
func NewDOCXWriter() *DOCXWriter {
	return &DOCXWriter{}
}

func (w *DOCXWriter) Extension() string   { return ".docx" }
func (w *DOCXWriter) ContentType() string { return DOCXContentType }

// Write serializes doc as a .docx package to out.
func (w *DOCXWriter) Write(ctx context.Context, out io.Writer, doc render.Document) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewRenderError("docx rendering cancelled", err)
	}

	tmpl, err := docx.ReadDocxFromMemory(bytes.NewReader(templateDocx), int64(len(templateDocx)))
	if err != nil {
		return apperrors.NewRenderError("failed to open docx template", err)
	}
	defer tmpl.Close()

	editable := tmpl.Editable()
	editable.SetContent(DocumentXML(doc))

	if err := editable.Write(out); err != nil {
		return apperrors.NewRenderError("failed to write docx package", err)
	}
	return nil
}

// DocumentXML returns the word/document.xml part for doc.
func DocumentXML(doc render.Document) string {
	var sb strings.Builder

	sb.WriteString(xml.Header)
	sb.WriteString(`<w:document xmlns:w="` + wordNamespace + `" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body>`)

	for _, block := range doc.Blocks {
		writeParagraph(&sb, block)
	}

	page := doc.Page
	fmt.Fprintf(&sb,
		`<w:sectPr><w:pgSz w:w="%d" w:h="%d"/><w:pgMar w:top="%d" w:right="%d" w:bottom="%d" w:left="%d" w:header="720" w:footer="720" w:gutter="0"/></w:sectPr>`,
		twips(page.Width), twips(page.Height),
		twips(page.Margins.Top), twips(page.Margins.Right), twips(page.Margins.Bottom), twips(page.Margins.Left),
	)
	sb.WriteString(`</w:body></w:document>`)

	return sb.String()
}

func writeParagraph(sb *strings.Builder, block render.Block) {
	style := block.Style

	sb.WriteString("<w:p><w:pPr>")
	if style.BorderBottom {
		sb.WriteString(`<w:pBdr><w:bottom w:val="single" w:sz="4" w:space="1" w:color="000000"/></w:pBdr>`)
	}
	line := style.LineSpacing
	if line <= 0 {
		line = 1
	}
	fmt.Fprintf(sb, `<w:spacing w:before="%d" w:after="%d" w:line="%d" w:lineRule="auto"/>`,
		twips(style.SpaceBefore), twips(style.SpaceAfter), int(math.Round(line*240)))
	fmt.Fprintf(sb, `<w:jc w:val="%s"/>`, justification(style.Align))
	sb.WriteString("</w:pPr>")

	for _, run := range block.Runs {
		writeRun(sb, style, run.Text, block.IsBold(run))
	}

	sb.WriteString("</w:p>")
}

func writeRun(sb *strings.Builder, style render.Style, text string, bold bool) {
	sb.WriteString("<w:r><w:rPr>")
	if style.FontFamily != "" {
		font := escape(style.FontFamily)
		fmt.Fprintf(sb, `<w:rFonts w:ascii="%s" w:hAnsi="%s" w:cs="%s"/>`, font, font, font)
	}
	if bold {
		sb.WriteString("<w:b/><w:bCs/>")
	}
	if style.FontSize > 0 {
		halfPoints := int(math.Round(style.FontSize * 2))
		fmt.Fprintf(sb, `<w:sz w:val="%d"/><w:szCs w:val="%d"/>`, halfPoints, halfPoints)
	}
	sb.WriteString("</w:rPr>")

	start := 0
	for i, r := range text {
		if r != '\t' && r != '\n' {
			continue
		}
		writeText(sb, text[start:i])
		if r == '\t' {
			sb.WriteString("<w:tab/>")
		} else {
			sb.WriteString("<w:br/>")
		}
		start = i + 1
	}
	writeText(sb, text[start:])

	sb.WriteString("</w:r>")
}

func writeText(sb *strings.Builder, text string) {
	if text == "" {
		return
	}
	sb.WriteString(`<w:t xml:space="preserve">`)
	sb.WriteString(escape(text))
	sb.WriteString("</w:t>")
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func justification(align render.Alignment) string {
	switch align {
	case render.AlignCenter:
		return "center"
	case render.AlignRight:
		return "right"
	case render.AlignJustify:
		return "both"
	default:
		return "left"
	}
}

// twips converts points to twentieths of a point.
func twips(points float64) int {
	return int(math.Round(points * 20))
}
