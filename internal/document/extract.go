// Package document reads paragraphs out of uploaded files and writes
// rendered documents as docx or pdf.
package document

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	apperrors "careerkit/internal/errors"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// ExtractParagraphs returns the text of every paragraph of a .docx package
// in document order. Tabs and line breaks inside a paragraph are kept as
// "\t" and "\n".
func ExtractParagraphs(r io.ReaderAt, size int64) ([]string, error) {
	doc, err := docx.ReadDocxFromMemory(r, size)
	if err != nil {
		return nil, apperrors.NewExtractionError("failed to open docx document", err)
	}
	defer doc.Close()

	paragraphs, err := parseParagraphs(doc.Editable().GetContent())
	if err != nil {
		return nil, apperrors.NewExtractionError("failed to parse docx body", err)
	}
	return paragraphs, nil
}

// ExtractBytes is ExtractParagraphs over an in-memory upload.
func ExtractBytes(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, apperrors.NewExtractionError("document is empty", nil)
	}
	return ExtractParagraphs(bytes.NewReader(data), int64(len(data)))
}

// ExtractText joins the paragraphs of a .docx upload with newlines.
func ExtractText(data []byte) (string, error) {
	paragraphs, err := ExtractBytes(data)
	if err != nil {
		return "", err
	}
	return strings.Join(paragraphs, "\n"), nil
}

// ExtractPDFText returns the plain text of every page of a PDF.
func ExtractPDFText(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", apperrors.NewExtractionError("failed to open pdf document", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", apperrors.NewExtractionError("failed to read pdf page", err).WithContext("page", i)
		}
		sb.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

func parseParagraphs(content string) ([]string, error) {
	decoder := xml.NewDecoder(strings.NewReader(content))

	var (
		paragraphs []string
		current    strings.Builder
		depth      int
		inText     bool
		inProps    int
	)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "p":
				if depth == 0 {
					current.Reset()
				}
				depth++
			case "pPr", "rPr":
				inProps++
			case "t":
				inText = true
			case "tab":
				// w:tab inside w:pPr/w:tabs is a tab stop, not content
				if depth > 0 && inProps == 0 {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if depth > 0 && inProps == 0 {
					current.WriteByte('\n')
				}
			}

		case xml.EndElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "p":
				depth--
				if depth == 0 {
					paragraphs = append(paragraphs, current.String())
				}
			case "pPr", "rPr":
				inProps--
			case "t":
				inText = false
			}

		case xml.CharData:
			if inText && depth > 0 {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}
