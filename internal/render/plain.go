package render

import "strings"

// RenderPlain puts every non-empty line of text into its own block on a
// Letter page with one-inch margins.
func RenderPlain(text string) Document {
	doc := Document{Page: LetterPage(1, 1, 1, 1)}
	style := PlainStyle()

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			doc.add(TagPlain, style, Run{Text: line})
		}
	}
	return doc
}
