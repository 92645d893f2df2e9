package render

import (
	"strings"
	"time"
)

// DateLayout is the date format printed above the recipient block.
const DateLayout = "January 02, 2006"

// CoverLetter holds the fields of the fixed letter template. Body is the
// generated letter text; paragraphs are separated by blank lines.
type CoverLetter struct {
	Name    string
	Email   string
	Phone   string
	GitHub  string
	Address string
	Company string
	Body    string
	Date    time.Time
}

// RenderCoverLetter fills the letter template. A zero Date prints today.
func RenderCoverLetter(letter CoverLetter, styles CoverLetterStyles) Document {
	doc := Document{Page: styles.Page}

	header := styles.Header
	header.Bold = true
	doc.add(TagHeader, header, Run{Text: strings.ToUpper(letter.Name)})

	if contact := contactLine(letter); contact != "" {
		doc.add(TagContact, styles.Header, Run{Text: contact})
	}

	date := letter.Date
	if date.IsZero() {
		date = time.Now()
	}
	doc.add(TagDate, styles.Date, Run{Text: date.Format(DateLayout)})
	doc.add(TagRecipient, styles.Recipient, Run{Text: letter.Company + "\nHiring Manager"})
	doc.add(TagSalutation, styles.Content, Run{Text: "Dear Hiring Manager,"})

	for _, paragraph := range BodyParagraphs(letter.Body) {
		doc.add(TagBody, styles.Content, Run{Text: paragraph})
	}

	doc.add(TagClosing, styles.Content, Run{Text: "Sincerely,\n" + letter.Name})
	return doc
}

// BodyParagraphs splits letter text on blank-line boundaries and drops
// empty paragraphs.
func BodyParagraphs(body string) []string {
	body = strings.ReplaceAll(body, "\r\n", "\n")

	var out []string
	for _, paragraph := range strings.Split(body, "\n\n") {
		if p := strings.TrimSpace(paragraph); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contactLine(letter CoverLetter) string {
	var parts []string
	for _, part := range []string{letter.Email, letter.Phone, letter.GitHub, letter.Address} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " • ")
}
