package classifier

import (
	"strings"
	"unicode"
)

const (
	// BulletMarker starts bullet entries and separates contact tokens.
	BulletMarker = "•"

	contactSeparator = " " + BulletMarker + " "
	titleDelimiter   = " - "

	maxInstitutionParts = 3
)

// Line is one classified, non-empty line of input.
type Line struct {
	Role   Role   `json:"role"`
	Source string `json:"source"`
	// Text is the canonical display value: upper-cased for names,
	// re-joined for contact lines, marker-normalized for bullets.
	Text string `json:"text"`

	// Parts holds the tab-separated institution, degree and date of an
	// InstitutionRow, or the contact tokens of a ContactLine.
	Parts []string `json:"parts,omitempty"`

	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Label    string `json:"label,omitempty"`
	Value    string `json:"value,omitempty"`
	HasColon bool   `json:"hasColon,omitempty"`
}

// State is the history carried from one line to the next.
type State struct {
	Emitted  int
	Previous Role
}

// Classify assigns a role to every non-empty line of a document.
func Classify(lines []string) []Line {
	var (
		state State
		out   = make([]Line, 0, len(lines))
	)
	for _, raw := range lines {
		line, next, ok := ClassifyLine(state, raw)
		if !ok {
			continue
		}
		out = append(out, line)
		state = next
	}
	return out
}

// ClassifyText splits text on line breaks and classifies the result.
func ClassifyText(text string) []Line {
	return Classify(SplitLines(text))
}

// SplitLines breaks generated or extracted text into candidate lines.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// ClassifyLine classifies a single line given the state left by the lines
// before it. Blank lines report ok=false and leave the state untouched.
func ClassifyLine(state State, raw string) (line Line, next State, ok bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Line{}, state, false
	}

	line = classify(state, text)
	next = State{Emitted: state.Emitted + 1, Previous: line.Role}
	return line, next, true
}

func classify(state State, text string) Line {
	hasBullet := strings.Contains(text, BulletMarker)
	hasAt := strings.Contains(text, "@")

	switch {
	case isUpper(text) && !hasBullet && !hasAt:
		return Line{Role: RoleSectionHeader, Source: text, Text: text}

	case hasAt && hasBullet:
		return contactLine(text)

	case state.Emitted == 0:
		return Line{Role: RoleName, Source: text, Text: strings.ToUpper(text)}

	case state.Previous == RoleSectionHeader && strings.Contains(text, "University"):
		return Line{
			Role:   RoleInstitutionRow,
			Source: text,
			Text:   text,
			Parts:  institutionParts(text),
		}

	case strings.HasPrefix(text, BulletMarker):
		return bulletEntry(text)

	case state.Previous == RoleSectionHeader &&
		(strings.Contains(text, "Courses") || strings.Contains(text, "Skills")):
		label, value, found := strings.Cut(text, ":")
		return Line{
			Role:     RoleLabelValue,
			Source:   text,
			Text:     text,
			Label:    label,
			Value:    value,
			HasColon: found,
		}

	default:
		return Line{Role: RolePlainText, Source: text, Text: text}
	}
}

func contactLine(text string) Line {
	tokens := strings.Split(text, BulletMarker)
	for i, token := range tokens {
		tokens[i] = strings.TrimSpace(token)
	}
	return Line{
		Role:   RoleContactLine,
		Source: text,
		Text:   strings.Join(tokens, contactSeparator),
		Parts:  tokens,
	}
}

// institutionParts keeps institution, degree and date. Later tab fields
// are dropped.
func institutionParts(text string) []string {
	parts := strings.Split(text, "\t")
	if len(parts) > maxInstitutionParts {
		parts = parts[:maxInstitutionParts]
	}
	return parts
}

func bulletEntry(text string) Line {
	rest := strings.TrimSpace(strings.TrimPrefix(text, BulletMarker))
	line := Line{Role: RoleBulletEntry, Source: text}

	if title, description, found := strings.Cut(rest, titleDelimiter); found {
		line.Title = strings.TrimSpace(title)
		line.Description = strings.TrimSpace(description)
		line.Text = BulletMarker + " " + line.Title + titleDelimiter + line.Description
		return line
	}

	line.Description = rest
	line.Text = BulletMarker + " " + rest
	return line
}

// isUpper reports whether s has at least one cased letter and no
// lower-case or title-case letters.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}
