// Package render turns classified resume lines and cover-letter fields into
// styled documents that the docx and pdf writers serialize.
package render

import "careerkit/internal/classifier"

// Alignment is the horizontal alignment of a block.
type Alignment string

const (
	AlignLeft    Alignment = "left"
	AlignCenter  Alignment = "center"
	AlignRight   Alignment = "right"
	AlignJustify Alignment = "justify"
)

// Style describes the typography of one block. Sizes and spacing are in
// points; LineSpacing is a multiple of single spacing.
type Style struct {
	FontFamily   string
	FontSize     float64
	Bold         bool
	Align        Alignment
	SpaceBefore  float64
	SpaceAfter   float64
	LineSpacing  float64
	BorderBottom bool
}

// Margins are page margins in points.
type Margins struct {
	Top    float64
	Bottom float64
	Left   float64
	Right  float64
}

// PageLayout is the page size and margins in points.
type PageLayout struct {
	Width   float64
	Height  float64
	Margins Margins
}

const pointsPerInch = 72

// Inches converts inches to points.
func Inches(in float64) float64 {
	return in * pointsPerInch
}

// LetterPage returns a US Letter page with the given margins in inches.
func LetterPage(top, bottom, left, right float64) PageLayout {
	return PageLayout{
		Width:  Inches(8.5),
		Height: Inches(11),
		Margins: Margins{
			Top:    Inches(top),
			Bottom: Inches(bottom),
			Left:   Inches(left),
			Right:  Inches(right),
		},
	}
}

// StyleTable binds each resume role to a style.
type StyleTable struct {
	Page  PageLayout
	Roles map[classifier.Role]Style
	// SectionGap replaces a section header's SpaceBefore once any block
	// has been emitted above it.
	SectionGap float64
}

// Style returns the style for role, falling back to the PlainText style.
func (t StyleTable) Style(role classifier.Role) Style {
	if style, ok := t.Roles[role]; ok {
		return style
	}
	return t.Roles[classifier.RolePlainText]
}

const (
	defaultFont        = "Arial"
	resumeBodySize     = 10
	resumeBodyAfter    = 3
	resumeBodyLeading  = 1.05
	coverLetterSize    = 12
	coverLetterLeading = 1.15
)

// DefaultResumeStyles returns the one-page resume template.
func DefaultResumeStyles() StyleTable {
	body := Style{
		FontFamily:  defaultFont,
		FontSize:    resumeBodySize,
		Align:       AlignLeft,
		SpaceAfter:  resumeBodyAfter,
		LineSpacing: resumeBodyLeading,
	}

	return StyleTable{
		Page:       LetterPage(0.4, 0.4, 0.75, 0.75),
		SectionGap: 6,
		Roles: map[classifier.Role]Style{
			classifier.RoleName: {
				FontFamily:  defaultFont,
				FontSize:    14,
				Bold:        true,
				Align:       AlignCenter,
				SpaceAfter:  2,
				LineSpacing: 1,
			},
			classifier.RoleContactLine: {
				FontFamily:  defaultFont,
				FontSize:    10,
				Align:       AlignCenter,
				SpaceAfter:  6,
				LineSpacing: 1,
			},
			classifier.RoleSectionHeader: {
				FontFamily:   defaultFont,
				FontSize:     11,
				Bold:         true,
				Align:        AlignLeft,
				SpaceBefore:  4,
				SpaceAfter:   4,
				LineSpacing:  1,
				BorderBottom: true,
			},
			classifier.RoleInstitutionRow: body,
			classifier.RoleBulletEntry:    body,
			classifier.RoleLabelValue:     body,
			classifier.RolePlainText:      body,
		},
	}
}

// CoverLetterStyles holds the styles of the fixed cover-letter layout.
type CoverLetterStyles struct {
	Page      PageLayout
	Header    Style
	Date      Style
	Recipient Style
	Content   Style
}

// DefaultCoverLetterStyles returns the Arial 12 business-letter layout.
func DefaultCoverLetterStyles() CoverLetterStyles {
	base := Style{
		FontFamily:  defaultFont,
		FontSize:    coverLetterSize,
		Align:       AlignLeft,
		LineSpacing: 1,
	}

	date := base
	date.SpaceBefore = 24
	date.SpaceAfter = 12

	recipient := base
	recipient.SpaceAfter = 12

	content := base
	content.SpaceAfter = 12
	content.LineSpacing = coverLetterLeading

	return CoverLetterStyles{
		Page:      LetterPage(1, 1, 1, 1),
		Header:    base,
		Date:      date,
		Recipient: recipient,
		Content:   content,
	}
}

// PlainStyle is the style of every block produced by RenderPlain.
func PlainStyle() Style {
	return Style{
		FontFamily:  defaultFont,
		FontSize:    11,
		Align:       AlignLeft,
		SpaceAfter:  12,
		LineSpacing: 1,
	}
}
