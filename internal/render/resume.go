package render

import (
	"careerkit/internal/classifier"
)

// RenderResume lays out classified resume lines with the given style table.
func RenderResume(lines []classifier.Line, table StyleTable) Document {
	doc := Document{Page: table.Page}

	for _, line := range lines {
		style := table.Style(line.Role)
		if line.Role == classifier.RoleSectionHeader && len(doc.Blocks) > 0 && table.SectionGap > 0 {
			style.SpaceBefore = table.SectionGap
		}
		doc.add(line.Role.String(), style, resumeRuns(line)...)
	}

	return doc
}

func resumeRuns(line classifier.Line) []Run {
	switch line.Role {
	case classifier.RoleInstitutionRow:
		if len(line.Parts) == 0 {
			return []Run{{Text: line.Text, Bold: true}}
		}
		runs := []Run{{Text: line.Parts[0], Bold: true}}
		for _, part := range line.Parts[1:] {
			runs = append(runs, Run{Text: "\t" + part})
		}
		return runs

	case classifier.RoleBulletEntry:
		glyph := Run{Text: classifier.BulletMarker + " ", Bold: true}
		if line.Title == "" {
			return []Run{glyph, {Text: line.Description}}
		}
		return []Run{
			glyph,
			{Text: line.Title, Bold: true},
			{Text: " - " + line.Description},
		}

	case classifier.RoleLabelValue:
		label := line.Label
		if line.HasColon {
			label += ":"
		}
		runs := []Run{{Text: label, Bold: true}}
		if line.Value != "" {
			runs = append(runs, Run{Text: line.Value})
		}
		return runs

	default:
		return []Run{{Text: line.Text}}
	}
}
