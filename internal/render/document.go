package render

import "strings"

// Block tags for cover-letter and plain documents. Resume blocks are tagged
// with the name of their classifier role.
const (
	TagHeader     = "header"
	TagContact    = "contact"
	TagDate       = "date"
	TagRecipient  = "recipient"
	TagSalutation = "salutation"
	TagBody       = "body"
	TagClosing    = "closing"
	TagPlain      = "plain"
)

// Run is a span of text with a single weight. A "\n" inside Text is a line
// break and a "\t" is a tab stop.
type Run struct {
	Text string
	Bold bool
}

// Block is one paragraph of output.
type Block struct {
	Tag   string
	Style Style
	Runs  []Run
}

// Text returns the concatenated text of the block's runs.
func (b Block) Text() string {
	var sb strings.Builder
	for _, run := range b.Runs {
		sb.WriteString(run.Text)
	}
	return sb.String()
}

// IsBold reports whether run is rendered bold inside the block.
func (b Block) IsBold(run Run) bool {
	return b.Style.Bold || run.Bold
}

// Document is an ordered list of blocks on a page layout.
type Document struct {
	Page   PageLayout
	Blocks []Block
}

// Paragraphs returns the text of every block in order.
func (d Document) Paragraphs() []string {
	out := make([]string, len(d.Blocks))
	for i, block := range d.Blocks {
		out[i] = block.Text()
	}
	return out
}

// Count returns the number of blocks carrying tag.
func (d Document) Count(tag string) int {
	n := 0
	for _, block := range d.Blocks {
		if block.Tag == tag {
			n++
		}
	}
	return n
}

func (d *Document) add(tag string, style Style, runs ...Run) {
	d.Blocks = append(d.Blocks, Block{Tag: tag, Style: style, Runs: runs})
}
