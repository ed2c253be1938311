// Package document defines the page document built by the feature pipeline
// and the publish units handed to the sender.
package document

// Block is one heading-scoped section of a page. The heading fields carry the
// running h1..h6 chain in effect when the block was opened; Text accumulates
// the deduplicated paragraph-like content beneath it.
type Block struct {
	H1   string   `json:"h1,omitempty"`
	H2   string   `json:"h2,omitempty"`
	H3   string   `json:"h3,omitempty"`
	H4   string   `json:"h4,omitempty"`
	H5   string   `json:"h5,omitempty"`
	H6   string   `json:"h6,omitempty"`
	Text []string `json:"text,omitempty"`
}

// Heading returns the heading at the given level (1..6).
func (b *Block) Heading(level int) string {
	switch level {
	case 1:
		return b.H1
	case 2:
		return b.H2
	case 3:
		return b.H3
	case 4:
		return b.H4
	case 5:
		return b.H5
	case 6:
		return b.H6
	}
	return ""
}

// SetHeading assigns the heading at the given level (1..6).
func (b *Block) SetHeading(level int, text string) {
	switch level {
	case 1:
		b.H1 = text
	case 2:
		b.H2 = text
	case 3:
		b.H3 = text
	case 4:
		b.H4 = text
	case 5:
		b.H5 = text
	case 6:
		b.H6 = text
	}
}

// ClearBelow resets every heading level deeper than the given one.
func (b *Block) ClearBelow(level int) {
	for l := level + 1; l <= 6; l++ {
		b.SetHeading(l, "")
	}
}

// Page is the document produced for one extracted page. It is owned by the
// feature pipeline during construction; each step returns a new value and may
// only add to fields it owns, never remove what an earlier step wrote.
type Page struct {
	ID     string
	URL    string
	Domain string
	Title  string
	Blocks []Block

	Meta      map[string]string
	Custom    map[string]string
	Markdown  string
	Schemas   []map[string]any
	Extracted map[string]string
	Summary   string
}

// Unit is a single document ready to be sent to the index: either the whole
// page, or one child of a split page. The sender never mutates page-authored
// fields; ParentID and Position are the only bookkeeping it relies on.
type Unit struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId,omitempty"`
	Position int    `json:"position"`

	URL    string `json:"url"`
	Domain string `json:"domain,omitempty"`
	Title  string `json:"title,omitempty"`

	// Whole-page form: the full block list.
	Blocks []Block `json:"blocks,omitempty"`

	// Split-child form: one block flattened onto the unit.
	H1   string   `json:"h1,omitempty"`
	H2   string   `json:"h2,omitempty"`
	H3   string   `json:"h3,omitempty"`
	H4   string   `json:"h4,omitempty"`
	H5   string   `json:"h5,omitempty"`
	H6   string   `json:"h6,omitempty"`
	Text []string `json:"text,omitempty"`

	Meta      map[string]string `json:"meta,omitempty"`
	Custom    map[string]string `json:"custom,omitempty"`
	Markdown  string            `json:"markdown,omitempty"`
	Schemas   []map[string]any  `json:"schemas,omitempty"`
	Extracted map[string]string `json:"extracted,omitempty"`
	Summary   string            `json:"summary,omitempty"`
}

// WholeUnit converts a page into its single unsplit publish unit.
func WholeUnit(p Page) Unit {
	return Unit{
		ID:        p.ID,
		URL:       p.URL,
		Domain:    p.Domain,
		Title:     p.Title,
		Blocks:    p.Blocks,
		Meta:      p.Meta,
		Custom:    p.Custom,
		Markdown:  p.Markdown,
		Schemas:   p.Schemas,
		Extracted: p.Extracted,
		Summary:   p.Summary,
	}
}
