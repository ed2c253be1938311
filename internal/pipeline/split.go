package pipeline

import (
	"fmt"

	"github.com/crawldex/crawldex/internal/document"
)

// splitUnits converts the page document into one child unit per block. Every
// child shares the page's id as its parent id and carries the page-level
// fields, so a block hit in search still resolves to its page. Pages without
// blocks publish as a single whole unit.
func splitUnits(doc document.Page, ids IDGenerator) ([]document.Unit, error) {
	if len(doc.Blocks) == 0 {
		return []document.Unit{document.WholeUnit(doc)}, nil
	}
	units := make([]document.Unit, 0, len(doc.Blocks))
	for i, block := range doc.Blocks {
		childID, err := ids.NewID()
		if err != nil {
			return nil, fmt.Errorf("generate child id: %w", err)
		}
		units = append(units, document.Unit{
			ID:       childID,
			ParentID: doc.ID,
			Position: i,

			URL:    doc.URL,
			Domain: doc.Domain,
			Title:  doc.Title,

			H1:   block.H1,
			H2:   block.H2,
			H3:   block.H3,
			H4:   block.H4,
			H5:   block.H5,
			H6:   block.H6,
			Text: block.Text,

			Meta:      doc.Meta,
			Custom:    doc.Custom,
			Markdown:  doc.Markdown,
			Schemas:   doc.Schemas,
			Extracted: doc.Extracted,
			Summary:   doc.Summary,
		})
	}
	return units, nil
}
