package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// writeDocx serializes the text as a .docx document: one paragraph per line,
// with an empty paragraph between double-newline blocks.
func (f *Formatter) writeDocx(text, outPath string) error {
	doc := docx.New().WithDefaultTheme()
	for _, block := range strings.Split(text, "\n\n") {
		for _, line := range strings.Split(block, "\n") {
			doc.AddParagraph().AddText(line)
		}
		doc.AddParagraph()
	}

	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	defer file.Close()

	if _, err := doc.WriteTo(file); err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}
	return nil
}
