package render

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

// fontPreferences is the ranked on-disk font chain for PDF output. The first
// file present wins; when none exists a built-in core font is the baseline.
var fontPreferences = []string{
	"NotoSans-Regular.ttf",
	"arial.ttf",
	"DejaVuSans-ExtraLight.ttf",
}

// resolveFont picks the preferred font present on disk right now. The chain
// is re-evaluated on every render call; nothing persists between calls.
func (f *Formatter) resolveFont() (family, path string, ok bool) {
	for _, name := range fontPreferences {
		candidate := filepath.Join(f.fontsDir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return strings.TrimSuffix(name, ".ttf"), candidate, true
		}
	}
	return "", "", false
}

// writePDF paginates the text into an A4 document. A Unicode-capable TTF is
// used when available; otherwise the built-in Helvetica baseline with its
// codepage translator.
func (f *Formatter) writePDF(text, outPath string) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(50, 50, 50)
	pdf.SetAutoPageBreak(true, 50)

	family := "Helvetica"
	translate := func(s string) string { return s }
	if name, path, ok := f.resolveFont(); ok {
		pdf.AddUTF8Font(name, "", path)
		family = name
	} else {
		translate = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.SetFont(family, "", 12)
	pdf.AddPage()

	for _, block := range paragraphs(text) {
		pdf.MultiCell(0, 15, translate(block), "", "L", false)
		pdf.Ln(12)
	}

	return pdf.OutputFileAndClose(outPath)
}
