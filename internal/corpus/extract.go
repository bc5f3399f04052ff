package corpus

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

var (
	reDocxParagraph = regexp.MustCompile(`</w:p>|<w:br/>|<w:tab/>`)
	reXMLTag        = regexp.MustCompile(`<[^>]+>`)
	reMultiNewlines = regexp.MustCompile(`\n{3,}`)
	xmlUnescaper    = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")
)

// pdfText extracts plain text page by page; unreadable pages are skipped.
func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			sb.WriteString(text)
			sb.WriteString("\n\n")
		}
	}
	return cleanExtraNewlines(sb.String()), nil
}

// docxText extracts paragraph text from the document XML.
func docxText(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	content = reDocxParagraph.ReplaceAllString(content, "\n")
	content = reXMLTag.ReplaceAllString(content, "")
	content = xmlUnescaper.Replace(content)

	var sb strings.Builder
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return cleanExtraNewlines(sb.String()), nil
}

func cleanExtraNewlines(text string) string {
	return strings.TrimSpace(reMultiNewlines.ReplaceAllString(text, "\n\n"))
}
