// Package resume extracts the owner's resume text from the PDF bundled
// with the deployment image. The extraction runs once at startup and
// the result is handed to the chat service as static prompt context.
package resume

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Load reads the PDF at path and returns its plain text with collapsed
// whitespace.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("resume: read %s: %w", path, err)
	}
	text, err := ExtractText(data)
	if err != nil {
		return "", fmt.Errorf("resume: %s: %w", path, err)
	}
	return text, nil
}

// ExtractText pulls the plain text out of raw PDF bytes.
func ExtractText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	out := Normalize(b.String())
	if out == "" {
		return "", fmt.Errorf("pdf contains no extractable text")
	}
	return out, nil
}

// Normalize collapses all whitespace runs to single spaces so the text
// embeds cleanly into a prompt.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}
