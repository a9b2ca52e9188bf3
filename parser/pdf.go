package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/dslipak/pdf"
)

// PDFParser extracts plain text from PDF files.
type PDFParser struct{}

func (p *PDFParser) Extensions() []string {
	return []string{".pdf"}
}

func (p *PDFParser) Parse(_ context.Context, data []byte, filename string) (text string, err error) {
	// The pdf library panics on some malformed inputs instead of
	// returning an error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrParseFailed, filename, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrParseFailed, filename, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrParseFailed, filename, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrParseFailed, filename, err)
	}
	return buf.String(), nil
}
