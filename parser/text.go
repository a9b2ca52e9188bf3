package parser

import (
	"context"
	"strings"
)

// TextParser handles plain-text files. Invalid UTF-8 sequences are
// replaced rather than rejected, since text files in the wild carry all
// kinds of encodings.
type TextParser struct{}

func (p *TextParser) Extensions() []string {
	return []string{".txt", ".text", ".log"}
}

func (p *TextParser) Parse(_ context.Context, data []byte, _ string) (string, error) {
	return strings.ToValidUTF8(string(data), "�"), nil
}
