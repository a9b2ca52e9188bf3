package parser

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser extracts readable text from markdown files. It parses
// the document into an AST and emits one paragraph of plain text per
// block node, so downstream paragraph-based chunking sees the same
// structure the author wrote.
type MarkdownParser struct{}

func (p *MarkdownParser) Extensions() []string {
	return []string{".md", ".markdown"}
}

func (p *MarkdownParser) Parse(_ context.Context, data []byte, _ string) (string, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(data))

	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		block := blockText(node, data)
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}

// blockText flattens a block node into plain text. List items become
// separate lines; inline markup is dropped, keeping only its text.
func blockText(n ast.Node, source []byte) string {
	switch n.Kind() {
	case ast.KindList:
		var lines []string
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			if line := inlineText(item, source); line != "" {
				lines = append(lines, line)
			}
		}
		return strings.Join(lines, "\n")
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		var sb strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(source))
		}
		return strings.TrimSpace(sb.String())
	case ast.KindThematicBreak:
		return ""
	default:
		return inlineText(n, source)
	}
}

func inlineText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(v.Value)
		case *ast.AutoLink:
			sb.Write(v.URL(source))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
