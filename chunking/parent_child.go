package chunking

import (
	"strings"

	"github.com/poiesic/corpora/core"
)

// StrategyParentChild is the name of the hierarchical strategy.
const StrategyParentChild = "parent_child"

// ParentChildChunker is currently a degenerate hierarchical strategy: it
// chunks at the child level only, using the child separator and maximum
// length when configured (falling back to the top-level values). Parent
// grouping is a declared extension point; child chunks are emitted with
// Level 1 and no parent reference so a future parent pass can adopt them.
type ParentChildChunker struct{}

var _ Chunker = (*ParentChildChunker)(nil)

// Name returns the strategy name.
func (p *ParentChildChunker) Name() string { return StrategyParentChild }

// Chunk splits the text at the child level.
func (p *ParentChildChunker) Chunk(text string, cfg core.ChunkingConfig) ([]core.Chunk, error) {
	child := cfg
	if cfg.ChildSeparator != "" {
		child.Separator = cfg.ChildSeparator
	}
	if cfg.ChildMaxLength > 0 {
		child.MaxLength = cfg.ChildMaxLength
	}

	if err := core.ValidateChunkingConfig(&child); err != nil {
		return nil, err
	}

	content := Preprocess(text, child.Preprocessing)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	separator := child.Separator
	if separator == "" {
		separator = "\n\n"
	}

	chunks := splitBySeparator(content, separator, child.MaxLength, StrategyParentChild, 1)

	if child.OverlapLength > 0 && len(chunks) > 1 {
		applyOverlap(chunks, child.OverlapLength)
	}

	return chunks, nil
}
