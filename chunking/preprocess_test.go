package chunking

import (
	"testing"

	"github.com/poiesic/corpora/core"
	"github.com/stretchr/testify/assert"
)

func TestPreprocess_NormalizeUnicode(t *testing.T) {
	cfg := core.PreprocessingConfig{NormalizeUnicode: true}

	// NFKC folds fullwidth forms and ligatures into their plain
	// equivalents.
	assert.Equal(t, "ABC", Preprocess("ＡＢＣ", cfg))
	assert.Equal(t, "fi", Preprocess("ﬁ", cfg))
}

func TestPreprocess_RemoveURLs(t *testing.T) {
	cfg := core.PreprocessingConfig{RemoveURLs: true}

	got := Preprocess("see https://example.com/docs for details", cfg)
	assert.Equal(t, "see  for details", got)

	got = Preprocess("plain http://a.example text", cfg)
	assert.Equal(t, "plain  text", got)
}

func TestPreprocess_RemoveEmails(t *testing.T) {
	cfg := core.PreprocessingConfig{RemoveEmails: true}

	got := Preprocess("contact alice@example.com today", cfg)
	assert.Equal(t, "contact  today", got)
}

func TestPreprocess_RemoveExtraWhitespace(t *testing.T) {
	cfg := core.PreprocessingConfig{RemoveExtraWhitespace: true}

	// Runs of spaces and tabs collapse to one space; three or more
	// newlines collapse to exactly two so paragraph breaks survive.
	got := Preprocess("a  \t b\n\n\n\nc", cfg)
	assert.Equal(t, "a b\n\nc", got)

	got = Preprocess("  padded  ", cfg)
	assert.Equal(t, "padded", got)
}

func TestPreprocess_NoOpWithoutFlags(t *testing.T) {
	text := "  raw   text\n\n\nwith   https://example.com  "
	assert.Equal(t, text, Preprocess(text, core.PreprocessingConfig{}))
}
