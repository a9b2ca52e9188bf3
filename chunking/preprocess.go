package chunking

import (
	"regexp"
	"strings"

	"github.com/poiesic/corpora/core"
	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	emailPattern      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	spaceRunPattern   = regexp.MustCompile(`[ \t]+`)
	newlineRunPattern = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// Preprocess applies the configured text cleanup before splitting.
// Whitespace collapsing preserves at most two consecutive newlines so
// paragraph separators survive.
func Preprocess(text string, cfg core.PreprocessingConfig) string {
	if text == "" {
		return text
	}

	if cfg.NormalizeUnicode {
		text = norm.NFKC.String(text)
	}

	if cfg.RemoveURLs {
		text = urlPattern.ReplaceAllString(text, "")
	}

	if cfg.RemoveEmails {
		text = emailPattern.ReplaceAllString(text, "")
	}

	if cfg.RemoveExtraWhitespace {
		text = spaceRunPattern.ReplaceAllString(text, " ")
		text = newlineRunPattern.ReplaceAllString(text, "\n\n")
		text = strings.TrimSpace(text)
	}

	return text
}
