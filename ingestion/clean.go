package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// HashContent returns the hex-encoded SHA-256 digest of raw file bytes.
// The digest is what the duplicate check keys on, so two files are "the
// same document" exactly when their bytes match.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CleanText strips control characters from extracted text, keeping
// newlines and tabs. Replacement characters left behind by lossy
// decoding are dropped too.
func CleanText(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || r == '\t':
			sb.WriteRune(r)
		case r == '�':
		case unicode.IsControl(r):
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
