package chunking

import "errors"

var (
	// ErrUnknownStrategy is returned when no chunker is registered under
	// the requested strategy name.
	ErrUnknownStrategy = errors.New("unknown chunking strategy")

	// ErrNilChunker is returned when registering a nil chunker.
	ErrNilChunker = errors.New("chunker cannot be nil")
)
