package ai

import "errors"

var (
	// ErrUnknownProvider is returned when a backend is requested for a
	// provider name no factory is registered under.
	ErrUnknownProvider = errors.New("unknown embedding provider")

	// ErrMissingAPIKey is returned when a remote provider is configured
	// without a credential.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrMissingModelName is returned when no embedding model is named.
	ErrMissingModelName = errors.New("missing model name")

	// ErrNilFactory is returned when a nil factory is registered.
	ErrNilFactory = errors.New("nil backend factory")
)
