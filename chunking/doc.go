// Package chunking splits cleaned document text into ordered, offset-tracked
// chunks under a named strategy.
//
// Strategies are registered by name in a Registry; requesting an unknown
// strategy fails with an error listing the available ones. The general
// strategy accumulates separator-delimited sections greedily up to a maximum
// length, hard-slices oversized sections, and optionally decorates chunk
// contents with overlap from their neighbors. Offsets refer to the
// preprocessed text and are tracked by forward search, so they are
// best-effort when content repeats: order is guaranteed, byte-exact
// reconstruction is not.
package chunking
