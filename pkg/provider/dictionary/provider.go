// Package dictionary defines the Provider interface for pronunciation
// dictionaries that map a single word to its phonetic transcriptions.
//
// Implementations must be safe for concurrent use.
package dictionary

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Lookup when the dictionary has no phonetic entry
// for the requested word. Callers use it to distinguish "unknown word" from a
// transport failure.
var ErrNotFound = errors.New("dictionary: word not found")

// Provider is the abstraction over a pronunciation dictionary backend.
type Provider interface {
	// Lookup returns the phonetic transcriptions known for word, most
	// authoritative first. Entries are returned as the backend formats them,
	// brackets and comma-separated alternatives included.
	//
	// Returns ErrNotFound (possibly wrapped) when the word has no entry.
	Lookup(ctx context.Context, word string) ([]string, error)
}
