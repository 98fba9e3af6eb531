// Package history persists each user's chat transcript.
package history

import "context"

type Entry struct {
	User  string `json:"user"`
	Bot   string `json:"bot"`
	Image string `json:"image,omitempty"`
}

type Store interface {
	// Load returns the user's transcript, or an empty slice if none exists.
	Load(ctx context.Context, username string) ([]Entry, error)

	// Save replaces the user's transcript with entries.
	Save(ctx context.Context, username string, entries []Entry) error
}
