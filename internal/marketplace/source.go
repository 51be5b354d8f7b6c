package marketplace

import "context"

// Source abstracts how listing records are obtained: a paged REST client, an
// intercepted browser session, or a scripted DOM scrape all satisfy it. The
// filter, dispatcher, and supervisor never know which one is behind it.
//
// Fetch returns up to limit records starting at offset, in the source's
// configured deterministic sort order. An empty slice means end of data.
type Source interface {
	Fetch(ctx context.Context, offset, limit int, token string) ([]RawListing, error)
}
