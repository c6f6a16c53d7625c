package domain

import (
	"context"
	"errors"
)

// ErrEmptyQuery is returned when a search query is empty or whitespace.
var ErrEmptyQuery = errors.New("empty query")

// ErrEmptyID is returned when a lookup id is empty.
var ErrEmptyID = errors.New("empty id")

// Source is the adapter contract implemented once per upstream database.
// Implementations are stateless beyond their configuration and HTTP client.
//
// Search pages through upstream results until maxResults records are
// collected, a short batch signals the end, or a batch fails. A batch failure
// after at least one successful page returns the records accumulated so far;
// a failure on the first page propagates the error.
//
// GetByID accepts ids with or without the adapter's prefix and returns
// (nil, nil) when the record does not exist upstream.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]*Paper, error)
	GetByID(ctx context.Context, id string) (*Paper, error)
}

// CitationSource is implemented by adapters that can walk citation edges.
type CitationSource interface {
	Source
	Citations(ctx context.Context, p *Paper) ([]*Paper, error)
	References(ctx context.Context, p *Paper) ([]*Paper, error)
}
