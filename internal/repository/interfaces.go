package repository

import "context"

// Source provides the authoritative document snapshots.
// Each call returns the full payload of one document family.
type Source interface {
	ResourceDocs(ctx context.Context) ([]byte, error)
	MessageDocs(ctx context.Context) ([]byte, error)
}

// GlossarySource fetches the API glossary.
type GlossarySource interface {
	Glossary(ctx context.Context) (*Glossary, error)
}

// CollectionsSource looks up the current user's API collections.
type CollectionsSource interface {
	MyAPICollections(ctx context.Context) (*APICollections, error)
	MyAPICollectionEndpoints(ctx context.Context, name string) (*APICollectionEndpoints, error)
}
