// Package index derives the views the UI needs from a cached snapshot:
// documents per version, documents grouped by category within each
// version, and the sorted list of versions. Everything here is pure.
package index

import (
	"sort"

	"github.com/bassista/go_obpdocs/internal/repository"
)

// Document is anything that can be bucketed by a category key.
type Document interface {
	Category() string
}

// Versioned maps a version (or connector) to its documents, in snapshot order.
type Versioned[D Document] map[string][]D

// Grouped maps a category key to its documents, in snapshot order.
type Grouped[D Document] map[string][]D

// Index is the derived view of one snapshot.
type Index[D Document] struct {
	Versioned Versioned[D]
	// Grouped holds one category grouping per version.
	Grouped map[string]Grouped[D]
	// Versions are the keys of Versioned in lexicographic order, so "v10.0"
	// sorts before "v2.0".
	Versions []string
}

// Build indexes a decoded snapshot. Documents are copied into fresh slices,
// so the result shares no backing arrays with the input.
func Build[D Document](snapshot map[string][]D) Index[D] {
	idx := Index[D]{
		Versioned: make(Versioned[D], len(snapshot)),
		Grouped:   make(map[string]Grouped[D], len(snapshot)),
		Versions:  make([]string, 0, len(snapshot)),
	}
	for version, docs := range snapshot {
		copied := make([]D, len(docs))
		copy(copied, docs)
		idx.Versioned[version] = copied
		idx.Grouped[version] = GroupByCategory(copied)
		idx.Versions = append(idx.Versions, version)
	}
	sort.Strings(idx.Versions)
	return idx
}

// GroupByCategory buckets docs by category, keeping input order inside
// every bucket.
func GroupByCategory[D Document](docs []D) Grouped[D] {
	grouped := Grouped[D]{}
	for _, doc := range docs {
		key := doc.Category()
		grouped[key] = append(grouped[key], doc)
	}
	return grouped
}

// BuildResourceDocs decodes and indexes a resource docs payload.
func BuildResourceDocs(payload []byte) (Index[repository.ResourceDoc], error) {
	snapshot, err := repository.DecodeResourceDocs(payload)
	if err != nil {
		return Index[repository.ResourceDoc]{}, err
	}
	flat := make(map[string][]repository.ResourceDoc, len(snapshot))
	for version, p := range snapshot {
		flat[version] = p.ResourceDocs
	}
	return Build(flat), nil
}

// BuildMessageDocs decodes and indexes a message docs payload. Versions are
// connector names.
func BuildMessageDocs(payload []byte) (Index[repository.MessageDoc], error) {
	snapshot, err := repository.DecodeMessageDocs(payload)
	if err != nil {
		return Index[repository.MessageDoc]{}, err
	}
	flat := make(map[string][]repository.MessageDoc, len(snapshot))
	for connector, p := range snapshot {
		flat[connector] = p.MessageDocs
	}
	return Build(flat), nil
}
