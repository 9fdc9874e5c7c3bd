// Package search provides fuzzy lookup over the documents of a published
// application context.
package search

import (
	"sort"
	"strings"

	fuzzysearch "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"

	"github.com/bassista/go_obpdocs/internal/index"
	"github.com/bassista/go_obpdocs/internal/repository"
)

// DefaultLimit caps the number of results when the caller asks for none.
const DefaultLimit = 50

// Operation is one resource doc matching a query.
type Operation struct {
	Version     string `json:"version"`
	OperationID string `json:"operation_id"`
	Summary     string `json:"summary"`
	Category    string `json:"category"`
	Verb        string `json:"request_verb"`
	URL         string `json:"request_url"`
	Score       int    `json:"score"`
}

type operationEntry struct {
	version string
	doc     repository.ResourceDoc
}

// operationIndex implements fuzzy.Source over "operation_id summary" keys.
type operationIndex struct {
	entries []operationEntry
	keys    []string
}

func (o *operationIndex) String(i int) string { return o.keys[i] }

func (o *operationIndex) Len() int { return len(o.entries) }

func newOperationIndex(docs index.Versioned[repository.ResourceDoc], version string) *operationIndex {
	versions := make([]string, 0, len(docs))
	for v := range docs {
		if version == "" || v == version {
			versions = append(versions, v)
		}
	}
	sort.Strings(versions)

	idx := &operationIndex{}
	for _, v := range versions {
		for _, doc := range docs[v] {
			idx.entries = append(idx.entries, operationEntry{version: v, doc: doc})
			idx.keys = append(idx.keys, strings.ToLower(doc.OperationID+" "+doc.Summary))
		}
	}
	return idx
}

// Operations ranks the resource docs of version (all versions when empty)
// against query, best match first. An empty query matches nothing.
func Operations(docs index.Versioned[repository.ResourceDoc], version, query string, limit int) []Operation {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Operation{}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	idx := newOperationIndex(docs, version)
	matches := fuzzy.FindFrom(strings.ToLower(query), idx)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]Operation, 0, len(matches))
	for _, m := range matches {
		e := idx.entries[m.Index]
		out = append(out, Operation{
			Version:     e.version,
			OperationID: e.doc.OperationID,
			Summary:     e.doc.Summary,
			Category:    e.doc.Category(),
			Verb:        e.doc.RequestVerb,
			URL:         e.doc.RequestURL,
			Score:       m.Score,
		})
	}
	return out
}

// GlossaryTitles returns the glossary items whose title fuzzily contains
// query, closest first.
func GlossaryTitles(glossary *repository.Glossary, query string) []repository.GlossaryItem {
	query = strings.TrimSpace(query)
	if glossary == nil || query == "" {
		return []repository.GlossaryItem{}
	}

	titles := make([]string, len(glossary.Items))
	for i, item := range glossary.Items {
		titles[i] = item.Title
	}

	ranks := fuzzysearch.RankFindFold(query, titles)
	sort.Stable(ranks)

	out := make([]repository.GlossaryItem, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, glossary.Items[r.OriginalIndex])
	}
	return out
}
