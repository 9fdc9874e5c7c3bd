package app

import (
	"maps"
	"slices"

	"github.com/bassista/go_obpdocs/internal/index"
	"github.com/bassista/go_obpdocs/internal/repository"
)

// Status tells the UI which view to show.
type Status string

const (
	StatusReady Status = "ready"
	// StatusAPIServerError: documents could not be set up; the UI shows the
	// "API server error" view.
	StatusAPIServerError Status = "api-server-error"
	// StatusError: anything else failed during startup; the UI shows the
	// generic error view.
	StatusError Status = "error"
)

type (
	ResourceDocs        = index.Versioned[repository.ResourceDoc]
	GroupedResourceDocs = map[string]index.Grouped[repository.ResourceDoc]
	GroupedMessageDocs  = map[string]index.Grouped[repository.MessageDoc]
)

// ContextData carries the values an AppContext is built from.
type ContextData struct {
	ResourceDocs        ResourceDocs
	GroupedResourceDocs GroupedResourceDocs
	ActiveVersions      []string
	GroupedMessageDocs  GroupedMessageDocs
	MessageConnectors   []string
	Glossary            *repository.Glossary
	// FavouriteEndpoints is nil when the user has no collections.
	FavouriteEndpoints []string
	APIHost            string
	Status             Status
}

// AppContext is the data shared with the UI for the whole session. It is
// built once before serving and never changes afterwards; getters return
// copies of top-level collections, and the documents themselves must be
// treated as read-only.
type AppContext struct {
	data ContextData
}

// NewContext freezes data into an AppContext.
func NewContext(data ContextData) *AppContext {
	frozen := data
	frozen.ResourceDocs = maps.Clone(data.ResourceDocs)
	frozen.GroupedResourceDocs = maps.Clone(data.GroupedResourceDocs)
	frozen.GroupedMessageDocs = maps.Clone(data.GroupedMessageDocs)
	frozen.ActiveVersions = slices.Clone(data.ActiveVersions)
	frozen.MessageConnectors = slices.Clone(data.MessageConnectors)
	frozen.FavouriteEndpoints = slices.Clone(data.FavouriteEndpoints)
	if frozen.Status == "" {
		frozen.Status = StatusReady
	}
	return &AppContext{data: frozen}
}

// Degraded is the minimal context published when setup fails: the known
// API version as the only active version and no documents.
func Degraded(version, apiHost string, status Status) *AppContext {
	return NewContext(ContextData{
		ActiveVersions: []string{version},
		APIHost:        apiHost,
		Status:         status,
	})
}

func (c *AppContext) Status() Status { return c.data.Status }

func (c *AppContext) Ready() bool { return c.data.Status == StatusReady }

func (c *AppContext) APIHost() string { return c.data.APIHost }

func (c *AppContext) ActiveVersions() []string { return slices.Clone(c.data.ActiveVersions) }

func (c *AppContext) MessageConnectors() []string { return slices.Clone(c.data.MessageConnectors) }

// FavouriteEndpoints returns nil when favourites are absent.
func (c *AppContext) FavouriteEndpoints() []string { return slices.Clone(c.data.FavouriteEndpoints) }

func (c *AppContext) Glossary() *repository.Glossary { return c.data.Glossary }

// ResourceDocs returns the documents of version. ok is false for an
// unknown version or a context without documents.
func (c *AppContext) ResourceDocs(version string) (docs []repository.ResourceDoc, ok bool) {
	docs, ok = c.data.ResourceDocs[version]
	return slices.Clone(docs), ok
}

// AllResourceDocs returns the version -> documents map (nil when absent).
func (c *AppContext) AllResourceDocs() ResourceDocs { return maps.Clone(c.data.ResourceDocs) }

func (c *AppContext) GroupedResourceDocs(version string) (index.Grouped[repository.ResourceDoc], bool) {
	g, ok := c.data.GroupedResourceDocs[version]
	return maps.Clone(g), ok
}

// GroupedMessageDocs returns connector -> category -> docs (nil when absent).
func (c *AppContext) GroupedMessageDocs() GroupedMessageDocs {
	return maps.Clone(c.data.GroupedMessageDocs)
}

func (c *AppContext) MessageDocs(connector string) (index.Grouped[repository.MessageDoc], bool) {
	g, ok := c.data.GroupedMessageDocs[connector]
	return maps.Clone(g), ok
}
