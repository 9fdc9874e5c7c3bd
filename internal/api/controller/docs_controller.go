package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bassista/go_obpdocs/internal/app"
	"github.com/bassista/go_obpdocs/internal/search"
)

// ContextProvider gives access to the published AppContext; nil until published.
// Published is closed once a context is available.
type ContextProvider interface {
	Context() *app.AppContext
	Published() <-chan struct{}
}

// ContextResponse is the session summary the UI boots from.
type ContextResponse struct {
	Status             app.Status `json:"status"`
	Route              string     `json:"route"`
	APIHost            string     `json:"api_host"`
	ActiveVersions     []string   `json:"active_versions"`
	MessageConnectors  []string   `json:"message_connectors"`
	FavouriteEndpoints []string   `json:"favourite_endpoints"`
	ResourceDocCount   int        `json:"resource_doc_count"`
	MessageDocCount    int        `json:"message_doc_count"`
}

// RouteFor maps a context status to the UI view that should be shown.
func RouteFor(status app.Status) string {
	switch status {
	case app.StatusReady:
		return "/"
	case app.StatusAPIServerError:
		return "/api-server-error"
	default:
		return "/error"
	}
}

// DocsController serves the documents of the published context.
type DocsController struct {
	provider ContextProvider
}

func NewDocsController(provider ContextProvider) *DocsController {
	return &DocsController{provider: provider}
}

// awaitContext returns the published context. Before publish it waits
// until the request deadline; requests without a deadline do not wait.
func (dc *DocsController) awaitContext(c *gin.Context) *app.AppContext {
	if ctx := dc.provider.Context(); ctx != nil {
		return ctx
	}
	reqCtx := c.Request.Context()
	if _, ok := reqCtx.Deadline(); !ok {
		return nil
	}
	select {
	case <-dc.provider.Published():
		return dc.provider.Context()
	case <-reqCtx.Done():
		return nil
	}
}

// notPublished answers 503, unless the request context is already done and
// the timeout middleware owns the response.
func notPublished(c *gin.Context) {
	if c.Request.Context().Err() != nil {
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "application context not ready"})
}

// GetContext returns the session summary, waiting for the context to be
// published within the request deadline.
func (dc *DocsController) GetContext(c *gin.Context) {
	ctx := dc.awaitContext(c)
	if ctx == nil {
		notPublished(c)
		return
	}
	c.JSON(http.StatusOK, ContextResponse{
		Status:             ctx.Status(),
		Route:              RouteFor(ctx.Status()),
		APIHost:            ctx.APIHost(),
		ActiveVersions:     ctx.ActiveVersions(),
		MessageConnectors:  ctx.MessageConnectors(),
		FavouriteEndpoints: ctx.FavouriteEndpoints(),
		ResourceDocCount:   countResourceDocs(ctx),
		MessageDocCount:    countMessageDocs(ctx),
	})
}

func countResourceDocs(ctx *app.AppContext) int {
	n := 0
	for _, docs := range ctx.AllResourceDocs() {
		n += len(docs)
	}
	return n
}

func countMessageDocs(ctx *app.AppContext) int {
	n := 0
	for _, grouped := range ctx.GroupedMessageDocs() {
		for _, docs := range grouped {
			n += len(docs)
		}
	}
	return n
}

// ready returns the context when documents can be served, otherwise it
// writes 503 with the route the UI should switch to.
func (dc *DocsController) ready(c *gin.Context) (*app.AppContext, bool) {
	ctx := dc.awaitContext(c)
	if ctx == nil {
		notPublished(c)
		return nil, false
	}
	if !ctx.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":  "documents unavailable",
			"status": ctx.Status(),
			"route":  RouteFor(ctx.Status()),
		})
		return nil, false
	}
	return ctx, true
}

func (dc *DocsController) GetResourceDocs(c *gin.Context) {
	ctx, ok := dc.ready(c)
	if !ok {
		return
	}
	version := c.Param("version")
	docs, found := ctx.ResourceDocs(version)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown version", "version": version})
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (dc *DocsController) GetResourceDocGroups(c *gin.Context) {
	ctx, ok := dc.ready(c)
	if !ok {
		return
	}
	version := c.Param("version")
	grouped, found := ctx.GroupedResourceDocs(version)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown version", "version": version})
		return
	}
	c.JSON(http.StatusOK, grouped)
}

func (dc *DocsController) GetMessageDocs(c *gin.Context) {
	ctx, ok := dc.ready(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ctx.GroupedMessageDocs())
}

func (dc *DocsController) GetMessageDocsByConnector(c *gin.Context) {
	ctx, ok := dc.ready(c)
	if !ok {
		return
	}
	connector := c.Param("connector")
	grouped, found := ctx.MessageDocs(connector)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown connector", "connector": connector})
		return
	}
	c.JSON(http.StatusOK, grouped)
}

// GetGlossary returns the whole glossary, or the items matching ?q=.
func (dc *DocsController) GetGlossary(c *gin.Context) {
	ctx, ok := dc.ready(c)
	if !ok {
		return
	}
	glossary := ctx.Glossary()
	if q := c.Query("q"); q != "" {
		c.JSON(http.StatusOK, gin.H{"glossary_items": search.GlossaryTitles(glossary, q)})
		return
	}
	c.JSON(http.StatusOK, glossary)
}

// Search ranks operations against ?q=, optionally within ?version=.
func (dc *DocsController) Search(c *gin.Context) {
	ctx, ok := dc.ready(c)
	if !ok {
		return
	}
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, search.Operations(ctx.AllResourceDocs(), c.Query("version"), q, limit))
}
