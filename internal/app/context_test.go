package app

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bassista/go_obpdocs/internal/index"
	"github.com/bassista/go_obpdocs/internal/repository"
)

func TestNewContext_DefaultsToReady(t *testing.T) {
	c := NewContext(ContextData{ActiveVersions: []string{"OBPv5.1.0"}})
	assert.Equal(t, StatusReady, c.Status())
	assert.True(t, c.Ready())
}

func TestNewContext_IsolatedFromInput(t *testing.T) {
	versions := []string{"OBPv4.0.0", "OBPv5.1.0"}
	docs := ResourceDocs{"OBPv5.1.0": {{OperationID: "OBPv5.1.0-root"}}}

	c := NewContext(ContextData{ActiveVersions: versions, ResourceDocs: docs})
	versions[0] = "changed"
	docs["OBPv9.9.9"] = nil

	assert.Equal(t, []string{"OBPv4.0.0", "OBPv5.1.0"}, c.ActiveVersions())
	_, ok := c.ResourceDocs("OBPv9.9.9")
	assert.False(t, ok)
}

func TestContext_GettersReturnCopies(t *testing.T) {
	idx := index.Build(map[string][]repository.ResourceDoc{
		"OBPv5.1.0": {{OperationID: "OBPv5.1.0-root", Tags: []string{"API"}}},
	})
	c := NewContext(ContextData{
		ResourceDocs:        idx.Versioned,
		GroupedResourceDocs: idx.Grouped,
		ActiveVersions:      idx.Versions,
		FavouriteEndpoints:  []string{"OBPv5.1.0-root"},
	})

	got := c.ActiveVersions()
	got[0] = "changed"
	fav := c.FavouriteEndpoints()
	fav[0] = "changed"
	docs, ok := c.ResourceDocs("OBPv5.1.0")
	require.True(t, ok)
	docs[0] = repository.ResourceDoc{OperationID: "changed"}
	grouped, ok := c.GroupedResourceDocs("OBPv5.1.0")
	require.True(t, ok)
	delete(grouped, "API")

	assert.Equal(t, []string{"OBPv5.1.0"}, c.ActiveVersions())
	assert.Equal(t, []string{"OBPv5.1.0-root"}, c.FavouriteEndpoints())
	docs, _ = c.ResourceDocs("OBPv5.1.0")
	assert.Equal(t, "OBPv5.1.0-root", docs[0].OperationID)
	grouped, _ = c.GroupedResourceDocs("OBPv5.1.0")
	assert.Contains(t, grouped, "API")
}

func TestDegraded(t *testing.T) {
	c := Degraded("v5.1.0", testHost, StatusAPIServerError)

	assert.False(t, c.Ready())
	assert.Equal(t, StatusAPIServerError, c.Status())
	assert.Equal(t, []string{"v5.1.0"}, c.ActiveVersions())
	assert.Equal(t, testHost, c.APIHost())
	assert.Nil(t, c.AllResourceDocs())
	assert.Nil(t, c.GroupedMessageDocs())
	assert.Nil(t, c.FavouriteEndpoints())
	_, ok := c.MessageDocs("akka_vDec2018")
	assert.False(t, ok)
}

func TestPublisher_PublishOnce(t *testing.T) {
	p := NewPublisher()
	assert.Nil(t, p.Context())

	first := Degraded("v5.1.0", testHost, StatusError)
	require.NoError(t, p.Publish(first))
	assert.ErrorIs(t, p.Publish(NewContext(ContextData{})), ErrAlreadyPublished)
	assert.Same(t, first, p.Context())

	select {
	case <-p.Published():
	default:
		t.Fatal("Published channel should be closed")
	}
}

func TestPublisher_RejectsNil(t *testing.T) {
	p := NewPublisher()
	assert.ErrorIs(t, p.Publish(nil), ErrNilContext)
	assert.Nil(t, p.Context())
}

func TestPublisher_ConcurrentPublish(t *testing.T) {
	p := NewPublisher()
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.Publish(NewContext(ContextData{})) == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}
