package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bassista/go_obpdocs/internal/cache"
	"github.com/bassista/go_obpdocs/internal/docsync"
	"github.com/bassista/go_obpdocs/internal/logger"
	"github.com/bassista/go_obpdocs/internal/repository"
	"github.com/bassista/go_obpdocs/internal/worker"
)

// FavouritesCollection is the collection whose endpoints are shown as favourites.
const FavouritesCollection = "Favourites"

// RefreshWorker is the part of the background worker the setup needs: a
// refresh trigger and the channel of completed refreshes.
type RefreshWorker interface {
	docsync.Trigger
	Messages() <-chan worker.Message
}

// SetupDeps holds what SetupData reads from.
type SetupDeps struct {
	Storage      cache.Storage
	Synchronizer *docsync.Synchronizer
	Worker       RefreshWorker
	Glossary     repository.GlossarySource
	Collections  repository.CollectionsSource
	APIHost      string
	APIVersion   string

	// StartListener starts the listener writing worker refreshes into the
	// partitions. When nil, the listener runs until ctx is canceled.
	StartListener func(l *docsync.Listener)
}

func (d SetupDeps) validate() error {
	switch {
	case d.Storage == nil:
		return errors.New("storage is nil")
	case d.Synchronizer == nil:
		return errors.New("synchronizer is nil")
	case d.Worker == nil:
		return errors.New("worker is nil")
	case d.Glossary == nil:
		return errors.New("glossary source is nil")
	case d.Collections == nil:
		return errors.New("collections source is nil")
	}
	return nil
}

// SetupData builds the session's AppContext. The partitions are read once,
// the listener that writes worker refreshes into them is started, and both
// document kinds are synchronized before the glossary and favourites are
// loaded.
//
// If the documents cannot be set up, a degraded context with status
// StatusAPIServerError is returned together with ready=false. Glossary and
// favourites failures are returned as errors.
func SetupData(ctx context.Context, deps SetupDeps) (appCtx *AppContext, ready bool, err error) {
	if err := deps.validate(); err != nil {
		return nil, false, err
	}
	log := logger.WithComponent("setup")

	docs, err := setupDocuments(ctx, deps)
	if err != nil {
		log.Errorf("document setup failed: %v", err)
		return Degraded(deps.APIVersion, deps.APIHost, StatusAPIServerError), false, nil
	}

	glossary, err := deps.Glossary.Glossary(ctx)
	if err != nil {
		return nil, false, err
	}
	docs.Glossary = glossary

	favourites, err := favouriteEndpoints(ctx, deps.Collections)
	if err != nil {
		return nil, false, err
	}
	docs.FavouriteEndpoints = favourites

	docs.APIHost = deps.APIHost
	docs.Status = StatusReady
	return NewContext(docs), true, nil
}

func setupDocuments(ctx context.Context, deps SetupDeps) (ContextData, error) {
	resourcePart, resourcePrevious, err := openAndMatch(ctx, deps.Storage, cache.ResourceDocsPartition)
	if err != nil {
		return ContextData{}, err
	}
	messagePart, messagePrevious, err := openAndMatch(ctx, deps.Storage, cache.MessageDocsPartition)
	if err != nil {
		return ContextData{}, err
	}

	listener := docsync.NewListener(resourcePart, messagePart)
	if deps.StartListener != nil {
		deps.StartListener(listener)
	} else {
		listener.Listen(ctx, deps.Worker.Messages())
	}

	resourceIdx, err := deps.Synchronizer.SynchronizeResourceDocs(ctx, resourcePrevious, deps.Worker)
	if err != nil {
		return ContextData{}, err
	}
	messageIdx, err := deps.Synchronizer.SynchronizeMessageDocs(ctx, messagePrevious, deps.Worker)
	if err != nil {
		return ContextData{}, err
	}

	return ContextData{
		ResourceDocs:        resourceIdx.Versioned,
		GroupedResourceDocs: resourceIdx.Grouped,
		ActiveVersions:      resourceIdx.Versions,
		GroupedMessageDocs:  messageIdx.Grouped,
		MessageConnectors:   messageIdx.Versions,
	}, nil
}

func openAndMatch(ctx context.Context, storage cache.Storage, name string) (cache.Partition, []byte, error) {
	part, err := storage.Open(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", name, err)
	}
	previous, found, err := part.Match(ctx, cache.RootKey)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", name, err)
	}
	if !found {
		previous = nil
	}
	return part, previous, nil
}

// favouriteEndpoints returns nil when the user has no collections.
func favouriteEndpoints(ctx context.Context, src repository.CollectionsSource) ([]string, error) {
	collections, err := src.MyAPICollections(ctx)
	if err != nil {
		return nil, err
	}
	if collections == nil || len(collections.APICollections) == 0 {
		return nil, nil
	}
	endpoints, err := src.MyAPICollectionEndpoints(ctx, FavouritesCollection)
	if err != nil {
		return nil, err
	}
	return endpoints.OperationIDs(), nil
}
