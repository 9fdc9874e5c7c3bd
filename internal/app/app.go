package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bassista/go_obpdocs/internal/cache"
	"github.com/bassista/go_obpdocs/internal/config"
	"github.com/bassista/go_obpdocs/internal/docsync"
	"github.com/bassista/go_obpdocs/internal/logger"
	"github.com/bassista/go_obpdocs/internal/repository"
	"github.com/bassista/go_obpdocs/internal/worker"
)

// Upstream serves the non-cached data read during setup.
type Upstream interface {
	repository.GlossarySource
	repository.CollectionsSource
}

type watcher interface {
	Watch(ctx context.Context, onChange func(file string)) error
}

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config       *config.Config
	Storage      cache.Storage
	Source       repository.Source
	Upstream     Upstream
	Worker       *worker.Worker
	Synchronizer *docsync.Synchronizer
	Publisher    *Publisher

	BaseCtx context.Context
	Cancel  context.CancelFunc

	workerDone <-chan struct{}

	listenMu     sync.Mutex
	listenerDone <-chan struct{}
}

func New(cfg *config.Config, storage cache.Storage, src repository.Source, upstream Upstream) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if storage == nil {
		return nil, errors.New("cache storage is nil")
	}
	if src == nil {
		return nil, errors.New("document source is nil")
	}
	if upstream == nil {
		return nil, errors.New("upstream is nil")
	}

	w := worker.New(src, cfg.Worker.RefreshInterval,
		worker.WithBuffer(cfg.Worker.Buffer),
		worker.WithFetchTimeout(cfg.Upstream.FetchTimeout),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Config:       cfg,
		Storage:      storage,
		Source:       src,
		Upstream:     upstream,
		Worker:       w,
		Synchronizer: docsync.NewSynchronizer(src, cfg.Upstream.FetchTimeout),
		Publisher:    NewPublisher(),
		BaseCtx:      ctx,
		Cancel:       cancel,
	}, nil
}

// Shutdown stops the background goroutines and closes the cache storage.
func (a *App) Shutdown() {
	if a == nil || a.Cancel == nil {
		return
	}
	a.Cancel()
	if a.workerDone != nil {
		select {
		case <-a.workerDone:
		case <-time.After(5 * time.Second):
			logger.WithComponent("app").Warn("refresh worker did not stop in time")
		}
	}
	a.listenMu.Lock()
	listenerDone := a.listenerDone
	a.listenMu.Unlock()
	if listenerDone != nil {
		select {
		case <-listenerDone:
		case <-time.After(5 * time.Second):
			logger.WithComponent("app").Warn("cache listener did not stop in time")
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			logger.WithComponent("app").Errorf("cannot close cache storage: %v", err)
		}
	}
}

// StartWatchers starts the refresh worker and, for a mirror directory
// source, a file watcher that triggers a refresh of the changed partition.
func (a *App) StartWatchers() error {
	a.workerDone = a.Worker.Start(a.BaseCtx)

	if w, ok := a.Source.(watcher); ok {
		err := w.Watch(a.BaseCtx, func(file string) {
			if partition, ok := partitionForFile(file); ok {
				logger.WithPartition("mirror", partition).Infof("%s changed, refreshing", file)
				a.Worker.Trigger(partition)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func partitionForFile(file string) (string, bool) {
	switch file {
	case repository.ResourceDocsFile:
		return cache.ResourceDocsPartition, true
	case repository.MessageDocsFile:
		return cache.MessageDocsPartition, true
	}
	return "", false
}

// Bootstrap runs SetupData and publishes its result. A setup error
// publishes a degraded context with StatusError instead of failing.
// It runs once per App; later calls return ErrAlreadyPublished.
func (a *App) Bootstrap() (*AppContext, error) {
	log := logger.WithComponent("app")
	if a.Publisher.Context() != nil {
		return nil, ErrAlreadyPublished
	}

	appCtx, ready, err := SetupData(a.BaseCtx, a.setupDeps())
	switch {
	case err != nil:
		log.Errorf("application setup failed: %v", err)
		appCtx = Degraded(a.Config.API.Version, a.Config.API.Host, StatusError)
	case !ready:
		log.Warnf("documents unavailable, serving %s", appCtx.Status())
	default:
		log.Infof("application context ready with %d versions", len(appCtx.ActiveVersions()))
	}

	if err := a.Publisher.Publish(appCtx); err != nil {
		return nil, err
	}
	return appCtx, nil
}

func (a *App) setupDeps() SetupDeps {
	return SetupDeps{
		Storage:      a.Storage,
		Synchronizer: a.Synchronizer,
		Worker:       a.Worker,
		Glossary:     a.Upstream,
		Collections:  a.Upstream,
		APIHost:      a.Config.API.Host,
		APIVersion:   a.Config.API.Version,

		StartListener: a.startListener,
	}
}

// startListener runs at most one cache listener per App.
func (a *App) startListener(l *docsync.Listener) {
	a.listenMu.Lock()
	defer a.listenMu.Unlock()
	if a.listenerDone != nil {
		return
	}
	a.listenerDone = l.Listen(a.BaseCtx, a.Worker.Messages())
}

// RefreshNow fetches both partitions once and writes them to the cache
// without starting the background loop.
func (a *App) RefreshNow(ctx context.Context) (int, error) {
	resource, err := a.Storage.Open(ctx, cache.ResourceDocsPartition)
	if err != nil {
		return 0, err
	}
	message, err := a.Storage.Open(ctx, cache.MessageDocsPartition)
	if err != nil {
		return 0, err
	}
	listener := docsync.NewListener(resource, message)

	var errs []error
	written := 0
	for _, msg := range a.Worker.RunOnce(ctx) {
		if err := listener.Handle(ctx, msg); err != nil {
			errs = append(errs, err)
			continue
		}
		written++
	}
	return written, errors.Join(errs...)
}
