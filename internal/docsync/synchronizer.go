package docsync

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bassista/go_obpdocs/internal/cache"
	"github.com/bassista/go_obpdocs/internal/index"
	"github.com/bassista/go_obpdocs/internal/logger"
	"github.com/bassista/go_obpdocs/internal/repository"
)

// Trigger asks the background worker to refresh a partition. It must not block.
type Trigger interface {
	Trigger(partition string)
}

// Synchronizer serves the snapshot cached by a previous session and leaves
// refreshing to the background worker. It never writes to a partition.
type Synchronizer struct {
	source  repository.Source
	timeout time.Duration
	group   singleflight.Group
}

// NewSynchronizer creates a synchronizer fetching from src on cache misses.
// A positive timeout bounds the miss-path fetch.
func NewSynchronizer(src repository.Source, timeout time.Duration) *Synchronizer {
	return &Synchronizer{source: src, timeout: timeout}
}

// SynchronizeResourceDocs indexes the resource docs for the current session.
// previous is the payload read from the partition at startup; nil or empty
// means the partition was never populated.
func (s *Synchronizer) SynchronizeResourceDocs(ctx context.Context, previous []byte, trigger Trigger) (index.Index[repository.ResourceDoc], error) {
	return synchronize(ctx, s, cache.ResourceDocsPartition, previous, trigger, s.source.ResourceDocs, index.BuildResourceDocs)
}

// SynchronizeMessageDocs indexes the message docs for the current session.
func (s *Synchronizer) SynchronizeMessageDocs(ctx context.Context, previous []byte, trigger Trigger) (index.Index[repository.MessageDoc], error) {
	return synchronize(ctx, s, cache.MessageDocsPartition, previous, trigger, s.source.MessageDocs, index.BuildMessageDocs)
}

func synchronize[D index.Document](
	ctx context.Context,
	s *Synchronizer,
	partition string,
	previous []byte,
	trigger Trigger,
	fetch func(context.Context) ([]byte, error),
	build func([]byte) (index.Index[D], error),
) (index.Index[D], error) {
	log := logger.WithPartition("sync", partition)

	if len(previous) > 0 {
		idx, err := build(previous)
		if err == nil {
			log.Debugf("serving cached snapshot (%d versions)", len(idx.Versions))
			requestRefresh(trigger, partition)
			return idx, nil
		}
		log.Warnf("cached snapshot is unusable, fetching instead: %v", err)
	}

	log.Info("no cached snapshot, fetching documents")
	v, err, shared := s.group.Do(partition, func() (any, error) {
		fetchCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		return fetch(fetchCtx)
	})
	if err != nil {
		return index.Index[D]{}, fmt.Errorf("fetch %s: %w", partition, err)
	}
	if shared {
		log.Debug("joined an in-flight fetch")
	}

	idx, err := build(v.([]byte))
	if err != nil {
		return index.Index[D]{}, fmt.Errorf("index %s: %w", partition, err)
	}
	// The fetched payload is not written here; the worker refresh stores it
	// for the next session.
	requestRefresh(trigger, partition)
	return idx, nil
}

func requestRefresh(trigger Trigger, partition string) {
	if trigger != nil {
		trigger.Trigger(partition)
	}
}
