package docsync

import (
	"context"
	"fmt"

	"github.com/bassista/go_obpdocs/internal/cache"
	"github.com/bassista/go_obpdocs/internal/logger"
	"github.com/bassista/go_obpdocs/internal/repository"
	"github.com/bassista/go_obpdocs/internal/worker"
)

type target struct {
	partition cache.Writer
	check     func([]byte) error
	done      string
}

// Listener persists the snapshots announced by the worker. Writes only
// affect what the next session reads; the current session keeps the
// context it already published.
type Listener struct {
	targets map[worker.Signal]target
}

// NewListener wires the two partition writers to their signals.
func NewListener(resourceDocs, messageDocs cache.Writer) *Listener {
	return &Listener{targets: map[worker.Signal]target{
		worker.SignalUpdateResourceDocs: {
			partition: resourceDocs,
			check: func(b []byte) error {
				_, err := repository.DecodeResourceDocs(b)
				return err
			},
			done: "Resource Docs cache was updated.",
		},
		worker.SignalUpdateMessageDocs: {
			partition: messageDocs,
			check: func(b []byte) error {
				_, err := repository.DecodeMessageDocs(b)
				return err
			},
			done: "Message Docs cache was updated.",
		},
	}}
}

// Handle writes the payload of msg into the partition of its signal.
// Unknown signals are ignored.
func (l *Listener) Handle(ctx context.Context, msg worker.Message) error {
	t, ok := l.targets[msg.Signal]
	if !ok || t.partition == nil {
		logger.WithComponent("listener").Debugf("ignoring signal %d", int(msg.Signal))
		return nil
	}
	if err := t.check(msg.Payload); err != nil {
		return fmt.Errorf("%s: rejected payload: %w", msg.Signal, err)
	}
	if err := t.partition.Put(ctx, cache.RootKey, msg.Payload); err != nil {
		return fmt.Errorf("%s: write %s: %w", msg.Signal, t.partition.Name(), err)
	}
	logger.WithPartition("listener", t.partition.Name()).Info(t.done)
	return nil
}

// Listen handles messages until msgs is closed or ctx is canceled.
// Returns a channel that is closed when the loop exits.
func (l *Listener) Listen(ctx context.Context, msgs <-chan worker.Message) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.WithComponent("listener").Debug("worker channel closed")
					return
				}
				if err := l.Handle(ctx, msg); err != nil {
					logger.WithComponent("listener").Errorf("cache update failed: %v", err)
				}
			}
		}
	}()
	return done
}
