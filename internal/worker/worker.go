package worker

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bassista/go_obpdocs/internal/cache"
	"github.com/bassista/go_obpdocs/internal/logger"
	"github.com/bassista/go_obpdocs/internal/repository"
)

// DefaultInterval is used when New is given a non-positive interval.
const DefaultInterval = time.Hour

// FetchFunc fetches the authoritative payload of one partition.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Worker refreshes the document partitions in the background. It shares
// nothing with the foreground: it fetches on its own schedule (or when
// triggered) and hands every fresh snapshot over the Messages channel.
// A failed fetch is logged and produces no message.
type Worker struct {
	fetchers map[string]FetchFunc
	interval time.Duration
	timeout  time.Duration

	out    chan Message
	notify chan struct{}

	mu      sync.Mutex
	pending map[string]bool

	startOnce sync.Once
	done      chan struct{}
}

type Option func(*Worker)

// WithBuffer sets the capacity of the Messages channel.
func WithBuffer(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.out = make(chan Message, n)
		}
	}
}

// WithFetchTimeout bounds every fetch. Zero means no timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(w *Worker) {
		w.timeout = d
	}
}

// WithFetcher overrides the fetch function of one partition.
func WithFetcher(partition string, fetch FetchFunc) Option {
	return func(w *Worker) {
		if cache.IsKnownPartition(partition) && fetch != nil {
			w.fetchers[partition] = fetch
		}
	}
}

// New creates a worker refreshing both partitions from src every interval.
// A non-positive interval falls back to DefaultInterval.
func New(src repository.Source, interval time.Duration, opts ...Option) *Worker {
	if interval <= 0 {
		logger.WithComponent("worker").Warnf("invalid refresh interval %v, using %v", interval, DefaultInterval)
		interval = DefaultInterval
	}
	w := &Worker{
		fetchers: map[string]FetchFunc{},
		interval: interval,
		out:      make(chan Message, len(cache.Partitions())),
		notify:   make(chan struct{}, 1),
		pending:  map[string]bool{},
		done:     make(chan struct{}),
	}
	if src != nil {
		w.fetchers[cache.ResourceDocsPartition] = src.ResourceDocs
		w.fetchers[cache.MessageDocsPartition] = src.MessageDocs
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Messages delivers one Message per successfully refreshed partition.
// It is closed when the worker stops.
func (w *Worker) Messages() <-chan Message {
	return w.out
}

// Trigger asks for a refresh of partition as soon as possible. It never
// blocks; repeated triggers before the worker wakes up are coalesced.
func (w *Worker) Trigger(partition string) {
	if !cache.IsKnownPartition(partition) {
		logger.WithComponent("worker").Debugf("ignoring trigger for unknown partition %q", partition)
		return
	}
	w.mu.Lock()
	w.pending[partition] = true
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Start runs the refresh loop in a goroutine until ctx is canceled.
// Returns a channel that is closed when the loop has exited and Messages
// has been closed. Calling Start again returns the same channel.
func (w *Worker) Start(ctx context.Context) <-chan struct{} {
	w.startOnce.Do(func() {
		logger.WithComponent("worker").Debugf("starting refresh worker with interval: %v", w.interval)
		ticker := time.NewTicker(w.interval)
		go func() {
			defer close(w.done)
			defer close(w.out)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					logger.WithComponent("worker").Info("refresh worker stopped")
					return
				case <-ticker.C:
					logger.WithComponent("worker").Tracef("refresh worker tick")
					w.cycle(ctx, cache.Partitions())
				case <-w.notify:
					w.cycle(ctx, w.takePending())
				}
			}
		}()
	})
	return w.done
}

// RunOnce refreshes every partition synchronously and returns the messages
// that the loop would have sent.
func (w *Worker) RunOnce(ctx context.Context) []Message {
	var msgs []Message
	for _, partition := range cache.Partitions() {
		if msg, ok := w.refresh(ctx, partition); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

func (w *Worker) takePending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var partitions []string
	for _, partition := range cache.Partitions() {
		if w.pending[partition] {
			partitions = append(partitions, partition)
			delete(w.pending, partition)
		}
	}
	return partitions
}

func (w *Worker) cycle(ctx context.Context, partitions []string) {
	for _, partition := range partitions {
		msg, ok := w.refresh(ctx, partition)
		if !ok {
			continue
		}
		select {
		case w.out <- msg:
			logger.WithPartition("worker", partition).Debugf("sent %s", msg.Signal)
		case <-ctx.Done():
			return
		}
	}
}

// refresh fetches one partition. Errors and panics stay inside the worker.
func (w *Worker) refresh(ctx context.Context, partition string) (msg Message, ok bool) {
	log := logger.WithPartition("worker", partition)
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("refresh panicked: %v\n%s", rec, debug.Stack())
			msg, ok = Message{}, false
		}
	}()

	fetch, found := w.fetchers[partition]
	if !found {
		log.Debugf("no fetcher configured, skipping")
		return Message{}, false
	}
	signal, _ := SignalFor(partition)

	fetchCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	payload, err := fetch(fetchCtx)
	if err != nil {
		log.Warnf("background refresh failed: %v", err)
		return Message{}, false
	}
	if len(payload) == 0 {
		log.Warnf("background refresh returned an empty payload for %s", signal)
		return Message{}, false
	}
	return Message{Signal: signal, Payload: payload}, true
}
