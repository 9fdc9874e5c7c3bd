package docsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bassista/go_obpdocs/internal/cache"
)

const (
	cachedResourceDocs = `{"OBPv4.0.0":{"resource_docs":[{"operation_id":"OBPv4.0.0-getBanks","tags":["Bank"]}]}}`
	freshResourceDocs  = `{"OBPv5.1.0":{"resource_docs":[{"operation_id":"OBPv5.1.0-root","tags":["API"]}]},"OBPv4.0.0":{"resource_docs":[]}}`
	cachedMessageDocs  = `{"akka_vDec2018":{"message_docs":[{"process":"obp.getBanks","adapter_implementation":{"group":"Bank"}}]}}`
	freshMessageDocs   = `{"star":{"message_docs":[]}}`
)

type fakeSource struct {
	resourceCalls atomic.Int32
	messageCalls  atomic.Int32
	resourceErr   error
	messageErr    error
	delay         time.Duration
	resource      string
}

func (f *fakeSource) ResourceDocs(ctx context.Context) ([]byte, error) {
	f.resourceCalls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.resourceErr != nil {
		return nil, f.resourceErr
	}
	if f.resource != "" {
		return []byte(f.resource), nil
	}
	return []byte(freshResourceDocs), nil
}

func (f *fakeSource) MessageDocs(ctx context.Context) ([]byte, error) {
	f.messageCalls.Add(1)
	if f.messageErr != nil {
		return nil, f.messageErr
	}
	return []byte(freshMessageDocs), nil
}

type recordingTrigger struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingTrigger) Trigger(partition string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, partition)
}

func (r *recordingTrigger) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestSynchronize_CacheHitServesStoredSnapshot(t *testing.T) {
	src := &fakeSource{}
	trigger := &recordingTrigger{}
	s := NewSynchronizer(src, 0)

	idx, err := s.SynchronizeResourceDocs(context.Background(), []byte(cachedResourceDocs), trigger)
	require.NoError(t, err)

	assert.Equal(t, []string{"OBPv4.0.0"}, idx.Versions)
	assert.Equal(t, "OBPv4.0.0-getBanks", idx.Grouped["OBPv4.0.0"]["Bank"][0].OperationID)
	assert.Equal(t, int32(0), src.resourceCalls.Load(), "hit path must not fetch")
	assert.Equal(t, []string{cache.ResourceDocsPartition}, trigger.Calls(), "worker is triggered once")
}

func TestSynchronize_CacheMissFetches(t *testing.T) {
	src := &fakeSource{}
	trigger := &recordingTrigger{}
	s := NewSynchronizer(src, 0)

	idx, err := s.SynchronizeMessageDocs(context.Background(), nil, trigger)
	require.NoError(t, err)

	assert.Equal(t, []string{"star"}, idx.Versions)
	assert.Equal(t, int32(1), src.messageCalls.Load())
	assert.Equal(t, []string{cache.MessageDocsPartition}, trigger.Calls())
}

func TestSynchronize_EmptyPreviousIsAMiss(t *testing.T) {
	src := &fakeSource{}
	s := NewSynchronizer(src, 0)

	_, err := s.SynchronizeResourceDocs(context.Background(), []byte{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.resourceCalls.Load())
}

func TestSynchronize_CacheMissFetchFailurePropagates(t *testing.T) {
	src := &fakeSource{resourceErr: errors.New("503 from upstream")}
	trigger := &recordingTrigger{}
	s := NewSynchronizer(src, 0)

	_, err := s.SynchronizeResourceDocs(context.Background(), nil, trigger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503 from upstream")
	assert.Empty(t, trigger.Calls(), "no refresh is requested after a failed miss")
}

func TestSynchronize_CorruptCacheFallsBackToFetch(t *testing.T) {
	src := &fakeSource{}
	s := NewSynchronizer(src, 0)

	idx, err := s.SynchronizeResourceDocs(context.Background(), []byte(`{"truncated":`), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"OBPv4.0.0", "OBPv5.1.0"}, idx.Versions)
	assert.Equal(t, int32(1), src.resourceCalls.Load())
}

func TestSynchronize_InvalidFetchedPayload(t *testing.T) {
	src := &fakeSource{resource: `["not", "a", "snapshot"]`}
	s := NewSynchronizer(src, 0)

	_, err := s.SynchronizeResourceDocs(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestSynchronize_MissFetchTimeout(t *testing.T) {
	src := &fakeSource{delay: time.Second}
	s := NewSynchronizer(src, 20*time.Millisecond)

	start := time.Now()
	_, err := s.SynchronizeResourceDocs(context.Background(), nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSynchronize_SingleInFlightFetchPerPartition(t *testing.T) {
	src := &fakeSource{delay: 100 * time.Millisecond}
	s := NewSynchronizer(src, 0)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx, err := s.SynchronizeResourceDocs(context.Background(), nil, nil)
			assert.NoError(t, err)
			assert.Len(t, idx.Versions, 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.resourceCalls.Load())
}
