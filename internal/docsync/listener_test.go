package docsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bassista/go_obpdocs/internal/cache"
	"github.com/bassista/go_obpdocs/internal/logger"
	"github.com/bassista/go_obpdocs/internal/worker"
)

// MockWriter is a mock implementation of cache.Writer
type MockWriter struct {
	mock.Mock
	name string
}

func (m *MockWriter) Name() string { return m.name }

func (m *MockWriter) Put(ctx context.Context, key string, payload []byte) error {
	args := m.Called(ctx, key, payload)
	return args.Error(0)
}

func captureLogs(t *testing.T) *test.Hook {
	t.Helper()
	hook := test.NewLocal(logger.Logger)
	t.Cleanup(func() {
		logger.Logger.ReplaceHooks(make(logrus.LevelHooks))
	})
	return hook
}

func countMessages(hook *test.Hook, message string) int {
	n := 0
	for _, e := range hook.AllEntries() {
		if e.Message == message {
			n++
		}
	}
	return n
}

func newWriters() (*MockWriter, *MockWriter) {
	return &MockWriter{name: cache.ResourceDocsPartition}, &MockWriter{name: cache.MessageDocsPartition}
}

func TestListener_ResourceSignalWritesResourcePartitionOnce(t *testing.T) {
	hook := captureLogs(t)
	resource, message := newWriters()
	ctx := context.Background()
	payload := []byte(freshResourceDocs)
	resource.On("Put", ctx, cache.RootKey, payload).Return(nil).Once()

	l := NewListener(resource, message)
	err := l.Handle(ctx, worker.Message{Signal: worker.SignalUpdateResourceDocs, Payload: payload})

	require.NoError(t, err)
	resource.AssertExpectations(t)
	resource.AssertNumberOfCalls(t, "Put", 1)
	message.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1, countMessages(hook, "Resource Docs cache was updated."))
	assert.Equal(t, 0, countMessages(hook, "Message Docs cache was updated."))
}

func TestListener_MessageSignalWritesMessagePartitionOnly(t *testing.T) {
	hook := captureLogs(t)
	resource, message := newWriters()
	ctx := context.Background()
	payload := []byte(freshMessageDocs)
	message.On("Put", ctx, cache.RootKey, payload).Return(nil).Once()

	l := NewListener(resource, message)
	require.NoError(t, l.Handle(ctx, worker.Message{Signal: worker.SignalUpdateMessageDocs, Payload: payload}))

	message.AssertNumberOfCalls(t, "Put", 1)
	resource.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1, countMessages(hook, "Message Docs cache was updated."))
}

func TestListener_UnknownSignalHasNoEffect(t *testing.T) {
	hook := captureLogs(t)
	resource, message := newWriters()

	l := NewListener(resource, message)
	err := l.Handle(context.Background(), worker.Message{Signal: worker.Signal(99), Payload: []byte(freshMessageDocs)})

	assert.NoError(t, err)
	resource.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	message.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 0, countMessages(hook, "Resource Docs cache was updated."))
	assert.Equal(t, 0, countMessages(hook, "Message Docs cache was updated."))
}

func TestListener_RejectsInvalidPayload(t *testing.T) {
	resource, message := newWriters()

	l := NewListener(resource, message)
	err := l.Handle(context.Background(), worker.Message{Signal: worker.SignalUpdateResourceDocs, Payload: []byte("<html>502</html>")})

	assert.Error(t, err)
	resource.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

func TestListener_WriteErrorIsReturned(t *testing.T) {
	hook := captureLogs(t)
	resource, message := newWriters()
	resource.On("Put", mock.Anything, cache.RootKey, mock.Anything).Return(errors.New("disk full"))

	l := NewListener(resource, message)
	err := l.Handle(context.Background(), worker.Message{Signal: worker.SignalUpdateResourceDocs, Payload: []byte(freshResourceDocs)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 0, countMessages(hook, "Resource Docs cache was updated."))
}

func TestListener_ListenProcessesUntilChannelCloses(t *testing.T) {
	ctx := context.Background()
	storage := cache.NewMemoryStorage()
	resource, err := storage.Open(ctx, cache.ResourceDocsPartition)
	require.NoError(t, err)
	message, err := storage.Open(ctx, cache.MessageDocsPartition)
	require.NoError(t, err)

	msgs := make(chan worker.Message, 2)
	done := NewListener(resource, message).Listen(ctx, msgs)

	msgs <- worker.Message{Signal: worker.SignalUpdateMessageDocs, Payload: []byte(freshMessageDocs)}
	msgs <- worker.Message{Signal: worker.SignalUpdateResourceDocs, Payload: []byte("garbage")}
	close(msgs)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after the channel closed")
	}

	payload, found, err := message.Match(ctx, cache.RootKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, freshMessageDocs, string(payload))

	_, found, err = resource.Match(ctx, cache.RootKey)
	require.NoError(t, err)
	assert.False(t, found, "an invalid payload never reaches the cache")
}

func TestListener_ListenStopsOnCancel(t *testing.T) {
	resource, message := newWriters()
	ctx, cancel := context.WithCancel(context.Background())

	done := NewListener(resource, message).Listen(ctx, make(chan worker.Message))
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop on cancel")
	}
}
