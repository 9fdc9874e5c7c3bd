package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bassista/go_obpdocs/internal/logger"
)

const (
	ResourceDocsFile = "resource-docs.json"
	MessageDocsFile  = "message-docs.json"

	watchDebounce = 200 * time.Millisecond
)

// DirSource serves snapshots from a local mirror directory holding
// resource-docs.json and message-docs.json.
type DirSource struct {
	dir string
	mu  sync.Mutex
}

// NewDirSource creates a source over the given mirror directory.
func NewDirSource(dir string) (*DirSource, error) {
	if dir == "" {
		return nil, errors.New("mirror directory is required")
	}
	return &DirSource{dir: dir}, nil
}

func (s *DirSource) ResourceDocs(ctx context.Context) ([]byte, error) {
	return s.read(ctx, ResourceDocsFile, func(b []byte) error {
		_, err := DecodeResourceDocs(b)
		return err
	})
}

func (s *DirSource) MessageDocs(ctx context.Context) ([]byte, error) {
	return s.read(ctx, MessageDocsFile, func(b []byte) error {
		_, err := DecodeMessageDocs(b)
		return err
	})
}

// read loads a mirror file and rejects it when it does not decode, so a
// half-written file never reaches the cache.
func (s *DirSource) read(ctx context.Context, name string, check func([]byte) error) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if err := check(payload); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return payload, nil
}

// Watch calls onChange with the changed file name whenever one of the mirror
// files is written, created or replaced. It watches the directory (not the
// files) so temp+rename replacements are observed, and debounces bursts per
// file. The goroutine stops when ctx is canceled.
func (s *DirSource) Watch(ctx context.Context, onChange func(file string)) error {
	if onChange == nil {
		return errors.New("onChange callback is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir: %w", err)
	}

	go func() {
		defer watcher.Close()

		timers := map[string]*time.Timer{}
		defer func() {
			for _, t := range timers {
				t.Stop()
			}
		}()
		schedule := func(file string) {
			if t, ok := timers[file]; ok {
				t.Stop()
			}
			timers[file] = time.AfterFunc(watchDebounce, func() {
				if ctx.Err() == nil {
					onChange(file)
				}
			})
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				base := filepath.Base(event.Name)
				if base != ResourceDocsFile && base != MessageDocsFile {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					schedule(base)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithComponent("mirror").Warnf("watcher error: %v", err)
			}
		}
	}()

	return nil
}
