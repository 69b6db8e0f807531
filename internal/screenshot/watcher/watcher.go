// Package watcher reports filesystem events for a single directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/TechnicallyShaun/askollama/internal/screenshot/logging"
)

// ErrWatchSetupFailed is returned when the initial watch cannot be established.
var ErrWatchSetupFailed = errors.New("watch setup failed")

// EventBuffer is the capacity of the channel returned by Watch.
const EventBuffer = 100

// Kind classifies a native filesystem event.
type Kind int

const (
	KindOther Kind = iota
	KindCreate
	KindModify
	KindRemove
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindModify:
		return "modify"
	case KindRemove:
		return "remove"
	default:
		return "other"
	}
}

// FileEvent is one raw filesystem event.
type FileEvent struct {
	Kind      Kind
	Paths     []string
	Timestamp time.Time
}

// FileWatcher monitors a directory and streams its events.
type FileWatcher interface {
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)
	Stop() error
}

// FSWatcher implements FileWatcher with fsnotify. It is non-recursive and
// delivers every event in the order fsnotify reports it.
type FSWatcher struct {
	logger logging.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	stopCh  chan struct{}
	stopped bool
	done    chan struct{}
}

// New creates a watcher that reports failures to logger.
func New(logger logging.Logger) *FSWatcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &FSWatcher{
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Watch starts monitoring dir. The returned channel is closed when ctx is
// cancelled, Stop is called, or dir itself is removed.
func (w *FSWatcher) Watch(ctx context.Context, dir string) (<-chan FileEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw != nil {
		return nil, fmt.Errorf("%w: already watching", ErrWatchSetupFailed)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatchSetupFailed, err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrWatchSetupFailed, dir, err)
	}
	w.fsw = fsw
	w.done = make(chan struct{})

	events := make(chan FileEvent, EventBuffer)
	go w.readEvents(ctx, filepath.Clean(dir), events)

	return events, nil
}

// Stop stops the watcher and waits for the read loop to exit.
func (w *FSWatcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	fsw, done := w.fsw, w.done
	w.mu.Unlock()

	if fsw == nil {
		return nil
	}
	err := fsw.Close()
	<-done
	return err
}

// Done is closed when the read loop exits. It is nil before Watch succeeds.
func (w *FSWatcher) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

func (w *FSWatcher) readEvents(ctx context.Context, dir string, events chan<- FileEvent) {
	defer close(w.done)
	defer w.fsw.Close()
	defer close(events)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			out := FileEvent{
				Kind:      classify(ev.Op),
				Paths:     []string{ev.Name},
				Timestamp: time.Now(),
			}

			select {
			case events <- out:
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			}

			if filepath.Clean(ev.Name) == dir && ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.logger.Error("watched directory is gone, stopping watcher",
					ErrWatchSetupFailed, logging.String("dir", dir))
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", err, logging.String("dir", dir))
		}
	}
}

func classify(op fsnotify.Op) Kind {
	switch {
	case op.Has(fsnotify.Create):
		return KindCreate
	case op.Has(fsnotify.Write):
		return KindModify
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return KindRemove
	default:
		return KindOther
	}
}
