// Package watch re-runs calculations when deck files change on disk.
//
// The watcher observes each deck's parent directory rather than the file
// itself, so editors that save by renaming a temporary file are seen too.
// Bursts of events for the same deck are collapsed into one callback once
// the deck has been quiet for the debounce interval.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/banshee-data/xrfsim/internal/monitoring"
	"github.com/banshee-data/xrfsim/internal/timeutil"
)

// DefaultDebounce is how long a deck must stay unchanged before it is
// handled.
const DefaultDebounce = 500 * time.Millisecond

// Handler is called with the path of a deck that changed. Errors are logged
// and counted; the watcher keeps running.
type Handler func(ctx context.Context, path string) error

// Stats counts watcher activity.
type Stats struct {
	Events    int
	Handled   int
	Errors    int
	LastPath  string
	LastEvent time.Time
}

// Watcher watches a fixed set of deck files.
type Watcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	decks   map[string]bool
	handler Handler

	clock    timeutil.Clock
	debounce time.Duration

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool

	stats Stats
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithClock replaces the clock driving the debounce timer.
func WithClock(c timeutil.Clock) Option { return func(w *Watcher) { w.clock = c } }

// WithDebounce sets the quiet period; non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for the given deck paths.
func New(paths []string, handler Handler, opts ...Option) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("no deck files to watch")
	}
	if handler == nil {
		return nil, errors.New("nil handler")
	}

	w := &Watcher{
		decks:    make(map[string]bool, len(paths)),
		handler:  handler,
		clock:    timeutil.RealClock{},
		debounce: DefaultDebounce,
		doneCh:   make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		w.decks[abs] = true
	}
	return w, nil
}

// Start begins watching. It returns once the directories are registered;
// events are handled on a background goroutine until ctx is done or Stop is
// called. A stopped watcher may be started again.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	for _, dir := range w.dirs() {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		monitoring.Logf("watching %s", dir)
	}

	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true
	go w.run(ctx, fw, w.stopCh, w.doneCh)
	return nil
}

func (w *Watcher) dirs() []string {
	set := make(map[string]bool)
	for p := range w.decks {
		set[filepath.Dir(p)] = true
	}
	dirs := make([]string, 0, len(set))
	for d := range set {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Stop ends the event loop and releases the underlying watcher. It is safe
// to call more than once and after the context has been cancelled.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	fw, stopCh, doneCh := w.watcher, w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)
	<-doneCh
	if err := fw.Close(); err != nil {
		monitoring.Logf("error closing watcher: %v", err)
	}
}

// Done is closed when the current event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doneCh
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	pending := make(map[string]bool)
	var timer timeutil.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		var fire <-chan time.Time
		if timer != nil {
			fire = timer.C()
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			path, relevant := w.relevant(event)
			if !relevant {
				continue
			}
			monitoring.Debugf("watch: %s %s", event.Op, path)
			w.mu.Lock()
			w.stats.Events++
			w.stats.LastPath = path
			w.stats.LastEvent = w.clock.Now()
			w.mu.Unlock()

			pending[path] = true
			// restart the quiet period from this event
			if timer != nil {
				timer.Stop()
			}
			timer = w.clock.NewTimer(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			monitoring.Logf("watch error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-fire:
			timer = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			for _, p := range paths {
				w.handle(ctx, p)
			}
		}
	}
}

// relevant reports whether event touches a watched deck in a way that may
// have changed its content.
func (w *Watcher) relevant(event fsnotify.Event) (string, bool) {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
		return "", false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return "", false
	}
	return abs, w.decks[abs]
}

func (w *Watcher) handle(ctx context.Context, path string) {
	err := w.handler(ctx, path)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Handled++
	if err != nil {
		w.stats.Errors++
		monitoring.Logf("failed to process %s: %v", path, err)
	}
}
