// Package watcher keeps the installed-mod inventory in sync with the mods
// root. Filesystem events are coalesced into a single rescan; a manual
// refresh is always available, and is the only trigger once watching has
// failed.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mxbmm/internal/domain"
	"mxbmm/internal/logging"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a burst of events triggers a scan
const DefaultDebounce = 300 * time.Millisecond

// State is the coordinator's watch state
type State int

const (
	Unwatched State = iota
	Watching
	Degraded
)

func (s State) String() string {
	switch s {
	case Watching:
		return "watching"
	case Degraded:
		return "degraded"
	default:
		return "unwatched"
	}
}

// Refresher rescans the mods root and replaces the inventory
type Refresher interface {
	Refresh(ctx context.Context) (*domain.Inventory, error)
}

// Update is delivered on Changes after every scan
type Update struct {
	Inventory *domain.Inventory
	Err       error
	Manual    bool
}

// Options configures a Coordinator
type Options struct {
	Debounce time.Duration // Zero uses DefaultDebounce
	MaxWait  time.Duration // Zero uses ten times Debounce
}

// Coordinator watches the mods root and triggers debounced rescans
type Coordinator struct {
	root      string
	refresher Refresher
	debouncer *Debouncer

	mu       sync.Mutex
	state    State
	setupErr error
	fsw      *fsnotify.Watcher
	paths    map[string]bool
	closed   bool
	lastGen  uint64 // newest inventory generation published

	changes chan Update
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Coordinator in the Unwatched state
func New(root string, refresher Refresher, opts Options) *Coordinator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 10 * opts.Debounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		root:      filepath.Clean(root),
		refresher: refresher,
		paths:     make(map[string]bool),
		changes:   make(chan Update, 1),
		ctx:       ctx,
		cancel:    cancel,
	}
	c.debouncer = NewDebouncer(opts.Debounce, opts.MaxWait, c.rescan)
	return c
}

// Start tries to establish a recursive watch on the root. Failure is not
// fatal: the coordinator moves to Degraded and the returned *domain.WatchError
// is for display only. Manual refresh keeps working either way.
func (c *Coordinator) Start() error {
	log := logging.Get("watcher")

	if err := c.watch(); err != nil {
		werr := domain.NewWatchError(domain.ErrWatchSetupFailed, c.root, err)
		c.mu.Lock()
		c.state = Degraded
		c.setupErr = werr
		c.mu.Unlock()
		log.Warn("watching unavailable, use manual refresh", "root", c.root, "error", err)
		return werr
	}

	c.mu.Lock()
	c.state = Watching
	n := len(c.paths)
	c.mu.Unlock()

	log.Info("watching mods root", "root", c.root, "dirs", n)

	c.wg.Add(1)
	go c.loop()
	return nil
}

func (c *Coordinator) watch() error {
	info, err := os.Stat(c.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fsw.Close()
		return errors.New("coordinator closed")
	}
	c.fsw = fsw
	c.mu.Unlock()

	if err := c.addTree(c.root); err != nil {
		c.mu.Lock()
		c.fsw = nil
		c.paths = make(map[string]bool)
		c.mu.Unlock()
		fsw.Close()
		return err
	}
	return nil
}

// addTree watches dir and every directory below it, skipping symlinks and
// in-progress installs.
func (c *Coordinator) addTree(dir string) error {
	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.root && isStaging(d.Name()) {
			return filepath.SkipDir
		}
		return c.addWatch(path)
	})
}

// addWatch is called concurrently from the fastwalk callback
func (c *Coordinator) addWatch(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.fsw == nil || c.paths[path] {
		return nil
	}
	if err := c.fsw.Add(path); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	c.paths[path] = true
	return nil
}

func (c *Coordinator) removeWatches(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := path + string(filepath.Separator)
	for p := range c.paths {
		if p == path || strings.HasPrefix(p, prefix) {
			// The kernel drops watches on deleted directories by itself
			_ = c.fsw.Remove(p)
			delete(c.paths, p)
		}
	}
}

func (c *Coordinator) loop() {
	defer c.wg.Done()
	log := logging.Get("watcher")

	c.mu.Lock()
	fsw := c.fsw
	c.mu.Unlock()

	for {
		select {
		case <-c.ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			c.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				log.Warn("event queue overflowed, rescanning")
				c.debouncer.Trigger()
				continue
			}
			log.Error("watcher error", "error", err)
		}
	}
}

func (c *Coordinator) handleEvent(event fsnotify.Event) {
	if c.ignored(event.Name) || event.Op == fsnotify.Chmod {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			if err := c.addTree(event.Name); err != nil {
				logging.Get("watcher").Warn("new directory not watched", "path", event.Name, "error", err)
			}
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		c.removeWatches(event.Name)
		if event.Name == c.root {
			c.mu.Lock()
			c.state = Degraded
			c.setupErr = domain.NewWatchError(domain.ErrWatchSetupFailed, c.root, errors.New("mods root removed"))
			c.mu.Unlock()
			logging.Get("watcher").Warn("mods root removed, watching stopped", "root", c.root)
		}
	}

	c.debouncer.Trigger()
}

// ignored reports whether path lies inside an in-progress install
func (c *Coordinator) ignored(path string) bool {
	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if isStaging(part) {
			return true
		}
	}
	return false
}

func isStaging(name string) bool {
	return strings.HasPrefix(name, domain.StagingPrefix)
}

func (c *Coordinator) rescan() {
	inv, err := c.refresher.Refresh(c.ctx)
	if err != nil {
		logging.Get("watcher").Error("rescan failed", "error", err)
	}
	c.publish(Update{Inventory: inv, Err: err})
}

// Refresh performs a scan right away, whatever the state, and publishes it
func (c *Coordinator) Refresh(ctx context.Context) (*domain.Inventory, error) {
	inv, err := c.refresher.Refresh(ctx)
	c.publish(Update{Inventory: inv, Err: err, Manual: true})
	return inv, err
}

// publish delivers u, replacing an update nobody has read yet. An
// inventory older than one already published is dropped, so a slow scan
// finishing late cannot roll subscribers back.
func (c *Coordinator) publish(u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if u.Inventory != nil && u.Inventory.Generation != 0 {
		if u.Inventory.Generation < c.lastGen {
			logging.Get("watcher").Debug("stale scan dropped", "generation", u.Inventory.Generation, "latest", c.lastGen)
			return
		}
		c.lastGen = u.Inventory.Generation
	}
	select {
	case c.changes <- u:
	default:
		select {
		case <-c.changes:
		default:
		}
		c.changes <- u
	}
}

// Changes delivers the result of every scan. Only the latest unread update
// is kept.
func (c *Coordinator) Changes() <-chan Update {
	return c.changes
}

// State returns the current watch state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the watch setup error when Degraded
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setupErr
}

// Close stops watching and pending rescans
func (c *Coordinator) Close() error {
	c.debouncer.Stop()
	c.cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	fsw := c.fsw
	c.mu.Unlock()

	var err error
	if fsw != nil {
		err = fsw.Close()
	}
	c.wg.Wait()

	c.mu.Lock()
	c.state = Unwatched
	c.paths = make(map[string]bool)
	c.mu.Unlock()

	return err
}
