package layoutgraph

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/anima-pipeline/engine/core"
)

// reloadDelay coalesces the burst of events editors produce on save.
const reloadDelay = 100 * time.Millisecond

// Watcher rebuilds the layout graph of a directory whenever one of its TOML
// files changes. Freshly built graphs are delivered on Graphs; failures to
// rebuild on Errors. The previous graph stays valid on failure.
type Watcher struct {
	dir string

	fsnotify *fsnotify.Watcher
	graphs   chan *Graph
	errors   chan error
	done     chan struct{}

	mutex    sync.Mutex
	isClosed bool
	wg       sync.WaitGroup
}

func NewWatcher(dir string) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating layout watcher")
	}
	if err := fsWatch.Add(dir); err != nil {
		fsWatch.Close()
		return nil, errors.Wrapf(err, "watching %s", dir)
	}

	w := &Watcher{
		dir:      dir,
		fsnotify: fsWatch,
		graphs:   make(chan *Graph, 1),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.start()
	return w, nil
}

func (w *Watcher) Graphs() <-chan *Graph {
	return w.graphs
}

func (w *Watcher) Errors() <-chan error {
	return w.errors
}

func (w *Watcher) Close() error {
	w.mutex.Lock()
	if w.isClosed {
		w.mutex.Unlock()
		return errors.New("layout watcher already closed")
	}
	w.isClosed = true
	w.mutex.Unlock()

	close(w.done)
	w.wg.Wait()
	return nil
}

func (w *Watcher) start() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Ext(e.Name) != ".toml" {
				continue
			}
			if !e.Op.Has(fsnotify.Create) && !e.Op.Has(fsnotify.Write) &&
				!e.Op.Has(fsnotify.Remove) && !e.Op.Has(fsnotify.Rename) {
				continue
			}
			core.LogDebug("layout file %s changed (%s)", e.Name, e.Op)
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())
			w.sendError(err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			w.fsnotify.Close()
			close(w.graphs)
			close(w.errors)
			return
		}
	}
}

func (w *Watcher) reload() {
	g, err := LoadDir(context.Background(), w.dir)
	if err != nil {
		core.LogWarn("reloading layouts from %s failed: %v", w.dir, err)
		w.sendError(err)
		return
	}
	// Keep only the newest graph if the consumer is behind.
	select {
	case <-w.graphs:
	default:
	}
	select {
	case w.graphs <- g:
	case <-w.done:
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}
