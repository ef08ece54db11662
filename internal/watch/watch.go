// Package watch implements the filesystem watcher spec.md §6 assigns
// to `dino run`: on a change to config.yml, .ts, or .js, rebuild the
// project and swap the live router and worker pool. Debouncing and
// the watcher itself follow bennypowers-cem's
// lsp.InProcessGenerateWatcher (fsnotify.NewWatcher, a single-slot
// debounce timer per event burst, a done channel for clean shutdown).
package watch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/dinoserve/dino/internal/bundler"
	"github.com/dinoserve/dino/internal/buildutil"
	"github.com/dinoserve/dino/internal/config"
	"github.com/dinoserve/dino/internal/engine"
	"github.com/dinoserve/dino/internal/registry"
	"github.com/dinoserve/dino/internal/router"
)

// debounceWindow coalesces the burst of events a single save usually
// produces (write + chmod + sometimes a rename) into one rebuild.
const debounceWindow = 150 * time.Millisecond

// Project describes one tenant directory being watched.
type Project struct {
	Dir         string
	EntryFile   string
	ConfigFile  string
	PoolSize    int
	BundlerOpts bundler.Options

	Router *router.SwappableAppRouter
	Pool   *registry.SwappableWorkerPool
}

// watchedExts are the file extensions whose changes trigger a rebuild.
var watchedExts = map[string]bool{".ts": true, ".js": true}

// isWatched reports whether a changed path should trigger a rebuild:
// config.yml by exact name, or any .ts/.js source file.
func isWatched(p Project, path string) bool {
	if filepath.Base(path) == p.ConfigFile {
		return true
	}
	return watchedExts[strings.ToLower(filepath.Ext(path))]
}

// Watcher watches one or more projects and rebuilds+swaps on change.
type Watcher struct {
	fsw      *fsnotify.Watcher
	projects map[string]*Project // watched dir -> project

	mu      sync.Mutex
	timers  map[string]*time.Timer
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a Watcher and recursively adds every project's Dir to
// the underlying fsnotify watch set.
func New(projects []*Project) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		projects: map[string]*Project{},
		timers:   map[string]*time.Timer{},
		done:     make(chan struct{}),
	}

	for _, p := range projects {
		w.projects[p.Dir] = p
		if err := addRecursive(fsw, p.Dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	return w, nil
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && !strings.Contains(path, string(filepath.Separator)+buildutil.BuildDir) {
			return fsw.Add(path)
		}
		return nil
	})
}

// Start runs the watch loop in a background goroutine.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case ev, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				w.handleEvent(ev)
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				logrus.Warnf("watch error: %v", err)
			case <-w.done:
				return
			}
		}
	}()
}

// Stop halts the watch loop and releases the fsnotify watcher.
func (w *Watcher) Stop() {
	close(w.done)
	w.fsw.Close()
	w.wg.Wait()
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	dir := projectDirFor(w.projects, ev.Name)
	if dir == "" {
		return
	}
	p := w.projects[dir]
	if !isWatched(*p, ev.Name) {
		return
	}

	logrus.Infof("File changed: %s", ev.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[dir]; ok {
		t.Stop()
	}
	w.timers[dir] = time.AfterFunc(debounceWindow, func() {
		rebuild(p)
	})
}

func projectDirFor(projects map[string]*Project, changedPath string) string {
	best := ""
	for dir := range projects {
		if strings.HasPrefix(changedPath, dir) && len(dir) > len(best) {
			best = dir
		}
	}
	return best
}

// rebuild runs buildutil.Build (which reuses the cached bundle when the
// project hash is unchanged) and swaps in a new router and pool. A
// failure here is logged and the currently running router and pool are
// left untouched, per spec.md §7's reload-failure semantics.
func rebuild(p *Project) {
	result, err := buildutil.Build(p.Dir, p.EntryFile, p.ConfigFile, p.BundlerOpts)
	if err != nil {
		logrus.Errorf("rebuild failed: %v", err)
		return
	}

	cfg, err := config.Load(result.ConfigPath)
	if err != nil {
		logrus.Errorf("rebuild failed loading config: %v", err)
		return
	}

	source, err := os.ReadFile(result.ModulePath)
	if err != nil {
		logrus.Errorf("rebuild failed reading bundle: %v", err)
		return
	}

	newPool, err := engine.NewPool(p.PoolSize, string(source))
	if err != nil {
		logrus.Errorf("rebuild failed starting worker pool: %v", err)
		return
	}

	if _, err := p.Router.Swap(cfg.CoreRoutes()); err != nil {
		newPool.Dispose()
		logrus.Errorf("rebuild failed compiling routes: %v", err)
		return
	}
	logrus.Info("Router swapped")

	old := p.Pool.Swap(newPool)
	logrus.Info("Worker Pool swapped")
	old.Dispose()
}
