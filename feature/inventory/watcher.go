package inventory

import (
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Debouncer coalesces bursts of triggers into a single delayed invocation of
// fn. Each Trigger (re)starts the delay timer; fn runs only after the delay
// elapses with no further triggers.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	fn    func()
}

// NewDebouncer creates a debouncer around fn.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger restarts the delay timer.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels any pending invocation.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Watcher observes server-mounted roots for filesystem changes and feeds a
// debounced rescan trigger. Directories created under a watched root are
// added to the watch on the fly, since fsnotify itself is not recursive.
type Watcher struct {
	roots    []string
	debounce *Debouncer
	logger   *zap.Logger

	fsw  *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher creates a watcher over the given roots. rescan runs after the
// debounce delay; overlap suppression is the caller's concern.
func NewWatcher(roots []string, delay time.Duration, rescan func(), logger *zap.Logger) *Watcher {
	return &Watcher{
		roots:    roots,
		debounce: NewDebouncer(delay, rescan),
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins watching. Roots that cannot be watched are logged and skipped.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	for _, root := range w.roots {
		w.addTree(root)
	}

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop ends the watch and cancels any pending rescan.
func (w *Watcher) Stop() {
	close(w.done)
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	w.debounce.Stop()
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) {
				// New directories need their own watch.
				w.addTree(ev.Name)
			}
			w.debounce.Trigger()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// addTree watches path and, if it is a directory, everything beneath it.
func (w *Watcher) addTree(path string) {
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if aerr := w.fsw.Add(p); aerr != nil {
			w.logger.Warn("failed to watch directory", zap.String("path", p), zap.Error(aerr))
		}
		return nil
	})
}
