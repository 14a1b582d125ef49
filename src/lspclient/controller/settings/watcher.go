package settings

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watcher reports changes of one file. The parent directory is watched so that editors
// replacing the file atomically are noticed.
type watcher struct {
	watcher  *fsnotify.Watcher
	file     string
	debounce time.Duration
	logger   *zap.SugaredLogger
	onChange func()

	timerMu sync.Mutex
	timer   *time.Timer
	stopped bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func newWatcher(file string, debounce time.Duration, logger *zap.SugaredLogger, onChange func()) (*watcher, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", filepath.Dir(abs), err)
	}

	w := &watcher{
		watcher:  fsw,
		file:     abs,
		debounce: debounce,
		logger:   logger,
		onChange: onChange,
		stopChan: make(chan struct{}),
	}

	w.wg.Add(1)
	go w.watch()
	logger.Infow("watching settings file", "file", abs)
	return w, nil
}

func (w *watcher) watch() {
	defer w.wg.Done()

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.file {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("settings watcher error", zap.Error(err))

		case <-w.stopChan:
			return
		}
	}
}

// schedule delays the callback until no event arrived for the debounce period.
func (w *watcher) schedule() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.logger.Infow("settings file changed", "file", w.file)
		w.onChange()
	})
}

// Close stops watching. Pending callbacks are dropped.
func (w *watcher) Close() error {
	select {
	case <-w.stopChan:
		return nil
	default:
		close(w.stopChan)
	}

	w.wg.Wait()

	w.timerMu.Lock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timerMu.Unlock()

	return w.watcher.Close()
}
