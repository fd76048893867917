package yamlconnector

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 150 * time.Millisecond

// Watcher calls onChange after profile files in a directory are written, created, renamed or
// removed. Bursts of events collapse into one call.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce *time.Timer
	mu       sync.Mutex
	onChange func()
	onError  func(error)
	done     chan struct{}
	stopOnce sync.Once
}

func NewWatcher(dirPath string, onChange func(), onError func(error)) (*Watcher, error) {
	trimmed := strings.TrimSpace(dirPath)
	if trimmed == "" {
		return nil, fmt.Errorf("profiles dir is required")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create profiles watcher: %w", err)
	}
	if err := fsw.Add(trimmed); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", trimmed, err)
	}

	w := &Watcher{
		watcher:  fsw,
		onChange: onChange,
		onError:  onError,
		done:     make(chan struct{}),
	}
	go w.run()

	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isProfileFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}

	w.debounce = time.AfterFunc(reloadDebounce, func() {
		if w.onChange != nil {
			w.onChange()
		}
	})
}

func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()

		w.mu.Lock()
		if w.debounce != nil {
			w.debounce.Stop()
		}
		w.mu.Unlock()
	})
}
