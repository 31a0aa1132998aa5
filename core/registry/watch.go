package registry

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch starts watching a directory of schema documents. Writing or
// creating a schema file in it recompiles and replaces the entry; a
// failed recompile keeps the old entry and is only logged.
func (r *Registry) Watch(dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.watcher != nil {
		return errors.New("registry: already watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	r.watcher = watcher
	r.stopCh = make(chan struct{})
	go r.watchLoop(watcher, r.stopCh)

	r.log.Info().Str("dir", dir).Msg("watching schema directory")
	return nil
}

// OnChange registers a callback invoked after a watched schema document
// reloads successfully.
func (r *Registry) OnChange(fn func(*Entry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// Stop ends directory watching. The registry itself stays usable and a
// new Watch may follow.
func (r *Registry) Stop() {
	r.mu.Lock()
	watcher, stop := r.watcher, r.stopCh
	r.watcher, r.stopCh = nil, nil
	r.mu.Unlock()

	if watcher != nil {
		close(stop)
		watcher.Close()
	}
}

func (r *Registry) watchLoop(watcher *fsnotify.Watcher, stop <-chan struct{}) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if _, ok := formatForExt(filepath.Ext(event.Name)); !ok {
				continue
			}
			// React to write or create (atomic save = create).
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			r.log.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("schema file changed")

			entry, err := r.LoadFile(event.Name)
			if err != nil {
				r.log.Error().Err(err).Str("file", event.Name).Msg("schema reload failed, keeping old schema")
				continue
			}
			r.notify(entry)
			r.log.Info().Str("name", entry.Name).Msg("schema reloaded")

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.log.Error().Err(err).Msg("schema watcher error")

		case <-stop:
			return
		}
	}
}

func (r *Registry) notify(e *Entry) {
	r.mu.RLock()
	listeners := make([]func(*Entry), len(r.onChange))
	copy(listeners, r.onChange)
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn(e)
	}
}
