package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// settleDelay is how long the file must stay quiet before a reload. Editors
// emit several events for a single save.
const settleDelay = 100 * time.Millisecond

// OnReload receives the configuration before and after a reload.
type OnReload func(old, updated *Config)

// Watcher reloads the config file whenever it changes on disk and hands the
// result to registered callbacks. A file that fails to load or validate is
// logged and ignored; the previous configuration stays active.
type Watcher struct {
	fsw    *fsnotify.Watcher
	path   string
	logger zerolog.Logger

	mu        sync.Mutex
	listeners []OnReload

	stop     chan struct{}
	stopOnce sync.Once
}

// Watch begins watching path. The parent directory is watched rather than
// the file so that atomic rename-into-place saves are picked up.
func Watch(path string, logger zerolog.Logger) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config watcher: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config watcher: watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		fsw:    fsw,
		path:   abs,
		logger: logger.With().Str("component", "config-watcher").Logger(),
		stop:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// OnChange adds fn to the callbacks run after each successful reload.
func (w *Watcher) OnChange(fn OnReload) {
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	w.mu.Unlock()
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stop)
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) run() {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stop:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(settleDelay)
			} else {
				timer.Reset(settleDelay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) reload() {
	previous := Get()
	updated, err := Load(w.path)
	if err != nil {
		w.logger.Warn().Err(err).Msg("reload failed; keeping current configuration")
		return
	}
	w.logger.Info().Str("path", w.path).Int("providers", len(updated.Providers)).Msg("configuration file reloaded")

	w.mu.Lock()
	listeners := append([]OnReload(nil), w.listeners...)
	w.mu.Unlock()

	for _, fn := range listeners {
		w.notify(fn, previous, updated)
	}
}

func (w *Watcher) notify(fn OnReload, previous, updated *Config) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().Interface("panic", r).Msg("reload callback panicked")
		}
	}()
	fn(previous, updated)
}
