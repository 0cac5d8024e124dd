package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Manager owns the thresholds file and hot-reloads it when an operator
// edits it on disk.
type Manager struct {
	path         string
	mu           sync.RWMutex
	thresholds   Thresholds
	watcher      *fsnotify.Watcher
	debounce     time.Duration
	onChange     func(Thresholds)
	suppressSelf atomic.Bool
}

type managerOptions struct {
	path     string
	initial  *Thresholds
	debounce time.Duration
}

type ManagerOption func(*managerOptions)

func WithThresholdsPath(path string) ManagerOption {
	return func(o *managerOptions) { o.path = path }
}

func WithThresholdsDir(dir string) ManagerOption {
	return func(o *managerOptions) { o.path = filepath.Join(dir, "thresholds.json") }
}

func WithInitialThresholds(t Thresholds) ManagerOption {
	return func(o *managerOptions) { o.initial = &t }
}

func NewManager(opts ...ManagerOption) (*Manager, error) {
	options := managerOptions{
		debounce: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&options)
	}

	path := options.path
	if path == "" {
		var err error
		path, err = defaultThresholdsPath()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create thresholds dir: %w", err)
	}

	t, err := loadOrCreateThresholds(path, options)
	if err != nil {
		return nil, err
	}

	return &Manager{
		path:       path,
		thresholds: t,
		debounce:   options.debounce,
	}, nil
}

func (m *Manager) Get() Thresholds {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.thresholds
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) UpdateFromJSON(jsonStr string) error {
	var t Thresholds
	if err := json.Unmarshal([]byte(jsonStr), &t); err != nil {
		return fmt.Errorf("parse thresholds json: %w", err)
	}
	return m.Update(t)
}

func (m *Manager) Update(t Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}

	m.mu.RLock()
	current := m.thresholds
	m.mu.RUnlock()
	if reflect.DeepEqual(current, t) {
		return nil
	}

	m.suppressSelf.Store(true)
	defer time.AfterFunc(m.debounce, func() { m.suppressSelf.Store(false) })

	if err := writeThresholdsFile(m.path, t); err != nil {
		m.suppressSelf.Store(false)
		return err
	}

	m.apply(t)
	return nil
}

func (m *Manager) Watch(ctx context.Context, onChange func(Thresholds)) error {
	m.mu.Lock()
	m.onChange = onChange
	if m.watcher != nil {
		m.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.watcher = watcher
	debounce := m.debounce
	path := m.path
	m.mu.Unlock()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch thresholds dir: %w", err)
	}

	go m.watchLoop(ctx, watcher, path, debounce)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, debounce time.Duration) {
	defer watcher.Close()

	var timerMu sync.Mutex
	var timer *time.Timer
	trigger := func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, m.reloadFromDisk)
		timerMu.Unlock()
	}

	for {
		select {
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !m.isThresholdsEvent(evt, path) {
				continue
			}
			if m.suppressSelf.Load() {
				continue
			}
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				log.Printf("thresholds watcher error: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) isThresholdsEvent(evt fsnotify.Event, path string) bool {
	if filepath.Clean(evt.Name) != filepath.Clean(path) {
		return false
	}
	return evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (m *Manager) reloadFromDisk() {
	var t Thresholds
	if err := loadThresholdsFromFile(m.path, &t); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t = DefaultThresholds()
			if err := writeThresholdsFile(m.path, t); err != nil {
				log.Printf("thresholds recreate failed: %v", err)
				return
			}
		} else {
			log.Printf("thresholds reload failed: %v", err)
			return
		}
	}
	if err := t.Validate(); err != nil {
		log.Printf("thresholds validation failed: %v", err)
		return
	}

	m.mu.RLock()
	current := m.thresholds
	m.mu.RUnlock()
	if reflect.DeepEqual(current, t) {
		return
	}
	m.apply(t)
}

func (m *Manager) apply(t Thresholds) {
	m.mu.Lock()
	m.thresholds = t
	cb := m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(t)
	}
}

func loadOrCreateThresholds(path string, options managerOptions) (Thresholds, error) {
	var t Thresholds
	if _, err := os.Stat(path); err == nil {
		if err := loadThresholdsFromFile(path, &t); err != nil {
			return Thresholds{}, fmt.Errorf("load thresholds: %w", err)
		}
		if err := t.Validate(); err != nil {
			return Thresholds{}, err
		}
		return t, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return Thresholds{}, fmt.Errorf("stat thresholds: %w", err)
	}

	if options.initial != nil {
		t = *options.initial
	} else {
		t = DefaultThresholds()
	}

	if err := t.Validate(); err != nil {
		return Thresholds{}, err
	}

	if err := writeThresholdsFile(path, t); err != nil {
		return Thresholds{}, fmt.Errorf("write initial thresholds: %w", err)
	}

	return t, nil
}
