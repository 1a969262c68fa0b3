package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	domainconfig "trendscout/domain/config"
)

const defaultDebounce = 500 * time.Millisecond

// TunablesWatcher reloads the exploration tunables file when it changes.
// It watches the parent directory so editors that replace the file are seen.
// An invalid file is logged and the previous tunables stay in force.
type TunablesWatcher struct {
	path      string
	holder    *ExplorationConfigHolder
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	debounce  time.Duration
	callbacks []func(*domainconfig.ExplorationConfig)
	mu        sync.Mutex
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once
}

// NewTunablesWatcher starts watching path and feeding holder
func NewTunablesWatcher(path string, holder *ExplorationConfigHolder, logger *zap.Logger) (*TunablesWatcher, error) {
	return newTunablesWatcher(path, holder, logger, defaultDebounce)
}

func newTunablesWatcher(path string, holder *ExplorationConfigHolder, logger *zap.Logger, debounce time.Duration) (*TunablesWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving tunables path: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w := &TunablesWatcher{
		path:     abs,
		holder:   holder,
		logger:   logger,
		watcher:  fsWatcher,
		debounce: debounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go w.watchLoop()

	logger.Info("Exploration tunables hot reloading enabled", zap.String("path", abs))
	return w, nil
}

// OnChange registers a callback run after each successful reload
func (w *TunablesWatcher) OnChange(fn func(*domainconfig.ExplorationConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Close stops the watcher
func (w *TunablesWatcher) Close() error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
	return nil
}

func (w *TunablesWatcher) watchLoop() {
	defer close(w.doneCh)
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.logger.Debug("Tunables file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			w.logger.Info("Stopping tunables watcher")
			return
		}
	}
}

func (w *TunablesWatcher) reload() {
	cfg, err := LoadExplorationConfig(w.path)
	if err != nil {
		w.logger.Error("Invalid exploration tunables after change, keeping previous", zap.Error(err))
		return
	}

	w.holder.Store(cfg)
	w.logger.Info("Exploration tunables reloaded",
		zap.Int("noveltyThreshold", cfg.NoveltyThreshold),
		zap.Int("frontierSize", cfg.FrontierSize),
		zap.Int("maxConcurrency", cfg.MaxConcurrency),
		zap.Int("maxSearches", cfg.MaxSearches),
	)

	w.mu.Lock()
	callbacks := append([]func(*domainconfig.ExplorationConfig){}, w.callbacks...)
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg.Clone())
	}
}
