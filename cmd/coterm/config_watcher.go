package main

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/coterm/coterm/internal/config"
	"github.com/coterm/coterm/internal/hub"
)

// ConfigWatcher hot-reloads the server config file. Only the lobby capacity
// takes effect at runtime (applied to lobbies created from then on, routed
// through the hub so the single-writer rule holds); other fields need a
// restart and a change to them is just logged.
type ConfigWatcher struct {
	mu         sync.Mutex
	watcher    *fsnotify.Watcher
	done       chan struct{}
	configPath string
	hub        *hub.Hub
	lastCap    int
}

// NewConfigWatcher watches the directory containing configPath. Watching
// the directory instead of the file survives editors that replace the file
// on save.
func NewConfigWatcher(configPath string, currentCapacity int, h *hub.Hub) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	dir := filepath.Dir(configPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	cw := &ConfigWatcher{
		watcher:    watcher,
		done:       make(chan struct{}),
		configPath: configPath,
		hub:        h,
		lastCap:    currentCapacity,
	}
	go cw.watchLoop()

	log.Printf("INFO: Watching %s for config changes (auto-reload enabled)", configPath)
	return cw, nil
}

// Stop stops the watcher. Safe to call more than once.
func (cw *ConfigWatcher) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.watcher == nil {
		return
	}
	close(cw.done)
	cw.watcher.Close()
	cw.watcher = nil
	log.Printf("INFO: Config watcher stopped")
}

func (cw *ConfigWatcher) watchLoop() {
	// Debounce rapid successive writes from editors.
	var debounce *time.Timer
	const debounceDelay = 500 * time.Millisecond

	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Name != cw.configPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, cw.reload)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ERROR: Config watcher error: %v", err)

		case <-cw.done:
			return
		}
	}
}

func (cw *ConfigWatcher) reload() {
	cfg, err := config.Load(cw.configPath)
	if err != nil {
		log.Printf("ERROR: Config reload failed, keeping previous values: %v", err)
		return
	}

	cw.mu.Lock()
	changed := cfg.LobbyCapacity != cw.lastCap
	cw.lastCap = cfg.LobbyCapacity
	cw.mu.Unlock()

	if changed {
		cw.hub.Send(hub.SetLobbyCapacity{Capacity: cfg.LobbyCapacity})
		log.Printf("INFO: Reloaded config. New lobbies will hold %d players.", cfg.LobbyCapacity)
	} else {
		log.Printf("INFO: Reloaded config. No runtime-applicable changes.")
	}
}
