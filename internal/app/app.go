// Package app orchestrates all components of pathwatch.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pathwatch/pathwatch/internal/adapters/journal"
	"github.com/pathwatch/pathwatch/internal/adapters/watcher"
	"github.com/pathwatch/pathwatch/internal/config"
	"github.com/pathwatch/pathwatch/internal/domain/events"
	"github.com/pathwatch/pathwatch/internal/hub"
	"github.com/pathwatch/pathwatch/internal/server/websocket"
)

// App is the main application struct that orchestrates all components.
type App struct {
	cfg     *config.Config
	version string

	// Core components
	eventHub *hub.Hub
	engine   *watcher.Watcher
	journal  *journal.Journal
	wsServer *websocket.Server

	startTime time.Time

	// Lifecycle
	mu      sync.RWMutex
	running bool
}

// New creates a new App instance.
func New(cfg *config.Config, version string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	return &App{
		cfg:      cfg,
		version:  version,
		eventHub: hub.New(),
	}, nil
}

// Hub returns the application event hub.
func (a *App) Hub() *hub.Hub {
	return a.eventHub
}

// Start starts the application and blocks until the context is cancelled.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("application is already running")
	}
	a.running = true
	a.startTime = time.Now()
	a.mu.Unlock()

	if err := a.eventHub.Start(); err != nil {
		return fmt.Errorf("failed to start event hub: %w", err)
	}

	// Journal published events for replay
	if a.cfg.Journal.Enabled {
		j, err := journal.Open(a.cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("failed to open event journal: %w", err)
		}
		a.journal = j
		a.eventHub.Subscribe(hub.NewJournalSubscriber("event-journal", j.Append))
		go a.pruneLoop(ctx)
	}

	if err := a.startEngine(); err != nil {
		return err
	}

	if a.cfg.Server.Enabled {
		var recent websocket.RecentProvider
		if a.journal != nil {
			recent = a.journal
		}
		a.wsServer = websocket.NewServer(a.cfg.Server.Host, a.cfg.Server.Port, a.eventHub, recent)
		if err := a.wsServer.Start(); err != nil {
			return fmt.Errorf("failed to start WebSocket server: %w", err)
		}
	}

	log.Info().
		Str("version", a.version).
		Int("roots", len(a.cfg.Roots)).
		Msg("pathwatch started")

	<-ctx.Done()

	return a.shutdown()
}

// startEngine creates the watch engine and registers the configured roots.
func (a *App) startEngine() error {
	settle := time.Duration(a.cfg.Watcher.SettleMS) * time.Millisecond
	if settle <= 0 {
		settle = watcher.DefaultSettleDelay
	}

	engine, err := watcher.New(
		watcher.WithName("pathwatch"),
		watcher.WithSettleDelay(settle),
	)
	if err != nil {
		return fmt.Errorf("failed to create watch engine: %w", err)
	}
	a.engine = engine

	for _, root := range a.cfg.Roots {
		compiled, err := root.Compile()
		if err != nil {
			_ = engine.Close()
			return fmt.Errorf("invalid root %s: %w", root.Path, err)
		}

		listener := a.publishListener(root.Path)
		if err := engine.Watch(root.Path, listener, compiled); err != nil {
			_ = engine.Close()
			return fmt.Errorf("failed to watch %s: %w", root.Path, err)
		}

		a.eventHub.Publish(events.NewWatchStartedEvent(root.Path, compiled.MaxDepth))
		log.Info().
			Str("root", root.Path).
			Int("max_depth", compiled.MaxDepth).
			Msg("watching root")
	}

	return nil
}

// publishListener bridges engine events for one root onto the hub.
func (a *App) publishListener(root string) watcher.ListenerFunc {
	return func(e watcher.Event) {
		a.eventHub.Publish(events.NewFileChangedEvent(
			root,
			e.Path,
			events.FileChangeType(e.Type),
		))
	}
}

// pruneLoop periodically trims old journal entries.
func (a *App) pruneLoop(ctx context.Context) {
	retention := time.Duration(a.cfg.Journal.RetentionHours) * time.Hour
	if retention <= 0 {
		return
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		if removed, err := a.journal.Prune(retention); err != nil {
			log.Warn().Err(err).Msg("journal prune failed")
		} else if removed > 0 {
			log.Debug().Int64("removed", removed).Msg("journal pruned")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// shutdown performs graceful shutdown of all components.
func (a *App) shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}
	a.running = false

	log.Info().Msg("shutting down...")

	for _, root := range a.cfg.Roots {
		a.eventHub.Publish(events.NewWatchStoppedEvent(root.Path))
	}

	// Give events time to be delivered
	time.Sleep(100 * time.Millisecond)

	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			log.Error().Err(err).Msg("error closing watch engine")
		}
	}

	if a.wsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.wsServer.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error stopping WebSocket server")
		}
		cancel()
	}

	if err := a.eventHub.Stop(); err != nil {
		log.Error().Err(err).Msg("error stopping event hub")
	}

	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event journal")
		}
	}

	return nil
}

// IsRunning reports whether the app is running.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// GetUptimeSeconds returns the uptime in seconds.
func (a *App) GetUptimeSeconds() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.startTime.IsZero() {
		return 0
	}
	return int64(time.Since(a.startTime).Seconds())
}
