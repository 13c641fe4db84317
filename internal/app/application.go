package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"rollcall/internal/api"
	"rollcall/internal/config"
	"rollcall/internal/picker"
	"rollcall/internal/roster"
	"rollcall/internal/session"
	"rollcall/internal/storage"
	"rollcall/internal/websocket"
	"rollcall/pkg/interfaces"
)

// limiterCleanupInterval is how often idle rate limit entries are swept
const limiterCleanupInterval = time.Minute

// Application coordinates all system components
// Clean dependency injection pattern with proper initialization order
type Application struct {
	config         *config.Config
	store          interfaces.Storage
	rosters        *roster.Manager
	sessionManager *session.Manager
	registry       *websocket.Registry
	limiter        *api.RateLimiter
	apiServer      *api.Server
	httpServer     *http.Server

	listener net.Listener
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// OpenStorage builds the roster store selected by cfg.Storage.Backend
func OpenStorage(cfg *config.Config) (interfaces.Storage, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		store, err := storage.NewSQLiteStore(cfg.Database())
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		return store, nil
	case config.BackendFile:
		store, err := storage.NewFileStore(cfg.Storage.Directory)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// NewApplication creates a new application instance with all components initialized
// Component initialization follows strict dependency order:
// Storage → Rosters → Sessions → Registry → API → HTTP
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// Validate configuration before component initialization
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// STEP 1: Open roster storage (foundation layer)
	store, err := OpenStorage(cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("Roster storage ready: backend=%s", cfg.Storage.Backend)

	// STEP 2: Roster manager owns persistence and the picker
	rosters := roster.NewManager(store, picker.New())

	// STEP 3: In-memory classroom sessions
	sessionManager := session.NewManager()

	// STEP 4: WebSocket registry for display connections
	registry := websocket.NewRegistry()

	// STEP 5: API server with per-session rate limiting
	limiter := api.NewRateLimiter(cfg.HTTP.SessionRateLimit, time.Minute)
	apiServer := api.NewServer(rosters, sessionManager, registry, limiter)

	// STEP 6: WebSocket handler for displays
	wsHandler := websocket.NewHandler(registry, sessionManager, websocket.HandlerConfig{
		PingInterval: cfg.WebSocket.PingInterval,
		ReadTimeout:  cfg.WebSocket.ReadTimeout,
		WriteTimeout: cfg.WebSocket.WriteTimeout,
	})

	// STEP 7: Setup HTTP server with both API and WebSocket endpoints
	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:         cfg,
		store:          store,
		rosters:        rosters,
		sessionManager: sessionManager,
		registry:       registry,
		limiter:        limiter,
		apiServer:      apiServer,
		httpServer:     httpServer,
		stopCh:         make(chan struct{}),
	}, nil
}

// Start begins application execution
// The listener is bound before returning so callers can rely on GetAddr
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting rollcall on %s", app.httpServer.Addr)

	// STEP 1: Bind the listener (fails fast on a busy port)
	listener, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.httpServer.Addr, err)
	}
	app.listener = listener

	// STEP 2: Background maintenance
	app.wg.Add(1)
	go app.cleanupLoop()

	// STEP 3: Serve HTTP
	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Verify server is ready before returning
	select {
	case err := <-serverErrCh:
		app.stopBackground()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("rollcall started successfully on %s", listener.Addr())
		return nil
	case <-ctx.Done():
		app.stopBackground()
		return ctx.Err()
	}
}

// cleanupLoop sweeps idle rate limit entries until Stop
func (app *Application) cleanupLoop() {
	defer app.wg.Done()

	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := app.limiter.Cleanup(); removed > 0 {
				log.Printf("Rate limiter cleanup removed %d idle sessions", removed)
			}
		case <-app.stopCh:
			return
		}
	}
}

func (app *Application) stopBackground() {
	select {
	case <-app.stopCh:
	default:
		close(app.stopCh)
	}
	app.wg.Wait()
}

// Stop gracefully shuts down the application
// Reverse dependency order: HTTP → displays → background → storage
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down rollcall")

	// STEP 1: Stop accepting new requests
	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// STEP 2: Close display connections, which Shutdown does not track
	for _, sess := range app.sessionManager.ListSessions() {
		app.registry.CloseSession(sess.ID)
	}

	// STEP 3: Stop background maintenance
	app.stopBackground()

	// STEP 4: Close storage
	if err := app.store.Close(); err != nil {
		log.Printf("Storage shutdown error: %v", err)
	}

	log.Printf("rollcall shutdown complete")
	return nil
}

// GetAddr returns the bound address once started, else the configured one
func (app *Application) GetAddr() string {
	if app.listener != nil {
		return app.listener.Addr().String()
	}
	return app.httpServer.Addr
}

// Handler exposes the HTTP handler for in-process tests
func (app *Application) Handler() http.Handler {
	return app.httpServer.Handler
}
