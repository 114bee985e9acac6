package dashboard

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/zofia/auth"
	"github.com/kbukum/zofia/board"
	"github.com/kbukum/zofia/catalog"
	"github.com/kbukum/zofia/codec"
	"github.com/kbukum/zofia/execution"
	"github.com/kbukum/zofia/logger"
	"github.com/kbukum/zofia/observability"
	"github.com/kbukum/zofia/protocol"
	"github.com/kbukum/zofia/status"
	"github.com/kbukum/zofia/store"
)

// App wires the dashboard core together: the protocol client, the
// coordinators, the local store and the board being edited.
//
// Board edits are expected from a single caller (the UI loop); the
// coordinators update node statuses on their own goroutines only while
// a run is in flight.
type App struct {
	cfg *Config
	log *logger.Logger

	Client    *protocol.Client
	Store     *store.Store
	Graph     *board.Graph
	Execution *execution.Coordinator
	Catalog   *catalog.Syncer
	Auth      *auth.Authenticator

	mu      sync.Mutex
	current board.PipelineRecord

	router         *gin.Engine
	httpServer     *http.Server
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// New builds the application from a validated configuration.
func New(cfg *Config) (*App, error) {
	logger.Init(cfg.Logging)
	logger.RegisterDefaults("dashboard", "protocol", "execution", "catalog", "auth")
	log := logger.Get("dashboard")

	backend, err := store.NewFileBackend(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	st, err := store.New(backend)
	if err != nil {
		return nil, err
	}

	client := protocol.NewClient(cfg.Server, protocol.NewWSDialer(), logger.GetGlobalLogger())
	graph := board.NewGraph()

	app := &App{
		cfg:       cfg,
		log:       log,
		Client:    client,
		Store:     st,
		Graph:     graph,
		Execution: execution.NewCoordinator(client, graph, logger.GetGlobalLogger()),
		Catalog:   catalog.NewSyncer(client, st, logger.GetGlobalLogger()),
		Auth:      auth.NewAuthenticator(client, logger.GetGlobalLogger()),
		current:   board.PipelineRecord{Name: "Untitled board", Meta: map[string]any{}},
	}

	if cfg.Status.Enabled {
		if cfg.Environment == "production" {
			gin.SetMode(gin.ReleaseMode)
		}
		app.router = gin.New()
		app.router.Use(gin.Recovery())
		status.Register(app.router, status.Providers{
			Service:   cfg.Name,
			Version:   cfg.Version,
			Client:    client,
			Execution: app.Execution,
			Catalog:   app.Catalog,
			Auth:      app.Auth,
			Boards:    st,
			Readiness: app.Readiness,
		})
	}

	log.Info("dashboard assembled", logger.Fields(
		"server", cfg.Server.Endpoint(),
		"storage", cfg.Storage.Path,
		"boards", st.Len(),
	))
	return app, nil
}

// StartObservability initializes OTLP tracing and metrics when enabled,
// and attaches frame metrics to the protocol client.
func (a *App) StartObservability(ctx context.Context) error {
	if !a.cfg.Observability.Enabled {
		return nil
	}

	tc := observability.TracerConfig{
		ServiceName:    a.cfg.Name,
		ServiceVersion: a.cfg.Version,
		Environment:    a.cfg.Environment,
		Endpoint:       a.cfg.Observability.Endpoint,
		Insecure:       a.cfg.Observability.Insecure,
		SampleRate:     a.cfg.Observability.SampleRate,
	}
	tp, err := observability.InitTracer(ctx, &tc)
	if err != nil {
		return err
	}
	a.tracerProvider = tp

	mc := observability.DefaultMeterConfig(a.cfg.Name)
	mc.ServiceVersion = a.cfg.Version
	mc.Environment = a.cfg.Environment
	mc.Endpoint = a.cfg.Observability.Endpoint
	mc.Insecure = a.cfg.Observability.Insecure
	mp, err := observability.InitMeter(ctx, &mc)
	if err != nil {
		return err
	}
	a.meterProvider = mp

	pm, err := protocol.NewMetrics(observability.Meter("zofia.protocol"))
	if err != nil {
		return err
	}
	a.Client.SetMetrics(pm)
	return nil
}

// Connect dials the configured server.
func (a *App) Connect(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanServerConnect)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrServiceName, a.cfg.Name)

	if err := a.Client.Connect(ctx); err != nil {
		observability.SetSpanError(ctx, err)
		return err
	}
	return nil
}

// Disconnect closes the server connection.
func (a *App) Disconnect() error {
	return a.Client.Disconnect()
}

// Login authenticates against the connected server.
func (a *App) Login(username, password string) error {
	return a.Auth.Login(username, password)
}

// FetchProfile loads the logged-in user's record from the server.
func (a *App) FetchProfile() error {
	return a.Auth.FetchProfile("")
}

// SyncCatalog requests the remote pipeline catalog.
func (a *App) SyncCatalog(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanCatalogSync)
	defer span.End()

	if err := a.Catalog.Sync(); err != nil {
		observability.SetSpanError(ctx, err)
		return err
	}
	return nil
}

// Run submits the board currently in the editor for execution.
func (a *App) Run(ctx context.Context, params map[string]any) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanPipelineRun)
	defer span.End()

	a.mu.Lock()
	record := a.current.Clone()
	record.Snapshot(a.Graph)
	a.mu.Unlock()
	observability.SetSpanAttribute(ctx, observability.AttrPipelineID, record.ID)

	if err := a.Execution.Run(record, params); err != nil {
		observability.SetSpanError(ctx, err)
		return err
	}
	return nil
}

// RunSaved submits a pipeline stored on the server by id.
func (a *App) RunSaved(ctx context.Context, pipelineID string, params map[string]any) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanPipelineRun)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrPipelineID, pipelineID)

	if err := a.Execution.RunSaved(pipelineID, params); err != nil {
		observability.SetSpanError(ctx, err)
		return err
	}
	return nil
}

// Stop asks the server to halt the running execution.
func (a *App) Stop() error {
	return a.Execution.Stop()
}

// Readiness computes the readiness report for the board in the editor.
func (a *App) Readiness() board.Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return board.ComputeReadiness(a.Graph)
}

// Board returns a snapshot of the board currently in the editor.
func (a *App) Board() board.PipelineRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	record := a.current.Clone()
	record.Snapshot(a.Graph)
	return record
}

// NewBoard clears the editor and starts a fresh unsaved board.
func (a *App) NewBoard(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if name == "" {
		name = "Untitled board"
	}
	a.Graph.Clear()
	a.current = board.PipelineRecord{Name: name, Meta: map[string]any{}}
}

// OpenBoard loads a stored board into the editor. It returns the number
// of edges dropped during hydration.
func (a *App) OpenBoard(id string) (int, error) {
	record, err := a.Store.Get(id)
	if err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	dropped := a.loadLocked(record)
	return dropped, nil
}

// SaveBoard snapshots the editor into the current record and persists
// it, minting an id for first-time saves.
func (a *App) SaveBoard() (board.PipelineRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current.Snapshot(a.Graph)
	saved, err := a.Store.Save(a.current)
	if err != nil {
		return board.PipelineRecord{}, err
	}
	a.current = saved.Clone()
	return saved, nil
}

// DeleteBoard removes a stored board. The editor is untouched.
func (a *App) DeleteBoard(id string) error {
	return a.Store.Delete(id)
}

// ImportBoard parses a serialized board and loads it into the editor as
// an unsaved copy. It returns the number of edges dropped during
// hydration.
func (a *App) ImportBoard(raw string) (int, error) {
	record, err := codec.Parse(raw)
	if err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	// Imported boards save as new entries rather than overwriting the
	// record they were exported from.
	record.ID = ""
	dropped := a.loadLocked(*record)
	return dropped, nil
}

// ExportBoard serializes the board currently in the editor.
func (a *App) ExportBoard() (string, error) {
	a.mu.Lock()
	record := a.current.Clone()
	record.Snapshot(a.Graph)
	a.mu.Unlock()
	return codec.Serialize(record)
}

// loadLocked replaces the editor graph and record with the given board.
func (a *App) loadLocked(record board.PipelineRecord) int {
	g, dropped := record.Graph()
	a.Graph.Clear()
	for _, n := range g.Nodes() {
		_ = a.Graph.AddNode(n)
	}
	for _, e := range g.Edges() {
		_ = a.Graph.AddEdge(e)
	}
	if dropped > 0 {
		a.log.Warn("dropped invalid edges while loading board", logger.Fields(
			logger.FieldPipelineID, record.ID,
			"dropped", dropped,
		))
	}
	a.current = record
	return dropped
}

// ServeStatus starts the HTTP status surface. It returns immediately;
// the server runs until Shutdown.
func (a *App) ServeStatus() {
	if a.router == nil {
		return
	}
	a.httpServer = &http.Server{
		Addr:              a.cfg.Status.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.log.Info("status surface listening", logger.Fields("addr", a.cfg.Status.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.WithError(err).Error("status surface stopped")
		}
	}()
}

// Router exposes the status router, mainly for tests.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Shutdown disconnects from the server and releases everything the app
// started: the status surface and the telemetry providers.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := a.Client.Disconnect(); err != nil && firstErr == nil {
		firstErr = err
	}
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.meterProvider != nil {
		if err := a.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.log.Info("dashboard stopped")
	return firstErr
}
