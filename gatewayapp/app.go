// Package gatewayapp wires config, the persistence backend, the Redis-
// backed job queue and workspace lock, the in-memory model ports, the
// use-case services, the tool registry/dispatcher, the trace log, and the
// Prometheus metrics into one running application. It is the single place
// that knows about every other package; cli.root calls gatewayapp.New and
// Register/Close it around an Echo server, grounded on the teacher's
// cli.RootCmd building its queue/db/tracer collaborators directly in
// runServe.
package gatewayapp

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"

	"github.com/cubeforge/gateway/config"
	"github.com/cubeforge/gateway/db"
	"github.com/cubeforge/gateway/dispatch"
	"github.com/cubeforge/gateway/mcp"
	"github.com/cubeforge/gateway/metrics"
	"github.com/cubeforge/gateway/persistence/boltstore"
	"github.com/cubeforge/gateway/persistence/couchstore"
	"github.com/cubeforge/gateway/pipeline"
	"github.com/cubeforge/gateway/ports"
	memoryports "github.com/cubeforge/gateway/ports/memory"
	"github.com/cubeforge/gateway/project"
	"github.com/cubeforge/gateway/registry"
	"github.com/cubeforge/gateway/services"
	"github.com/cubeforge/gateway/storage"
	"github.com/cubeforge/gateway/trace"
)

// App bundles every long-lived component the gateway owns, so main.go
// (via cli.root) has exactly one object to Register on an Echo instance
// and Close on shutdown.
type App struct {
	cfg *config.Config
	log *logrus.Entry

	redis *redis.Client

	bolt  *boltstore.Store
	couch *couchstore.Store

	pipelineState *pipeline.WorkspacePipelineState
	jobs          *pipeline.JobQueue
	events        *pipeline.EventLog
	pg            *db.PostgresDB

	sessions *mcp.SessionStore
	router   *mcp.Router
	metrics  *metrics.Metrics

	traceStore *trace.LogStore
	flush      *trace.FlushScheduler

	worker *jobWorker
}

// New builds every component and wires them together; it performs network
// dialing (Redis, and the configured persistence backend) but does not yet
// start accepting HTTP traffic — that happens in Register.
func New(cfg *config.Config, log *logrus.Entry) (*App, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	app := &App{cfg: cfg, log: log, redis: redisClient}

	persist, err := app.buildPersistence()
	if err != nil {
		return nil, err
	}

	var pg *db.PostgresDB
	if cfg.PostgresDSN != "" {
		pg, err = db.NewPostgresDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
	}
	app.pg = pg

	var events *pipeline.EventLog
	if pg != nil {
		events = pipeline.NewEventLog(pg)
		if err := events.EnsureSchema(context.Background()); err != nil {
			return nil, fmt.Errorf("ensure event schema: %w", err)
		}
	} else {
		events = pipeline.NewInMemoryEventLog(0)
	}
	app.events = events

	lock := pipeline.NewLock(redisClient, "gateway:")
	app.pipelineState = pipeline.NewWorkspacePipelineState(persist, lock)
	app.jobs = pipeline.NewJobQueue(redisClient, "gateway:jobs:", events)

	editor := memoryports.New()
	formats := memoryports.NewFormats()
	renderer := memoryports.NewRenderer()
	exporter := memoryports.NewExporter("native_fbx", "native_obj")

	var tmpStore ports.TmpStore
	if cfg.S3Bucket != "" {
		s3Store, err := storage.Open(context.Background(), storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("open s3 artifact store: %w", err)
		}
		tmpStore = s3Store
	} else {
		tmpStore = memoryports.NewTmpStore()
	}

	limits := services.DefaultLimits()

	svc := dispatch.Services{
		Project:    services.NewProject(editor, editor, formats),
		Model:      services.NewModel(editor, editor, limits),
		Texture:    services.NewTexture(editor, editor, limits),
		Animation:  services.NewAnimation(editor, editor, limits),
		Export:     services.NewExport(editor, exporter, tmpStore),
		Render:     services.NewRender(editor, renderer),
		Validation: services.NewValidation(editor),
	}

	reg := registry.Default()
	revisions := project.NewRevisionStore(cfg.RevisionCacheSize)
	revSource := &revisionSource{snap: editor}

	logStore := trace.NewLogStore(cfg.TraceMaxEntries, cfg.TraceMaxBytes)
	recorder := trace.NewRecorder(logStore, cfg.PluginVersion, nil)
	flush := trace.NewFlushScheduler(logStore, trace.NewFileWriter("gateway-trace.ndjson"), cfg.TraceFlushEvery, cfg.TraceFlushInterval, log.WithField("component", "trace"))
	app.traceStore = logStore
	app.flush = flush

	dispatcher := dispatch.New(reg, dispatch.BuiltinHandlers(svc), revisions, revSource, editor, newTracingSink(recorder, flush))

	m := metrics.New(cfg.MetricsNamespace)
	app.metrics = m

	sessions := mcp.NewSessionStore(cfg.SessionTTL)
	app.sessions = sessions

	worker := newJobWorker(app.jobs, sessions, app.pipelineState, events, m, log.WithField("component", "job_worker"))
	worker.start()
	app.worker = worker

	app.router = mcp.NewRouter(mcp.Config{
		Registry:      reg,
		Dispatcher:    dispatcher,
		Sessions:      sessions,
		Formats:       formats,
		Snapshot:      editor,
		Persist:       newPersistSink(app.jobs, log.WithField("component", "persist")),
		Limits:        limits,
		PluginVersion: cfg.PluginVersion,
		Flush:         flush,
		Log:           log.WithField("component", "mcp"),
	})

	return app, nil
}

func (a *App) buildPersistence() (ports.Persistence, error) {
	switch a.cfg.PersistenceBackend {
	case "bolt":
		store, err := boltstore.Open(a.cfg.BoltPath, a.log.WithField("component", "boltstore"))
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		a.bolt = store
		return store, nil
	case "couch":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := couchstore.Open(ctx, a.cfg.CouchURL, a.cfg.CouchDatabase)
		if err != nil {
			return nil, fmt.Errorf("open couch store: %w", err)
		}
		a.couch = store
		return store, nil
	case "memory", "":
		return memoryports.NewPersistence(), nil
	default:
		return nil, fmt.Errorf("unknown persistence backend: %q", a.cfg.PersistenceBackend)
	}
}

// Register mounts the MCP surface, the Prometheus metrics endpoint, and a
// liveness check on e.
func (a *App) Register(e *echo.Echo) {
	a.router.Register(e)
	metrics.Register(e, "/metrics")
	e.GET("/healthz", a.handleHealthz)
}

func (a *App) handleHealthz(c echo.Context) error {
	ts := a.traceStore.StatsReport()
	return c.JSON(200, map[string]interface{}{
		"status": "ok",
		"trace": map[string]interface{}{
			"entries":    ts.Entries,
			"bytes":      ts.HumanBytes,
			"maxEntries": ts.MaxEntries,
			"maxBytes":   ts.HumanMaxBytes,
		},
	})
}

// Close releases every resource New acquired, in roughly reverse order.
func (a *App) Close() error {
	a.worker.Close()
	a.sessions.Shutdown()
	a.flush.Shutdown()
	if a.bolt != nil {
		_ = a.bolt.Close()
	}
	if a.pg != nil {
		a.pg.Close()
	}
	a.redis.Close()
	return nil
}
