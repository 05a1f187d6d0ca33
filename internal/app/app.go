package app

import (
	"context"
	"log"
	"net/http"
	"os"

	"reportflow/internal/archive"
	"reportflow/internal/config"
	"reportflow/internal/events"
	"reportflow/internal/httpapi"
	"reportflow/internal/ingest"
	"reportflow/internal/kpi"
	"reportflow/internal/notify"
	"reportflow/internal/queue"
	"reportflow/internal/reconcile"
	"reportflow/internal/report"
	"reportflow/internal/store"
	"reportflow/internal/watch"
)

// App wires the ingestion and reconciliation components together.
type App struct {
	cfg     config.Config
	store   *store.Store
	queue   *queue.Queue
	watcher *watch.Watcher
	mux     *http.ServeMux
}

func New(cfg config.Config) (*App, error) {
	if cfg.EnableWatcher {
		if err := os.MkdirAll(cfg.ReportsDir, 0o755); err != nil {
			return nil, err
		}
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	bus := events.NewBus(64)
	arch := archive.NewDual(archive.NewDirSink(cfg.ArchiveDir), archive.NewDirSink(cfg.LongTermDir))
	ingestor := ingest.NewService(st, report.NewCSVParser(), arch, bus)
	notifier := notify.NewGroupMe(cfg.GroupMeBotID, cfg.GroupMeURL)
	engine := reconcile.NewEngine(st, kpi.NewComputer(), notifier, bus)
	q := queue.New(cfg.QueueSize, cfg.WorkerCount)
	watcher := watch.New(cfg, q, ingestor, engine)
	mux := http.NewServeMux()
	router := httpapi.NewRouter(cfg, st, ingestor, engine, bus, q)
	router.Register(mux)
	return &App{cfg: cfg, store: st, queue: q, watcher: watcher, mux: mux}, nil
}

// Run starts the worker pool, watcher, and HTTP server.
func (a *App) Run(ctx context.Context) error {
	a.queue.Start(ctx)
	if err := a.watcher.Start(ctx); err != nil {
		return err
	}
	if a.cfg.EnableWatcher {
		if err := a.watcher.Backfill(ctx); err != nil {
			log.Printf("backfill: %v", err)
		}
	}
	srv := &http.Server{Addr: a.cfg.HTTPPort, Handler: a.mux}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	log.Printf("http listening on %s", a.cfg.HTTPPort)
	return srv.ListenAndServe()
}

func (a *App) Store() *store.Store { return a.store }
func (a *App) Mux() *http.ServeMux { return a.mux }
