// Package watch monitors the automated-feed drop directory and runs
// every new export through the ingest queue.
package watch

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"

	"reportflow/internal/config"
	"reportflow/internal/ingest"
	"reportflow/internal/queue"
	"reportflow/internal/reconcile"
	"reportflow/internal/report"
	"reportflow/internal/store"
)

// Watcher monitors REPORTS_DIR for new report exports, ingests them with
// source=automated and reconciles their date.
type Watcher struct {
	cfg      config.Config
	queue    *queue.Queue
	ingestor *ingest.Service
	engine   *reconcile.Engine
}

func New(cfg config.Config, q *queue.Queue, ing *ingest.Service, eng *reconcile.Engine) *Watcher {
	return &Watcher{cfg: cfg, queue: q, ingestor: ing, engine: eng}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.EnableWatcher {
		log.Println("watcher disabled")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
					if w.isReport(evt.Name) {
						w.enqueue(evt.Name)
					}
				}
			case err := <-watcher.Errors:
				log.Printf("watcher error: %v", err)
			}
		}
	}()
	return watcher.Add(w.cfg.ReportsDir)
}

// isReport accepts spreadsheet-export extensions with a classifiable
// filename token.
func (w *Watcher) isReport(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xls", ".xlsx":
	default:
		return false
	}
	return report.Classify(filepath.Base(path)) != ""
}

func (w *Watcher) enqueue(path string) {
	filename := filepath.Base(path)
	ok := w.queue.Enqueue(queue.Job{
		Name: filename,
		Work: func(ctx context.Context) error {
			return w.process(ctx, path)
		},
	})
	if !ok {
		log.Printf("dropped automated ingest for %s", filename)
	}
}

func (w *Watcher) process(ctx context.Context, path string) error {
	filename := filepath.Base(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rec, err := w.ingestor.Ingest(ctx, data, filename, store.SourceAutomated)
	if err != nil {
		// A failed parse is stored for audit; nothing to reconcile.
		if errors.Is(err, ingest.ErrParse) {
			return nil
		}
		return err
	}
	if _, err := w.engine.Reconcile(ctx, rec.ReportDate, []int64{rec.ID}); err != nil {
		return err
	}
	return nil
}

// Backfill enqueues ingest for report files already sitting in the drop
// directory, newest first. Ingestion is idempotent, so re-running over
// already-stored files is harmless.
func (w *Watcher) Backfill(ctx context.Context) error {
	entries, err := os.ReadDir(w.cfg.ReportsDir)
	if err != nil {
		return err
	}
	type candidate struct {
		path string
		mod  int64
	}
	var candidates []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.cfg.ReportsDir, e.Name())
		if !w.isReport(path) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{path: path, mod: info.ModTime().UnixNano()})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].mod > candidates[j].mod })
	for _, c := range candidates {
		w.enqueue(c.path)
	}
	return nil
}
