// Package archive stores raw report bytes for audit and replay. Archival
// is never on the ingestion critical path: both sinks are best-effort.
package archive

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Sink writes an object and returns a reference usable for later replay.
type Sink interface {
	Store(ctx context.Context, key string, data []byte) (string, error)
}

// DirSink archives into a directory tree partitioned by report date.
type DirSink struct {
	root string
}

func NewDirSink(root string) *DirSink { return &DirSink{root: root} }

func (d *DirSink) Store(_ context.Context, key string, data []byte) (string, error) {
	dir := filepath.Join(d.root, filepath.Dir(key))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(d.root, key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Dual issues one write to the primary sink and one to the long-term
// sink concurrently, waits for both, and never fails: an unreachable
// sink logs and yields a nil reference.
type Dual struct {
	primary   Sink
	secondary Sink
}

func NewDual(primary, secondary Sink) *Dual {
	return &Dual{primary: primary, secondary: secondary}
}

// Refs are the archival references from one Store call. Nil fields mean
// the corresponding write failed or the sink was not configured.
type Refs struct {
	Primary  *string
	LongTerm *string
}

// Store archives data under date/<uuid>_<filename> in both sinks.
// onFailure is invoked once per failed write (may be nil).
func (d *Dual) Store(ctx context.Context, date, filename string, data []byte, onFailure func()) Refs {
	key := fmt.Sprintf("%s/%s_%s", date, uuid.New().String(), filename)
	var refs Refs
	var wg sync.WaitGroup
	write := func(sink Sink, label string, out **string) {
		defer wg.Done()
		if sink == nil {
			return
		}
		ref, err := sink.Store(ctx, key, data)
		if err != nil {
			log.Printf("archive %s failed for %s: %v", label, filename, err)
			if onFailure != nil {
				onFailure()
			}
			return
		}
		*out = &ref
	}
	wg.Add(2)
	go write(d.primary, "primary", &refs.Primary)
	go write(d.secondary, "longterm", &refs.LongTerm)
	wg.Wait()
	return refs
}
