package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDualStoreWritesBothSinks(t *testing.T) {
	primary := t.TempDir()
	longterm := t.TempDir()
	dual := NewDual(NewDirSink(primary), NewDirSink(longterm))

	refs := dual.Store(context.Background(), "2026-08-29", "agentsummary.csv", []byte("a,b\n1,2\n"), nil)
	if refs.Primary == nil || refs.LongTerm == nil {
		t.Fatalf("refs = %+v, want both set", refs)
	}
	for _, ref := range []string{*refs.Primary, *refs.LongTerm} {
		data, err := os.ReadFile(ref)
		if err != nil {
			t.Fatalf("read archived file: %v", err)
		}
		if string(data) != "a,b\n1,2\n" {
			t.Fatalf("archived content = %q", data)
		}
		if !strings.Contains(ref, "2026-08-29") || !strings.HasSuffix(ref, "_agentsummary.csv") {
			t.Fatalf("ref %s missing date partition or filename suffix", ref)
		}
	}
}

func TestDualStoreToleratesFailedSink(t *testing.T) {
	primary := t.TempDir()
	// A file where the long-term root should be makes MkdirAll fail.
	blocked := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	dual := NewDual(NewDirSink(primary), NewDirSink(blocked))

	failures := 0
	refs := dual.Store(context.Background(), "2026-08-29", "skills.csv", []byte("x"), func() { failures++ })
	if refs.Primary == nil {
		t.Fatal("primary write should succeed")
	}
	if refs.LongTerm != nil {
		t.Fatalf("long-term ref = %s, want nil", *refs.LongTerm)
	}
	if failures != 1 {
		t.Fatalf("onFailure ran %d times, want 1", failures)
	}
}

func TestDualStoreNilSecondary(t *testing.T) {
	primary := t.TempDir()
	dual := NewDual(NewDirSink(primary), nil)

	refs := dual.Store(context.Background(), "2026-08-29", "queues.csv", []byte("x"), nil)
	if refs.Primary == nil {
		t.Fatal("primary write should succeed")
	}
	if refs.LongTerm != nil {
		t.Fatal("nil sink must yield nil ref without failure")
	}
}
