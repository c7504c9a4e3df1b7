package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gocloud.dev/blob"
)

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := blob.OpenBucket(ctx, "file://localhost/"+dir)
	if err != nil {
		t.Fatalf("couldn't open a local filesystem bucket: %v", err)
	}
	defer b.Close()

	for _, key := range []string{"traces/old", "traces/new", "other/old"} {
		if err := b.WriteAll(ctx, key, []byte("{}"), nil); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-48 * time.Hour)
	for _, key := range []string{"traces/old", "other/old"} {
		if err := os.Chtimes(filepath.Join(dir, key), old, old); err != nil {
			t.Fatal(err)
		}
	}

	deleted, err := cleanup(ctx, b, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted trace, got %d", deleted)
	}

	tests := []struct {
		key    string
		exists bool
	}{
		{key: "traces/old", exists: false},
		{key: "traces/new", exists: true},
		{key: "other/old", exists: true},
	}
	for _, test := range tests {
		exists, err := b.Exists(ctx, test.key)
		if err != nil {
			t.Fatal(err)
		}
		if exists != test.exists {
			t.Fatalf("%s: expected exists=%v, got %v", test.key, test.exists, exists)
		}
	}
}
