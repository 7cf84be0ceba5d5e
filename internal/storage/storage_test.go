package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/friendgraph/backend/internal/config"
)

func TestDirStorageSave(t *testing.T) {
	root := t.TempDir()
	store := NewDirStorage(root)

	path, err := store.Save(context.Background(), "../snapshots/graph.json", strings.NewReader(`{"users":[]}`))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if want := filepath.Join(root, "snapshots", "graph.json"); path != want {
		t.Fatalf("expected %s got %s", want, path)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(contents) != `{"users":[]}` {
		t.Fatalf("unexpected contents %s", contents)
	}

	if _, err := store.Save(context.Background(), "/", strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestNewS3StorageRequiresBucket(t *testing.T) {
	if _, err := NewS3Storage(context.Background(), config.ObjectStoreConfig{}); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestNewS3StorageWithEndpoint(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	store, err := NewS3Storage(context.Background(), config.ObjectStoreConfig{
		Bucket:   "snapshots",
		Endpoint: "http://localhost:9000",
		Region:   "us-east-1",
	})
	if err != nil {
		t.Fatalf("new s3 storage: %v", err)
	}
	if store.bucket != "snapshots" {
		t.Fatalf("unexpected bucket %q", store.bucket)
	}
}
