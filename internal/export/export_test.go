package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/friendgraph/backend/internal/friends"
	"github.com/friendgraph/backend/internal/models"
	"github.com/friendgraph/backend/internal/repositories"
)

type memorySink struct {
	name string
	body []byte
	err  error
}

func (s *memorySink) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.name, s.body = name, body
	return "mem://" + name, nil
}

func seedGraph(t *testing.T, store *repositories.InMemoryStore) {
	t.Helper()
	ctx := context.Background()
	for _, name := range []string{"alice", "bob", "carol"} {
		if err := store.Create(ctx, models.User{ID: models.NewID(), Username: name}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	users := map[string]string{}
	for _, name := range []string{"alice", "bob", "carol"} {
		user, err := store.FindByUsername(ctx, name)
		if err != nil {
			t.Fatalf("find %s: %v", name, err)
		}
		users[name] = user.ID
	}

	service := friends.NewService(store, nil)
	if _, err := service.SendRequest(ctx, users["alice"], "bob"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := service.RespondToRequest(ctx, users["bob"], "alice", true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := service.SendRequest(ctx, users["carol"], "alice"); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestExport(t *testing.T) {
	store := repositories.NewInMemoryStore()
	seedGraph(t, store)

	sink := &memorySink{}
	exporter := NewExporter(store, sink)
	exporter.now = func() time.Time { return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC) }

	location, err := exporter.Export(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if location != "mem://snapshots/friendgraph-20240301T120000Z.json" {
		t.Fatalf("unexpected location %s", location)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(sink.body, &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snapshot.Users) != 3 {
		t.Fatalf("expected 3 users got %d", len(snapshot.Users))
	}
	if len(snapshot.Requests) != 1 || snapshot.Requests[0].User != "carol" || snapshot.Requests[0].Applicant != "alice" {
		t.Fatalf("unexpected requests %+v", snapshot.Requests)
	}
	if len(snapshot.Friendships) != 1 {
		t.Fatalf("expected one friendship got %+v", snapshot.Friendships)
	}
	pair := map[string]bool{snapshot.Friendships[0].User1: true, snapshot.Friendships[0].User2: true}
	if !pair["alice"] || !pair["bob"] {
		t.Fatalf("unexpected friendship %+v", snapshot.Friendships[0])
	}
}

func TestExportEmptyGraph(t *testing.T) {
	sink := &memorySink{}
	snapshot, err := NewExporter(repositories.NewInMemoryStore(), sink).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.Users == nil || snapshot.Requests == nil || snapshot.Friendships == nil {
		t.Fatal("expected empty slices so the encoded snapshot has arrays")
	}
}

func TestExportSinkFailure(t *testing.T) {
	boom := errors.New("bucket unavailable")
	exporter := NewExporter(repositories.NewInMemoryStore(), &memorySink{err: boom})
	if _, err := exporter.Export(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected sink error got %v", err)
	}
}
