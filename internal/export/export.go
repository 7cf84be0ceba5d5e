// Package export writes point-in-time snapshots of the friend graph.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/friendgraph/backend/internal/logging"
	"github.com/friendgraph/backend/internal/repositories"
)

// Sink persists an encoded snapshot under name and returns its location.
type Sink interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// Snapshot is a consistent view of users, pending requests and friendships.
type Snapshot struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Users       []UserRecord       `json:"users"`
	Requests    []RequestRecord    `json:"requests"`
	Friendships []FriendshipRecord `json:"friendships"`
}

type UserRecord struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

type RequestRecord struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Applicant string    `json:"applicant"`
	CreatedAt time.Time `json:"createdAt"`
}

type FriendshipRecord struct {
	ID        string    `json:"id"`
	User1     string    `json:"user1"`
	User2     string    `json:"user2"`
	CreatedAt time.Time `json:"createdAt"`
}

// Exporter reads the graph in a single transaction and hands the encoded
// snapshot to a Sink.
type Exporter struct {
	store repositories.GraphStore
	sink  Sink
	now   func() time.Time
}

// NewExporter constructs an Exporter.
func NewExporter(store repositories.GraphStore, sink Sink) *Exporter {
	return &Exporter{
		store: store,
		sink:  sink,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Snapshot collects the current graph.
func (e *Exporter) Snapshot(ctx context.Context) (Snapshot, error) {
	snapshot := Snapshot{
		GeneratedAt: e.now(),
		Users:       []UserRecord{},
		Requests:    []RequestRecord{},
		Friendships: []FriendshipRecord{},
	}

	err := e.store.WithinTx(ctx, func(ctx context.Context, tx repositories.GraphTx) error {
		// Retried transactions start over from an empty snapshot.
		snapshot.Users = snapshot.Users[:0]
		snapshot.Requests = snapshot.Requests[:0]
		snapshot.Friendships = snapshot.Friendships[:0]

		users, err := tx.ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		for _, user := range users {
			snapshot.Users = append(snapshot.Users, UserRecord{ID: user.ID, Username: user.Username, CreatedAt: user.CreatedAt})
		}

		requests, err := tx.ListFriendRequests(ctx, repositories.RequestFilter{})
		if err != nil {
			return fmt.Errorf("list friend requests: %w", err)
		}
		for _, request := range requests {
			snapshot.Requests = append(snapshot.Requests, RequestRecord{
				ID:        request.ID,
				User:      request.Username,
				Applicant: request.ApplicantUsername,
				CreatedAt: request.CreatedAt,
			})
		}

		friendships, err := tx.ListFriendships(ctx, "")
		if err != nil {
			return fmt.Errorf("list friendships: %w", err)
		}
		for _, friendship := range friendships {
			snapshot.Friendships = append(snapshot.Friendships, FriendshipRecord{
				ID:        friendship.ID,
				User1:     friendship.LowUsername,
				User2:     friendship.HighUsername,
				CreatedAt: friendship.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

// Export snapshots the graph and saves it to the sink, returning the location.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	ctx, span := logging.StartSpan(ctx, "export.snapshot")
	defer span.End()

	snapshot, err := e.Snapshot(ctx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snapshot); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	name := fmt.Sprintf("snapshots/friendgraph-%s.json", snapshot.GeneratedAt.Format("20060102T150405Z"))
	location, err := e.sink.Save(ctx, name, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}

	logging.FromContext(ctx).Info("graph snapshot exported",
		"location", location,
		"users", len(snapshot.Users),
		"requests", len(snapshot.Requests),
		"friendships", len(snapshot.Friendships),
	)
	return location, nil
}
