package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/friendgraph/backend/internal/models"
)

func newUser(t *testing.T, store *InMemoryStore, username string) models.User {
	t.Helper()
	user := models.User{ID: models.NewID(), Username: username}
	if err := store.Create(context.Background(), user); err != nil {
		t.Fatalf("create %s: %v", username, err)
	}
	return user
}

func TestInMemoryStoreUsers(t *testing.T) {
	store := NewInMemoryStore()
	alice := newUser(t, store, "alice")

	if err := store.Create(context.Background(), models.User{ID: models.NewID(), Username: "alice"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for duplicate username got %v", err)
	}
	found, err := store.FindByUsername(context.Background(), "alice")
	if err != nil || found.ID != alice.ID {
		t.Fatalf("expected alice got %+v, %v", found, err)
	}
	if _, err := store.FindByUsername(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestInMemoryStoreConstraints(t *testing.T) {
	store := NewInMemoryStore()
	alice := newUser(t, store, "alice")
	bob := newUser(t, store, "bob")

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx GraphTx) error {
		if _, err := tx.CreateFriendRequest(ctx, alice.ID, bob.ID); err != nil {
			t.Fatalf("create request: %v", err)
		}
		if _, err := tx.CreateFriendRequest(ctx, alice.ID, bob.ID); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected duplicate request conflict got %v", err)
		}
		if _, err := tx.CreateFriendRequest(ctx, alice.ID, models.NewID()); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected missing user to fail got %v", err)
		}

		friendship, err := tx.CreateFriendship(ctx, bob.ID, alice.ID)
		if err != nil {
			t.Fatalf("create friendship: %v", err)
		}
		if friendship.UserLow >= friendship.UserHigh {
			t.Fatalf("expected canonical ordering got %+v", friendship)
		}
		if _, err := tx.CreateFriendship(ctx, alice.ID, bob.ID); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected reversed pair to conflict got %v", err)
		}

		listed, err := tx.ListFriendships(ctx, bob.ID)
		if err != nil || len(listed) != 1 {
			t.Fatalf("expected one friendship got %+v, %v", listed, err)
		}
		if _, name := listed[0].Other(bob.ID); name != "alice" {
			t.Fatalf("expected alice on the other side got %q", name)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestInMemoryStoreRollback(t *testing.T) {
	store := NewInMemoryStore()
	alice := newUser(t, store, "alice")
	bob := newUser(t, store, "bob")

	boom := errors.New("boom")
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx GraphTx) error {
		if _, err := tx.CreateFriendRequest(ctx, alice.ID, bob.ID); err != nil {
			return err
		}
		if _, err := tx.CreateFriendship(ctx, alice.ID, bob.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom got %v", err)
	}
	if requests, friendships := store.Counts(); requests != 0 || friendships != 0 {
		t.Fatalf("expected rollback got %d requests %d friendships", requests, friendships)
	}
}

func TestInMemoryStoreListsNewestFirst(t *testing.T) {
	store := NewInMemoryStore()
	alice := newUser(t, store, "alice")
	bob := newUser(t, store, "bob")
	carol := newUser(t, store, "carol")

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx GraphTx) error {
		if _, err := tx.CreateFriendRequest(ctx, bob.ID, alice.ID); err != nil {
			return err
		}
		if _, err := tx.CreateFriendRequest(ctx, carol.ID, alice.ID); err != nil {
			return err
		}

		incoming, err := tx.ListFriendRequests(ctx, RequestFilter{ApplicantID: alice.ID})
		if err != nil {
			return err
		}
		if len(incoming) != 2 || incoming[0].Username != "carol" || incoming[1].Username != "bob" {
			t.Fatalf("expected carol then bob got %+v", incoming)
		}

		outgoing, err := tx.ListFriendRequests(ctx, RequestFilter{UserID: alice.ID})
		if err != nil {
			return err
		}
		if len(outgoing) != 0 {
			t.Fatalf("expected no outgoing requests got %+v", outgoing)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestInMemoryStoreDeleteUserCascades(t *testing.T) {
	store := NewInMemoryStore()
	alice := newUser(t, store, "alice")
	bob := newUser(t, store, "bob")
	carol := newUser(t, store, "carol")

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx GraphTx) error {
		if _, err := tx.CreateFriendRequest(ctx, alice.ID, bob.ID); err != nil {
			return err
		}
		_, err := tx.CreateFriendship(ctx, alice.ID, carol.ID)
		return err
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	if err := store.DeleteUser(context.Background(), alice.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if requests, friendships := store.Counts(); requests != 0 || friendships != 0 {
		t.Fatalf("expected cascade got %d requests %d friendships", requests, friendships)
	}
	if err := store.DeleteUser(context.Background(), alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete got %v", err)
	}
}

func TestInMemoryStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := NewInMemoryStore().WithinTx(ctx, func(context.Context, GraphTx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected cancelled context to short-circuit got %v (called=%v)", err, called)
	}
}
