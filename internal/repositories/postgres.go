package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	crdbpgx "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/friendgraph/backend/internal/db"
	"github.com/friendgraph/backend/internal/models"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, user.ID, user.Username, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if err := translateWriteError(err); err != nil {
			return err
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByUsername fetches a user by their unique username.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return findUserByUsername(ctx, conn, username)
}

// PostgresGraphStore runs friend graph transactions against PostgreSQL or
// CockroachDB with serializable isolation.
type PostgresGraphStore struct {
	pool db.Pool
}

// NewPostgresGraphStore constructs a graph store backed by the provided pool.
func NewPostgresGraphStore(pool db.Pool) *PostgresGraphStore {
	return &PostgresGraphStore{pool: pool}
}

// WithinTx executes fn in a serializable transaction. Serialization failures
// re-run fn from the start so the retried attempt observes the winning write;
// any other error aborts the transaction and is returned as-is.
func (s *PostgresGraphStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx GraphTx) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		return fn(ctx, &pgGraphTx{tx: tx})
	})
}

type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgGraphTx struct {
	tx pgx.Tx
}

func (t *pgGraphTx) FindUserByUsername(ctx context.Context, username string) (models.User, error) {
	return findUserByUsername(ctx, t.tx, username)
}

func (t *pgGraphTx) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := t.tx.Query(ctx, `
        SELECT id, username, password_hash, created_at, updated_at
        FROM users
        ORDER BY id DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Password, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

func (t *pgGraphTx) CreateFriendRequest(ctx context.Context, requesterID, targetID string) (models.FriendRequest, error) {
	request := models.FriendRequest{
		ID:          models.NewID(),
		UserID:      requesterID,
		ApplicantID: targetID,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := t.tx.Exec(ctx, `
        INSERT INTO friend_requests (id, user_id, applicant_id, created_at)
        VALUES ($1, $2, $3, $4)
    `, request.ID, request.UserID, request.ApplicantID, request.CreatedAt)
	if err != nil {
		if err := translateWriteError(err); err != nil {
			return models.FriendRequest{}, err
		}
		return models.FriendRequest{}, fmt.Errorf("insert friend request: %w", err)
	}

	return request, nil
}

func (t *pgGraphTx) FindFriendRequest(ctx context.Context, requesterID, targetID string) (models.FriendRequest, error) {
	row := t.tx.QueryRow(ctx, `
        SELECT id, user_id, applicant_id, created_at
        FROM friend_requests
        WHERE user_id = $1 AND applicant_id = $2
    `, requesterID, targetID)

	var request models.FriendRequest
	if err := row.Scan(&request.ID, &request.UserID, &request.ApplicantID, &request.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FriendRequest{}, ErrNotFound
		}
		return models.FriendRequest{}, fmt.Errorf("select friend request: %w", err)
	}

	return request, nil
}

func (t *pgGraphTx) DeleteFriendRequest(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM friend_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete friend request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgGraphTx) ListFriendRequests(ctx context.Context, filter RequestFilter) ([]models.FriendRequest, error) {
	var (
		query strings.Builder
		conds []string
		args  []any
	)
	query.WriteString(`
        SELECT fr.id, fr.user_id, fr.applicant_id, u.username, a.username, fr.created_at
        FROM friend_requests fr
        JOIN users u ON u.id = fr.user_id
        JOIN users a ON a.id = fr.applicant_id`)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("fr.user_id = $%d", len(args)))
	}
	if filter.ApplicantID != "" {
		args = append(args, filter.ApplicantID)
		conds = append(conds, fmt.Sprintf("fr.applicant_id = $%d", len(args)))
	}
	if len(conds) > 0 {
		query.WriteString("\n        WHERE " + strings.Join(conds, " AND "))
	}
	query.WriteString("\n        ORDER BY fr.id DESC")

	rows, err := t.tx.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query friend requests: %w", err)
	}
	defer rows.Close()

	var requests []models.FriendRequest
	for rows.Next() {
		var req models.FriendRequest
		if err := rows.Scan(&req.ID, &req.UserID, &req.ApplicantID, &req.Username, &req.ApplicantUsername, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend requests: %w", err)
	}

	return requests, nil
}

func (t *pgGraphTx) CreateFriendship(ctx context.Context, a, b string) (models.Friendship, error) {
	low, high := models.CanonicalPair(a, b)
	friendship := models.Friendship{
		ID:        models.NewID(),
		UserLow:   low,
		UserHigh:  high,
		CreatedAt: time.Now().UTC(),
	}

	_, err := t.tx.Exec(ctx, `
        INSERT INTO friendships (id, user_low, user_high, created_at)
        VALUES ($1, $2, $3, $4)
    `, friendship.ID, friendship.UserLow, friendship.UserHigh, friendship.CreatedAt)
	if err != nil {
		if err := translateWriteError(err); err != nil {
			return models.Friendship{}, err
		}
		return models.Friendship{}, fmt.Errorf("insert friendship: %w", err)
	}

	return friendship, nil
}

func (t *pgGraphTx) FindFriendship(ctx context.Context, a, b string) (models.Friendship, error) {
	low, high := models.CanonicalPair(a, b)
	row := t.tx.QueryRow(ctx, `
        SELECT id, user_low, user_high, created_at
        FROM friendships
        WHERE user_low = $1 AND user_high = $2
    `, low, high)

	var friendship models.Friendship
	if err := row.Scan(&friendship.ID, &friendship.UserLow, &friendship.UserHigh, &friendship.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Friendship{}, ErrNotFound
		}
		return models.Friendship{}, fmt.Errorf("select friendship: %w", err)
	}

	return friendship, nil
}

func (t *pgGraphTx) ListFriendships(ctx context.Context, userID string) ([]models.Friendship, error) {
	query := `
        SELECT f.id, f.user_low, f.user_high, lo.username, hi.username, f.created_at
        FROM friendships f
        JOIN users lo ON lo.id = f.user_low
        JOIN users hi ON hi.id = f.user_high`
	var args []any
	if userID != "" {
		query += `
        WHERE f.user_low = $1 OR f.user_high = $1`
		args = append(args, userID)
	}
	query += `
        ORDER BY f.id DESC`

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query friendships: %w", err)
	}
	defer rows.Close()

	var friendships []models.Friendship
	for rows.Next() {
		var f models.Friendship
		if err := rows.Scan(&f.ID, &f.UserLow, &f.UserHigh, &f.LowUsername, &f.HighUsername, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan friendship: %w", err)
		}
		friendships = append(friendships, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friendships: %w", err)
	}

	return friendships, nil
}

func (t *pgGraphTx) DeleteFriendship(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM friendships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func findUserByUsername(ctx context.Context, q queryer, username string) (models.User, error) {
	row := q.QueryRow(ctx, `
        SELECT id, username, password_hash, created_at, updated_at
        FROM users
        WHERE username = $1
    `, username)

	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Password, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by username: %w", err)
	}

	return user, nil
}

// translateWriteError maps constraint violations to repository sentinels and
// returns nil for any other error.
func translateWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return ErrConflict
	case pgForeignKeyViolation:
		return ErrNotFound
	}
	return nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ GraphStore = (*PostgresGraphStore)(nil)
var _ GraphTx = (*pgGraphTx)(nil)
