package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/task-manager-api/internal/models"
)

const uniqueViolation = "23505"

// PostgresStore keeps users and tasks in PostgreSQL. Ids are ObjectID hex
// strings so that both backends accept the same id format.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the users and tasks tables if they don't exist. Name and
// email are unbounded here; request validation owns their length rules.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         CHAR(24)     PRIMARY KEY,
			name       TEXT         NOT NULL,
			email      TEXT         UNIQUE NOT NULL,
			password   VARCHAR(255) NOT NULL,
			is_admin   BOOLEAN      NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS tasks (
			id         CHAR(24)     PRIMARY KEY,
			title      VARCHAR(100) NOT NULL,
			completed  BOOLEAN      NOT NULL DEFAULT FALSE,
			user_id    CHAR(24)     NOT NULL,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS tasks_user_created_idx ON tasks (user_id, created_at DESC);
		ALTER TABLE users ALTER COLUMN name TYPE TEXT, ALTER COLUMN email TYPE TEXT;
	`)
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// ── Users ────────────────────────────────────────────────────

const userColumns = `id, name, email, password, is_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u  models.User
		id string
	)
	if err := row.Scan(&id, &u.Name, &u.Email, &u.Password, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("user id %q: %w", id, err)
	}
	u.ID = oid
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now()
	u.ID = primitive.NewObjectID()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID.Hex(), u.Name, u.Email, u.Password, u.IsAdmin, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, err
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.Hex()))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, err
}

func (s *PostgresStore) UpdateUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now()
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET name = $2, email = $3, password = $4, updated_at = $5 WHERE id = $1`,
		u.ID.Hex(), u.Name, u.Email, u.Password, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id.Hex())
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Tasks ────────────────────────────────────────────────────

const taskColumns = `id, title, completed, user_id, created_at, updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	var (
		t          models.Task
		id, userID string
	)
	if err := row.Scan(&id, &t.Title, &t.Completed, &userID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var err error
	if t.ID, err = primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("task id %q: %w", id, err)
	}
	if t.User, err = primitive.ObjectIDFromHex(userID); err != nil {
		return nil, fmt.Errorf("task owner %q: %w", userID, err)
	}
	return &t, nil
}

func (s *PostgresStore) CountTasks(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE user_id = $1`, userID.Hex()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountTasksSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE user_id = $1 AND created_at >= $2`,
		userID.Hex(), since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tasks since: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) InsertTask(ctx context.Context, t *models.Task) error {
	now := time.Now()
	t.ID = primitive.NewObjectID()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID.Hex(), t.Title, t.Completed, t.User.Hex(), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, userID primitive.ObjectID) ([]models.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID.Hex(),
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *PostgresStore) UpdateTask(ctx context.Context, id, userID primitive.ObjectID, upd models.TaskUpdate) (*models.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx,
		`UPDATE tasks
		 SET title = COALESCE($3, title), completed = COALESCE($4, completed), updated_at = $5
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+taskColumns,
		id.Hex(), userID.Hex(), upd.Title, upd.Completed, time.Now(),
	))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, err
}

func (s *PostgresStore) DeleteTask(ctx context.Context, id, userID primitive.ObjectID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id.Hex(), userID.Hex())
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteTasksByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE user_id = $1`, userID.Hex())
	if err != nil {
		return 0, fmt.Errorf("delete user tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}
