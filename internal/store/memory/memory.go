// Package memory provides an in-memory store for tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/task-manager-api/internal/models"
	"github.com/ayush/task-manager-api/internal/store"
)

// Store is an in-memory implementation of the user and task stores.
// Records are copied in and out so callers never share state with the store.
type Store struct {
	mu sync.RWMutex

	users map[primitive.ObjectID]models.User
	tasks map[primitive.ObjectID]models.Task

	// Now stamps createdAt/updatedAt. Tests may replace it.
	Now func() time.Time
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		users: make(map[primitive.ObjectID]models.User),
		tasks: make(map[primitive.ObjectID]models.Task),
		Now:   time.Now,
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(ctx context.Context) error {
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// ── Users ────────────────────────────────────────────────────

func (s *Store) emailTaken(email string, except primitive.ObjectID) bool {
	for id, u := range s.users {
		if u.Email == email && id != except {
			return true
		}
	}
	return false
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(u.Email, primitive.NilObjectID) {
		return store.ErrDuplicate
	}
	now := s.Now()
	u.ID = primitive.NewObjectID()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	if s.emailTaken(u.Email, u.ID) {
		return store.ErrDuplicate
	}
	u.UpdatedAt = s.Now()
	cur.Name, cur.Email, cur.Password, cur.UpdatedAt = u.Name, u.Email, u.Password, u.UpdatedAt
	s.users[u.ID] = cur
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// SetAdmin flips the admin flag. There is no API for this; it seeds tests and dev data.
func (s *Store) SetAdmin(id primitive.ObjectID, isAdmin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.IsAdmin = isAdmin
	s.users[id] = u
	return nil
}

// ── Tasks ────────────────────────────────────────────────────

func (s *Store) CountTasks(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.CountTasksSince(ctx, userID, time.Time{})
}

func (s *Store) CountTasksSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, t := range s.tasks {
		if t.User == userID && !t.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Store) InsertTask(ctx context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	t.ID = primitive.NewObjectID()
	t.CreatedAt, t.UpdatedAt = now, now
	s.tasks[t.ID] = *t
	return nil
}

func (s *Store) ListTasks(ctx context.Context, userID primitive.ObjectID) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Task
	for _, t := range s.tasks {
		if t.User == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (s *Store) UpdateTask(ctx context.Context, id, userID primitive.ObjectID, upd models.TaskUpdate) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.User != userID {
		return nil, store.ErrNotFound
	}
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Completed != nil {
		t.Completed = *upd.Completed
	}
	t.UpdatedAt = s.Now()
	s.tasks[id] = t
	return &t, nil
}

func (s *Store) DeleteTask(ctx context.Context, id, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.User != userID {
		return store.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *Store) DeleteTasksByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, t := range s.tasks {
		if t.User == userID {
			delete(s.tasks, id)
			n++
		}
	}
	return n, nil
}
