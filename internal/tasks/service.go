package tasks

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/task-manager-api/internal/apperr"
	"github.com/ayush/task-manager-api/internal/models"
	"github.com/ayush/task-manager-api/internal/store"
)

// Store defines the interface for task persistence. Every lookup and
// mutation is filtered by owner.
type Store interface {
	Counter
	InsertTask(ctx context.Context, t *models.Task) error
	ListTasks(ctx context.Context, userID primitive.ObjectID) ([]models.Task, error)
	UpdateTask(ctx context.Context, id, userID primitive.ObjectID, upd models.TaskUpdate) (*models.Task, error)
	DeleteTask(ctx context.Context, id, userID primitive.ObjectID) error
}

// Owners confirms that a task owner still has an account.
type Owners interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// errTaskNotFound covers both missing tasks and tasks owned by someone else.
var errTaskNotFound = apperr.NotFound("Task not found or access denied")

// errOwnerGone is returned when a token outlives the account it names.
var errOwnerGone = apperr.NotFound("User not found")

// Service implements owner-scoped task operations.
type Service struct {
	store  Store
	owners Owners
	quota  Quota
}

// NewService builds the task service. owners may be nil, which skips the
// account check on create.
func NewService(s Store, owners Owners, q Quota) *Service {
	return &Service{store: s, owners: owners, quota: q}
}

// Create stores a new, incomplete task for ownerID if the owner still has an
// account and the quota allows it.
func (s *Service) Create(ctx context.Context, ownerID primitive.ObjectID, title string) (*models.Task, error) {
	if s.owners != nil {
		_, err := s.owners.GetUserByID(ctx, ownerID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, errOwnerGone
		}
		if err != nil {
			return nil, apperr.Wrap(err, "lookup owner")
		}
	}

	if err := s.quota.Check(ctx, s.store, ownerID); err != nil {
		return nil, err
	}

	t := &models.Task{Title: title, Completed: false, User: ownerID}
	if err := s.store.InsertTask(ctx, t); err != nil {
		return nil, apperr.Wrap(err, "insert task")
	}
	return t, nil
}

// ListMine returns the owner's tasks, newest first.
func (s *Service) ListMine(ctx context.Context, ownerID primitive.ObjectID) ([]models.Task, error) {
	list, err := s.store.ListTasks(ctx, ownerID)
	if err != nil {
		return nil, apperr.Wrap(err, "list tasks")
	}
	if list == nil {
		list = []models.Task{}
	}
	return list, nil
}

// Replace overwrites both title and completed.
func (s *Service) Replace(ctx context.Context, id, ownerID primitive.ObjectID, upd models.TaskUpdate) (*models.Task, error) {
	if upd.Title == nil || upd.Completed == nil {
		return nil, apperr.Invalid("Title and completed are required")
	}
	return s.update(ctx, id, ownerID, upd)
}

// Patch changes only the fields present in upd.
func (s *Service) Patch(ctx context.Context, id, ownerID primitive.ObjectID, upd models.TaskUpdate) (*models.Task, error) {
	if upd.Title == nil && upd.Completed == nil {
		return nil, apperr.Invalid("At least one of title or completed must be provided")
	}
	return s.update(ctx, id, ownerID, upd)
}

func (s *Service) update(ctx context.Context, id, ownerID primitive.ObjectID, upd models.TaskUpdate) (*models.Task, error) {
	t, err := s.store.UpdateTask(ctx, id, ownerID, upd)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errTaskNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(err, "update task")
	}
	return t, nil
}

// Delete removes an owned task.
func (s *Service) Delete(ctx context.Context, id, ownerID primitive.ObjectID) error {
	err := s.store.DeleteTask(ctx, id, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return errTaskNotFound
	}
	if err != nil {
		return apperr.Wrap(err, "delete task")
	}
	return nil
}
