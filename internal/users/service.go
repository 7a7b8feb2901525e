package users

import (
	"context"
	"errors"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/task-manager-api/internal/apperr"
	"github.com/ayush/task-manager-api/internal/auth"
	"github.com/ayush/task-manager-api/internal/models"
	"github.com/ayush/task-manager-api/internal/store"
)

// Store defines the interface for user persistence. Emails are stored
// normalised and must be unique.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
}

// TaskPurger removes every task a deleted account owned.
type TaskPurger interface {
	DeleteTasksByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
	VerifyNothing(password string)
}

type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
}

var (
	errInvalidCredentials = apperr.Unauthorized("Invalid email or password")
	errUserNotFound       = apperr.NotFound("User not found")
	errEmailTaken         = apperr.Conflict("User with this email already exists")
	errEmailInUse         = apperr.Invalid("Email already in use")
)

// Service implements registration, login and profile management.
type Service struct {
	users  Store
	tasks  TaskPurger
	hasher PasswordHasher
	tokens TokenIssuer
}

func NewService(users Store, tasks TaskPurger, hasher PasswordHasher, tokens TokenIssuer) *Service {
	return &Service{users: users, tasks: tasks, hasher: hasher, tokens: tokens}
}

func (s *Service) issue(u *models.User) (string, error) {
	token, err := s.tokens.Issue(auth.Identity{ID: u.ID.Hex(), Email: u.Email, IsAdmin: u.IsAdmin})
	if err != nil {
		return "", apperr.Wrap(err, "issue token")
	}
	return token, nil
}

// Register creates an account from a validated request and signs the caller in.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error) {
	_, err := s.users.GetUserByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, errEmailTaken
	case !errors.Is(err, store.ErrNotFound):
		return nil, apperr.Wrap(err, "lookup email")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperr.Wrap(err, "hash password")
	}

	u := &models.User{Name: req.Name, Email: req.Email, Password: hash}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errEmailTaken
		}
		return nil, apperr.Wrap(err, "create user")
	}

	token, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{Token: token, User: u.View()}, nil
}

// Login checks credentials. Unknown email and wrong password fail identically.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error) {
	u, err := s.users.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		s.hasher.VerifyNothing(req.Password)
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Wrap(err, "lookup email")
	}

	ok, err := s.hasher.Verify(req.Password, u.Password)
	if err != nil {
		return nil, apperr.Wrap(err, "verify password")
	}
	if !ok {
		return nil, errInvalidCredentials
	}

	token, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{Token: token, User: u.View()}, nil
}

// GetByID looks up any user. Callers must restrict it to admins.
func (s *Service) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(err, "get user")
	}
	return u, nil
}

// UpdateProfile applies the supplied fields and returns a fresh token that
// reflects the new email.
func (s *Service) UpdateProfile(ctx context.Context, id primitive.ObjectID, req models.UpdateProfileRequest) (*models.AuthResult, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != u.Email {
		_, err := s.users.GetUserByEmail(ctx, *req.Email)
		switch {
		case err == nil:
			return nil, errEmailInUse
		case !errors.Is(err, store.ErrNotFound):
			return nil, apperr.Wrap(err, "lookup email")
		}
		u.Email = *req.Email
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, apperr.Wrap(err, "hash password")
		}
		u.Password = hash
	}

	if err := s.users.UpdateUser(ctx, u); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return nil, errEmailInUse
		case errors.Is(err, store.ErrNotFound):
			return nil, errUserNotFound
		}
		return nil, apperr.Wrap(err, "update user")
	}

	token, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{Token: token, User: u.AdminView()}, nil
}

// DeleteAccount removes the user, then their tasks. Tokens already issued
// stay valid until expiry but resolve to a user that no longer exists.
func (s *Service) DeleteAccount(ctx context.Context, id primitive.ObjectID) error {
	err := s.users.DeleteUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return errUserNotFound
	}
	if err != nil {
		return apperr.Wrap(err, "delete user")
	}

	if s.tasks != nil {
		if _, err := s.tasks.DeleteTasksByUser(ctx, id); err != nil {
			log.Printf("delete tasks of user %s: %v", id.Hex(), err)
		}
	}
	return nil
}
