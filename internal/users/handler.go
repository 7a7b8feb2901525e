package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/task-manager-api/internal/apperr"
	"github.com/ayush/task-manager-api/internal/middleware"
	"github.com/ayush/task-manager-api/internal/models"
	"github.com/ayush/task-manager-api/internal/respond"
)

// Handler holds user-related HTTP handlers.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type meResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

type userResponse struct {
	User models.UserView `json:"user"`
}

type deleteResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

func callerID(r *http.Request) (primitive.ObjectID, error) {
	c, ok := middleware.CallerFrom(r.Context())
	if !ok {
		return primitive.NilObjectID, apperr.Unauthorized("Not authorized, token missing")
	}
	return c.ID, nil
}

// Register creates a new user.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		respond.Error(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, res)
}

// Login authenticates a user and returns a token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		respond.Error(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	u, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, meResponse{Message: "Authorized user info", User: u})
}

// UpdateMe changes the caller's name, email or password.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req models.UpdateProfileRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		respond.Error(w, r, err)
		return
	}

	res, err := h.svc.UpdateProfile(r.Context(), id, req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// DeleteMe removes the caller's account.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.DeleteAccount(r.Context(), id); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, deleteResponse{Message: "Account successfully deleted", ID: id.Hex()})
}

// GetByID returns any user. Mounted behind RequireAdmin and ValidObjectID.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, apperr.Invalid("Invalid ID format"))
		return
	}

	u, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, userResponse{User: u.AdminView()})
}
