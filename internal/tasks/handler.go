package tasks

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/task-manager-api/internal/apperr"
	"github.com/ayush/task-manager-api/internal/middleware"
	"github.com/ayush/task-manager-api/internal/models"
	"github.com/ayush/task-manager-api/internal/respond"
)

// Handler holds task HTTP handlers. All routes expect RequireAuth upstream.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type taskResponse struct {
	Task models.TaskView `json:"task"`
}

type deleteResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

func caller(r *http.Request) (middleware.Caller, error) {
	c, ok := middleware.CallerFrom(r.Context())
	if !ok {
		return c, apperr.Unauthorized("Not authorized, token missing")
	}
	return c, nil
}

// taskID expects ValidObjectID to have run on the route.
func taskID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return id, apperr.Invalid("Invalid ID format")
	}
	return id, nil
}

// Create handles POST /api/tasks.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req models.CreateTaskRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		respond.Error(w, r, err)
		return
	}

	t, err := h.svc.Create(r.Context(), c.ID, *req.Title)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, taskResponse{Task: t.CreatedView()})
}

// List handles GET /api/tasks/myTasks.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	list, err := h.svc.ListMine(r.Context(), c.ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	views := make([]models.TaskView, 0, len(list))
	for i := range list {
		views = append(views, list[i].CreatedView())
	}
	respond.JSON(w, http.StatusOK, map[string][]models.TaskView{"tasks": views})
}

// updateRequest is implemented by the PUT and PATCH bodies.
type updateRequest interface {
	Validate() error
	Update() models.TaskUpdate
}

type applyFunc func(ctx context.Context, id, ownerID primitive.ObjectID, upd models.TaskUpdate) (*models.Task, error)

// Replace handles PUT /api/tasks/{id}.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, &models.ReplaceTaskRequest{}, h.svc.Replace)
}

// Patch handles PATCH /api/tasks/{id}.
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, &models.PatchTaskRequest{}, h.svc.Patch)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, req updateRequest, apply applyFunc) {
	c, err := caller(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	id, err := taskID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := respond.Decode(r, req); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		respond.Error(w, r, err)
		return
	}

	t, err := apply(r.Context(), id, c.ID, req.Update())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, taskResponse{Task: t.UpdatedView()})
}

// Delete handles DELETE /api/tasks/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	id, err := taskID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id, c.ID); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, deleteResponse{Message: "Task successfully deleted", ID: id.Hex()})
}
