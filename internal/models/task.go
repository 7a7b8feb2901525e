package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task is a unit of work owned by exactly one user.
type Task struct {
	ID        primitive.ObjectID `json:"id"        bson:"_id,omitempty"`
	Title     string             `json:"title"     bson:"title"`
	Completed bool               `json:"completed" bson:"completed"`
	User      primitive.ObjectID `json:"user"      bson:"user"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// TaskView is the public projection of a task. Created and listed tasks
// carry createdAt; replaced and patched tasks carry updatedAt.
type TaskView struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (t *Task) CreatedView() TaskView {
	created := t.CreatedAt
	return TaskView{ID: t.ID.Hex(), Title: t.Title, Completed: t.Completed, CreatedAt: &created}
}

func (t *Task) UpdatedView() TaskView {
	updated := t.UpdatedAt
	return TaskView{ID: t.ID.Hex(), Title: t.Title, Completed: t.Completed, UpdatedAt: &updated}
}

// TaskUpdate lists the fields to change on an owned task. Nil fields are kept.
type TaskUpdate struct {
	Title     *string
	Completed *bool
}

// CreateTaskRequest is the JSON body for POST /api/tasks.
type CreateTaskRequest struct {
	Title *string `json:"title"`
}

// ReplaceTaskRequest is the JSON body for PUT /api/tasks/{id}.
type ReplaceTaskRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// PatchTaskRequest is the JSON body for PATCH /api/tasks/{id}.
type PatchTaskRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}
