package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/task-manager-api/internal/middleware"
)

// asCaller stands in for RequireAuth.
func asCaller(id primitive.ObjectID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithCaller(r.Context(), middleware.Caller{ID: id})))
		})
	}
}

func newTestRouter(h *Handler, owner primitive.ObjectID) http.Handler {
	r := chi.NewRouter()
	r.Use(asCaller(owner))
	r.Post("/api/tasks", h.Create)
	r.Get("/api/tasks/myTasks", h.List)
	r.Group(func(r chi.Router) {
		r.Use(middleware.ValidObjectID("id"))
		r.Put("/api/tasks/{id}", h.Replace)
		r.Patch("/api/tasks/{id}", h.Patch)
		r.Delete("/api/tasks/{id}", h.Delete)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode body: %v", method, path, err)
	}
	return rec.Code, out
}

func TestHandler_CreateListPatch(t *testing.T) {
	svc, _, _ := newTestService()
	owner := primitive.NewObjectID()
	router := newTestRouter(NewHandler(svc), owner)

	code, body := do(t, router, http.MethodPost, "/api/tasks", `{"title":"  Buy milk  "}`)
	if code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %v", code, body)
	}
	task := body["task"].(map[string]any)
	if task["title"] != "Buy milk" || task["completed"] != false {
		t.Errorf("created task = %v", task)
	}
	if _, ok := task["createdAt"]; !ok {
		t.Error("created task should carry createdAt")
	}
	if _, ok := task["user"]; ok {
		t.Error("public projection must not expose the owner")
	}
	id := task["id"].(string)

	code, body = do(t, router, http.MethodGet, "/api/tasks/myTasks", "")
	if code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	tasks := body["tasks"].([]any)
	if len(tasks) != 1 || tasks[0].(map[string]any)["id"] != id {
		t.Errorf("tasks = %v", tasks)
	}

	code, body = do(t, router, http.MethodPatch, "/api/tasks/"+id, `{"completed":true}`)
	if code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %v", code, body)
	}
	patched := body["task"].(map[string]any)
	if patched["completed"] != true || patched["title"] != "Buy milk" {
		t.Errorf("patched = %v", patched)
	}
	if _, ok := patched["updatedAt"]; !ok {
		t.Error("patched task should carry updatedAt")
	}
}

func TestHandler_ValidationErrors(t *testing.T) {
	svc, _, _ := newTestService()
	owner := primitive.NewObjectID()
	router := newTestRouter(NewHandler(svc), owner)

	created, _ := svc.Create(context.Background(), owner, "existing")
	path := "/api/tasks/" + created.ID.Hex()

	tests := []struct {
		name, method, path, body string
		wantCode                 int
		wantMsg                  string
	}{
		{"create missing title", http.MethodPost, "/api/tasks", `{}`, 400, "Title is required"},
		{"create long title", http.MethodPost, "/api/tasks", `{"title":"` + strings.Repeat("a", 101) + `"}`, 400, "Title must be at most 100 characters"},
		{"create wrong type", http.MethodPost, "/api/tasks", `{"title":5}`, 400, "Title must be a string"},
		{"create extra field", http.MethodPost, "/api/tasks", `{"title":"a","user":"x"}`, 400, `"user" is not allowed`},
		{"patch empty body", http.MethodPatch, path, `{}`, 400, "At least one of title or completed must be provided"},
		{"patch blank title", http.MethodPatch, path, `{"title":"  "}`, 400, "Title must not be empty"},
		{"patch long title", http.MethodPatch, path, `{"title":"` + strings.Repeat("a", 101) + `"}`, 400, "Title must be less than 100 characters"},
		{"patch bad completed", http.MethodPatch, path, `{"completed":"yes"}`, 400, "Completed must be true or false"},
		{"put missing completed", http.MethodPut, path, `{"title":"a"}`, 400, "Completed is required"},
		{"bad id", http.MethodDelete, "/api/tasks/123", "", 400, "Invalid ID format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, router, tt.method, tt.path, tt.body)
			if code != tt.wantCode {
				t.Errorf("status = %d, want %d", code, tt.wantCode)
			}
			if body["message"] != tt.wantMsg {
				t.Errorf("message = %v, want %q", body["message"], tt.wantMsg)
			}
		})
	}
}

func TestHandler_ForeignAndDeletedTasks(t *testing.T) {
	svc, _, _ := newTestService()
	owner, intruder := primitive.NewObjectID(), primitive.NewObjectID()
	ownerRouter := newTestRouter(NewHandler(svc), owner)
	intruderRouter := newTestRouter(NewHandler(svc), intruder)

	created, _ := svc.Create(context.Background(), owner, "mine")
	path := "/api/tasks/" + created.ID.Hex()

	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
		payload := `{"title":"x","completed":true}`
		if method == http.MethodDelete {
			payload = ""
		}
		code, body := do(t, intruderRouter, method, path, payload)
		if code != http.StatusNotFound {
			t.Errorf("%s by intruder: status = %d, want 404", method, code)
		}
		if body["message"] != "Task not found or access denied" {
			t.Errorf("%s by intruder: message = %v", method, body["message"])
		}
	}

	code, body := do(t, ownerRouter, http.MethodDelete, path, "")
	if code != http.StatusOK {
		t.Fatalf("delete status = %d", code)
	}
	if body["id"] != created.ID.Hex() || body["message"] != "Task successfully deleted" {
		t.Errorf("delete body = %v", body)
	}

	code, _ = do(t, ownerRouter, http.MethodDelete, path, "")
	if code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", code)
	}
}
