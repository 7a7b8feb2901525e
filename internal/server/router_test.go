package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/task-manager-api/internal/auth"
	"github.com/ayush/task-manager-api/internal/models"
	"github.com/ayush/task-manager-api/internal/store/memory"
	"github.com/ayush/task-manager-api/internal/tasks"
	"github.com/ayush/task-manager-api/internal/users"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type testApp struct {
	router http.Handler
	store  *memory.Store
	clock  *clock
	tokens *auth.TokenService
}

type denyAfter struct {
	n, seen int
}

func (d *denyAfter) Allow(ctx context.Context, key string) (bool, error) {
	d.seen++
	return d.seen <= d.n, nil
}

type brokenStore struct{}

func (brokenStore) Ping(ctx context.Context) error { return errors.New("connection refused") }

func newTestApp(t *testing.T, mutate func(*Deps)) *testApp {
	t.Helper()
	clk := &clock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	st := memory.New()
	st.Now = clk.Now
	tokens := auth.NewTokenService("test-secret", time.Hour)

	userSvc := users.NewService(st, st, auth.NewPasswordHasher(bcrypt.MinCost), tokens)
	taskSvc := tasks.NewService(st, st, tasks.Quota{Total: 500, Daily: 10, Location: time.UTC, Now: clk.Now})

	d := Deps{
		Users:       users.NewHandler(userSvc),
		Tasks:       tasks.NewHandler(taskSvc),
		Tokens:      tokens,
		Store:       st,
		CORSOrigins: []string{"http://localhost:5173"},
	}
	if mutate != nil {
		mutate(&d)
	}
	return &testApp{router: NewRouter(d), store: st, clock: clk, tokens: tokens}
}

func (a *testApp) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode body: %v", method, path, err)
	}
	return rec.Code, out
}

// signUp registers a user and returns its id and token.
func (a *testApp) signUp(t *testing.T, name, email string) (string, string) {
	t.Helper()
	code, body := a.do(t, http.MethodPost, "/api/users/register", "",
		fmt.Sprintf(`{"name":%q,"email":%q,"password":"secret1"}`, name, email))
	if code != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body = %v", email, code, body)
	}
	return body["user"].(map[string]any)["id"].(string), body["token"].(string)
}

func TestRouter_Health(t *testing.T) {
	app := newTestApp(t, nil)
	code, body := app.do(t, http.MethodGet, "/health", "", "")
	if code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", code, body)
	}

	down := newTestApp(t, func(d *Deps) { d.Store = brokenStore{} })
	code, body = down.do(t, http.MethodGet, "/health", "", "")
	if code != http.StatusServiceUnavailable || body["status"] != "unavailable" {
		t.Errorf("health with broken store = %d %v", code, body)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	app := newTestApp(t, nil)
	code, body := app.do(t, http.MethodGet, "/api/nope", "", "")
	if code != http.StatusNotFound || body["message"] != "Route not found" {
		t.Errorf("unknown route = %d %v", code, body)
	}
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t, nil)
	id := primitive.NewObjectID().Hex()

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/users/me"},
		{http.MethodPut, "/api/users/me"},
		{http.MethodDelete, "/api/users/me"},
		{http.MethodGet, "/api/users/" + id},
		{http.MethodPost, "/api/tasks"},
		{http.MethodGet, "/api/tasks/myTasks"},
		{http.MethodPut, "/api/tasks/" + id},
		{http.MethodPatch, "/api/tasks/" + id},
		{http.MethodDelete, "/api/tasks/" + id},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			code, body := app.do(t, rt.method, rt.path, "", "")
			if code != http.StatusUnauthorized || body["message"] != "Not authorized, token missing" {
				t.Errorf("no token: %d %v", code, body)
			}

			code, body = app.do(t, rt.method, rt.path, "garbage.token.value", "")
			if code != http.StatusUnauthorized || body["message"] != "Not authorized, invalid token" {
				t.Errorf("bad token: %d %v", code, body)
			}
		})
	}
}

func TestRouter_AdminLookup(t *testing.T) {
	app := newTestApp(t, nil)
	userID, userToken := app.signUp(t, "Ann", "ann@example.com")

	code, body := app.do(t, http.MethodGet, "/api/users/"+userID, userToken, "")
	if code != http.StatusForbidden || body["message"] != "Access denied: admin only" {
		t.Errorf("non-admin lookup = %d %v", code, body)
	}

	// The admin claim is checked before the id format.
	code, _ = app.do(t, http.MethodGet, "/api/users/123", userToken, "")
	if code != http.StatusForbidden {
		t.Errorf("non-admin bad id = %d, want 403", code)
	}

	adminID, _ := app.signUp(t, "Root", "root@example.com")
	oid, _ := primitive.ObjectIDFromHex(adminID)
	app.store.SetAdmin(oid, true)
	adminToken, err := app.tokens.Issue(auth.Identity{ID: adminID, Email: "root@example.com", IsAdmin: true})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	code, body = app.do(t, http.MethodGet, "/api/users/"+userID, adminToken, "")
	if code != http.StatusOK || body["user"].(map[string]any)["email"] != "ann@example.com" {
		t.Errorf("admin lookup = %d %v", code, body)
	}

	code, body = app.do(t, http.MethodGet, "/api/users/123", adminToken, "")
	if code != http.StatusBadRequest || body["message"] != "Invalid ID format" {
		t.Errorf("admin bad id = %d %v", code, body)
	}
}

func TestRouter_TaskLifecycle(t *testing.T) {
	app := newTestApp(t, nil)
	_, token := app.signUp(t, "Ann", "ann@example.com")
	_, otherToken := app.signUp(t, "Bob", "bob@example.com")

	code, body := app.do(t, http.MethodPost, "/api/tasks", token, `{"title":"Buy milk"}`)
	if code != http.StatusCreated {
		t.Fatalf("create = %d %v", code, body)
	}
	id := body["task"].(map[string]any)["id"].(string)

	code, body = app.do(t, http.MethodGet, "/api/tasks/myTasks", otherToken, "")
	if code != http.StatusOK || len(body["tasks"].([]any)) != 0 {
		t.Errorf("other user's list = %d %v", code, body)
	}

	code, body = app.do(t, http.MethodPatch, "/api/tasks/"+id, otherToken, `{"completed":true}`)
	if code != http.StatusNotFound || body["message"] != "Task not found or access denied" {
		t.Errorf("foreign patch = %d %v", code, body)
	}

	code, body = app.do(t, http.MethodPut, "/api/tasks/"+id, token, `{"title":"Buy oat milk","completed":true}`)
	if code != http.StatusOK {
		t.Fatalf("replace = %d %v", code, body)
	}
	task := body["task"].(map[string]any)
	if task["title"] != "Buy oat milk" || task["completed"] != true {
		t.Errorf("replaced = %v", task)
	}

	code, _ = app.do(t, http.MethodDelete, "/api/tasks/"+id, token, "")
	if code != http.StatusOK {
		t.Errorf("delete = %d", code)
	}
	code, _ = app.do(t, http.MethodDelete, "/api/tasks/"+id, token, "")
	if code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", code)
	}

	code, body = app.do(t, http.MethodGet, "/api/tasks/myTasks", token, "")
	if code != http.StatusOK || len(body["tasks"].([]any)) != 0 {
		t.Errorf("list after delete = %d %v", code, body)
	}
}

func TestRouter_DailyQuota(t *testing.T) {
	app := newTestApp(t, nil)
	_, token := app.signUp(t, "Ann", "ann@example.com")

	for i := 0; i < 10; i++ {
		app.clock.now = app.clock.now.Add(time.Minute)
		code, body := app.do(t, http.MethodPost, "/api/tasks", token, fmt.Sprintf(`{"title":"task %d"}`, i))
		if code != http.StatusCreated {
			t.Fatalf("create %d = %d %v", i, code, body)
		}
	}

	code, body := app.do(t, http.MethodPost, "/api/tasks", token, `{"title":"eleventh"}`)
	if code != http.StatusTooManyRequests || body["message"] != "Daily task limit reached (10 per day)" {
		t.Errorf("11th task = %d %v", code, body)
	}

	_, body = app.do(t, http.MethodGet, "/api/tasks/myTasks", token, "")
	if n := len(body["tasks"].([]any)); n != 10 {
		t.Errorf("task count = %d, want 10", n)
	}
}

func TestRouter_TotalQuota(t *testing.T) {
	app := newTestApp(t, nil)
	id, token := app.signUp(t, "Ann", "ann@example.com")
	owner, _ := primitive.ObjectIDFromHex(id)

	today := app.clock.now
	for i := 0; i < 500; i++ {
		app.clock.now = today.AddDate(0, 0, -(i/10)-1)
		if err := app.store.InsertTask(context.Background(), &models.Task{Title: fmt.Sprintf("t%d", i), User: owner}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	app.clock.now = today

	code, body := app.do(t, http.MethodPost, "/api/tasks", token, `{"title":"501st"}`)
	if code != http.StatusForbidden || body["message"] != "Task limit reached (500 total)" {
		t.Errorf("501st task = %d %v", code, body)
	}
}

func TestRouter_MeAfterAccountDeletion(t *testing.T) {
	app := newTestApp(t, nil)
	_, token := app.signUp(t, "Ann", "ann@example.com")
	app.do(t, http.MethodPost, "/api/tasks", token, `{"title":"orphan"}`)

	code, _ := app.do(t, http.MethodDelete, "/api/users/me", token, "")
	if code != http.StatusOK {
		t.Fatalf("delete account = %d", code)
	}

	code, body := app.do(t, http.MethodGet, "/api/users/me", token, "")
	if code != http.StatusNotFound || body["message"] != "User not found" {
		t.Errorf("me after delete = %d %v", code, body)
	}

	// The token is still valid, but it can no longer create tasks.
	code, body = app.do(t, http.MethodPost, "/api/tasks", token, `{"title":"after delete"}`)
	if code != http.StatusNotFound || body["message"] != "User not found" {
		t.Errorf("create after delete = %d %v", code, body)
	}
	code, body = app.do(t, http.MethodGet, "/api/tasks/myTasks", token, "")
	if code != http.StatusOK || len(body["tasks"].([]any)) != 0 {
		t.Errorf("list after delete = %d %v", code, body)
	}
}

func TestRouter_AuthRateLimit(t *testing.T) {
	limiter := &denyAfter{n: 2}
	app := newTestApp(t, func(d *Deps) { d.Limiter = limiter })

	login := `{"email":"nobody@example.com","password":"secret1"}`
	for i := 0; i < 2; i++ {
		if code, _ := app.do(t, http.MethodPost, "/api/users/login", "", login); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d = %d, want 401", i, code)
		}
	}

	code, body := app.do(t, http.MethodPost, "/api/users/login", "", login)
	if code != http.StatusTooManyRequests || body["message"] != "Too many attempts, please try again later" {
		t.Errorf("throttled login = %d %v", code, body)
	}

	// Authenticated routes are not throttled.
	seen := limiter.seen
	app.do(t, http.MethodGet, "/api/users/me", "", "")
	if limiter.seen != seen {
		t.Error("limiter consulted for /me")
	}
}
