package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/logging"
	"github.com/dmitrijs2005/gophtodo/internal/server/events"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- stubs ---

type stubAuth struct {
	signUp  common.Result[models.User]
	signIn  common.Result[models.User]
	me      common.Result[models.User]
	current *models.User
	curErr  error

	gotEmail, gotPassword, gotName string
}

func (s *stubAuth) SignUp(_ context.Context, w http.ResponseWriter, email, password, name string) common.Result[models.User] {
	s.gotEmail, s.gotPassword, s.gotName = email, password, name
	if s.signUp.Success {
		http.SetCookie(w, &http.Cookie{Name: common.SessionCookieName, Value: "tok"})
	}
	return s.signUp
}

func (s *stubAuth) SignIn(_ context.Context, _ http.ResponseWriter, email, password string) common.Result[models.User] {
	s.gotEmail, s.gotPassword = email, password
	return s.signIn
}

func (s *stubAuth) SignOut(w http.ResponseWriter) common.Result[struct{}] {
	http.SetCookie(w, &http.Cookie{Name: common.SessionCookieName, MaxAge: -1})
	return common.Done()
}

func (s *stubAuth) Me(context.Context, *http.Request) common.Result[models.User] { return s.me }

func (s *stubAuth) CurrentUser(context.Context, *http.Request) (*models.User, error) {
	return s.current, s.curErr
}

type stubTodos struct {
	list   common.Result[[]*models.Todo]
	one    common.Result[models.Todo]
	done   common.Result[struct{}]
	gotID  string
	gotTtl string
	gotDsc string
}

func (s *stubTodos) List(context.Context, *http.Request) common.Result[[]*models.Todo] { return s.list }
func (s *stubTodos) Get(_ context.Context, _ *http.Request, id string) common.Result[models.Todo] {
	s.gotID = id
	return s.one
}
func (s *stubTodos) Create(_ context.Context, _ *http.Request, title, description string) common.Result[models.Todo] {
	s.gotTtl, s.gotDsc = title, description
	return s.one
}
func (s *stubTodos) Delete(_ context.Context, _ *http.Request, id string) common.Result[struct{}] {
	s.gotID = id
	return s.done
}
func (s *stubTodos) ToggleComplete(_ context.Context, _ *http.Request, id string) common.Result[models.Todo] {
	s.gotID = id
	return s.one
}

func newTestServer(a *stubAuth, td *stubTodos, sub events.Subscriber) *HTTPServer {
	return NewHTTPServer("127.0.0.1:0", logging.Nop{}, a, td, sub, nil)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
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
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// --- tests ---

func TestHealth(t *testing.T) {
	h := newTestServer(&stubAuth{}, &stubTodos{}, events.NewHub(1)).Handler()
	rec := do(t, h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"status":"ok"}}`, rec.Body.String())
}

func TestSignUp(t *testing.T) {
	name := "alice"
	a := &stubAuth{signUp: common.OK(models.User{ID: "u1", Email: "alice@example.com", PasswordHash: "$2a$secret", Name: &name})}
	h := newTestServer(a, &stubTodos{}, events.NewHub(1)).Handler()

	rec := do(t, h, http.MethodPost, "/api/auth/signup", `{"email":"alice@example.com","password":"secret1"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "alice@example.com", a.gotEmail)
	assert.Equal(t, "secret1", a.gotPassword)
	assert.Empty(t, a.gotName)
	assert.NotContains(t, rec.Body.String(), "$2a$", "password hash must never be serialized")
	assert.NotEmpty(t, rec.Result().Cookies())

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "alice@example.com", body["data"].(map[string]any)["email"])
}

func TestErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", common.NewValidationError("Please provide a valid email address"), http.StatusBadRequest, "Please provide a valid email address"},
		{"conflict", common.ErrorAlreadyExists, http.StatusConflict, common.MessageConflict},
		{"credentials", common.ErrorInvalidCredentials, http.StatusUnauthorized, common.MessageInvalidCredentials},
		{"unauthenticated", common.ErrorUnauthenticated, http.StatusUnauthorized, common.MessageUnauthenticated},
		{"not found", common.ErrorNotFound, http.StatusNotFound, common.MessageNotFound},
		{"operational", context.DeadlineExceeded, http.StatusInternalServerError, common.MessageUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &stubAuth{signIn: common.Fail[models.User](tt.err)}
			h := newTestServer(a, &stubTodos{}, events.NewHub(1)).Handler()

			rec := do(t, h, http.MethodPost, "/api/auth/signin", `{"email":"a@b.c","password":"x"}`)
			assert.Equal(t, tt.code, rec.Code)
			assert.JSONEq(t, `{"success":false,"error":"`+tt.msg+`"}`, rec.Body.String())
		})
	}
}

func TestBadBody(t *testing.T) {
	h := newTestServer(&stubAuth{}, &stubTodos{}, events.NewHub(1)).Handler()

	for _, path := range []string{"/api/auth/signup", "/api/auth/signin", "/api/todos"} {
		rec := do(t, h, http.MethodPost, path, `{"email":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.JSONEq(t, `{"success":false,"error":"Invalid request body"}`, rec.Body.String())
	}
}

func TestSignOut(t *testing.T) {
	h := newTestServer(&stubAuth{}, &stubTodos{}, events.NewHub(1)).Handler()
	rec := do(t, h, http.MethodPost, "/api/auth/signout", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Location"))
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestMe(t *testing.T) {
	a := &stubAuth{me: common.Fail[models.User](common.ErrorUnauthenticated)}
	h := newTestServer(a, &stubTodos{}, events.NewHub(1)).Handler()

	rec := do(t, h, http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTodoRoutes(t *testing.T) {
	id := "2f7a5b0e-1c6f-4a55-9f5e-0d6a2b8c9e11"
	todo := models.Todo{ID: id, UserID: "u1", Title: "Buy milk"}
	td := &stubTodos{
		list: common.OK([]*models.Todo{}),
		one:  common.OK(todo),
		done: common.Done(),
	}
	h := newTestServer(&stubAuth{}, td, events.NewHub(1)).Handler()

	rec := do(t, h, http.MethodGet, "/api/todos", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/todos", `{"title":" Buy milk "}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, " Buy milk ", td.gotTtl)
	assert.Empty(t, td.gotDsc)
	body := decode(t, rec)
	data := body["data"].(map[string]any)
	assert.Nil(t, data["description"])
	assert.Equal(t, false, data["completed"])

	rec = do(t, h, http.MethodGet, "/api/todos/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, td.gotID)

	td.gotID = ""
	rec = do(t, h, http.MethodPost, "/api/todos/"+id+"/toggle", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, td.gotID)

	td.gotID = ""
	rec = do(t, h, http.MethodDelete, "/api/todos/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, td.gotID)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	td.done = common.Fail[struct{}](common.ErrorNotFound)
	rec = do(t, h, http.MethodDelete, "/api/todos/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecovery(t *testing.T) {
	h := newTestServer(&stubAuth{}, nil, events.NewHub(1)).Handler()

	// nil TodoAPI panics inside the handler
	rec := do(t, h, http.MethodGet, "/api/todos", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"An unexpected error occurred"}`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	srv := NewHTTPServer("127.0.0.1:0", logging.Nop{}, &stubAuth{}, &stubTodos{}, events.NewHub(1), []string{"http://localhost:3000"})
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/todos", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestTodoEvents_Unauthenticated(t *testing.T) {
	h := newTestServer(&stubAuth{}, &stubTodos{}, events.NewHub(1)).Handler()
	rec := do(t, h, http.MethodGet, "/api/todos/events", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"You must be logged in"}`, rec.Body.String())
}

// syncRecorder lets the test read the body while the handler streams.
type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *syncRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(b)
}

func (r *syncRecorder) WriteString(str string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.WriteString(str)
}

func (r *syncRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ResponseRecorder.Flush()
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Body.String()
}

func TestTodoEvents_Streams(t *testing.T) {
	hub := events.NewHub(4)
	defer hub.Close()

	a := &stubAuth{current: &models.User{ID: "u1"}}
	h := newTestServer(a, &stubTodos{}, hub).Handler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/todos/events", nil).WithContext(ctx)
	rec := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool { return hub.Subscribers("u1") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), events.TodosChanged{UserID: "u2", TodoID: "other", Action: events.ActionCreated}))
	require.NoError(t, hub.Publish(context.Background(), events.TodosChanged{UserID: "u1", TodoID: "t1", Action: events.ActionToggled}))

	require.Eventually(t, func() bool {
		return strings.Contains(rec.body(), `"action":"toggled"`)
	}, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream did not stop after cancel")
	}

	body := rec.body()
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/event-stream"), rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "event:ready")
	assert.Contains(t, body, "event:todos")
	assert.Contains(t, body, `"todoId":"t1"`)
	assert.NotContains(t, body, "other")
	assert.Eventually(t, func() bool { return hub.Subscribers("u1") == 0 }, time.Second, 5*time.Millisecond)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubAuth{}, &stubTodos{}, events.NewHub(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewHTTPServer("127.0.0.1:99999", logging.Nop{}, &stubAuth{}, &stubTodos{}, events.NewHub(1), nil)
	assert.Error(t, srv.Run(context.Background()))
}
