package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/dbx"
	"github.com/dmitrijs2005/gophtodo/internal/logging"
	"github.com/dmitrijs2005/gophtodo/internal/server/auth"
	"github.com/dmitrijs2005/gophtodo/internal/server/events"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
	todosrepo "github.com/dmitrijs2005/gophtodo/internal/server/repositories/todos"
	usersrepo "github.com/dmitrijs2005/gophtodo/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- in-memory store ---

type memStore struct {
	mu    sync.Mutex
	users map[string]*models.User
	todos map[string]*models.Todo
	seq   int

	// err, when set, is returned by every repository call.
	err error
	// skipLookup hides existing users from GetByEmail, as a concurrent
	// sign-up would.
	skipLookup bool
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]*models.User),
		todos: make(map[string]*models.Todo),
	}
}

func (st *memStore) tick() time.Time {
	st.seq++
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(st.seq) * time.Second)
}

func (st *memStore) countUsers(email string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for _, u := range st.users {
		if u.Email == email {
			n++
		}
	}
	return n
}

func (st *memStore) todo(id string) *models.Todo {
	st.mu.Lock()
	defer st.mu.Unlock()
	t, ok := st.todos[id]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

type memManager struct{ st *memStore }

func (m *memManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memManager) Users(dbx.DBTX) usersrepo.Repository         { return &memUsers{m.st} }
func (m *memManager) Todos(dbx.DBTX) todosrepo.Repository         { return &memTodos{m.st} }

type memUsers struct{ st *memStore }

func (r *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.err != nil {
		return nil, fmt.Errorf("db error: %w", r.st.err)
	}
	for _, existing := range r.st.users {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	cp.ID = uuid.NewString()
	cp.CreatedAt = r.st.tick()
	r.st.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.err != nil {
		return nil, fmt.Errorf("db error: %w", r.st.err)
	}
	if r.st.skipLookup {
		return nil, common.ErrorNotFound
	}
	for _, u := range r.st.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.err != nil {
		return nil, fmt.Errorf("db error: %w", r.st.err)
	}
	u, ok := r.st.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) Delete(_ context.Context, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.err != nil {
		return fmt.Errorf("db error: %w", r.st.err)
	}
	if _, ok := r.st.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.st.users, id)
	for tid, t := range r.st.todos {
		if t.UserID == id {
			delete(r.st.todos, tid)
		}
	}
	return nil
}

type memTodos struct{ st *memStore }

func (r *memTodos) Create(_ context.Context, t *models.Todo) (*models.Todo, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.err != nil {
		return nil, fmt.Errorf("db error: %w", r.st.err)
	}
	cp := *t
	cp.ID = uuid.NewString()
	cp.Completed = false
	cp.CreatedAt = r.st.tick()
	cp.UpdatedAt = cp.CreatedAt
	r.st.todos[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memTodos) ListByUser(_ context.Context, userID string) ([]*models.Todo, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.err != nil {
		return nil, fmt.Errorf("failed to select todos: %w", r.st.err)
	}
	out := []*models.Todo{}
	for _, t := range r.st.todos {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memTodos) owned(id, userID string) (*models.Todo, error) {
	if r.st.err != nil {
		return nil, fmt.Errorf("db error: %w", r.st.err)
	}
	t, ok := r.st.todos[id]
	if !ok || t.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (r *memTodos) GetOwned(_ context.Context, id, userID string) (*models.Todo, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	t, err := r.owned(id, userID)
	if err != nil {
		return nil, err
	}
	cp := *t
	return &cp, nil
}

func (r *memTodos) ToggleCompleted(_ context.Context, id, userID string) (*models.Todo, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	t, err := r.owned(id, userID)
	if err != nil {
		return nil, err
	}
	t.Completed = !t.Completed
	t.UpdatedAt = r.st.tick()
	cp := *t
	return &cp, nil
}

func (r *memTodos) DeleteOwned(_ context.Context, id, userID string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, err := r.owned(id, userID); err != nil {
		return err
	}
	delete(r.st.todos, id)
	return nil
}

// --- recording logger ---

type recLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recLogger) Debug(context.Context, string, ...any) {}
func (l *recLogger) Info(context.Context, string, ...any)  {}
func (l *recLogger) Warn(_ context.Context, msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}
func (l *recLogger) Error(_ context.Context, msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}
func (l *recLogger) With(...any) logging.Logger { return l }

// --- harness ---

type harness struct {
	st     *memStore
	log    *recLogger
	hub    *events.Hub
	auth   *AuthService
	todos  *TodoService
	tokens *auth.TokenCodec
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st := newMemStore()
	m := &memManager{st: st}
	log := &recLogger{}
	tokens := auth.NewTokenCodec([]byte("test-secret"), time.Hour)
	cookies := auth.NewCookieTransport(time.Hour, false)

	as := NewAuthService(nil, m, auth.NewPasswordHasher(bcrypt.MinCost), tokens, cookies, log)

	hub := events.NewHub(8)
	t.Cleanup(func() { _ = hub.Close() })

	return &harness{
		st:     st,
		log:    log,
		hub:    hub,
		auth:   as,
		todos:  NewTodoService(nil, m, as, hub, log),
		tokens: tokens,
	}
}

// withSession turns the cookies set on rec into a request that carries them.
func withSession(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func anonymous() *http.Request {
	return httptest.NewRequest(http.MethodGet, "/", nil)
}

// signUp registers a user and returns a request carrying their session.
func (h *harness) signUp(t *testing.T, email, password, name string) (*models.User, *http.Request) {
	t.Helper()
	rec := httptest.NewRecorder()
	res := h.auth.SignUp(context.Background(), rec, email, password, name)
	require.True(t, res.Success, "sign up %s: %s", email, res.Error)
	return res.Data, withSession(rec)
}
