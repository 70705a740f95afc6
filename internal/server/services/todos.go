package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/logging"
	"github.com/dmitrijs2005/gophtodo/internal/server/events"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
	"github.com/dmitrijs2005/gophtodo/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Identity resolves the user behind a request; (nil, nil) means anonymous.
type Identity interface {
	CurrentUser(ctx context.Context, r *http.Request) (*models.User, error)
}

// TodoService manages the caller's todos. Every single-todo operation is
// gated on id and owner together, so a todo owned by someone else is
// reported exactly like one that does not exist.
type TodoService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	identity    Identity
	publisher   events.Publisher
	logger      logging.Logger
	now         func() time.Time
}

func NewTodoService(db *sql.DB, m repomanager.RepositoryManager, identity Identity, publisher events.Publisher, logger logging.Logger) *TodoService {
	return &TodoService{
		db:          db,
		repomanager: m,
		identity:    identity,
		publisher:   publisher,
		logger:      logger.With("module", "todo_service"),
		now:         time.Now,
	}
}

func (s *TodoService) caller(ctx context.Context, r *http.Request) (*models.User, error) {
	user, err := s.identity.CurrentUser(ctx, r)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, common.ErrorUnauthenticated
	}
	return user, nil
}

// todoID rejects ids that cannot name any todo. Such ids are reported as
// not found, like any other unknown id.
func todoID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", common.ErrorNotFound
	}
	return parsed.String(), nil
}

func (s *TodoService) notify(ctx context.Context, userID, todoID string, action events.Action) {
	if s.publisher == nil {
		return
	}
	ev := events.TodosChanged{UserID: userID, TodoID: todoID, Action: action, At: s.now().UTC()}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn(ctx, "error publishing todo event", "user_id", userID, "action", action, "error", err)
	}
}

// List returns the caller's todos, newest first.
func (s *TodoService) List(ctx context.Context, r *http.Request) common.Result[[]*models.Todo] {
	user, err := s.caller(ctx, r)
	if err != nil {
		return fail[[]*models.Todo](ctx, s.logger, "list todos", err)
	}

	list, err := s.repomanager.Todos(s.db).ListByUser(ctx, user.ID)
	if err != nil {
		return fail[[]*models.Todo](ctx, s.logger, "list todos", fmt.Errorf("error listing todos: %w", err))
	}

	return common.OK(list)
}

func (s *TodoService) Get(ctx context.Context, r *http.Request, id string) common.Result[models.Todo] {
	user, err := s.caller(ctx, r)
	if err != nil {
		return fail[models.Todo](ctx, s.logger, "get todo", err)
	}

	tid, err := todoID(id)
	if err != nil {
		return fail[models.Todo](ctx, s.logger, "get todo", err)
	}

	todo, err := s.repomanager.Todos(s.db).GetOwned(ctx, tid, user.ID)
	if err != nil {
		return fail[models.Todo](ctx, s.logger, "get todo", err)
	}

	return common.OK(*todo)
}

// Create stores a new todo owned by the caller. The title is trimmed and
// must not be empty; a blank description is stored as null.
func (s *TodoService) Create(ctx context.Context, r *http.Request, title, description string) common.Result[models.Todo] {
	user, err := s.caller(ctx, r)
	if err != nil {
		return fail[models.Todo](ctx, s.logger, "create todo", err)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return common.Fail[models.Todo](common.NewValidationError(msgTitleRequired))
	}

	todo, err := s.repomanager.Todos(s.db).Create(ctx, &models.Todo{
		UserID:      user.ID,
		Title:       title,
		Description: optionalText(description),
	})
	if err != nil {
		return fail[models.Todo](ctx, s.logger, "create todo", fmt.Errorf("error creating todo: %w", err))
	}

	s.notify(ctx, user.ID, todo.ID, events.ActionCreated)
	return common.OK(*todo)
}

func (s *TodoService) Delete(ctx context.Context, r *http.Request, id string) common.Result[struct{}] {
	user, err := s.caller(ctx, r)
	if err != nil {
		return fail[struct{}](ctx, s.logger, "delete todo", err)
	}

	tid, err := todoID(id)
	if err != nil {
		return fail[struct{}](ctx, s.logger, "delete todo", err)
	}

	if err := s.repomanager.Todos(s.db).DeleteOwned(ctx, tid, user.ID); err != nil {
		return fail[struct{}](ctx, s.logger, "delete todo", err)
	}

	s.notify(ctx, user.ID, tid, events.ActionDeleted)
	return common.Done()
}

// ToggleComplete flips the completed flag and returns the updated todo.
func (s *TodoService) ToggleComplete(ctx context.Context, r *http.Request, id string) common.Result[models.Todo] {
	user, err := s.caller(ctx, r)
	if err != nil {
		return fail[models.Todo](ctx, s.logger, "toggle todo", err)
	}

	tid, err := todoID(id)
	if err != nil {
		return fail[models.Todo](ctx, s.logger, "toggle todo", err)
	}

	todo, err := s.repomanager.Todos(s.db).ToggleCompleted(ctx, tid, user.ID)
	if err != nil {
		return fail[models.Todo](ctx, s.logger, "toggle todo", err)
	}

	s.notify(ctx, user.ID, todo.ID, events.ActionToggled)
	return common.OK(*todo)
}
