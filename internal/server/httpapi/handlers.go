package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/gin-gonic/gin"
)

const msgBadBody = "Invalid request body"

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createTodoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func badBody(c *gin.Context) {
	respond(c, http.StatusOK, common.Fail[struct{}](common.NewValidationError(msgBadBody)))
}

func (s *HTTPServer) health(c *gin.Context) {
	respond(c, http.StatusOK, common.OK(gin.H{"status": "ok"}))
}

func (s *HTTPServer) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}
	res := s.auth.SignUp(c.Request.Context(), c.Writer, req.Email, req.Password, req.Name)
	respond(c, http.StatusCreated, res)
}

func (s *HTTPServer) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}
	respond(c, http.StatusOK, s.auth.SignIn(c.Request.Context(), c.Writer, req.Email, req.Password))
}

func (s *HTTPServer) signOut(c *gin.Context) {
	respond(c, http.StatusOK, s.auth.SignOut(c.Writer))
}

func (s *HTTPServer) me(c *gin.Context) {
	respond(c, http.StatusOK, s.auth.Me(c.Request.Context(), c.Request))
}

func (s *HTTPServer) listTodos(c *gin.Context) {
	respond(c, http.StatusOK, s.todos.List(c.Request.Context(), c.Request))
}

func (s *HTTPServer) getTodo(c *gin.Context) {
	respond(c, http.StatusOK, s.todos.Get(c.Request.Context(), c.Request, c.Param("id")))
}

func (s *HTTPServer) createTodo(c *gin.Context) {
	var req createTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}
	respond(c, http.StatusCreated, s.todos.Create(c.Request.Context(), c.Request, req.Title, req.Description))
}

func (s *HTTPServer) deleteTodo(c *gin.Context) {
	respond(c, http.StatusOK, s.todos.Delete(c.Request.Context(), c.Request, c.Param("id")))
}

func (s *HTTPServer) toggleTodo(c *gin.Context) {
	respond(c, http.StatusOK, s.todos.ToggleComplete(c.Request.Context(), c.Request, c.Param("id")))
}

// todoEvents streams the caller's change events as server-sent events
// until the client goes away. A "ready" event confirms the subscription;
// "ping" events keep idle connections open through proxies.
func (s *HTTPServer) todoEvents(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := s.auth.CurrentUser(ctx, c.Request)
	if err != nil {
		s.logger.Error(ctx, "error resolving event subscriber", "error", err)
		respond(c, http.StatusOK, common.Fail[struct{}](common.ErrorInternal))
		return
	}
	if user == nil {
		respond(c, http.StatusOK, common.Fail[struct{}](common.ErrorUnauthenticated))
		return
	}

	ch, err := s.events.Subscribe(ctx, user.ID)
	if err != nil {
		s.logger.Error(ctx, "error subscribing to todo events", "user_id", user.ID, "error", err)
		respond(c, http.StatusOK, common.Fail[struct{}](common.ErrorInternal))
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("ready", gin.H{"userId": user.ID})
	c.Writer.Flush()

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent("todos", ev)
		case t := <-ticker.C:
			c.SSEvent("ping", t.UTC().Format(time.RFC3339))
		}
		c.Writer.Flush()
	}
}
