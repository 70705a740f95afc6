// Package httpapi exposes the auth and todo services over HTTP with gin.
// Every response body is a common.Result envelope.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/logging"
	"github.com/dmitrijs2005/gophtodo/internal/server/events"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// AuthAPI is the account surface the handlers need.
type AuthAPI interface {
	SignUp(ctx context.Context, w http.ResponseWriter, email, password, name string) common.Result[models.User]
	SignIn(ctx context.Context, w http.ResponseWriter, email, password string) common.Result[models.User]
	SignOut(w http.ResponseWriter) common.Result[struct{}]
	Me(ctx context.Context, r *http.Request) common.Result[models.User]
	CurrentUser(ctx context.Context, r *http.Request) (*models.User, error)
}

// TodoAPI is the todo surface the handlers need.
type TodoAPI interface {
	List(ctx context.Context, r *http.Request) common.Result[[]*models.Todo]
	Get(ctx context.Context, r *http.Request, id string) common.Result[models.Todo]
	Create(ctx context.Context, r *http.Request, title, description string) common.Result[models.Todo]
	Delete(ctx context.Context, r *http.Request, id string) common.Result[struct{}]
	ToggleComplete(ctx context.Context, r *http.Request, id string) common.Result[models.Todo]
}

type HTTPServer struct {
	address   string
	auth      AuthAPI
	todos     TodoAPI
	events    events.Subscriber
	logger    logging.Logger
	origins   []string
	keepAlive time.Duration
}

func NewHTTPServer(a string, l logging.Logger, as AuthAPI, ts TodoAPI, sub events.Subscriber, origins []string) *HTTPServer {
	return &HTTPServer{
		address:   a,
		logger:    l.With("module", "http_server"),
		auth:      as,
		todos:     ts,
		events:    sub,
		origins:   origins,
		keepAlive: 25 * time.Second,
	}
}

// Handler builds the gin engine with all routes registered.
func (s *HTTPServer) Handler() http.Handler {
	router := gin.New()
	router.Use(s.recovery(), s.requestLogger())

	if len(s.origins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = s.origins
		corsConfig.AllowCredentials = true
		corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		router.Use(cors.New(corsConfig))
	}

	router.GET("/health", s.health)

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/signup", s.signUp)
			authRoutes.POST("/signin", s.signIn)
			authRoutes.POST("/signout", s.signOut)
			authRoutes.GET("/me", s.me)
		}

		todoRoutes := api.Group("/todos")
		{
			todoRoutes.GET("", s.listTodos)
			todoRoutes.POST("", s.createTodo)
			todoRoutes.GET("/events", s.todoEvents)
			todoRoutes.GET("/:id", s.getTodo)
			todoRoutes.DELETE("/:id", s.deleteTodo)
			todoRoutes.POST("/:id/toggle", s.toggleTodo)
		}
	}

	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-stopped
}
