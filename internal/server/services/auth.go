package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/dbx"
	"github.com/dmitrijs2005/gophtodo/internal/logging"
	"github.com/dmitrijs2005/gophtodo/internal/server/auth"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
	"github.com/dmitrijs2005/gophtodo/internal/server/repositories/repomanager"
)

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	tokens      *auth.TokenCodec
	cookies     *auth.CookieTransport
	logger      logging.Logger
}

func NewAuthService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenCodec,
	cookies *auth.CookieTransport,
	logger logging.Logger,
) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		cookies:     cookies,
		logger:      logger.With("module", "auth_service"),
	}
}

// Register validates the input and creates an account. It does not start a
// session. The email lookup is advisory; the store's unique constraint
// decides concurrent sign-ups, and both paths yield common.ErrorAlreadyExists.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	if err := validateSignUp(strings.TrimSpace(email), password); err != nil {
		return nil, err
	}

	normalized := NormalizeEmail(email)
	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByEmail(ctx, normalized)
	switch {
	case err == nil:
		return nil, common.ErrorAlreadyExists
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	displayName := strings.TrimSpace(name)
	if displayName == "" {
		displayName = defaultName(email)
	}

	user, err := repo.Create(ctx, &models.User{
		Email:        normalized,
		PasswordHash: hash,
		Name:         &displayName,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate checks credentials. A missing account and a wrong password
// produce the same common.ErrorInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	if err := validateSignIn(strings.TrimSpace(email), password); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidCredentials
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrorInvalidCredentials
	}

	return user, nil
}

func (s *AuthService) startSession(w http.ResponseWriter, user *models.User) error {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return fmt.Errorf("error issuing token: %w", err)
	}
	s.cookies.Attach(w, token)
	return nil
}

// SignUp registers an account and signs it in.
func (s *AuthService) SignUp(ctx context.Context, w http.ResponseWriter, email, password, name string) common.Result[models.User] {
	user, err := s.Register(ctx, email, password, name)
	if err != nil {
		return fail[models.User](ctx, s.logger, "sign up", err)
	}
	if err := s.startSession(w, user); err != nil {
		return fail[models.User](ctx, s.logger, "sign up", err)
	}
	return common.OK(*user)
}

func (s *AuthService) SignIn(ctx context.Context, w http.ResponseWriter, email, password string) common.Result[models.User] {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return fail[models.User](ctx, s.logger, "sign in", err)
	}
	if err := s.startSession(w, user); err != nil {
		return fail[models.User](ctx, s.logger, "sign in", err)
	}
	s.logger.Info(ctx, "user signed in", "user_id", user.ID)
	return common.OK(*user)
}

// SignOut clears the session cookie. Where the client goes next is up to
// the presentation layer.
func (s *AuthService) SignOut(w http.ResponseWriter) common.Result[struct{}] {
	s.cookies.Detach(w)
	return common.Done()
}

// CurrentUser resolves the caller of r. It returns (nil, nil) for an
// anonymous caller: no cookie, a token that does not verify, or a user
// that no longer exists. The user is re-read on every call, so deleting
// an account ends its sessions. A non-nil error means the store failed.
func (s *AuthService) CurrentUser(ctx context.Context, r *http.Request) (*models.User, error) {
	token, ok := s.cookies.Read(r)
	if !ok {
		return nil, nil
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Debug(ctx, "rejected session token", "error", err)
		return nil, nil
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error loading session user: %w", err)
	}

	return user, nil
}

// Me is CurrentUser as an entry point.
func (s *AuthService) Me(ctx context.Context, r *http.Request) common.Result[models.User] {
	user, err := s.CurrentUser(ctx, r)
	if err != nil {
		return fail[models.User](ctx, s.logger, "current user", err)
	}
	if user == nil {
		return common.Fail[models.User](common.ErrorUnauthenticated)
	}
	return common.OK(*user)
}

// DeleteUser removes the account registered under email together with its
// todos. Outstanding session tokens stop resolving on their next use.
func (s *AuthService) DeleteUser(ctx context.Context, email string) error {
	normalized := NormalizeEmail(email)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetByEmail(ctx, normalized)
		if err != nil {
			return err
		}

		if err := repo.Delete(ctx, user.ID); err != nil {
			return fmt.Errorf("error deleting user: %w", err)
		}

		s.logger.Info(ctx, "user deleted", "user_id", user.ID)
		return nil
	})
}
