// Package services holds the application logic behind every entry point:
// account and session handling (AuthService) and ownership-gated todo
// management (TodoService). Entry points never return bare errors; they
// return a common.Result whose message is safe to show to the caller.
package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/logging"
)

// expected reports whether err is a domain outcome rather than an
// operational failure.
func expected(err error) bool {
	return errors.Is(err, common.ErrorValidation) ||
		errors.Is(err, common.ErrorAlreadyExists) ||
		errors.Is(err, common.ErrorInvalidCredentials) ||
		errors.Is(err, common.ErrorUnauthenticated) ||
		errors.Is(err, common.ErrorNotFound)
}

// fail builds a failed Result. Operational errors are logged with full
// detail here; the caller only ever sees common.MessageUnexpected.
func fail[T any](ctx context.Context, log logging.Logger, op string, err error) common.Result[T] {
	if !expected(err) {
		log.Error(ctx, "operation failed", "op", op, "error", err)
	}
	return common.Fail[T](err)
}
