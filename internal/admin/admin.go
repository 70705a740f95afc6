// Package admin implements the operator commands of cmd/admin: creating
// accounts outside the sign-up form and deleting them, which also revokes
// every session of the deleted account.
package admin

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/flagx"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
)

// UserAdmin is the account surface the commands need.
type UserAdmin interface {
	Register(ctx context.Context, email, password, name string) (*models.User, error)
	DeleteUser(ctx context.Context, email string) error
}

// ErrUsage is returned for an unknown command or bad command flags.
var ErrUsage = errors.New("usage error")

const usage = `usage: admin <command> [flags]

commands:
  create-user -email EMAIL [-name NAME]   create an account; the password is prompted
  delete-user -email EMAIL                delete an account, its todos and sessions
`

// Run executes the command named by args[0].
func Run(ctx context.Context, args []string, ua UserAdmin, in *bufio.Reader, out io.Writer) error {
	cmd, rest := flagx.SplitSubcommand(args)

	switch cmd {
	case "create-user":
		return createUser(ctx, rest, ua, in, out)
	case "delete-user":
		return deleteUser(ctx, rest, ua, out)
	case "help", "":
		fmt.Fprint(out, usage)
		if cmd == "" {
			return ErrUsage
		}
		return nil
	default:
		fmt.Fprintf(out, "unknown command %q\n\n%s", cmd, usage)
		return ErrUsage
	}
}

func parseCommand(name string, args []string, out io.Writer, define func(fs *flag.FlagSet)) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	define(fs)

	// config flags (-d, -c, ...) may be mixed in; they belong to the config loader
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "-name"})); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

func createUser(ctx context.Context, args []string, ua UserAdmin, in *bufio.Reader, out io.Writer) error {
	var email, name string
	err := parseCommand("create-user", args, out, func(fs *flag.FlagSet) {
		fs.StringVar(&email, "email", "", "account email")
		fs.StringVar(&name, "name", "", "display name (defaults to the email local part)")
	})
	if err != nil {
		return err
	}
	if email == "" {
		return fmt.Errorf("%w: -email is required", ErrUsage)
	}

	password, err := GetPassword(in, "Password", out)
	if err != nil {
		return fmt.Errorf("error reading password: %w", err)
	}
	confirm, err := GetPassword(in, "Repeat password", out)
	if err != nil {
		return fmt.Errorf("error reading password: %w", err)
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	user, err := ua.Register(ctx, email, password, name)
	if err != nil {
		return errors.New(describe(err))
	}

	fmt.Fprintf(out, "created user %s (%s)\n", user.Email, user.ID)
	return nil
}

func deleteUser(ctx context.Context, args []string, ua UserAdmin, out io.Writer) error {
	var email string
	err := parseCommand("delete-user", args, out, func(fs *flag.FlagSet) {
		fs.StringVar(&email, "email", "", "account email")
	})
	if err != nil {
		return err
	}
	if email == "" {
		return fmt.Errorf("%w: -email is required", ErrUsage)
	}

	if err := ua.DeleteUser(ctx, email); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("no user with email %s", email)
		}
		return err
	}

	fmt.Fprintf(out, "deleted user %s\n", email)
	return nil
}

// describe keeps the operator-facing wording of domain errors and the
// full detail of everything else.
func describe(err error) string {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, common.ErrorAlreadyExists):
		return common.MessageConflict
	default:
		return err.Error()
	}
}
