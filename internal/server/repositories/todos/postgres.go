// Package todos provides the PostgreSQL-backed todo repository.
package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/dbx"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
	"github.com/google/uuid"
)

const todoColumns = `id, user_id, title, description, completed, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts todo for todo.UserID with a fresh ID. Completed and the
// timestamps are filled from the database defaults.
func (r *PostgresRepository) Create(ctx context.Context, todo *models.Todo) (*models.Todo, error) {
	query := `
		INSERT INTO todos (id, user_id, title, description)
		VALUES ($1, $2, $3, $4)
		RETURNING completed, created_at, updated_at
	`
	id := uuid.NewString()
	err := r.db.QueryRowContext(ctx, query, id, todo.UserID, todo.Title, todo.Description).
		Scan(&todo.Completed, &todo.CreatedAt, &todo.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	todo.ID = id
	return todo, nil
}

// ListByUser returns the user's todos, newest first. No todos is an empty,
// non-nil slice.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select todos: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Todo, 0)
	for rows.Next() {
		item, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetOwned returns common.ErrorNotFound both when the todo does not exist
// and when it belongs to someone else.
func (r *PostgresRepository) GetOwned(ctx context.Context, id, userID string) (*models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos
		WHERE id = $1 AND user_id = $2
	`
	return r.one(ctx, query, id, userID)
}

// ToggleCompleted flips the completed flag of an owned todo and returns the
// updated row.
func (r *PostgresRepository) ToggleCompleted(ctx context.Context, id, userID string) (*models.Todo, error) {
	query := `
		UPDATE todos SET completed = NOT completed, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + todoColumns
	return r.one(ctx, query, id, userID)
}

// DeleteOwned deletes an owned todo; common.ErrorNotFound when nothing matched.
func (r *PostgresRepository) DeleteOwned(ctx context.Context, id, userID string) error {
	query := `DELETE FROM todos WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 0:
		return common.ErrorNotFound
	case 1:
		return nil
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) one(ctx context.Context, query string, args ...any) (*models.Todo, error) {
	todo, err := scanTodo(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return todo, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(s scanner) (*models.Todo, error) {
	var item models.Todo
	if err := s.Scan(
		&item.ID, &item.UserID, &item.Title, &item.Description,
		&item.Completed, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}
