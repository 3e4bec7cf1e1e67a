package database

import (
	"context"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// QueryExecutor runs SurrealQL and decodes the first statement's result into T.
// The Client uses it internally; tests swap it for a fake.
type QueryExecutor[T any] interface {
	// Query returns every row of the first statement.
	Query(ctx context.Context, query string, params map[string]any) ([]T, error)

	// QueryOne returns the first row, or (nil, nil) when there is none.
	QueryOne(ctx context.Context, query string, params map[string]any) (*T, error)

	// Execute runs a statement and discards its rows.
	Execute(ctx context.Context, query string, params map[string]any) error
}

// NewSurrealExecutor returns an executor bound to a managed connection.
func NewSurrealExecutor[T any](conn DBConnection) QueryExecutor[T] {
	return &surrealExecutor[T]{conn: conn}
}

type surrealExecutor[T any] struct {
	conn DBConnection
}

func (e *surrealExecutor[T]) Query(ctx context.Context, query string, params map[string]any) ([]T, error) {
	var rows []T
	err := e.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		results, err := surrealdb.Query[[]T](ctx, db, query, params)
		if err != nil {
			return err
		}
		if results == nil || len(*results) == 0 {
			return nil
		}
		first := (*results)[0]
		if first.Status != "" && first.Status != "OK" {
			return NewDBError(ErrQueryFailed, first.Status)
		}
		rows = first.Result
		return nil
	})
	if err != nil {
		return nil, NewDBError(err, "query execution failed").WithQuery(query)
	}
	return rows, nil
}

func (e *surrealExecutor[T]) QueryOne(ctx context.Context, query string, params map[string]any) (*T, error) {
	// CREATE/UPDATE/DELETE statements don't support LIMIT.
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT") && !hasLimitClause(query) {
		query += " LIMIT 1"
	}

	rows, err := e.Query(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (e *surrealExecutor[T]) Execute(ctx context.Context, query string, params map[string]any) error {
	err := e.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		_, err := surrealdb.Query[any](ctx, db, query, params)
		return err
	})
	if err != nil {
		return NewDBError(err, "query execution failed").WithQuery(query)
	}
	return nil
}

func hasLimitClause(query string) bool {
	query = " " + strings.ToUpper(query) + " "
	return strings.Contains(query, " LIMIT ")
}
