package database

import (
	"context"
	"time"
)

// Client is a type-safe set of operations over records decoded as T.
type Client[T any] interface {
	// Create inserts data into table and returns the stored record.
	Create(ctx context.Context, table string, data any) (*T, error)

	// Select retrieves a record by its full ID (e.g., "users:123").
	// Returns ErrNotFound if no record exists with the given ID.
	Select(ctx context.Context, id string) (*T, error)

	// Update merges data into the record with the given ID.
	Update(ctx context.Context, id string, data any) (*T, error)

	// Delete removes a record with the given ID.
	Delete(ctx context.Context, id string) error

	Query(ctx context.Context, query string, params map[string]any) ([]T, error)
	QueryOne(ctx context.Context, query string, params map[string]any) (*T, error)
	Execute(ctx context.Context, query string, params map[string]any) error
}

// ClientOption configures a Client.
type ClientOption[T any] func(*client[T])

// WithExecutor configures the client to use a custom QueryExecutor.
// This is useful for testing or for adding middleware to the executor.
func WithExecutor[T any](executor QueryExecutor[T]) ClientOption[T] {
	return func(c *client[T]) {
		c.executor = executor
	}
}

type client[T any] struct {
	executor       QueryExecutor[T]
	queryTimeout   time.Duration
	executeTimeout time.Duration
}

// NewClient creates a type-safe client over conn. Timeouts come from the
// connection's configuration and must be positive.
func NewClient[T any](conn DBConnection, opts ...ClientOption[T]) (Client[T], error) {
	if conn == nil {
		return nil, NewDBError(ErrInvalidInput, "connection cannot be nil")
	}

	queryTimeout := conn.GetDBQueryTimeout()
	if queryTimeout <= 0 {
		return nil, NewDBError(ErrInvalidInput, "DB_QUERY_TIMEOUT must be a positive duration")
	}
	executeTimeout := conn.GetDBExecuteTimeout()
	if executeTimeout <= 0 {
		return nil, NewDBError(ErrInvalidInput, "DB_EXECUTE_TIMEOUT must be a positive duration")
	}

	c := &client[T]{
		executor:       NewSurrealExecutor[T](conn),
		queryTimeout:   queryTimeout,
		executeTimeout: executeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *client[T]) Query(ctx context.Context, query string, params map[string]any) ([]T, error) {
	ctx, cancel := getTimeoutFromContext(ctx, c.queryTimeout, ContextKeyQueryTimeout)
	defer cancel()
	return c.executor.Query(ctx, query, params)
}

func (c *client[T]) QueryOne(ctx context.Context, query string, params map[string]any) (*T, error) {
	ctx, cancel := getTimeoutFromContext(ctx, c.queryTimeout, ContextKeyQueryTimeout)
	defer cancel()
	return c.executor.QueryOne(ctx, query, params)
}

func (c *client[T]) Execute(ctx context.Context, query string, params map[string]any) error {
	ctx, cancel := getTimeoutFromContext(ctx, c.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()
	return c.executor.Execute(ctx, query, params)
}

func (c *client[T]) Create(ctx context.Context, table string, data any) (*T, error) {
	if table == "" {
		return nil, NewDBError(ErrInvalidInput, "table cannot be empty")
	}
	if data == nil {
		return nil, NewDBError(ErrInvalidInput, "data cannot be nil")
	}

	ctx, cancel := getTimeoutFromContext(ctx, c.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()

	result, err := c.executor.QueryOne(ctx, "CREATE type::table($table) CONTENT $data",
		map[string]any{"table": table, "data": data})
	if err != nil {
		return nil, WrapError(err, "create operation failed")
	}
	return result, nil
}

func (c *client[T]) Select(ctx context.Context, id string) (*T, error) {
	rid, err := ParseRecordID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := getTimeoutFromContext(ctx, c.queryTimeout, ContextKeyQueryTimeout)
	defer cancel()

	result, err := c.executor.QueryOne(ctx, "SELECT * FROM $id", map[string]any{"id": rid})
	if err != nil {
		return nil, WrapError(err, "select operation failed")
	}
	if result == nil {
		return nil, NewDBError(ErrNotFound, "record not found")
	}
	return result, nil
}

func (c *client[T]) Update(ctx context.Context, id string, data any) (*T, error) {
	rid, err := ParseRecordID(id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, NewDBError(ErrInvalidInput, "data cannot be nil")
	}

	ctx, cancel := getTimeoutFromContext(ctx, c.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()

	result, err := c.executor.QueryOne(ctx, "UPDATE $id MERGE $data", map[string]any{"id": rid, "data": data})
	if err != nil {
		return nil, WrapError(err, "update operation failed")
	}
	if result == nil {
		return nil, NewDBError(ErrNotFound, "record not found")
	}
	return result, nil
}

func (c *client[T]) Delete(ctx context.Context, id string) error {
	rid, err := ParseRecordID(id)
	if err != nil {
		return err
	}

	ctx, cancel := getTimeoutFromContext(ctx, c.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()

	return c.executor.Execute(ctx, "DELETE $id", map[string]any{"id": rid})
}
