package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nfrund/roster/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// stubConnection satisfies DBConnection for tests that never reach the driver.
type stubConnection struct {
	queryTimeout   time.Duration
	executeTimeout time.Duration
}

func (s *stubConnection) DB() (*surrealdb.DB, error) { return nil, NewDBError(ErrNotConnected, "stub") }
func (s *stubConnection) WithConnection(context.Context, func(*surrealdb.DB) error) error {
	return NewDBError(ErrNotConnected, "stub")
}
func (s *stubConnection) Close(context.Context) error        { return nil }
func (s *stubConnection) IsHealthy() bool                    { return false }
func (s *stubConnection) StartMonitoring()                   {}
func (s *stubConnection) Connect(context.Context) error      { return nil }
func (s *stubConnection) GetDBURL() string                   { return "ws://localhost:8000/rpc" }
func (s *stubConnection) GetDBNs() string                    { return "test" }
func (s *stubConnection) GetDBDb() string                    { return "test" }
func (s *stubConnection) GetDBQueryTimeout() time.Duration   { return s.queryTimeout }
func (s *stubConnection) GetDBExecuteTimeout() time.Duration { return s.executeTimeout }

type recordedCall struct {
	query    string
	params   map[string]any
	deadline time.Duration
}

// fakeExecutor records every statement and answers from canned rows.
type fakeExecutor[T any] struct {
	calls []recordedCall
	rows  []T
	err   error
}

func (f *fakeExecutor[T]) record(ctx context.Context, query string, params map[string]any) {
	var d time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		d = time.Until(deadline)
	}
	f.calls = append(f.calls, recordedCall{query: query, params: params, deadline: d})
}

func (f *fakeExecutor[T]) Query(ctx context.Context, query string, params map[string]any) ([]T, error) {
	f.record(ctx, query, params)
	return f.rows, f.err
}

func (f *fakeExecutor[T]) QueryOne(ctx context.Context, query string, params map[string]any) (*T, error) {
	f.record(ctx, query, params)
	if f.err != nil || len(f.rows) == 0 {
		return nil, f.err
	}
	return &f.rows[0], nil
}

func (f *fakeExecutor[T]) Execute(ctx context.Context, query string, params map[string]any) error {
	f.record(ctx, query, params)
	return f.err
}

func newTestClient[T any](t *testing.T, exec *fakeExecutor[T]) Client[T] {
	t.Helper()
	c, err := NewClient[T](&stubConnection{queryTimeout: 2 * time.Second, executeTimeout: 4 * time.Second}, WithExecutor[T](exec))
	require.NoError(t, err)
	return c
}

func TestNewClient_RejectsBadConfig(t *testing.T) {
	_, err := NewClient[pictureRow](nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewClient[pictureRow](&stubConnection{queryTimeout: 0, executeTimeout: time.Second})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewClient[pictureRow](&stubConnection{queryTimeout: time.Second, executeTimeout: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClient_AppliesTimeouts(t *testing.T) {
	exec := &fakeExecutor[pictureRow]{}
	c := newTestClient(t, exec)
	ctx := context.Background()

	_, _ = c.Query(ctx, "SELECT * FROM pictures", nil)
	require.NoError(t, c.Execute(ctx, "DELETE pictures", nil))
	_, _ = c.Query(WithQueryTimeout(ctx, 100*time.Millisecond), "SELECT * FROM pictures", nil)

	require.Len(t, exec.calls, 3)
	assert.InDelta(t, 2*time.Second, exec.calls[0].deadline, float64(100*time.Millisecond))
	assert.InDelta(t, 4*time.Second, exec.calls[1].deadline, float64(100*time.Millisecond))
	assert.LessOrEqual(t, exec.calls[2].deadline, 100*time.Millisecond)
}

func TestClient_Select(t *testing.T) {
	t.Run("returns ErrNotFound when the record is missing", func(t *testing.T) {
		c := newTestClient(t, &fakeExecutor[pictureRow]{})
		_, err := c.Select(context.Background(), "pictures:missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("binds the record id as a parameter", func(t *testing.T) {
		exec := &fakeExecutor[pictureRow]{rows: []pictureRow{{Picture: "https://cdn.example.com/a.jpg"}}}
		c := newTestClient(t, exec)

		row, err := c.Select(context.Background(), "pictures:abc")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/a.jpg", row.Picture)
		require.Len(t, exec.calls, 1)
		assert.Equal(t, surrealmodels.NewRecordID("pictures", "abc"), exec.calls[0].params["id"])
	})

	t.Run("rejects malformed ids before querying", func(t *testing.T) {
		exec := &fakeExecutor[pictureRow]{}
		c := newTestClient(t, exec)
		_, err := c.Select(context.Background(), "abc")
		assert.ErrorIs(t, err, ErrInvalidID)
		assert.Empty(t, exec.calls)
	})
}

func TestClient_CreateWrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	c := newTestClient(t, &fakeExecutor[pictureRow]{err: boom})

	_, err := c.Create(context.Background(), "pictures", map[string]any{"picture": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "create operation failed")

	_, err = c.Create(context.Background(), "", map[string]any{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRedactDBURL(t *testing.T) {
	assert.Equal(t, "ws://root:xxxxx@localhost:8000/rpc", redactDBURL("ws://root:secret@localhost:8000/rpc"))
	assert.Equal(t, "ws://localhost:8000/rpc", redactDBURL("ws://localhost:8000/rpc"))
	assert.Equal(t, "invalid-url", redactDBURL("://bad"))
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, isConnectionError(nil))
	assert.False(t, isConnectionError(errors.New("field 'x' is not allowed")))
	assert.True(t, isConnectionError(errors.New("dial tcp: connection refused")))
	assert.True(t, isConnectionError(errors.New("write: broken pipe")))
	assert.True(t, isConnectionError(context.DeadlineExceeded))
}

func TestExponentialBackoffRetryer(t *testing.T) {
	r := &ExponentialBackoffRetryer{maxRetries: 2, baseDelay: time.Millisecond, maxDelay: 5 * time.Millisecond, multiplier: 2}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		attempts := 0
		err := r.Retry(context.Background(), func() error {
			attempts++
			if attempts < 3 {
				return errors.New("transient")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up and wraps the last error", func(t *testing.T) {
		last := errors.New("still down")
		err := r.Retry(context.Background(), func() error { return last })
		assert.ErrorIs(t, err, last)
		assert.Contains(t, err.Error(), "after 3 attempts")
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := r.Retry(ctx, func() error { return errors.New("never called") })
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("delay is capped", func(t *testing.T) {
		assert.Equal(t, 5*time.Millisecond, r.calculateDelay(10))
	})
}

func TestNewConnection_UsesConfig(t *testing.T) {
	cfg := &config.Config{DBUrl: "ws://localhost:8000/rpc", DBNs: "ns", DBDb: "db", DBQueryTimeout: time.Second, DBExecuteTimeout: 2 * time.Second}
	conn := NewConnection(cfg)

	assert.False(t, conn.IsHealthy())
	_, err := conn.DB()
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, "ns", conn.GetDBNs())
	assert.Equal(t, 2*time.Second, conn.GetDBExecuteTimeout())

	err = conn.WithConnection(context.Background(), func(*surrealdb.DB) error { return nil })
	assert.ErrorIs(t, err, ErrNotConnected)

	assert.NoError(t, conn.Close(context.Background()))
	assert.NoError(t, conn.Close(context.Background()), "second close is a no-op")
}
