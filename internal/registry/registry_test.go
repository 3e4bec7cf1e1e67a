package registry

import (
	"errors"
	"testing"

	"github.com/nfrund/roster/internal/auth"
	"github.com/nfrund/roster/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	cfg := &config.Config{ServerAddr: ":9999"}
	r := New(cfg)
	assert.Equal(t, ":9999", r.Config().GetServerAddr())

	_, ok := Get(r, SessionRegistryKey)
	assert.False(t, ok, "nothing registered yet")
	_, err := Resolve(r, SessionRegistryKey)
	assert.Error(t, err)
	assert.Panics(t, func() { MustGet(r, SessionRegistryKey) })

	sessions := auth.NewRegistry()
	Set(r, SessionRegistryKey, sessions)
	assert.Same(t, sessions, MustGet(r, SessionRegistryKey))

	replacement := auth.NewRegistry()
	Set(r, SessionRegistryKey, replacement)
	assert.Same(t, replacement, MustGet(r, SessionRegistryKey), "set replaces")
}

func TestRegistry_ProvideIsLazy(t *testing.T) {
	r := New(&config.Config{})
	calls := 0
	key := Key[string]("test.greeting")
	Provide(r, key, func(*Registry) (string, error) {
		calls++
		return "hello", nil
	})
	assert.Zero(t, calls)

	assert.Equal(t, "hello", MustGet(r, key))
	assert.Equal(t, "hello", MustGet(r, key))
	assert.Equal(t, 1, calls, "built once")

	failing := Key[int]("test.failing")
	Provide(r, failing, func(*Registry) (int, error) { return 0, errors.New("no database") })
	_, err := Resolve(r, failing)
	require.Error(t, err)

	r.Shutdown()
}
