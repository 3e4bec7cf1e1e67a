package registry

import (
	"fmt"

	"github.com/nfrund/roster/internal/config"
	"github.com/samber/do/v2"
)

// Key is a type-safe key for registering and retrieving services. The string
// value should be unique, e.g. "userdata.manager".
type Key[T any] string

// Registry lets the server and modules share services. It is backed by a
// samber/do injector, so services can be provided eagerly as values or
// lazily through a constructor.
type Registry struct {
	injector *do.RootScope
	cfg      config.Provider
}

// New creates a registry holding the application's configuration provider.
func New(cfg config.Provider) *Registry {
	injector := do.New()
	do.ProvideValue(injector, cfg)
	return &Registry{injector: injector, cfg: cfg}
}

// Config returns the configuration provider stored in the registry.
func (r *Registry) Config() config.Provider {
	return r.cfg
}

// Set registers value under key, replacing any earlier registration.
func Set[T any](r *Registry, key Key[T], value T) {
	do.OverrideNamedValue(r.injector, string(key), value)
}

// Provide registers a constructor that runs on first Get.
func Provide[T any](r *Registry, key Key[T], build func(r *Registry) (T, error)) {
	do.OverrideNamed(r.injector, string(key), func(do.Injector) (T, error) {
		return build(r)
	})
}

// Get retrieves the service registered under key.
func Get[T any](r *Registry, key Key[T]) (T, bool) {
	val, err := do.InvokeNamed[T](r.injector, string(key))
	if err != nil {
		var zero T
		return zero, false
	}
	return val, true
}

// Resolve is Get with the reason a service is unavailable.
func Resolve[T any](r *Registry, key Key[T]) (T, error) {
	val, err := do.InvokeNamed[T](r.injector, string(key))
	if err != nil {
		var zero T
		return zero, fmt.Errorf("resolve %s: %w", key, err)
	}
	return val, nil
}

// MustGet retrieves a service or panics if it is missing. Use it while wiring
// essential dependencies at startup.
func MustGet[T any](r *Registry, key Key[T]) T {
	val, err := Resolve(r, key)
	if err != nil {
		panic(err)
	}
	return val
}

// Shutdown shuts down every service that implements one of samber/do's
// shutdown interfaces.
func (r *Registry) Shutdown() {
	r.injector.Shutdown()
}
