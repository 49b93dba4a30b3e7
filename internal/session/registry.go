package session

import (
	"errors"
	"fmt"
	"sort"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrUnknownEngine is returned when no engine is registered under a name.
	ErrUnknownEngine = errors.New("unknown session engine")
	// ErrMissingBackend is returned when an engine needs a connection that
	// was not provided.
	ErrMissingBackend = errors.New("session engine backend not configured")
)

// Backends carries the connections engines may build their store on.
type Backends struct {
	DB    *sqlx.DB
	Redis *redis.Client
}

// OpenFunc builds the scs.Store for an engine.
type OpenFunc func(b Backends) (scs.Store, error)

// Registry maps engine names to store constructors.
type Registry struct {
	engines map[string]OpenFunc
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]OpenFunc)}
}

// DefaultRegistry returns a Registry with the memory, mysql, sqlite3 and
// redis engines. The SQL engines run no cleanup goroutine; expired rows are
// removed by whoever writes the sessions table.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("memory", func(Backends) (scs.Store, error) {
		return memstore.New(), nil
	})
	r.Register("mysql", func(b Backends) (scs.Store, error) {
		if b.DB == nil {
			return nil, fmt.Errorf("mysql: %w", ErrMissingBackend)
		}
		return mysqlstore.NewWithCleanupInterval(b.DB.DB, 0), nil
	})
	r.Register("sqlite3", func(b Backends) (scs.Store, error) {
		if b.DB == nil {
			return nil, fmt.Errorf("sqlite3: %w", ErrMissingBackend)
		}
		return sqlite3store.NewWithCleanupInterval(b.DB.DB, 0), nil
	})
	r.Register("redis", func(b Backends) (scs.Store, error) {
		if b.Redis == nil {
			return nil, fmt.Errorf("redis: %w", ErrMissingBackend)
		}
		return goredisstore.New(b.Redis), nil
	})
	return r
}

// Register adds or replaces an engine.
func (r *Registry) Register(name string, open OpenFunc) {
	r.engines[name] = open
}

// Engines returns the registered engine names in sorted order.
func (r *Registry) Engines() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds the named engine's store and returns a Factory over it.
func (r *Registry) Open(name string, b Backends) (Factory, error) {
	open, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	store, err := open(b)
	if err != nil {
		return nil, err
	}
	return NewFactory(store, nil), nil
}
