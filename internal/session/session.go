package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
)

// Session is a read handle on a stored session. Nothing is read from the
// store until the first accessor is called; a missing or expired session
// behaves as an empty one.
type Session struct {
	key   string
	store scs.Store
	codec scs.Codec

	once     sync.Once
	found    bool
	deadline time.Time
	values   map[string]interface{}
	err      error
}

// Factory opens the session stored under key.
type Factory func(key string) *Session

// NewFactory returns a Factory reading from store. A nil codec selects
// scs.GobCodec, the format scs.SessionManager writes by default.
func NewFactory(store scs.Store, codec scs.Codec) Factory {
	if codec == nil {
		codec = scs.GobCodec{}
	}
	return func(key string) *Session {
		return &Session{key: key, store: store, codec: codec}
	}
}

// Key returns the session token.
func (s *Session) Key() string {
	return s.key
}

func (s *Session) load(ctx context.Context) error {
	s.once.Do(func() {
		var (
			b     []byte
			found bool
			err   error
		)
		if cs, ok := s.store.(scs.CtxStore); ok {
			b, found, err = cs.FindCtx(ctx, s.key)
		} else {
			b, found, err = s.store.Find(s.key)
		}
		if err != nil {
			s.err = fmt.Errorf("failed to find session: %w", err)
			return
		}
		if !found {
			return
		}

		deadline, values, err := s.codec.Decode(b)
		if err != nil {
			s.err = fmt.Errorf("failed to decode session: %w", err)
			return
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return
		}
		s.found = true
		s.deadline = deadline
		s.values = values
	})
	return s.err
}

// Exists reports whether the store holds a live session for the key.
func (s *Session) Exists(ctx context.Context) (bool, error) {
	if err := s.load(ctx); err != nil {
		return false, err
	}
	return s.found, nil
}

// Deadline returns the session expiry, or the zero time when the session
// does not exist.
func (s *Session) Deadline(ctx context.Context) (time.Time, error) {
	if err := s.load(ctx); err != nil {
		return time.Time{}, err
	}
	return s.deadline, nil
}

// Get returns the value stored under name, or nil.
func (s *Session) Get(ctx context.Context, name string) (interface{}, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s.values[name], nil
}

// GetString returns the string stored under name. Missing values and values
// of another type yield "".
func (s *Session) GetString(ctx context.Context, name string) (string, error) {
	v, err := s.Get(ctx, name)
	if err != nil {
		return "", err
	}
	str, _ := v.(string)
	return str, nil
}

// Commit encodes values and writes them under token in the format the web
// application's scs.SessionManager reads.
func Commit(ctx context.Context, store scs.Store, codec scs.Codec, token string, values map[string]interface{}, deadline time.Time) error {
	if codec == nil {
		codec = scs.GobCodec{}
	}
	b, err := codec.Encode(deadline, values)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if cs, ok := store.(scs.CtxStore); ok {
		err = cs.CommitCtx(ctx, token, b, deadline)
	} else {
		err = store.Commit(token, b, deadline)
	}
	if err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}
