// Package resolver answers "who is this user?" for requests that never went
// through the web application's middleware stack, such as websocket upgrades
// handled by the relay. It rebuilds the session from the session cookie and
// attaches a user that is only looked up when first read.
package resolver

import (
	"context"
	"errors"
	"go-ws-relay/internal/auth"
	"go-ws-relay/internal/lazy"
	"go-ws-relay/internal/session"
	"net/http"
)

// Feature names recognized in the enabled feature list.
const (
	FeatureSessions = "sessions"
	FeatureAuth     = "auth"
)

var (
	// ErrUserUnset is returned when the request carries no user: the sessions
	// feature is disabled and the caller did not set Request.User.
	ErrUserUnset = errors.New("request has no user attached")
	// ErrNoSessionStore is returned when sessions are enabled without a
	// session factory.
	ErrNoSessionStore = errors.New("sessions enabled but no session store configured")
	// ErrNoCookieName is returned when sessions are enabled without a cookie
	// name.
	ErrNoCookieName = errors.New("sessions enabled but no session cookie name configured")
	// ErrNoAuthLookup is returned when auth is enabled without a lookup.
	ErrNoAuthLookup = errors.New("auth enabled but no user lookup configured")
)

// AuthLookup returns the user for a request. It receives the request as it is
// when the user is first read, and must tolerate a nil Request.Session.
type AuthLookup func(ctx context.Context, r *Request) (*auth.User, error)

// SessionLookup adapts an auth.Backend to an AuthLookup.
func SessionLookup(b *auth.Backend) AuthLookup {
	return func(ctx context.Context, r *Request) (*auth.User, error) {
		return b.UserForSession(ctx, r.Session)
	}
}

// FeatureSet is the set of enabled feature names.
type FeatureSet map[string]struct{}

// NewFeatureSet builds a FeatureSet from an ordered feature list.
func NewFeatureSet(names ...string) FeatureSet {
	fs := make(FeatureSet, len(names))
	for _, name := range names {
		fs[name] = struct{}{}
	}
	return fs
}

// Has reports whether name is enabled.
func (fs FeatureSet) Has(name string) bool {
	_, ok := fs[name]
	return ok
}

// Settings is the process-wide configuration the resolver reads. It must not
// be modified once requests are being resolved.
type Settings struct {
	Features          FeatureSet
	SessionCookieName string
	SessionStore      session.Factory
	AuthLookup        AuthLookup
}

// NewSettings validates and returns Settings. The session factory has already
// been resolved from the engine name, so an unknown engine fails before this
// point.
func NewSettings(features []string, cookieName string, store session.Factory, lookup AuthLookup) (*Settings, error) {
	s := &Settings{
		Features:          NewFeatureSet(features...),
		SessionCookieName: cookieName,
		SessionStore:      store,
		AuthLookup:        lookup,
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	if !s.Features.Has(FeatureSessions) {
		return nil
	}
	if s.SessionStore == nil {
		return ErrNoSessionStore
	}
	if s.SessionCookieName == "" {
		return ErrNoCookieName
	}
	if s.Features.Has(FeatureAuth) && s.AuthLookup == nil {
		return ErrNoAuthLookup
	}
	return nil
}

// Request is the request-like record the resolver fills in.
type Request struct {
	Cookies map[string]string
	// Session is set when sessions are enabled and the session cookie is
	// present.
	Session *session.Session
	// User is set when sessions and auth are enabled. Without sessions the
	// caller must set it before calling ResolveUser.
	User *lazy.Value[*auth.User]
}

// FromHTTP builds a Request from the cookies of r. When a cookie name repeats,
// the first value wins, as with (*http.Request).Cookie.
func FromHTTP(r *http.Request) *Request {
	cookies := make(map[string]string)
	for _, c := range r.Cookies() {
		if _, ok := cookies[c.Name]; !ok {
			cookies[c.Name] = c.Value
		}
	}
	return &Request{Cookies: cookies}
}

// Attach sets req.Session and req.User as the session and authentication
// middleware would. It does not read the session store or look up the user.
func Attach(ctx context.Context, req *Request, s *Settings) error {
	if !s.Features.Has(FeatureSessions) {
		return nil
	}
	if s.SessionStore == nil {
		return ErrNoSessionStore
	}

	if key := req.Cookies[s.SessionCookieName]; key != "" {
		req.Session = s.SessionStore(key)
	}

	if s.Features.Has(FeatureAuth) {
		if s.AuthLookup == nil {
			return ErrNoAuthLookup
		}
		lookup := s.AuthLookup
		req.User = lazy.New(func() (*auth.User, error) {
			return lookup(ctx, req)
		})
	}
	return nil
}

// ResolveUser attaches the session and user to req and returns req.User.
// The user is not looked up until Get is called on the returned value.
func ResolveUser(ctx context.Context, req *Request, s *Settings) (*lazy.Value[*auth.User], error) {
	if err := Attach(ctx, req, s); err != nil {
		return nil, err
	}
	if req.User == nil {
		return nil, ErrUserUnset
	}
	return req.User, nil
}
