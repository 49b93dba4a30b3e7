package middleware

import (
	"context"
	"errors"
	"go-ws-relay/internal/auth"
	"go-ws-relay/internal/lazy"
	"go-ws-relay/internal/logger"
	"go-ws-relay/internal/metrics"
	"go-ws-relay/internal/resolver"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Identify creates a middleware that resolves the user behind a request from
// its session cookie and stores the result with SetIdentity, along with a
// request logger tagged with the request ID and subject. Resolution failures
// end the request with a 500.
func Identify(s *resolver.Settings, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLog := log.With(map[string]interface{}{"request_id": chimw.GetReqID(r.Context())})

			id, err := resolveIdentity(r.Context(), r, s)
			if err != nil {
				metrics.UserResolutions.WithLabelValues(metrics.ResolutionError).Inc()
				reqLog.Error(err, "Failed to resolve user")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if id.User.IsAuthenticated() {
				metrics.UserResolutions.WithLabelValues(metrics.ResolutionAuthenticated).Inc()
			} else {
				metrics.UserResolutions.WithLabelValues(metrics.ResolutionAnonymous).Inc()
			}

			reqLog = reqLog.With(map[string]interface{}{"subject": id.User.Subject})
			ctx := SetIdentity(r.Context(), id)
			ctx = logger.NewContext(ctx, reqLog)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveIdentity evaluates the user eagerly. Without sessions nothing can
// identify the client, so it is anonymous; with sessions but no auth there is
// a session and an anonymous user.
func resolveIdentity(ctx context.Context, r *http.Request, s *resolver.Settings) (*Identity, error) {
	req := resolver.FromHTTP(r)
	if !s.Features.Has(resolver.FeatureSessions) {
		req.User = lazy.Ready(auth.Anonymous())
	}

	lv, err := resolver.ResolveUser(ctx, req, s)
	if errors.Is(err, resolver.ErrUserUnset) {
		return &Identity{User: auth.Anonymous(), Session: req.Session}, nil
	}
	if err != nil {
		return nil, err
	}

	user, err := lv.Get()
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = auth.Anonymous()
	}
	return &Identity{User: user, Session: req.Session}, nil
}
