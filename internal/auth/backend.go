package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"go-ws-relay/internal/cache"
	"go-ws-relay/internal/data"
	"go-ws-relay/internal/logger"
	"go-ws-relay/internal/session"

	"github.com/coreos/go-oidc/v3/oidc"
)

// UserFinder looks up user records by subject.
type UserFinder interface {
	FindBySubject(ctx context.Context, subject string) (*data.User, error)
}

// RoleSource lists the roles granted to a subject. *casbin.Enforcer
// satisfies it.
type RoleSource interface {
	GetRolesForUser(name string, domain ...string) ([]string, error)
}

// TokenVerifier checks a raw OIDC ID token. *oidc.IDTokenVerifier satisfies
// it.
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// Backend resolves the user signed in to a session. Every collaborator is
// optional: without users the subject is trusted as is, without roles the
// user has none, and without a verifier ID tokens in the session are ignored.
type Backend struct {
	users    UserFinder
	roles    RoleSource
	verifier TokenVerifier
	cache    *cache.Cache
	log      logger.Logger
}

// NewBackend creates a new Backend.
func NewBackend(users UserFinder, roles RoleSource, verifier TokenVerifier, c *cache.Cache, log logger.Logger) *Backend {
	if log == nil {
		log = logger.Nop()
	}
	return &Backend{
		users:    users,
		roles:    roles,
		verifier: verifier,
		cache:    c,
		log:      log,
	}
}

// UserForSession returns the user signed in to sess, or the anonymous user
// when the session is nil, missing, expired, or names a user that is unknown,
// disabled, or whose credentials changed since login.
func (b *Backend) UserForSession(ctx context.Context, sess *session.Session) (*User, error) {
	if sess == nil {
		return Anonymous(), nil
	}

	subject, err := sess.GetString(ctx, SubjectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if subject == "" && b.verifier != nil {
		if subject, err = b.subjectFromIDToken(ctx, sess); err != nil {
			return nil, err
		}
	}
	if subject == "" {
		return Anonymous(), nil
	}

	user := &User{Subject: subject}
	if b.users != nil {
		record, err := b.findUser(ctx, subject)
		if errors.Is(err, data.ErrUserNotFound) {
			return Anonymous(), nil
		}
		if err != nil {
			return nil, err
		}
		if !record.IsActive {
			return Anonymous(), nil
		}
		if record.AuthHash != "" {
			hash, err := sess.GetString(ctx, AuthHashKey)
			if err != nil {
				return nil, fmt.Errorf("failed to read session: %w", err)
			}
			if subtle.ConstantTimeCompare([]byte(hash), []byte(record.AuthHash)) != 1 {
				b.log.With(map[string]interface{}{"subject": subject}).Debug("session auth hash does not match, treating as anonymous")
				return Anonymous(), nil
			}
		}
		user.DisplayName = record.DisplayName
	}

	if b.roles != nil {
		roles, err := b.roles.GetRolesForUser(subject)
		if err != nil {
			return nil, fmt.Errorf("failed to get roles for %q: %w", subject, err)
		}
		user.Roles = roles
	}
	return user, nil
}

func (b *Backend) subjectFromIDToken(ctx context.Context, sess *session.Session) (string, error) {
	raw, err := sess.GetString(ctx, IDTokenKey)
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	if raw == "" {
		return "", nil
	}
	token, err := b.verifier.Verify(ctx, raw)
	if err != nil {
		b.log.Warn(fmt.Sprintf("ID token in session failed verification: %v", err))
		return "", nil
	}
	return token.Subject, nil
}

func (b *Backend) findUser(ctx context.Context, subject string) (*data.User, error) {
	key := "user:" + subject
	if b.cache != nil {
		var cached data.User
		ok, err := b.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			b.log.Error(err, "Failed to read user cache")
		} else if ok {
			return &cached, nil
		}
	}

	record, err := b.users.FindBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	if b.cache != nil {
		if err := b.cache.SetJSON(ctx, key, record); err != nil {
			b.log.Error(err, "Failed to write user cache")
		}
	}
	return record, nil
}
