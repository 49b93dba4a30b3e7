package relay

import (
	"go-ws-relay/internal/auth"
	"net/url"
)

// Audience selects which channel kinds of a facility a client uses.
type Audience struct {
	Broadcast bool
	User      bool
	Group     bool
	Session   bool
}

func subscribeAudience(q url.Values) Audience {
	return Audience{
		Broadcast: q.Has("subscribe-broadcast"),
		User:      q.Has("subscribe-user"),
		Group:     q.Has("subscribe-group"),
		Session:   q.Has("subscribe-session"),
	}
}

func publishAudience(q url.Values) Audience {
	return Audience{
		Broadcast: q.Has("publish-broadcast"),
		User:      q.Has("publish-user"),
		Group:     q.Has("publish-group"),
		Session:   q.Has("publish-session"),
	}
}

// Channels names the channels of one facility.
type Channels struct {
	Prefix   string
	Facility string
}

// Broadcast is the channel every client of the facility may listen on.
func (c Channels) Broadcast() string {
	return c.Prefix + "broadcast:" + c.Facility
}

// User is the channel of a single signed-in user.
func (c Channels) User(subject string) string {
	return c.Prefix + "user:" + subject + ":" + c.Facility
}

// Group is the channel shared by holders of a role.
func (c Channels) Group(role string) string {
	return c.Prefix + "group:" + role + ":" + c.Facility
}

// Session is the channel of one browser session.
func (c Channels) Session(key string) string {
	return c.Prefix + "session:" + key + ":" + c.Facility
}

// For lists the channels a selects for u. Anonymous users get no user or
// group channels, and the session channel needs a session key.
func (c Channels) For(a Audience, u *auth.User, sessionKey string) []string {
	var out []string
	if a.Broadcast {
		out = append(out, c.Broadcast())
	}
	if u.IsAuthenticated() {
		if a.User {
			out = append(out, c.User(u.Subject))
		}
		if a.Group {
			for _, role := range u.Roles {
				out = append(out, c.Group(role))
			}
		}
	}
	if a.Session && sessionKey != "" {
		out = append(out, c.Session(sessionKey))
	}
	return out
}
