package auth

// AnonymousSubject is the subject reported for requests without a signed-in
// user.
const AnonymousSubject = "anonymous"

// Session keys written by the web application at login.
const (
	SubjectKey  = "user_subject"
	IDTokenKey  = "id_token"
	AuthHashKey = "user_auth_hash"
)

// User is the identity resolved for a request.
type User struct {
	Subject     string   `json:"subject"`
	DisplayName string   `json:"display_name,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Anonymous   bool     `json:"anonymous"`
}

// Anonymous returns the user reported when nobody is signed in.
func Anonymous() *User {
	return &User{Subject: AnonymousSubject, Anonymous: true}
}

// IsAuthenticated reports whether u is a signed-in user.
func (u *User) IsAuthenticated() bool {
	return u != nil && !u.Anonymous
}

// HasRole reports whether u holds role.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
