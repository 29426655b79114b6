package auth

import (
	"context"
	"encoding/base64"

	"github.com/goliatone/go-mesh/internal/session"
	"github.com/goliatone/go-mesh/pkg/interfaces"
)

// Session keys holding the credentials of a logged in visitor.
const (
	UserSessionKey     = "meshusername"
	PasswordSessionKey = "meshpassword"
)

// Credentials identify a CMS user. The struct is comparable and doubles as the
// key of the session cookie store.
type Credentials struct {
	Username string
	Password string
}

// Header returns the Basic authorization header value.
func (c Credentials) Header() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.Username+":"+c.Password))
}

// Resolver picks the credentials for an outbound CMS call.
type Resolver struct {
	public Credentials
}

func NewResolver(public Credentials) Resolver {
	return Resolver{public: public}
}

func (r Resolver) Public() Credentials {
	return r.public
}

// Resolve returns the credentials stored in the request session, or the public
// user when the session has none. Both username and password must be present.
func (r Resolver) Resolve(ctx context.Context) Credentials {
	if creds, ok := FromSession(session.FromContext(ctx)); ok {
		return creds
	}
	return r.public
}

// Username returns the name of the user the request acts as.
func (r Resolver) Username(ctx context.Context) string {
	return r.Resolve(ctx).Username
}

// LoggedIn reports whether the request acts as someone other than the public
// user.
func (r Resolver) LoggedIn(ctx context.Context) bool {
	return r.Username(ctx) != r.public.Username
}

// FromSession reads the credentials stored by Store.
func FromSession(sess interfaces.Session) (Credentials, bool) {
	if sess == nil {
		return Credentials{}, false
	}
	username, okUser := sess.Get(UserSessionKey)
	password, okPass := sess.Get(PasswordSessionKey)
	if !okUser || !okPass {
		return Credentials{}, false
	}
	return Credentials{Username: username, Password: password}, true
}

// Store saves creds in the session.
func Store(sess interfaces.Session, creds Credentials) {
	if sess == nil {
		return
	}
	sess.Set(UserSessionKey, creds.Username)
	sess.Set(PasswordSessionKey, creds.Password)
}

// Clear removes any stored credentials.
func Clear(sess interfaces.Session) {
	if sess == nil {
		return
	}
	sess.Delete(UserSessionKey)
	sess.Delete(PasswordSessionKey)
}
