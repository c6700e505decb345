// internal/app/system/auth/session.go
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// Cookie session value keys.
const (
	isAuthKey   = "is_authenticated"
	userIDKey   = "user_id"
	userEmail   = "user_email"
	userName    = "user_name"
	userAvatar  = "user_avatar"
	issuedAtKey = "issued_at"
)

// DefaultSessionMaxAge is how long a session stays valid without re-login.
const DefaultSessionMaxAge = 30 * 24 * time.Hour

// SessionManager owns the cookie store and, optionally, the bearer-token
// issuer. It resolves either form of session into a SessionUser.
type SessionManager struct {
	store  *sessions.CookieStore
	name   string
	maxAge time.Duration
	tokens *TokenIssuer
	log    *zap.Logger
}

// NewSessionManager builds the cookie store. The `secure` flag controls whether
// cookies are marked Secure and which SameSite mode is used.
//
// In production (secure=true), cookies are Secure + SameSite=None.
// In local dev over http://localhost, use secure=false so cookies are accepted.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, errors.New("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		return nil, errors.New("session name is empty")
	}
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		MaxAge:   int(maxAge.Seconds()),
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts
	// Also bounds the signed timestamp inside the cookie.
	store.MaxAge(opts.MaxAge)

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{
		store:  store,
		name:   name,
		maxAge: maxAge,
		log:    logger,
	}, nil
}

// UseTokens enables bearer-token sessions.
func (sm *SessionManager) UseTokens(ti *TokenIssuer) {
	sm.tokens = ti
}

// Tokens returns the bearer-token issuer, or nil when disabled.
func (sm *SessionManager) Tokens() *TokenIssuer {
	return sm.tokens
}

// MaxAge is the session lifetime.
func (sm *SessionManager) MaxAge() time.Duration {
	return sm.maxAge
}

// GetSession returns the cookie session. On decode failure (rotated key,
// tampered cookie) a fresh session is returned together with the error.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return sm.store.Get(r, sm.name)
}

// SignIn writes the authenticated cookie for u.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u SessionUser) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		sm.logSessionErr("replacing unreadable session", err)
	}
	// A refresh for the same user keeps the original issue time.
	iat, ok := sess.Values[issuedAtKey].(int64)
	if prev, _ := sess.Values[userIDKey].(string); !ok || prev != u.ID {
		iat = time.Now().Unix()
	}
	sess.Values[issuedAtKey] = iat
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID
	sess.Values[userEmail] = u.Email
	sess.Values[userName] = u.Name
	sess.Values[userAvatar] = u.AvatarURL
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Establish signs u in with a cookie and, when tokens are enabled, also
// returns a bearer token and its expiry.
func (sm *SessionManager) Establish(w http.ResponseWriter, r *http.Request, u SessionUser) (string, time.Time, error) {
	if err := sm.SignIn(w, r, u); err != nil {
		return "", time.Time{}, err
	}
	if sm.tokens == nil {
		return "", time.Now().Add(sm.maxAge), nil
	}
	return sm.tokens.Issue(u)
}

// SignOut expires the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		sm.logSessionErr("session unreadable during sign-out", err)
	}
	// Ensure the deletion-cookie matches the original store settings.
	if opts := sm.store.Options; opts != nil {
		sess.Options.Domain = opts.Domain
		sess.Options.Path = opts.Path
		sess.Options.Secure = opts.Secure
		sess.Options.HttpOnly = opts.HttpOnly
		sess.Options.SameSite = opts.SameSite
	}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// LoadSessionUser injects the user into context if they carry a valid
// session: a bearer token takes precedence over the cookie.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := sm.fromBearer(r); ok {
			next.ServeHTTP(w, withUser(r, u))
			return
		}
		if u, ok := sm.fromCookie(r); ok {
			next.ServeHTTP(w, withUser(r, u))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// Callers without a session get a JSON 401.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		writeUnauthenticated(w)
	})
}

func (sm *SessionManager) fromBearer(r *http.Request) (*SessionUser, bool) {
	if sm.tokens == nil {
		return nil, false
	}
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return nil, false
	}
	u, err := sm.tokens.Parse(strings.TrimSpace(h[7:]))
	if err != nil {
		sm.log.Debug("bearer token rejected", zap.Error(err))
		return nil, false
	}
	return u, true
}

func (sm *SessionManager) fromCookie(r *http.Request) (*SessionUser, bool) {
	sess, err := sm.GetSession(r)
	if err != nil {
		sm.logSessionErr("ignoring unreadable session cookie", err)
		return nil, false
	}
	if isAuth, _ := sess.Values[isAuthKey].(bool); !isAuth {
		return nil, false
	}
	if iat, ok := sess.Values[issuedAtKey].(int64); ok {
		if time.Since(time.Unix(iat, 0)) > sm.maxAge {
			return nil, false
		}
	}
	u := &SessionUser{
		ID:        getString(sess, userIDKey),
		Email:     getString(sess, userEmail),
		Name:      getString(sess, userName),
		AvatarURL: getString(sess, userAvatar),
	}
	if u.ID == "" || u.Email == "" {
		return nil, false
	}
	return u, true
}

// logSessionErr logs decode failures (rotated key, tampered or expired
// cookie) at debug and anything else at warn.
func (sm *SessionManager) logSessionErr(msg string, err error) {
	var scErr securecookie.Error
	if errors.As(err, &scErr) && scErr.IsDecode() {
		sm.log.Debug(msg, zap.Error(err))
		return
	}
	sm.log.Warn(msg, zap.Error(err))
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
