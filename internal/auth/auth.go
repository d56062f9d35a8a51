package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/movie-votes/internal/domain"
	"github.com/Clark-Hu/movie-votes/internal/repository"
)

// ErrInvalidCredentials is returned for an unknown username or wrong password.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

const (
	sessionName = "movievotes-session"
	userIDKey   = "user_id"

	// LoginPath is where anonymous requests to protected pages are sent.
	LoginPath = "/login"
)

// UserStore is the subset of user persistence auth needs.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
}

// Requester is whoever sent the current request. A zero ID is anonymous.
type Requester struct {
	ID       int64
	Username string
}

// Authenticated reports whether the requester is logged in.
func (r Requester) Authenticated() bool {
	return r.ID != 0
}

type ctxKey struct{}

// WithRequester returns a copy of ctx carrying the requester.
func WithRequester(ctx context.Context, r Requester) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// FromContext returns the requester stored by LoadUser, or an anonymous one.
func FromContext(ctx context.Context) Requester {
	r, _ := ctx.Value(ctxKey{}).(Requester)
	return r
}

// Sessions manages cookie sessions and exposes the current requester.
type Sessions struct {
	store  *sessions.CookieStore
	users  UserStore
	logger *slog.Logger
}

// NewSessions builds a cookie-backed session manager signed with secret.
func NewSessions(secret []byte, secure bool, users UserStore, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 14,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store, users: users, logger: logger}
}

// LoadUser resolves the session cookie into a Requester on the request
// context. Requests without a valid session continue as anonymous.
func (s *Sessions) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requester := s.requester(r)
		next.ServeHTTP(w, r.WithContext(WithRequester(r.Context(), requester)))
	})
}

func (s *Sessions) requester(r *http.Request) Requester {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		// Tampered or stale cookie; treat as anonymous.
		s.logger.Debug("auth: unreadable session", "error", err)
		return Requester{}
	}
	raw, ok := session.Values[userIDKey]
	if !ok {
		return Requester{}
	}
	id, ok := raw.(int64)
	if !ok || id == 0 {
		return Requester{}
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("auth: load session user", "user_id", id, "error", err)
		}
		return Requester{}
	}
	return Requester{ID: user.ID, Username: user.Username}
}

// RequireUser redirects anonymous requests to the login page, remembering
// where they were headed.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).Authenticated() {
			target := LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Authenticate checks a username/password pair.
func (s *Sessions) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Login binds the session cookie to user.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, user domain.User) error {
	session, err := s.store.Get(r, sessionName)
	if err != nil && session == nil {
		return fmt.Errorf("open session: %w", err)
	}
	session.Values[userIDKey] = user.ID
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Logout clears the session cookie.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	session, err := s.store.Get(r, sessionName)
	if err != nil && session == nil {
		return fmt.Errorf("open session: %w", err)
	}
	session.Values = make(map[interface{}]interface{})
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// HashPassword returns a bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash and a plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// SafeNext returns next when it is a local absolute path, otherwise fallback.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}
