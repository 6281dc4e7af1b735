package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/example/staysite/internal/internaltypes"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
)

// Identity is whoever the request says it is. The zero value is anonymous.
type Identity struct {
	Email string
}

func (i Identity) Anonymous() bool { return strings.TrimSpace(i.Email) == "" }

// IsOwner compares emails ignoring case and surrounding whitespace. An empty
// owner email matches nobody.
func IsOwner(id Identity, ownerEmail string) bool {
	owner := strings.TrimSpace(ownerEmail)
	if owner == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(id.Email), owner)
}

type ctxKey string

const identityKey ctxKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	return err == nil
}

// Store resolves identities from a bearer token or the owner session cookie.
type Store struct {
	sc         *securecookie.SecureCookie
	jwtSecret  []byte
	ownerEmail string
	ownerHash  string
}

type Options struct {
	HashKey, BlockKey []byte
	JWTSecret         string
	OwnerEmail        string
	OwnerPasswordHash string
}

const (
	cookieName = "staysite_owner"
	sessionTTL = 14 * 24 * time.Hour
)

func NewStore(o Options) *Store {
	s := &Store{
		jwtSecret:  []byte(o.JWTSecret),
		ownerEmail: strings.TrimSpace(o.OwnerEmail),
		ownerHash:  o.OwnerPasswordHash,
	}
	if len(o.HashKey) > 0 {
		s.sc = securecookie.New(o.HashKey, o.BlockKey)
		s.sc.MaxAge(int(sessionTTL.Seconds()))
	}
	return s
}

func (s *Store) OwnerEmail() string { return s.ownerEmail }

// LoginEnabled reports whether password login is possible at all.
func (s *Store) LoginEnabled() bool {
	return s.sc != nil && s.ownerEmail != "" && s.ownerHash != ""
}

// Authenticate checks the owner credentials.
func (s *Store) Authenticate(email, password string) (Identity, error) {
	if !s.LoginEnabled() {
		return Identity{}, internaltypes.ErrUnauthorized
	}
	id := Identity{Email: strings.TrimSpace(email)}
	if !IsOwner(id, s.ownerEmail) || !CheckPassword(s.ownerHash, password) {
		return Identity{}, internaltypes.ErrUnauthorized
	}
	return id, nil
}

// ParseToken validates an HS256 identity token and returns its email claim.
func (s *Store) ParseToken(raw string) (Identity, error) {
	if len(s.jwtSecret) == 0 {
		return Identity{}, internaltypes.ErrUnauthorized
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", internaltypes.ErrUnauthorized, err)
	}
	if !token.Valid {
		return Identity{}, internaltypes.ErrUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, internaltypes.ErrUnauthorized
	}
	email, _ := claims["email"].(string)
	if strings.TrimSpace(email) == "" {
		return Identity{}, fmt.Errorf("%w: token has no email claim", internaltypes.ErrUnauthorized)
	}
	return Identity{Email: email}, nil
}

func (s *Store) SetSession(w http.ResponseWriter, r *http.Request, id Identity) error {
	if s.sc == nil {
		return internaltypes.ErrUnauthorized
	}
	val := map[string]string{"email": id.Email}
	encoded, err := s.sc.Encode(cookieName, val)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(sessionTTL.Seconds()),
	})
	return nil
}

func (s *Store) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (s *Store) session(r *http.Request) (Identity, bool) {
	if s.sc == nil {
		return Identity{}, false
	}
	c, err := r.Cookie(cookieName)
	if err != nil {
		return Identity{}, false
	}
	val := map[string]string{}
	if err := s.sc.Decode(cookieName, c.Value, &val); err != nil {
		return Identity{}, false
	}
	email := val["email"]
	if email == "" {
		return Identity{}, false
	}
	return Identity{Email: email}, true
}

// Identify returns the request's identity; a bearer token wins over the cookie.
func (s *Store) Identify(r *http.Request) Identity {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if id, err := s.ParseToken(strings.TrimPrefix(h, "Bearer ")); err == nil {
			return id
		}
	}
	if id, ok := s.session(r); ok {
		return id
	}
	return Identity{}
}

// Middleware stores the identity in the request context. It never rejects.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithIdentity(r.Context(), s.Identify(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IsOwnerRequest reports whether the request context carries the owner.
func (s *Store) IsOwnerRequest(ctx context.Context) bool {
	return IsOwner(IdentityFromContext(ctx), s.ownerEmail)
}
