package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/system/respond"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Identity                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// Roles granted by the identity provider.
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// Writers may register resources, update camera status and create communities.
var Writers = []string{RoleEditor, RoleAdmin}

// Identity is the caller as vouched for by the identity provider. UID is
// trusted as pre-verified; fieldhub never authenticates users itself.
type Identity struct {
	UID  string
	Role string
}

type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// CurrentIdentity returns the identity placed in context by Middleware.
func CurrentIdentity(r *http.Request) (Identity, bool) {
	id, ok := r.Context().Value(identityKey).(Identity)
	return id, ok && id.UID != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| Token verification                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

var (
	ErrNoToken      = errors.New("missing bearer token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims are the identity provider's token claims.
type Claims struct {
	UID  string `json:"uid"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens minted by the identity provider.
type Verifier struct {
	secret []byte
	issuer string
	log    *zap.Logger
}

// NewVerifier returns a verifier for tokens signed with secret. When issuer
// is non-empty the iss claim must match it.
func NewVerifier(secret, issuer string, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, log: logger}
}

// Verify parses and validates a raw token.
func (v *Verifier) Verify(raw string) (Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UID == "" {
		return Identity{}, ErrTokenInvalid
	}
	role := strings.ToLower(strings.TrimSpace(claims.Role))
	if role == "" {
		role = RoleViewer
	}
	return Identity{UID: claims.UID, Role: role}, nil
}

// Sign mints a token for id. The identity provider normally does this; it
// is here for local development and tests.
func (v *Verifier) Sign(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UID:  id.UID,
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   id.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return tok.SignedString(v.secret)
}

func bearer(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", ErrNoToken
	}
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
		return "", ErrNoToken
	}
	return strings.TrimSpace(tok), nil
}

// Middleware verifies the bearer token and places the identity in context.
// Requests without a valid token get 401.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearer(r)
		if err != nil {
			respond.Status(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		id, err := v.Verify(raw)
		if err != nil {
			v.log.Info("rejected token", zap.Error(err))
			msg := "invalid token"
			if errors.Is(err, ErrTokenExpired) {
				msg = "token expired"
			}
			respond.Status(w, http.StatusUnauthorized, "unauthorized", msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireRole allows the request through only when the identity's role is
// one of allowed. Missing identity is 401, wrong role 403.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := CurrentIdentity(r)
			if !ok {
				respond.Status(w, http.StatusUnauthorized, "unauthorized", "not signed in")
				return
			}
			if _, has := set[id.Role]; !has {
				respond.Status(w, http.StatusForbidden, "forbidden", "role "+id.Role+" may not do this")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Caller returns the request's identity, writing a 401 when there is none.
func Caller(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := CurrentIdentity(r)
	if !ok {
		respond.Status(w, http.StatusUnauthorized, "unauthorized", "not signed in")
	}
	return id, ok
}
