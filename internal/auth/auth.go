package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const CookieAccessToken = "accessToken"

var (
	ErrMissingToken = errors.New("missing access token")
	ErrInvalidToken = errors.New("invalid access token")
)

type Role string

const (
	RoleUser   Role = "user"
	RoleSeller Role = "seller"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleSeller
}

type Capability string

const (
	Shop           Capability = "shop"
	ManageProducts Capability = "manage_products"
	ManageOrders   Capability = "manage_orders"
)

var grants = map[Role][]Capability{
	RoleUser:   {Shop},
	RoleSeller: {ManageProducts, ManageOrders},
}

// Can reports whether role holds capability.
func Can(role Role, capability Capability) bool {
	for _, c := range grants[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

type claims struct {
	UserID string `json:"_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 access tokens issued by the identity service.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

func (v *Verifier) Verify(token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrMissingToken
	}
	var c claims
	if _, err := v.parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.UserID == "" || !c.Role.Valid() {
		return Principal{}, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}
	return Principal{UserID: c.UserID, Email: c.Email, Role: c.Role}, nil
}

// TokenFromRequest reads a bearer token, falling back to the access token cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if c, err := r.Cookie(CookieAccessToken); err == nil {
		return c.Value
	}
	return ""
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

func UserID(ctx context.Context) string {
	p, _ := FromContext(ctx)
	return p.UserID
}
