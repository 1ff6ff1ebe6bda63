package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/emrecanisildak/diet/pkg/jwt"
	"github.com/emrecanisildak/diet/pkg/response"
)

const (
	UserIDKey     = "user_id"
	RoleKey       = "role"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

var (
	ErrUnknownUser = errors.New("user does not exist")
	ErrForbidden   = errors.New("insufficient role")
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Role   string
}

// UserLookup resolves the current role of a user. It returns ErrUnknownUser
// when the user has been removed since the token was issued.
type UserLookup interface {
	LookupRole(ctx context.Context, userID string) (string, error)
}

// Authenticator verifies bearer tokens locally and resolves the caller's role.
type Authenticator struct {
	tokens *jwt.Manager
	users  UserLookup
	cache  *expirable.LRU[string, string]
}

// NewAuthenticator creates an authenticator. Roles are cached for cacheTTL;
// a zero cacheSize disables caching.
func NewAuthenticator(tokens *jwt.Manager, users UserLookup, cacheSize int, cacheTTL time.Duration) *Authenticator {
	a := &Authenticator{tokens: tokens, users: users}
	if cacheSize > 0 {
		a.cache = expirable.NewLRU[string, string](cacheSize, nil, cacheTTL)
	}
	return a
}

// Authenticate validates an access token and returns the identity it names.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Identity, error) {
	claims, err := a.tokens.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}

	userID := claims.UserID()
	if a.cache != nil {
		if role, ok := a.cache.Get(userID); ok {
			return &Identity{UserID: userID, Role: role}, nil
		}
	}

	role, err := a.users.LookupRole(ctx, userID)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		a.cache.Add(userID, role)
	}
	return &Identity{UserID: userID, Role: role}, nil
}

// RequireAuth returns a Gin middleware that validates JWT tokens.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.Unauthorized(c, "invalid authorization format")
			return
		}

		identity, err := a.Authenticate(c.Request.Context(), strings.TrimPrefix(authHeader, BearerPrefix))
		if err != nil {
			if errors.Is(err, ErrUnknownUser) || errors.Is(err, jwt.ErrInvalidToken) ||
				errors.Is(err, jwt.ErrExpiredToken) || errors.Is(err, jwt.ErrWrongType) {
				response.Unauthorized(c, "could not validate credentials")
			} else {
				response.InternalError(c, "failed to validate token")
			}
			return
		}

		c.Set(UserIDKey, identity.UserID)
		c.Set(RoleKey, identity.Role)

		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated caller has role.
// It must run after RequireAuth.
func (a *Authenticator) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != role {
			response.Forbidden(c, "not enough permissions")
			return
		}
		c.Next()
	}
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetRole extracts the caller's role from Gin context.
func GetRole(c *gin.Context) string {
	return c.GetString(RoleKey)
}
