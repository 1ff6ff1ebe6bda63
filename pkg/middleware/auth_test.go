package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrecanisildak/diet/pkg/jwt"
)

type fakeUsers struct {
	roles map[string]string
	calls atomic.Int32
}

func (f *fakeUsers) LookupRole(_ context.Context, userID string) (string, error) {
	f.calls.Add(1)
	role, ok := f.roles[userID]
	if !ok {
		return "", ErrUnknownUser
	}
	return role, nil
}

func setup(t *testing.T) (*jwt.Manager, *fakeUsers, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := jwt.NewManager("secret", time.Hour, 24*time.Hour, "")
	require.NoError(t, err)
	users := &fakeUsers{roles: map[string]string{"c1": "client", "d1": "dietitian"}}
	auth := NewAuthenticator(tokens, users, 16, time.Minute)

	r := gin.New()
	r.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c)+":"+GetRole(c))
	})
	r.GET("/admin", auth.RequireAuth(), auth.RequireRole("dietitian"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return tokens, users, r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	tokens, users, r := setup(t)

	token, err := tokens.GenerateAccessToken("c1", "client")
	require.NoError(t, err)

	w := do(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1:client", w.Body.String())

	// second request is served from the role cache
	w = do(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), users.calls.Load())
}

func TestRequireAuthRejects(t *testing.T) {
	tokens, _, r := setup(t)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage").Code)

	refresh, err := tokens.GenerateRefreshToken("c1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", refresh).Code)

	ghost, err := tokens.GenerateAccessToken("ghost", "client")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", ghost).Code)
}

func TestRequireRole(t *testing.T) {
	tokens, _, r := setup(t)

	client, err := tokens.GenerateAccessToken("c1", "client")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(r, "/admin", client).Code)

	dietitian, err := tokens.GenerateAccessToken("d1", "dietitian")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, do(r, "/admin", dietitian).Code)
}
