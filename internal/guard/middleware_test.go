package guard

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/routeguard/routeguard/internal/routematch"
)

// headerIdentities reads the caller from a test header
type headerIdentities struct{}

func (headerIdentities) Resolve(c *gin.Context) Identity {
	return Identity{UserID: c.GetHeader("X-Test-User")}
}

func newTestRouter(t *testing.T, roles RoleResolver, logs *bytes.Buffer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zerolog.New(logs)
	g := New(headerIdentities{}, roles, publicRoutes, routematch.DefaultFilter(), log)

	router := gin.New()
	router.Use(g.Middleware())
	router.NoRoute(func(c *gin.Context) {
		id, _ := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "role": GetRole(c)})
	})
	return router
}

func serve(router http.Handler, path, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMiddleware_Redirects(t *testing.T) {
	roles := new(mockRoleResolver)
	roles.On("GetUserRole", mock.Anything, "admin_1").Return(RoleAdmin, nil)
	roles.On("GetUserRole", mock.Anything, "user_1").Return(Role("user"), nil)

	router := newTestRouter(t, roles, &bytes.Buffer{})

	tests := []struct {
		name     string
		path     string
		userID   string
		location string
	}{
		{name: "anonymous on private page", path: "/profile", location: "/sign-in"},
		{name: "anonymous with query", path: "/profile?tab=billing", location: "/sign-in"},
		{name: "admin on dashboard", path: "/dashboard", userID: "admin_1", location: "/admin/dashboard"},
		{name: "admin on sign in", path: "/sign-in", userID: "admin_1", location: "/admin/dashboard"},
		{name: "user on admin area", path: "/admin/settings", userID: "user_1", location: "/dashboard"},
		{name: "user on sign up", path: "/sign-up", userID: "user_1", location: "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.path, tt.userID)

			assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
		})
	}
}

func TestMiddleware_Allows(t *testing.T) {
	roles := new(mockRoleResolver)
	roles.On("GetUserRole", mock.Anything, "user_1").Return(Role("user"), nil)

	router := newTestRouter(t, roles, &bytes.Buffer{})

	w := serve(router, "/profile", "user_1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"user_1","role":"user"}`, w.Body.String())

	w = serve(router, "/sign-in", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"","role":""}`, w.Body.String())
}

func TestMiddleware_SkipsFilteredPaths(t *testing.T) {
	roles := new(mockRoleResolver)
	router := newTestRouter(t, roles, &bytes.Buffer{})

	w := serve(router, "/_next/static/chunk.js", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, "/images/logo.png", "user_1")
	assert.Equal(t, http.StatusOK, w.Code)

	roles.AssertNotCalled(t, "GetUserRole", mock.Anything, mock.Anything)
}

func TestMiddleware_RoleLookupFailure(t *testing.T) {
	roles := new(mockRoleResolver)
	roles.On("GetUserRole", mock.Anything, "user_1").Return(Role(""), errors.New("upstream timeout"))

	logs := &bytes.Buffer{}
	router := newTestRouter(t, roles, logs)

	w := serve(router, "/profile", "user_1")

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/error", w.Header().Get("Location"))
	assert.Contains(t, logs.String(), `"level":"error"`)
	assert.Contains(t, logs.String(), `"user_id":"user_1"`)
	assert.Contains(t, logs.String(), "upstream timeout")
}

func TestMiddleware_ConcurrentRequests(t *testing.T) {
	roles := new(mockRoleResolver)
	roles.On("GetUserRole", mock.Anything, "admin_1").Return(RoleAdmin, nil)
	roles.On("GetUserRole", mock.Anything, "user_1").Return(Role("user"), nil)

	router := newTestRouter(t, roles, &bytes.Buffer{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			w := serve(router, "/dashboard", "admin_1")
			assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))
		}()
		go func() {
			defer wg.Done()
			w := serve(router, "/dashboard", "user_1")
			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()

	roles.AssertNumberOfCalls(t, "GetUserRole", 100)
}
