package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/nano-forum/backend/internal/middleware"
	"github.com/anonto42/nano-forum/backend/internal/repositories/memory"
	"github.com/anonto42/nano-forum/backend/internal/services"
	"github.com/anonto42/nano-forum/backend/pkg/config"
	"github.com/anonto42/nano-forum/backend/pkg/mailer"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type client struct {
	t     *testing.T
	e     *echo.Echo
	token string
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	cfg := &config.Config{CORSOrigin: "http://localhost:3000", RequestTimeout: 5 * time.Second}
	return NewServer(cfg, MemoryRepositories(memory.NewStore()), Options{
		Tokens: services.NewTokenIssuer("access", "refresh"),
		Mailer: mailer.LogMailer{},
		Tasks:  services.InlineTasks{},
	})
}

func (c *client) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if c.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.token)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// signup registers and logs in a user, returning an authenticated client,
// the user id and the refresh cookie.
func signup(t *testing.T, e *echo.Echo, username string) (*client, uint, *http.Cookie) {
	t.Helper()
	anon := &client{t: t, e: e}
	rec := anon.do(http.MethodPost, "/users",
		fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":"pass1234"}`, username, username))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		ID uint `json:"id"`
	}](t, rec)

	rec = anon.do(http.MethodPost, "/auth", fmt.Sprintf(`{"username":%q,"password":"pass1234"}`, username))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var refresh *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == middleware.RefreshCookie {
			refresh = cookie
		}
	}
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)
	login := decode[struct {
		AccessToken string `json:"accessToken"`
	}](t, rec)
	return &client{t: t, e: e, token: login.AccessToken}, created.ID, refresh
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)
	rec := (&client{t: t, e: e}).do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestAuthRequired(t *testing.T) {
	e := newTestServer(t)
	anon := &client{t: t, e: e}
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/forums", "").Code)

	forged := &client{t: t, e: e, token: "not-a-jwt"}
	assert.Equal(t, http.StatusForbidden, forged.do(http.MethodGet, "/forums", "").Code)
}

func TestRegisterValidationAndConflicts(t *testing.T) {
	e := newTestServer(t)
	signup(t, e, "alice")
	anon := &client{t: t, e: e}

	rec := anon.do(http.MethodPost, "/users", `{"username":"al","email":"bad","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = anon.do(http.MethodPost, "/users", `{"username":"ALICE","email":"new@example.com","password":"pass1234"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Duplicate username")

	rec = anon.do(http.MethodPost, "/auth", `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshAndLogout(t *testing.T) {
	e := newTestServer(t)
	_, _, refresh := signup(t, e, "alice")
	anon := &client{t: t, e: e}

	rec := anon.do(http.MethodGet, "/auth/refresh", "", refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[map[string]string](t, rec)["accessToken"])

	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/auth/refresh", "").Code)
	assert.Equal(t, http.StatusNoContent, anon.do(http.MethodPost, "/auth/logout", "").Code)

	rec = anon.do(http.MethodPost, "/auth/logout", "", refresh)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")

	rec = anon.do(http.MethodPost, "/auth/forgot-password", `{"email":"nobody@example.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestForumFlow(t *testing.T) {
	e := newTestServer(t)
	alice, aliceID, _ := signup(t, e, "alice")
	bob, bobID, _ := signup(t, e, "bob")

	rec := alice.do(http.MethodPost, "/forums", `{"title":"Hello","text":"world"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	postID := decode[map[string]string](t, rec)["id"]

	rec = bob.do(http.MethodPost, "/notes", `{"title":"HELLO","text":"again"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = bob.do(http.MethodPost, "/forums/"+postID+"/replies", `{"replyText":"hi @alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	replyID := decode[map[string]any](t, rec)["id"].(string)

	rec = alice.do(http.MethodGet, "/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	inbox := decode[[]map[string]any](t, rec)
	require.Len(t, inbox, 1)
	assert.Equal(t, "tag", inbox[0]["type"])
	assert.Equal(t, "bob", inbox[0]["username"])

	rec = bob.do(http.MethodPost, "/likes", fmt.Sprintf(`{"targetId":%q,"targetType":"post"}`, postID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"liked":true,"count":1}`, rec.Body.String())

	rec = alice.do(http.MethodGet, "/likes/count?targetType=post&targetId="+postID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())
	rec = bob.do(http.MethodGet, "/likes/status?targetType=post&targetId="+postID, "")
	assert.JSONEq(t, `{"liked":true}`, rec.Body.String())
	rec = bob.do(http.MethodGet, "/likes/count?targetType=forum&targetId="+postID, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = bob.do(http.MethodGet, fmt.Sprintf("/users/%d/liked-posts", bobID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)
	assert.Equal(t, http.StatusForbidden, alice.do(http.MethodGet, fmt.Sprintf("/users/%d/liked-posts", bobID), "").Code)

	rec = bob.do(http.MethodGet, fmt.Sprintf("/users/%d/replies", bobID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]map[string]any](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, "Hello", mine[0]["post_title"])

	rec = alice.do(http.MethodGet, "/forums", "")
	forums := decode[[]map[string]any](t, rec)
	require.Len(t, forums, 1)
	assert.Equal(t, "alice", forums[0]["username"])
	assert.Empty(t, decode[[]map[string]any](t, alice.do(http.MethodGet, "/notes", "")))
	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, "/notes/"+postID, "").Code)

	rec = bob.do(http.MethodPatch, "/forums/"+postID, fmt.Sprintf(`{"user":%d,"title":"Hello v2","text":"edited","completed":true}`, aliceID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = alice.do(http.MethodGet, "/forums/"+postID, "")
	post := decode[map[string]any](t, rec)
	assert.Equal(t, "bob", post["edited_by"])
	assert.Equal(t, true, post["completed"])

	rec = alice.do(http.MethodPatch, "/replies/"+replyID, `{"replyText":"hijack"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = bob.do(http.MethodPatch, "/replies/"+replyID, `{"replyText":"hello @alice"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = alice.do(http.MethodDelete, "/forums/"+postID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode[[]map[string]any](t, alice.do(http.MethodGet, "/notifications", "")))
	assert.JSONEq(t, `{"count":0}`, alice.do(http.MethodGet, "/likes/count?targetType=post&targetId="+postID, "").Body.String())
	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, "/forums/"+postID+"/replies", "").Code)
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodDelete, "/replies/"+replyID, "").Code)
}

func TestNotificationEndpoints(t *testing.T) {
	e := newTestServer(t)
	alice, aliceID, _ := signup(t, e, "alice")
	bob, bobID, _ := signup(t, e, "bob")
	body := func(to uint) string {
		return fmt.Sprintf(`{"userId":%d,"postId":"64b7f0c2a1b2c3d4e5f60718","replyText":"ping"}`, to)
	}

	assert.Equal(t, http.StatusForbidden, bob.do(http.MethodPost, "/notifications", body(bobID)).Code)
	var ids []uint
	for range 3 {
		rec := bob.do(http.MethodPost, "/notifications", body(aliceID))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		ids = append(ids, decode[struct {
			ID uint `json:"id"`
		}](t, rec).ID)
	}

	rec := alice.do(http.MethodPatch, fmt.Sprintf("/notifications/%d", ids[0]), `{"read":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["read"])
	assert.Equal(t, http.StatusBadRequest, alice.do(http.MethodPatch, fmt.Sprintf("/notifications/%d", ids[0]), `{}`).Code)
	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodPatch, "/notifications/999", `{"read":true}`).Code)

	assert.JSONEq(t, `{"count":2}`, alice.do(http.MethodGet, "/notifications/unread-count", "").Body.String())
	rec = alice.do(http.MethodPatch, "/notifications/read-all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode[map[string]any](t, rec)["modifiedCount"])

	assert.Equal(t, http.StatusForbidden, bob.do(http.MethodDelete, fmt.Sprintf("/notifications/%d", ids[1]), "").Code)
	assert.Equal(t, http.StatusOK, alice.do(http.MethodDelete, fmt.Sprintf("/notifications/%d", ids[1]), "").Code)
	assert.Len(t, decode[[]map[string]any](t, alice.do(http.MethodGet, "/notifications", "")), 2)
}

func TestUserManagement(t *testing.T) {
	e := newTestServer(t)
	alice, aliceID, _ := signup(t, e, "alice")
	bob, _, _ := signup(t, e, "bob")

	rec := alice.do(http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]map[string]any](t, rec)
	require.Len(t, users, 2)
	assert.NotContains(t, users[0], "password")

	rec = alice.do(http.MethodPatch, fmt.Sprintf("/users/%d", aliceID), `{"username":"alice","roles":["Member"],"active":true,"password":"pass1234"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = alice.do(http.MethodPatch, fmt.Sprintf("/users/%d", aliceID), `{"username":"alice2","roles":["Member"],"active":true}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusForbidden, bob.do(http.MethodDelete, fmt.Sprintf("/users/%d", aliceID), "").Code)
	rec = alice.do(http.MethodDelete, fmt.Sprintf("/users/%d", aliceID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice2")
	assert.Len(t, decode[[]map[string]any](t, bob.do(http.MethodGet, "/users", "")), 1)
}

func TestNewRepositoriesWithoutMongoStaysInMemory(t *testing.T) {
	repos, err := NewRepositories(context.Background(), nil, nil, "forum")
	require.NoError(t, err)
	assert.IsType(t, &memory.Users{}, repos.Users)
	assert.IsType(t, &memory.Posts{}, repos.Posts)
	assert.IsType(t, &memory.Replies{}, repos.Replies)
	assert.IsType(t, &memory.Likes{}, repos.Likes)
	assert.IsType(t, &memory.Notifications{}, repos.Notifications)
}
