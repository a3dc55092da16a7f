package main

import (
	"context"
	"html/template"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Token   string            `json:"token"`
	User    publicUser        `json:"user"`
	Data    []map[string]any  `json:"data"`
	Todos   []task            `json:"todos"`
	Errors  map[string]string `json:"errors"`
}

// registerAndLogin creates an account and returns its session token and user.
func registerAndLogin(t *testing.T, ts *testServer, email, password, fullName string) (string, publicUser) {
	t.Helper()
	status, _, body := ts.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"fullName": fullName,
	}, "")
	require.Equal(t, http.StatusCreated, status, string(body))

	status, _, body = ts.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, status, string(body))
	res := decode[apiResponse](t, body)
	require.True(t, res.Success)
	require.NotEmpty(t, res.Token)
	return res.Token, res.User
}

func TestHealthCheck(t *testing.T) {
	app, _ := newTestApp(t)
	ts := newTestServer(t, composeRoutes(app))

	status, _, body := ts.do(t, http.MethodGet, "/api/v1/healthcheck", nil, "")
	require.Equal(t, http.StatusOK, status)
	res := decode[map[string]string](t, body)
	assert.Equal(t, "available", res["status"])
	assert.Equal(t, "testing", res["environment"])
	assert.Equal(t, version, res["version"])
}

func TestRegisterHandler(t *testing.T) {
	app, _ := newTestApp(t)
	ts := newTestServer(t, composeRoutes(app))
	body := map[string]string{"email": "a@x.com", "password": "secret1", "fullName": "A"}

	status, _, data := ts.do(t, http.MethodPost, "/api/v1/auth/register", body, "")
	require.Equal(t, http.StatusCreated, status, string(data))
	res := decode[apiResponse](t, data)
	assert.True(t, res.Success)
	assert.Equal(t, "User created successfully.", res.Message)

	status, _, data = ts.do(t, http.MethodPost, "/api/v1/auth/register", body, "")
	require.Equal(t, http.StatusConflict, status)
	res = decode[apiResponse](t, data)
	assert.False(t, res.Success)
	assert.Equal(t, "Email already exists.", res.Message)
}

func TestRegisterHandler_Validation(t *testing.T) {
	app, fs := newTestApp(t)
	ts := newTestServer(t, composeRoutes(app))

	status, _, data := ts.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{"email": "a@x.com"}, "")
	require.Equal(t, http.StatusBadRequest, status)
	res := decode[apiResponse](t, data)
	assert.False(t, res.Success)
	assert.Contains(t, res.Errors, "password")
	assert.Contains(t, res.Errors, "fullName")

	status, _, _ = ts.do(t, http.MethodPost, "/api/v1/auth/register", "not an object", "")
	assert.Equal(t, http.StatusBadRequest, status)

	users, err := fs.loadUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestListUsersHidesPasswordHash(t *testing.T) {
	app, _ := newTestApp(t)
	ts := newTestServer(t, composeRoutes(app))
	registerAndLogin(t, ts, "a@x.com", "secret1", "A")

	status, _, data := ts.do(t, http.MethodGet, "/api/v1/auth/", nil, "")
	require.Equal(t, http.StatusOK, status)
	res := decode[apiResponse](t, data)
	require.True(t, res.Success)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "a@x.com", res.Data[0]["email"])
	assert.Equal(t, "A", res.Data[0]["fullName"])
	assert.NotContains(t, res.Data[0], "passwordHash")
}

func TestLoginHandler(t *testing.T) {
	app, _ := newTestApp(t)
	ts := newTestServer(t, composeRoutes(app))
	token, u := registerAndLogin(t, ts, "a@x.com", "secret1", "A")
	assert.Equal(t, "a@x.com", u.Email)
	assert.NotEmpty(t, token)

	status, header, _ := ts.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "a@x.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, status)
	cookie := (&http.Response{Header: header}).Cookies()
	require.Len(t, cookie, 1)
	assert.Equal(t, authCookieName, cookie[0].Name)
	assert.True(t, cookie[0].HttpOnly)

	status, _, wrongPassword := ts.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "a@x.com", "password": "nope123"}, "")
	require.Equal(t, http.StatusUnauthorized, status)
	status, _, unknownEmail := ts.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "b@x.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, string(wrongPassword), string(unknownEmail))
	assert.Equal(t, "Invalid credentials.", decode[apiResponse](t, unknownEmail).Message)
}

func TestTodoRoutesRequireSession(t *testing.T) {
	app, fs := newTestApp(t)
	ts := newTestServer(t, composeRoutes(app))
	expired, err := newTokenIssuer(app.config.jwt.secret, -time.Minute).issue(identity{ID: "u1", Email: "a@x.com"})
	require.NoError(t, err)

	requests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/v1/todos/", nil},
		{http.MethodGet, "/api/v1/todos/user", nil},
		{http.MethodPost, "/api/v1/todos/", map[string]string{"content": "buy milk"}},
		{http.MethodPut, "/api/v1/todos/some-id", map[string]string{"status": "Done"}},
		{http.MethodDelete, "/api/v1/todos/some-id", nil},
	}
	for _, token := range []string{"", "garbage", expired} {
		for _, req := range requests {
			status, _, data := ts.do(t, req.method, req.path, req.body, token)
			assert.Equal(t, http.StatusUnauthorized, status, "%s %s", req.method, req.path)
			assert.False(t, decode[apiResponse](t, data).Success)
		}
	}

	tasks, err := fs.loadTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTodoLifecycle(t *testing.T) {
	app, _ := newTestApp(t)
	ts := newTestServer(t, composeRoutes(app))
	token, u := registerAndLogin(t, ts, "a@x.com", "secret1", "A")
	otherToken, _ := registerAndLogin(t, ts, "b@x.com", "secret2", "B")

	status, _, data := ts.do(t, http.MethodPost, "/api/v1/todos/", map[string]string{"content": "buy milk"}, token)
	require.Equal(t, http.StatusCreated, status, string(data))
	created := decode[task](t, data)
	assert.Equal(t, statusUnfinished, created.Status)
	assert.Equal(t, u.ID, created.OwnerID)
	assert.Nil(t, created.CompletedDate)
	assert.NotContains(t, string(data), "completedDate")

	status, _, _ = ts.do(t, http.MethodPost, "/api/v1/todos", map[string]string{"content": "walk dog", "dueDate": "2025-01-31"}, otherToken)
	require.Equal(t, http.StatusCreated, status)

	status, _, data = ts.do(t, http.MethodGet, "/api/v1/todos/user", nil, token)
	require.Equal(t, http.StatusOK, status)
	mine := decode[apiResponse](t, data)
	require.Len(t, mine.Todos, 1)
	assert.Equal(t, created.ID, mine.Todos[0].ID)

	status, _, data = ts.do(t, http.MethodGet, "/api/v1/todos/", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[apiResponse](t, data).Todos, 2)

	status, _, data = ts.do(t, http.MethodPut, "/api/v1/todos/"+created.ID, map[string]string{"status": "Done"}, token)
	require.Equal(t, http.StatusOK, status, string(data))
	updated := decode[task](t, data)
	assert.Equal(t, statusDone, updated.Status)
	require.NotNil(t, updated.CompletedDate)
	assert.Equal(t, "buy milk", updated.Content)

	status, _, data = ts.do(t, http.MethodPut, "/api/v1/todos/"+created.ID, map[string]string{"content": "stolen"}, otherToken)
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Todo not found.", decode[apiResponse](t, data).Message)

	status, _, data = ts.do(t, http.MethodPut, "/api/v1/todos/"+created.ID, map[string]string{"status": "Maybe"}, token)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, decode[apiResponse](t, data).Errors, "status")

	status, _, data = ts.do(t, http.MethodDelete, "/api/v1/todos/"+created.ID, nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "null\n", string(data))

	status, _, data = ts.do(t, http.MethodDelete, "/api/v1/todos/"+created.ID, nil, token)
	require.Equal(t, http.StatusNotFound, status)
	assert.False(t, decode[apiResponse](t, data).Success)
}

func TestLogoutClearsCookie(t *testing.T) {
	app, _ := newTestApp(t)
	ts := newTestServer(t, composeRoutes(app))

	status, header, _ := ts.do(t, http.MethodPost, "/api/v1/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, status)
	cookies := (&http.Response{Header: header}).Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, authCookieName, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestTodoRoutesHideStorageFailures(t *testing.T) {
	app, fs := newTestApp(t)
	ts := newTestServer(t, composeRoutes(app))
	token, _ := registerAndLogin(t, ts, "a@x.com", "secret1", "A")
	require.NoError(t, os.Mkdir(fs.tasksPath, 0o755))

	requests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/v1/todos/", nil},
		{http.MethodGet, "/api/v1/todos/user", nil},
		{http.MethodPost, "/api/v1/todos/", map[string]string{"content": "buy milk"}},
	}
	for _, req := range requests {
		status, _, data := ts.do(t, req.method, req.path, req.body, token)
		assert.Equal(t, http.StatusInternalServerError, status, "%s %s", req.method, req.path)
		assert.JSONEq(t, `{"success":false,"message":"Internal Server Error."}`, string(data))
		assert.NotContains(t, string(data), "todos.json")
		assert.False(t, strings.Contains(string(data), "directory"), string(data))
	}
}

type recordedMail struct {
	to   string
	data any
}

type fakeSender struct {
	mu   sync.Mutex
	sent []recordedMail
}

func (f *fakeSender) send(to string, tmpl *template.Template, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, recordedMail{to: to, data: data})
	return nil
}

func TestRegisterSendsWelcomeMail(t *testing.T) {
	app, _ := newTestApp(t)
	sender := &fakeSender{}
	app.mailer = sender
	ts := newTestServer(t, composeRoutes(app))
	body := map[string]string{"email": "a@x.com", "password": "secret1", "fullName": "A"}

	status, _, _ := ts.do(t, http.MethodPost, "/api/v1/auth/register", body, "")
	require.Equal(t, http.StatusCreated, status)
	status, _, _ = ts.do(t, http.MethodPost, "/api/v1/auth/register", body, "")
	require.Equal(t, http.StatusConflict, status)
	app.wg.Wait()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "a@x.com", sender.sent[0].to)
	welcome, ok := sender.sent[0].data.(publicUser)
	require.True(t, ok)
	assert.Equal(t, "A", welcome.FullName)
	assert.NotEmpty(t, welcome.ID)
}

func TestRegisterWithoutMailer(t *testing.T) {
	app, _ := newTestApp(t)
	require.Nil(t, app.mailer)
	ts := newTestServer(t, composeRoutes(app))

	status, _, _ := ts.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{"email": "a@x.com", "password": "secret1", "fullName": "A"}, "")
	require.Equal(t, http.StatusCreated, status)
	app.wg.Wait()
}
