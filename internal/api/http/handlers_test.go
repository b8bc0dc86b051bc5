package http

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/labworks/labgrade/internal/answers"
	"github.com/labworks/labgrade/internal/auth"
	"github.com/labworks/labgrade/internal/db"
	"github.com/labworks/labgrade/internal/grading"
	"github.com/labworks/labgrade/internal/labstore"
)

const handlersConfig = `[
	{
		"id": 1,
		"answers": {
			"Answer1": {"type": "numeric", "correctAnswer": 9.81, "limit": 0.05},
			"Answer2": {"type": "exact", "correctAnswer": 3}
		}
	}
]`

type testApp struct {
	router *chi.Mux
	specs  *answers.FileStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "answers.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(handlersConfig), 0o644))
	specs := answers.NewFileStore(cfgPath)

	dbh, err := db.Open(context.Background(), db.DriverSQLite, "file:"+filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbh.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = dbh.Exec(`INSERT INTO users (login, password_hash, name, age) VALUES ('ivan', $1, 'Иван', 19)`, string(hash))
	require.NoError(t, err)

	subs := labstore.NewSQLStore(dbh, "sqlite")
	engine := grading.NewEngine(specs, subs, log.New(io.Discard, "", 0))
	authSvc := auth.NewService(dbh, "test-secret")

	r := chi.NewRouter()
	r.Post("/api", ActionHandler(engine, authSvc, subs, specs))
	r.Post("/api/answers", SubmitAnswersHandler(engine))
	r.Post("/api/login", LoginHandler(authSvc))
	r.Get("/api/users/{userID}/statistic", UserStatisticHandler(authSvc, subs, specs))
	return &testApp{router: r, specs: specs}
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestActionSetAnswer(t *testing.T) {
	app := newTestApp(t)

	rec := app.postForm(t, "/api", url.Values{
		"type":    {"setAnswer"},
		"lab_id":  {"1"},
		"id":      {"student-1"},
		"Answer1": {"9,8"},
		"Answer2": {"3"},
	})

	var res grading.Result
	decode(t, rec, &res)
	assert.Equal(t, grading.Result{Correct: 2, Total: 2, Percentage: 100}, res)
}

func TestActionSetAnswerUnknownLab(t *testing.T) {
	app := newTestApp(t)

	rec := app.postForm(t, "/api", url.Values{
		"type":    {"setAnswer"},
		"lab_id":  {"9"},
		"Answer1": {"9.81"},
	})

	var res grading.Result
	decode(t, rec, &res)
	assert.Equal(t, "Laboratory work not found", res.Error)
	assert.Zero(t, res.Total)
}

func TestActionUnknown(t *testing.T) {
	app := newTestApp(t)

	rec := app.postForm(t, "/api", url.Values{"type": {"frobnicate"}})

	var res map[string]any
	decode(t, rec, &res)
	assert.Equal(t, false, res["success"])
}

func TestRESTSubmitAnswers(t *testing.T) {
	app := newTestApp(t)

	rec := app.postForm(t, "/api/answers", url.Values{
		"lab_id":  {"1"},
		"Answer1": {"12"},
		"Answer2": {"3"},
	})

	var res grading.Result
	decode(t, rec, &res)
	assert.Equal(t, grading.Result{Correct: 1, Total: 2, Percentage: 50}, res)
}

func TestLoginRoundTrip(t *testing.T) {
	app := newTestApp(t)

	rec := app.postForm(t, "/api/login", url.Values{
		"login":    {"ivan"},
		"password": {"secret"},
	})

	var resp auth.LoginResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Token)

	rec = app.postForm(t, "/api/login", url.Values{
		"login":    {"ivan"},
		"password": {"nope"},
	})
	decode(t, rec, &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "Password", resp.Error.ErrorText)
}

func TestUserStatistic(t *testing.T) {
	app := newTestApp(t)

	// Two graded submissions feed the average.
	for _, form := range []url.Values{
		{"type": {"setAnswer"}, "lab_id": {"1"}, "id": {"1"}, "Answer1": {"9.81"}, "Answer2": {"3"}},
		{"type": {"setAnswer"}, "lab_id": {"1"}, "id": {"1"}, "Answer1": {"0"}, "Answer2": {"0"}},
	} {
		app.postForm(t, "/api", form)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/1/statistic", nil)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	var resp struct {
		Students struct {
			Login   string  `json:"login"`
			AvgMark float64 `json:"avgMark"`
		} `json:"students"`
		Error auth.ErrorInfo `json:"error"`
	}
	decode(t, rec, &resp)
	assert.False(t, resp.Error.IsError)
	assert.Equal(t, "ivan", resp.Students.Login)
	assert.InDelta(t, 50.0, resp.Students.AvgMark, 1e-9)
}

func TestUserStatisticUnknownUser(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users/99/statistic", nil)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	var resp struct {
		Error auth.ErrorInfo `json:"error"`
	}
	decode(t, rec, &resp)
	assert.True(t, resp.Error.IsError)
	assert.Equal(t, "User not found", resp.Error.ErrorText)
}
