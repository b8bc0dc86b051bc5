package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/labworks/labgrade/internal/db"
)

func openUsersDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "auth_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbh.Close() })
	return dbh
}

func seedUser(t *testing.T, dbh *sql.DB, login, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = dbh.Exec(`INSERT INTO users (login, password_hash, name, age) VALUES ($1,$2,$3,$4)`,
		login, string(hash), "Иван Петров", 19)
	require.NoError(t, err)
}

func TestLoginSuccess(t *testing.T) {
	dbh := openUsersDB(t)
	seedUser(t, dbh, "ivan", "secret")
	svc := NewService(dbh, "test-secret")

	resp := svc.Login(context.Background(), "ivan", "secret")
	require.True(t, resp.Success)
	assert.False(t, resp.Error.IsError)
	assert.Equal(t, "Success", resp.Error.ErrorText)
	require.NotNil(t, resp.Students)
	assert.Equal(t, "ivan", resp.Students.Login)
	assert.Equal(t, "Иван Петров", resp.Students.Name)
	assert.NotEmpty(t, resp.Token)

	claims, err := svc.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "ivan", claims.Sub)
}

func TestLoginUnknownUser(t *testing.T) {
	svc := NewService(openUsersDB(t), "test-secret")

	resp := svc.Login(context.Background(), "nobody", "x")
	assert.False(t, resp.Success)
	assert.True(t, resp.Error.IsError)
	assert.Equal(t, "User", resp.Error.ErrorText)
	assert.Nil(t, resp.Students)
}

func TestLoginWrongPassword(t *testing.T) {
	dbh := openUsersDB(t)
	seedUser(t, dbh, "ivan", "secret")
	svc := NewService(dbh, "test-secret")

	resp := svc.Login(context.Background(), "ivan", "wrong")
	assert.False(t, resp.Success)
	assert.Equal(t, "Password", resp.Error.ErrorText)
}

func TestParseRejectsForeignToken(t *testing.T) {
	dbh := openUsersDB(t)
	issuer := NewService(dbh, "secret-a")
	verifier := NewService(dbh, "secret-b")

	tok, err := issuer.IssueJWT("ivan", "Иван")
	require.NoError(t, err)
	_, err = verifier.Parse(tok)
	assert.Error(t, err)
}

func TestUserByID(t *testing.T) {
	dbh := openUsersDB(t)
	seedUser(t, dbh, "ivan", "secret")
	svc := NewService(dbh, "test-secret")

	u, err := svc.UserByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "ivan", u.Login)
	assert.Equal(t, 19, u.Age)

	_, err = svc.UserByID(context.Background(), "42")
	assert.Error(t, err)
}
