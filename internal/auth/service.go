// Package auth verifies user credentials against the users table and issues
// short-lived JWTs for the frontend session.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// User is one row of the users table, minus the password hash.
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
}

// ErrorInfo is the error envelope the existing frontends expect.
type ErrorInfo struct {
	IsError   bool   `json:"isError"`
	ErrorText string `json:"errorText"`
}

// LoginResponse mirrors the legacy wire contract: success flag, localized
// message, the student record under "students", and the error envelope.
type LoginResponse struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Students *User     `json:"students,omitempty"`
	Token    string    `json:"token,omitempty"`
	Error    ErrorInfo `json:"error"`
}

const (
	msgBadCredentials = "Неверный логин или пароль"
	msgAuthenticated  = "Успешная аутентификация"
	msgServerError    = "Ошибка сервера"
)

type Service struct {
	db   *sql.DB
	hmac []byte
}

func NewService(db *sql.DB, secret string) *Service {
	return &Service{db: db, hmac: []byte(secret)}
}

type Claims struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

func (s *Service) IssueJWT(sub, name string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:  sub,
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "labgrade",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(8 * time.Hour)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.hmac)
}

func (s *Service) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.hmac, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	c, _ := token.Claims.(*Claims)
	return c, nil
}

// Login checks login/password against the users table. The outcome is always
// a well-formed response object; errorText distinguishes unknown user, wrong
// password and server trouble for the frontend.
func (s *Service) Login(ctx context.Context, login, password string) LoginResponse {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, login, password_hash, name, age FROM users WHERE login=$1`,
		strings.TrimSpace(login))

	var u User
	var hash string
	if err := row.Scan(&u.ID, &u.Login, &hash, &u.Name, &u.Age); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LoginResponse{
				Message: msgBadCredentials,
				Error:   ErrorInfo{IsError: true, ErrorText: "User"},
			}
		}
		return LoginResponse{
			Message: msgServerError,
			Error:   ErrorInfo{IsError: true, ErrorText: "Server"},
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return LoginResponse{
			Message: msgBadCredentials,
			Error:   ErrorInfo{IsError: true, ErrorText: "Password"},
		}
	}

	tok, err := s.IssueJWT(u.Login, u.Name)
	if err != nil {
		return LoginResponse{
			Message: msgServerError,
			Error:   ErrorInfo{IsError: true, ErrorText: "Server"},
		}
	}
	return LoginResponse{
		Success:  true,
		Message:  msgAuthenticated,
		Students: &u,
		Token:    tok,
		Error:    ErrorInfo{ErrorText: "Success"},
	}
}

// UserByID fetches one user record for the statistics lookup.
func (s *Service) UserByID(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, login, name, age FROM users WHERE id=$1`, id)
	var u User
	err := row.Scan(&u.ID, &u.Login, &u.Name, &u.Age)
	return u, err
}
