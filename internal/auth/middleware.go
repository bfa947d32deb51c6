package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

var ErrUnauthorized = errors.New("unauthorized")

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) Check(other Credentials) bool {
	user := subtle.ConstantTimeCompare([]byte(c.Username), []byte(other.Username))
	pass := subtle.ConstantTimeCompare([]byte(c.Password), []byte(other.Password))
	return user&pass == 1
}

// NewCredentials parses "user:password".
func NewCredentials(s string) (Credentials, error) {
	username, password, ok := strings.Cut(s, ":")
	if !ok || username == "" {
		return Credentials{}, fmt.Errorf("invalid credentials format")
	}

	return Credentials{
		Username: username,
		Password: password,
	}, nil
}

type Authenticator struct {
	credentials Credentials
	jwtSecret   string
}

func NewAuthenticator(credentials Credentials, jwtSecret string) *Authenticator {
	return &Authenticator{credentials: credentials, jwtSecret: jwtSecret}
}

// Authenticate checks creds and returns a session cookie on success.
func (a *Authenticator) Authenticate(creds Credentials) (*http.Cookie, error) {
	if !a.credentials.Check(creds) {
		return nil, ErrUnauthorized
	}
	return a.generateCookie(creds.Username)
}

func (a *Authenticator) generateCookie(username string) (*http.Cookie, error) {
	token, err := SignToken(username, a.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(tokenExpiry.Seconds()),
	}, nil
}

// NewAuthMiddleware accepts either a valid session cookie or basic auth.
func NewAuthMiddleware(auther *Authenticator) echo.MiddlewareFunc {
	type authStrategy func(c echo.Context) bool
	strategies := []authStrategy{
		auther.authWithCookie,
		auther.authWithBasicAuth,
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, strategy := range strategies {
				if strategy(c) {
					return next(c)
				}
			}
			return echo.ErrUnauthorized
		}
	}
}

func (a *Authenticator) authWithCookie(c echo.Context) bool {
	cookie, err := c.Cookie(cookieName)
	if err != nil || cookie == nil || cookie.Value == "" {
		return false
	}

	claims, err := ValidateToken(cookie.Value, a.jwtSecret)
	if err != nil {
		return false
	}

	if refreshed, err := a.generateCookie(claims.Subject); err == nil {
		refreshed.Secure = c.IsTLS()
		c.SetCookie(refreshed)
	}

	return true
}

func (a *Authenticator) authWithBasicAuth(c echo.Context) bool {
	username, password, ok := c.Request().BasicAuth()
	if !ok {
		return false
	}

	cookie, err := a.Authenticate(Credentials{Username: username, Password: password})
	if err != nil {
		return false
	}
	cookie.Secure = c.IsTLS()
	c.SetCookie(cookie)

	return true
}

func ExpireCookie() *http.Cookie {
	return &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	}
}
