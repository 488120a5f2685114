package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var errNoToken = errors.New("no bearer token")

// Auth validates the JWT and injects the user identity into context as
// "user_id" and "email".
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := parseBearer(c.Request().Header.Get("Authorization"), jwtSecret)
			if err != nil {
				switch {
				case errors.Is(err, errNoToken):
					return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
				default:
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
			}

			setIdentity(c, claims)
			return next(c)
		}
	}
}

// OptionalAuth injects the identity when a valid token is present and lets
// anonymous requests through. A malformed or expired token is rejected.
func OptionalAuth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return next(c)
			}
			claims, err := parseBearer(header, jwtSecret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			setIdentity(c, claims)
			return next(c)
		}
	}
}

func parseBearer(header, jwtSecret string) (jwt.MapClaims, error) {
	if header == "" {
		return nil, errNoToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, errors.New("invalid authorization header")
	}

	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}

	if sub, _ := claims.GetSubject(); sub == "" {
		return nil, errors.New("token missing subject")
	}
	return claims, nil
}

func setIdentity(c echo.Context, claims jwt.MapClaims) {
	sub, _ := claims.GetSubject()
	email, _ := claims["email"].(string)
	c.Set("user_id", sub)
	c.Set("email", email)
}
