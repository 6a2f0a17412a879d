package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const userIDContextKey = "user_id"

// claims is the token payload issued by the account service. Only the
// tenant id matters here.
type claims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

// requireAuth validates the Bearer token and puts the tenant id on the
// request context. Every handler reads the tenant from here, never from
// the request body.
func (s *Server) requireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header required")
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			token, err := jwt.ParseWithClaims(tokenParts[1], &claims{}, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(s.jwtSecret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			cl, ok := token.Claims.(*claims)
			if !ok || cl.UserID == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token claims")
			}

			c.Set(userIDContextKey, cl.UserID)
			return next(c)
		}
	}
}

// userID extracts the authenticated tenant id from the echo context.
func userID(c echo.Context) int64 {
	v := c.Get(userIDContextKey)
	if v == nil {
		return 0
	}
	id, _ := v.(int64)
	return id
}
