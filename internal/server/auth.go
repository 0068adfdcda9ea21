package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const CONTEXT_USER_ID = "user_id"

var errMissingToken = errors.New("missing bearer token")

// RequireUser verifies the HS256 access token of the request and stores its
// subject, the user id, in the echo context.
func (s *Server) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userId, err := s.authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			s.logger.Info("rejected fulfillment request", zap.String("remote", c.RealIP()), zap.Error(err))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
		c.Set(CONTEXT_USER_ID, userId)
		return next(c)
	}
}

func (s *Server) authenticate(header string) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", errMissingToken
	}
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return s.accessKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if subject == "" {
		return "", errors.New("token has no subject")
	}
	return strings.ToLower(subject), nil
}
