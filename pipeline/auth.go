package pipeline

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/harborstack/keel/errors"
)

// AuthConfig configures the optional bearer-token middleware. Services that
// need authenticated routes mount this through their middleware callback.
type AuthConfig struct {
	// Secret is the HMAC signing secret for token verification.
	Secret []byte
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string
}

// BearerAuth validates Authorization: Bearer tokens with the configured
// secret and stores the claims in the request context under "claims".
func BearerAuth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				errors.Envelope{Code: http.StatusUnauthorized})
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return cfg.Secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				errors.Envelope{Code: http.StatusUnauthorized})
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			c.Set("claims", map[string]interface{}(claims))
		}
		c.Next()
	}
}
