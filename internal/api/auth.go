package api

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
)

// GenerateAccessToken generates a 256-bit secure random access token for the API.
func GenerateAccessToken() (string, error) {
	const tokenLength = 32
	b := make([]byte, tokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b), nil
}

// ValidateAccessToken checks that a user-provided access token is usable.
func ValidateAccessToken(token string) error {
	if len(token) < 8 {
		return errors.New("access token should be at least 8 characters in length")
	}
	if strings.IndexFunc(token, unicode.IsSpace) >= 0 {
		return errors.New("access token should not contain whitespace characters")
	}
	return nil
}

// requireAccessToken rejects requests that don't carry the server's access token as a bearer token.
func (s *Server) requireAccessToken() gin.HandlerFunc {
	want := []byte(s.accessToken)
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" {
			abortWithError(c, http.StatusUnauthorized, errors.New("missing access token"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), want) != 1 {
			abortWithError(c, http.StatusUnauthorized, errors.New("invalid access token"))
			return
		}
		c.Next()
	}
}
