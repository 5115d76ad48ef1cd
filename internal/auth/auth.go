// Package auth authenticates the telephony platform with HS256 bearer tokens.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingBearer = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid token")
)

// SubjectKey is the gin context key holding the authenticated subject.
const SubjectKey = "auth.subject"

// Authenticator validates bearer JWTs signed with a shared secret.
type Authenticator struct {
	Secret   []byte
	Audience string
	Issuer   string
}

// Authenticate returns the token's subject.
func (a *Authenticator) Authenticate(bearer string) (string, error) {
	if bearer == "" {
		return "", ErrMissingBearer
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired()}
	if a.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.Audience))
	}
	if a.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.Issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(bearer, claims, func(*jwt.Token) (any, error) {
		return a.Secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token. With no secret
// configured every request passes.
func Middleware(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a == nil || len(a.Secret) == 0 {
			c.Next()
			return
		}

		bearer, err := extractBearer(c.GetHeader("Authorization"))
		if err == nil {
			var sub string
			sub, err = a.Authenticate(bearer)
			if err == nil {
				c.Set(SubjectKey, sub)
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"statusCode": http.StatusUnauthorized,
			"message":    err.Error(),
		})
	}
}

func extractBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingBearer
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrInvalidToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}
