package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"livechat/backend/internal/config"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const attendantKey = "attendant_id"

// GenerateAttendantToken signs an HS256 token whose subject is the attendant id.
func GenerateAttendantToken(secret []byte, attendantID string, ttl time.Duration) (string, error) {
	if attendantID == "" {
		return "", errors.New("attendant id is required")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   attendantID,
		Issuer:    config.TokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateAttendantToken checks signature, issuer and expiry and returns the attendant id.
func ValidateAttendantToken(secret []byte, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(config.TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// AuthMiddleware accepts the token from an "Authorization: Bearer" header or, for
// browser WebSocket connections, from the token query parameter.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
				return
			}
			tokenString = parts[1]
		} else {
			tokenString = strings.TrimSpace(strings.TrimPrefix(c.Query("token"), "Bearer "))
			if tokenString == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
				return
			}
		}

		attendantID, err := ValidateAttendantToken(h.Secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token or expired"})
			return
		}
		c.Set(attendantKey, attendantID)
		c.Next()
	}
}

func attendantID(c *gin.Context) string {
	return c.GetString(attendantKey)
}
