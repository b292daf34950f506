package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/moneyradar/backend/internal/infrastructure/config"
)

// Claims is the JWT claims structure for API tokens.
type Claims struct {
	Subject string `json:"sub"`
	JTI     string `json:"jti"`
	jwt.RegisteredClaims
}

// JWTMiddleware validates bearer tokens on protected routes and issues
// tokens for the CLI.
type JWTMiddleware struct {
	secret    []byte
	accessTTL time.Duration
	issuer    string
}

// NewJWTMiddleware creates a new JWT middleware from config.
func NewJWTMiddleware(cfg config.JWTConfig) *JWTMiddleware {
	return &JWTMiddleware{
		secret:    []byte(cfg.Secret),
		accessTTL: cfg.AccessTTL,
		issuer:    cfg.Issuer,
	}
}

// Authenticate validates the Authorization header and sets the caller
// identity on the request context.
func (j *JWTMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "Missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := j.ParseToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.Subject)
		c.Set("jti", claims.JTI)
		c.Next()
	}
}

// GenerateAccessToken creates a signed access token for the given subject.
func (j *JWTMiddleware) GenerateAccessToken(subject string) (string, string, error) {
	jti := uuid.New().String()
	now := time.Now()

	claims := &Claims{
		Subject: subject,
		JTI:     jti,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
			Issuer:    j.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", "", err
	}
	return tokenString, jti, nil
}

// ParseToken parses and validates a token string.
func (j *JWTMiddleware) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
