package middleware

import (
	"errors"
	"strings"
	"time"

	"immobile-portal/internal/apierror"
	"immobile-portal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	authUserKey = "authUser"

	msgInvalidToken = "Token inválido ou ausente"
	msgForbidden    = "Acesso negado"
)

// Claims are the access token claims issued to portal users
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth validates the bearer token and stores the caller on the context
func Auth(secret, issuer string) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || tokenString == authHeader {
			abort(c, apierror.Unauthorized(msgInvalidToken))
			return
		}

		claims := &Claims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			abort(c, apierror.Unauthorized(msgInvalidToken))
			return
		}

		c.Set(authUserKey, &models.AuthUser{ID: claims.Subject, Role: models.Role(claims.Role)})
		c.Next()
	}
}

// CurrentUser returns the caller stored by Auth
func CurrentUser(c *gin.Context) (*models.AuthUser, bool) {
	v, ok := c.Get(authUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.AuthUser)
	return user, ok
}

// SetCurrentUser attaches a caller to the context
func SetCurrentUser(c *gin.Context, user *models.AuthUser) {
	c.Set(authUserKey, user)
}

// RequireRole rejects callers whose role is not listed
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abort(c, apierror.Unauthorized(msgInvalidToken))
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		abort(c, apierror.Forbidden(msgForbidden))
	}
}

// IssueToken signs an HS256 access token for userID with the given role
func IssueToken(secret, issuer, userID string, role models.Role, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
