package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"internship-portal/internal/auth"
	"internship-portal/internal/logging"
	"internship-portal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	authorizationHeader = "Authorization"
	userCtx             = "userID" // Key to store user ID in context
	roleCtx             = "role"
)

func unauthorized(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "code": code})
}

// JWTAuthMiddleware authenticates bearer tokens issued by issuer and stores
// the user id and role in the context.
func JWTAuthMiddleware(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logging.FromContext(c.Request.Context())

		authHeader := c.GetHeader(authorizationHeader)
		if authHeader == "" {
			log.Debug("Auth middleware: Authorization header missing")
			unauthorized(c, "MISSING_TOKEN")
			return
		}

		headerParts := strings.Fields(authHeader)
		if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
			log.Debug("Auth middleware: Invalid Authorization header format")
			unauthorized(c, "INVALID_TOKEN")
			return
		}

		claims, err := issuer.Parse(headerParts[1])
		if err != nil {
			log.Info("Auth middleware: rejected token", "error", err)
			if errors.Is(err, jwt.ErrTokenExpired) {
				unauthorized(c, "TOKEN_EXPIRED")
			} else {
				unauthorized(c, "INVALID_TOKEN")
			}
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			log.Info("Auth middleware: invalid subject", "subject", claims.Subject)
			unauthorized(c, "INVALID_TOKEN")
			return
		}

		c.Set(userCtx, userID)
		c.Set(roleCtx, claims.Role)
		c.Next()
	}
}

// RequireRole lets the request through only for the given roles.
// It must run after JWTAuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetRoleFromContext(c)
		if err != nil {
			unauthorized(c, "MISSING_TOKEN")
			return
		}
		if !slices.Contains(roles, role) {
			logging.FromContext(c.Request.Context()).Info("Access denied",
				"role", role, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "UNAUTHORIZED", "code": "FORBIDDEN_ROLE"})
			return
		}
		c.Next()
	}
}

// GetUserIDFromContext returns the authenticated user id.
func GetUserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	userIDAny, exists := c.Get(userCtx)
	if !exists {
		return uuid.Nil, errors.New("user ID not found in context")
	}

	userID, ok := userIDAny.(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("user ID in context is of invalid type")
	}

	return userID, nil
}

// GetRoleFromContext returns the role carried by the authenticated token.
func GetRoleFromContext(c *gin.Context) (models.Role, error) {
	roleAny, exists := c.Get(roleCtx)
	if !exists {
		return "", errors.New("role not found in context")
	}
	role, ok := roleAny.(models.Role)
	if !ok {
		return "", errors.New("role in context is of invalid type")
	}
	return role, nil
}
