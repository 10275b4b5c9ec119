package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/logging"
	"grocery/internal/models"
)

const identityKey = "identity"

// AuthGuard validates the caller's HS256 token and stores the resolved
// identity on the context. When roles are given the caller must hold one.
func AuthGuard(secret string, allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := logging.FromContext(c.Request.Context(), nil)

		raw := tokenFromRequest(c.Request)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing token"})
			return
		}

		identity, err := ParseToken(raw, secret)
		if err != nil {
			if logger != nil {
				logger.Debug("token rejected", slog.Any("error", err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			return
		}

		if len(allowedRoles) > 0 && !hasRole(identity.Role, allowedRoles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "forbidden"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

func SellerAuth(secret string) gin.HandlerFunc {
	return AuthGuard(secret, models.RoleSeller, models.RoleAdmin)
}

func AdminAuth(secret string) gin.HandlerFunc {
	return AuthGuard(secret, models.RoleAdmin)
}

// tokenFromRequest reads "Authorization: Bearer <jwt>", falling back to the
// legacy "token" header older clients send.
func tokenFromRequest(r *http.Request) string {
	if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
		parts := strings.Fields(raw)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return ""
		}
		return parts[1]
	}
	return strings.TrimSpace(r.Header.Get("token"))
}

// ParseToken verifies raw and extracts the caller. The user id comes from
// "sub", or "userId" for older tokens. A missing role means a plain user.
func ParseToken(raw, secret string) (models.Identity, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Identity{}, errors.New("invalid token claims")
	}

	subject, _ := claims["sub"].(string)
	if strings.TrimSpace(subject) == "" {
		subject, _ = claims["userId"].(string)
	}
	if strings.TrimSpace(subject) == "" {
		return models.Identity{}, errors.New("user id claim missing")
	}
	userID, err := primitive.ObjectIDFromHex(strings.TrimSpace(subject))
	if err != nil {
		return models.Identity{}, errors.New("invalid user id claim")
	}

	role := models.RoleUser
	if value, _ := claims["role"].(string); value != "" {
		role = models.Role(value)
		if !role.Valid() {
			return models.Identity{}, errors.New("invalid role claim")
		}
	}
	return models.Identity{ID: userID, Role: role}, nil
}

// IssueToken signs an HS256 token for identity. Used by tests and local tooling.
func IssueToken(identity models.Identity, secret string, claims jwt.MapClaims) (string, error) {
	all := jwt.MapClaims{"sub": identity.ID.Hex(), "role": string(identity.Role)}
	for k, v := range claims {
		all[k] = v
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, all).SignedString([]byte(secret))
}

// IdentityFrom returns the caller stored by AuthGuard.
func IdentityFrom(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	identity, ok := v.(models.Identity)
	return identity, ok
}

func hasRole(role models.Role, allowed []models.Role) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
