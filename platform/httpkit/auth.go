package httpkit

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"pipeline_backend/platform/config"
	"pipeline_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	bearerPrefix    = "Bearer "
	tokenTypeAccess = "access"

	errMissingToken = "missing token"
	errInvalidToken = "invalid token"
)

var errTokenRejected = errors.New(errInvalidToken)

// accessClaims is the access token issued by the identity service. The
// tenant is the company whose pipeline the caller works in.
type accessClaims struct {
	Type     string   `json:"type"`
	Name     string   `json:"name,omitempty"`
	TenantID string   `json:"tenant_id,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// AuthRequired validates an HS-signed access token and stores the caller's
// identity on the gin context and the request context.
func AuthRequired(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, errMissingToken)
			return
		}

		claims, userID, tenantID, err := verifyAccessToken(raw, cfg.GetJWTAccessSecret())
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRolesKey, orEmptyRoles(claims.Roles))
		if name := strings.TrimSpace(claims.Name); name != "" {
			c.Set(ContextUserNameKey, name)
		}

		ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, userID.String())
		if tenantID != nil {
			c.Set(ContextTenantIDKey, *tenantID)
			ctx = context.WithValue(ctx, logger.CompanyIDKey, tenantID.String())
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole rejects callers whose token does not carry role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetIdentity(c).HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func verifyAccessToken(raw, secret string) (*accessClaims, uuid.UUID, *uuid.UUID, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}), jwt.WithExpirationRequired())
	if err != nil || claims.Type != tokenTypeAccess {
		return nil, uuid.Nil, nil, errTokenRejected
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, nil, errTokenRejected
	}

	tenant := strings.TrimSpace(claims.TenantID)
	if tenant == "" {
		return claims, userID, nil, nil
	}
	tenantID, err := uuid.Parse(tenant)
	if err != nil {
		return nil, uuid.Nil, nil, errTokenRejected
	}
	return claims, userID, &tenantID, nil
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	return raw, raw != ""
}

func orEmptyRoles(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}
