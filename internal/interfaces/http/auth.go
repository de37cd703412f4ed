package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/aflo-dev/aflo/internal/domain/entity"
)

const callerContextKey = "aflo.caller"

// AuthConfig configures bearer-token verification
type AuthConfig struct {
	// Secret is the HS256 signing key.
	Secret string
	// Issuer is required to match the iss claim when set.
	Issuer string
	// AdminRole grants administrator rights to callers holding it.
	AdminRole string
}

// Claims is the token payload the caller identity is read from
type Claims struct {
	UserName   string   `json:"user_name"`
	TenantID   string   `json:"tenant_id"`
	TenantName string   `json:"tenant_name"`
	Roles      []string `json:"roles"`
	jwt.RegisteredClaims
}

// Authenticate returns middleware that verifies the bearer token and stores
// the caller on the gin and request contexts.
func Authenticate(cfg AuthConfig, logger Logger) gin.HandlerFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	keyFunc := func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			unauthorized(c, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			unauthorized(c, "Invalid authorization header format")
			return
		}

		claims := &Claims{}
		if _, err := parser.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, keyFunc); err != nil {
			logger.Info("Rejected bearer token", "path", c.Request.URL.Path, "error", err)
			unauthorized(c, classifyTokenError(err))
			return
		}
		if claims.Subject == "" {
			unauthorized(c, "Token has no subject")
			return
		}

		caller := CallerFromClaims(cfg, claims)
		c.Set(callerContextKey, caller)
		c.Request = c.Request.WithContext(entity.ContextWithCaller(c.Request.Context(), caller))
		c.Next()
	}
}

// CallerFromClaims maps verified claims onto the caller identity
func CallerFromClaims(cfg AuthConfig, claims *Claims) entity.Caller {
	caller := entity.Caller{
		UserID:     claims.Subject,
		UserName:   claims.UserName,
		TenantID:   claims.TenantID,
		TenantName: claims.TenantName,
		Roles:      claims.Roles,
	}
	caller.IsAdmin = cfg.AdminRole != "" && caller.HasRole(cfg.AdminRole)
	return caller
}

// SignToken issues an HS256 token for caller that expires after ttl
func SignToken(cfg AuthConfig, caller entity.Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserName:   caller.UserName,
		TenantID:   caller.TenantID,
		TenantName: caller.TenantName,
		Roles:      caller.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.UserID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

// callerOf returns the caller stored by Authenticate
func callerOf(c *gin.Context) entity.Caller {
	if v, ok := c.Get(callerContextKey); ok {
		if caller, ok := v.(entity.Caller); ok {
			return caller
		}
	}
	caller, _ := entity.CallerFromContext(c.Request.Context())
	return caller
}

func classifyTokenError(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "Token expired"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "Invalid token issuer"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "Invalid token signature"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "Token is missing required claims"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "Disallowed signing algorithm"
	default:
		return "Invalid token"
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Error: ErrorBody{Code: "Unauthorized", Message: message},
	})
}
