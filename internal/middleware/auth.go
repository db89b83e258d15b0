package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/assessment-api/internal/handler"
	"github.com/jwalitptl/assessment-api/internal/model"
	"github.com/jwalitptl/assessment-api/internal/service/auth"
)

const (
	claimsCacheTTL     = time.Minute
	claimsCacheCleanup = 5 * time.Minute
)

type AuthMiddleware struct {
	authService *auth.Service
	claimsCache *gocache.Cache
}

func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		claimsCache: gocache.New(claimsCacheTTL, claimsCacheCleanup),
	}
}

// Authenticate verifies the bearer token and sets the clinician identity
// in the request context. Validated claims are cached briefly so hot
// clients do not re-verify the same token on every request.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid authorization format"})
			c.Abort()
			return
		}

		claims, err := m.resolveClaims(c, parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid token"})
			c.Abort()
			return
		}

		c.Set(handler.ContextClinicianID, claims.ClinicianID)
		c.Set("clinicianUsername", claims.Username)
		c.Next()
	}
}

func (m *AuthMiddleware) resolveClaims(c *gin.Context, token string) (*model.TokenClaims, error) {
	if cached, ok := m.claimsCache.Get(token); ok {
		return cached.(*model.TokenClaims), nil
	}

	claims, err := m.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		return nil, err
	}

	m.claimsCache.Set(token, claims, gocache.DefaultExpiration)
	return claims, nil
}
