package transcript_routers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/rapidaai/transcript-api/config"
	"github.com/rapidaai/transcript-api/pkg/commons"
	"github.com/rapidaai/transcript-api/pkg/types"
	"github.com/rapidaai/transcript-api/pkg/utils"
)

// Authenticator guards the internal API surface with a bearer token.
// Webhook routes never pass through here; provider signatures authenticate
// those.
func Authenticator(cfg *config.AppConfig, logger commons.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			utils.Failure(c, types.NewAuthenticationError("missing bearer token"), "")
			c.Abort()
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := &types.AuthClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, types.NewAuthenticationError("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		})
		if err != nil || !token.Valid {
			logger.Warnf("rejected token from ip=%s: %v", c.ClientIP(), err)
			utils.Failure(c, types.NewAuthenticationError("invalid bearer token"), "")
			c.Abort()
			return
		}

		types.SetAuthPrinciple(c, &types.AuthPrinciple{
			UserId:         claims.UserId,
			OrganizationId: claims.OrganizationId,
			Email:          claims.Email,
		})
		c.Next()
	}
}
