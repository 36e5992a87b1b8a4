package types

import (
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const authPrincipleKey = "x-auth-principle"

// AuthPrinciple is the authenticated caller of an internal API. Webhook
// routes never carry one; provider signatures authenticate those instead.
type AuthPrinciple struct {
	UserId         uint64
	OrganizationId uint64
	Email          string
}

type AuthClaims struct {
	UserId         uint64 `json:"uid"`
	OrganizationId uint64 `json:"oid"`
	Email          string `json:"email"`
	jwt.RegisteredClaims
}

func SetAuthPrinciple(c *gin.Context, principle *AuthPrinciple) {
	c.Set(authPrincipleKey, principle)
}

func GetAuthPrinciple(c *gin.Context) (*AuthPrinciple, bool) {
	vl, ok := c.Get(authPrincipleKey)
	if !ok {
		return nil, false
	}
	principle, ok := vl.(*AuthPrinciple)
	return principle, ok
}
