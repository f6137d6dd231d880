package betreeadmin

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	jwtverifier "github.com/okta/okta-jwt-verifier-golang"
)

var claimsToValidate = map[string]string{
	"aud": "api://default",
	"cid": os.Getenv("OKTA_CLIENT_ID"),
}

// bearerAuth verifies the request's Authorization header against Okta,
// bypassing verification entirely when BETREE_ENV=DEV so the admin surface
// is reachable without standing up an identity provider locally.
func bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if os.Getenv("BETREE_ENV") == "DEV" {
			c.Next()
			return
		}

		token := c.Request.Header.Get("Authorization")
		if !strings.HasPrefix(token, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token = strings.TrimPrefix(token, "Bearer ")

		verifierSetup := jwtverifier.JwtVerifier{
			Issuer:           "https://" + os.Getenv("OKTA_DOMAIN") + "/oauth2/default",
			ClaimsToValidate: claimsToValidate,
		}
		if _, err := verifierSetup.New().VerifyAccessToken(token); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}
