package mw

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PrintTokenHeader carries the print relay's shared secret.
const PrintTokenHeader = "X-Print-Token"

// PrintAuth rejects requests whose X-Print-Token does not match secret.
func PrintAuth(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(PrintTokenHeader))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
