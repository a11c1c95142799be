package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// userHeader carries the caller identity set by the upstream gateway.
const userHeader = "X-User-ID"

const userKey = "user_id"

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(userHeader))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing " + userHeader + " header"})
			return
		}
		c.Set(userKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userKey)
}
