package middleware

import (
	"net/http"

	"PRelay/global"

	"github.com/gin-gonic/gin"
)

// Origin applies the configured cross-origin policy. The web
// application's browser clients connect from its origin, so both the
// HTTP routes and the websocket handshake must accept it.
func Origin(cfg *global.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if !cfg.OriginAllowed(origin) {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
