package middlewares

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/camfleet/tool"
)

// OnlyAllowLocal rejects any caller that is not on a loopback address.
func OnlyAllowLocal(c *gin.Context) {
	ip := net.ParseIP(c.ClientIP())
	if ip != nil && ip.IsLoopback() {
		c.Next()
		return
	}
	c.AbortWithStatusJSON(http.StatusForbidden, tool.FastReturnError("Forbidden"))
}
