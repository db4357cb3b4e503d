package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/camfleet/api/models"
	"github.com/moyoez/camfleet/boardcast"
	"github.com/moyoez/camfleet/share"
	"github.com/moyoez/camfleet/tool"
)

// UserDiscovered returns the cameras currently advertised on the network.
// GET /api/self/v1/discovered
func UserDiscovered(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(share.ListDiscovered()))
}

// UserScanNow triggers an immediate subnet sweep and returns the discovery feed.
// GET /api/self/v1/scan-now
func UserScanNow(c *gin.Context) {
	if err := boardcast.ScanNow(c.Request.Context(), models.GetSweepPort()); err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Scan failed: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(share.ListDiscovered()))
}
