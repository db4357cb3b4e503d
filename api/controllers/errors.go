package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/camfleet/api/models"
	"github.com/moyoez/camfleet/camera"
	"github.com/moyoez/camfleet/fleet"
	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

// respondError maps manager and camera errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var serverErr *camera.ServerError
	switch {
	case errors.Is(err, types.ErrNotFound):
		c.JSON(http.StatusNotFound, tool.FastReturnError(err.Error()))
	case errors.As(err, &serverErr):
		c.JSON(http.StatusBadGateway, tool.FastReturnCameraError(serverErr.Code, serverErr.Message))
	case errors.Is(err, camera.ErrRequestFailed):
		c.JSON(http.StatusGatewayTimeout, tool.FastReturnError(err.Error()))
	case errors.Is(err, camera.ErrConnectFailed), errors.Is(err, camera.ErrDecodeFailed):
		c.JSON(http.StatusBadGateway, tool.FastReturnError(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, tool.FastReturnError(err.Error()))
	}
}

// requireManager aborts with 503 while the manager is not wired yet.
func requireManager(c *gin.Context) *fleet.Manager {
	m := models.GetManager()
	if m == nil {
		c.JSON(http.StatusServiceUnavailable, tool.FastReturnError("Fleet manager not ready"))
		return nil
	}
	return m
}
