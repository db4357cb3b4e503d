package controllers

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

// UserListDevices polls every camera and returns the refreshed registry.
// GET /api/self/v1/devices
func UserListDevices(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(m.ListDevices(c.Request.Context())))
}

// UserAddDevice checks and registers a camera.
// POST /api/self/v1/devices
func UserAddDevice(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	var request types.AddDeviceRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	request.IP = strings.TrimSpace(request.IP)
	if net.ParseIP(request.IP) == nil || request.Port <= 0 || request.Port > 65535 {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid ip or port"))
		return
	}
	id, err := m.AddDevice(c.Request.Context(), request.IP, request.Port, request.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	device, err := m.Device(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(device))
}

// UserGetDevice returns the cached registry entry without contacting the camera.
// GET /api/self/v1/devices/:id
func UserGetDevice(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	device, err := m.Device(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(device))
}

// UserRenameDevice changes the display alias.
// PATCH /api/self/v1/devices/:id
func UserRenameDevice(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	var request types.RenameDeviceRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if strings.TrimSpace(request.Alias) == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Alias is required"))
		return
	}
	if err := m.RenameDevice(c.Param("id"), request.Alias); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// UserRemoveDevice unregisters a camera.
// DELETE /api/self/v1/devices/:id
func UserRemoveDevice(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	if err := m.RemoveDevice(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// GET /api/self/v1/devices/:id/status
func UserDeviceStatus(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	status, err := m.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(status))
}

// GET /api/self/v1/devices/:id/capabilities
func UserDeviceCapabilities(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	caps, err := m.GetCapabilities(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(caps))
}

// UserStartStream starts streaming on one camera.
// POST /api/self/v1/devices/:id/stream/start
func UserStartStream(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	var request types.StreamStartRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if err := m.StartStream(c.Request.Context(), c.Param("id"), request); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// POST /api/self/v1/devices/:id/stream/stop
func UserStopStream(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	if err := m.StopStream(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// UserUpdateCamera applies a partial camera settings update.
// POST /api/self/v1/devices/:id/camera
func UserUpdateCamera(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	var request types.CameraSettingsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if err := m.UpdateCameraSettings(c.Request.Context(), c.Param("id"), request); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// UserUpdateStreamSettings stores stream settings for later starts without contacting the camera.
// PUT /api/self/v1/devices/:id/stream-settings
func UserUpdateStreamSettings(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	var request types.StreamStartRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if err := m.UpdateStreamSettings(c.Param("id"), request); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// POST /api/self/v1/devices/:id/wb/measure
func UserMeasureWhiteBalance(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	result, err := m.MeasureWhiteBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(result))
}

// UserDeviceSettings returns the last-applied settings recorded for a camera.
// GET /api/self/v1/devices/:id/settings
func UserDeviceSettings(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	settings, err := m.PersistedSettings(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(settings))
}
