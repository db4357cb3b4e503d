package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/camfleet/api/models"
	"github.com/moyoez/camfleet/notify"
	"github.com/moyoez/camfleet/tool"
)

// UserStatus returns server status for the local UI.
// GET /api/self/v1/status
func UserStatus(c *gin.Context) {
	cameras := 0
	if m := models.GetManager(); m != nil {
		cameras = len(m.Devices())
	}
	c.JSON(http.StatusOK, gin.H{
		"running":           true,
		"notify_ws_enabled": notify.NotifyWSEnabled(),
		"cameras":           cameras,
	})
}

// GET /api/self/v1/settings
func UserSettingsGet(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(m.AppSettings()))
}

// UserSettingsPut replaces the application settings stored in settings.json.
// PUT /api/self/v1/settings
func UserSettingsPut(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	settings := m.AppSettings()
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if err := m.SaveAppSettings(settings); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(settings))
}

// UserDeleteDevicesData removes cameras.json and clears the registry.
// DELETE /api/self/v1/data/devices
func UserDeleteDevicesData(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	if err := m.DeleteDevicesData(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}
