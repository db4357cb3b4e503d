package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

// GET /api/self/v1/profiles
func UserProfilesList(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	profiles := m.Profiles()
	if profiles == nil {
		profiles = []types.Profile{}
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(profiles))
}

// UserProfileSave creates or replaces a named settings template.
// PUT /api/self/v1/profiles/:name
func UserProfileSave(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Profile name is required"))
		return
	}
	var settings types.CameraSettingsRequest
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if err := m.SaveProfile(name, settings); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// DELETE /api/self/v1/profiles/:name
func UserProfileDelete(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	if err := m.DeleteProfile(c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// UserProfileApply applies a stored profile to the listed cameras.
// POST /api/self/v1/profiles/:name/apply
func UserProfileApply(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	var request types.GroupIDsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	ctx := c.Request.Context()
	var applyErr error
	results := withSweepPaused(func() []types.GroupCommandResult {
		results, err := m.ApplyProfile(ctx, c.Param("name"), request.CameraIDs)
		applyErr = err
		return results
	})
	if applyErr != nil {
		respondError(c, applyErr)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(results))
}
