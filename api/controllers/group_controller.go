package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/camfleet/boardcast"
	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

// withSweepPaused keeps the subnet sweep off the network while a batch command runs.
func withSweepPaused(run func() []types.GroupCommandResult) []types.GroupCommandResult {
	boardcast.PauseScan()
	defer boardcast.ResumeScan()
	return run()
}

// UserGroupStartStream starts streaming on the listed cameras.
// POST /api/self/v1/group/stream/start
func UserGroupStartStream(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	var request types.GroupStartRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	ctx := c.Request.Context()
	results := withSweepPaused(func() []types.GroupCommandResult {
		return m.GroupStartStream(ctx, request.CameraIDs, request.StreamStartRequest)
	})
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(results))
}

// POST /api/self/v1/group/stream/stop
func UserGroupStopStream(c *gin.Context) {
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
	results := withSweepPaused(func() []types.GroupCommandResult {
		return m.GroupStopStream(ctx, request.CameraIDs)
	})
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(results))
}

// UserGroupUpdateCamera applies one settings payload to the listed cameras.
// POST /api/self/v1/group/camera
func UserGroupUpdateCamera(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	var request types.GroupSettingsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	ctx := c.Request.Context()
	results := withSweepPaused(func() []types.GroupCommandResult {
		return m.GroupUpdateSettings(ctx, request.CameraIDs, request.Settings)
	})
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(results))
}

// UserStartAll starts every registered camera with its recorded or default stream settings.
// POST /api/self/v1/start-all
func UserStartAll(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	ctx := c.Request.Context()
	results := withSweepPaused(func() []types.GroupCommandResult {
		return m.StartAll(ctx)
	})
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(results))
}

// POST /api/self/v1/stop-all
func UserStopAll(c *gin.Context) {
	m := requireManager(c)
	if m == nil {
		return
	}
	ctx := c.Request.Context()
	results := withSweepPaused(func() []types.GroupCommandResult {
		return m.StopAll(ctx)
	})
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(results))
}
