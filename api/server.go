package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/camfleet/api/controllers"
	"github.com/moyoez/camfleet/api/middlewares"
	"github.com/moyoez/camfleet/api/models"
	"github.com/moyoez/camfleet/api/notifyhub"
	"github.com/moyoez/camfleet/fleet"
	"github.com/moyoez/camfleet/notify"
	"github.com/moyoez/camfleet/tool"
)

// Server is the localhost control API in front of the fleet manager.
type Server struct {
	port   int
	engine *gin.Engine
	server *http.Server
	mu     sync.RWMutex
}

// SetManager wires the fleet manager used by every controller.
func SetManager(m *fleet.Manager) {
	models.SetManager(m)
}

// SetNotifyHub wires the hub served on /api/self/v1/notify-ws.
func SetNotifyHub(h *notifyhub.Hub) {
	models.SetNotifyHub(h)
}

// SetSweepPort sets the camera port used by scan-now.
func SetSweepPort(port int) {
	models.SetSweepPort(port)
}

// NewServer creates a new API server instance listening on port.
func NewServer(port int) *Server {
	return &Server{port: port}
}

// Engine returns the routed engine, building it on first use.
func (s *Server) Engine() *gin.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		s.engine = s.setupRoutes()
	}
	return s.engine
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())

	self := engine.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.GET("/status", controllers.UserStatus) // Running, notify_ws_enabled and camera count

		self.GET("/devices", controllers.UserListDevices) // Poll all cameras and list the registry
		self.POST("/devices", controllers.UserAddDevice)
		self.GET("/devices/:id", controllers.UserGetDevice)
		self.PATCH("/devices/:id", controllers.UserRenameDevice)
		self.DELETE("/devices/:id", controllers.UserRemoveDevice)
		self.GET("/devices/:id/status", controllers.UserDeviceStatus)
		self.GET("/devices/:id/capabilities", controllers.UserDeviceCapabilities)
		self.POST("/devices/:id/stream/start", controllers.UserStartStream)
		self.POST("/devices/:id/stream/stop", controllers.UserStopStream)
		self.POST("/devices/:id/camera", controllers.UserUpdateCamera)
		self.PUT("/devices/:id/stream-settings", controllers.UserUpdateStreamSettings) // Stored only, camera is not contacted
		self.POST("/devices/:id/wb/measure", controllers.UserMeasureWhiteBalance)
		self.GET("/devices/:id/settings", controllers.UserDeviceSettings) // Last-applied stream and camera settings

		self.POST("/group/stream/start", controllers.UserGroupStartStream)
		self.POST("/group/stream/stop", controllers.UserGroupStopStream)
		self.POST("/group/camera", controllers.UserGroupUpdateCamera)
		self.POST("/start-all", controllers.UserStartAll)
		self.POST("/stop-all", controllers.UserStopAll)

		self.GET("/profiles", controllers.UserProfilesList)
		self.PUT("/profiles/:name", controllers.UserProfileSave)
		self.DELETE("/profiles/:name", controllers.UserProfileDelete)
		self.POST("/profiles/:name/apply", controllers.UserProfileApply)

		self.GET("/settings", controllers.UserSettingsGet)
		self.PUT("/settings", controllers.UserSettingsPut)
		self.DELETE("/data/devices", controllers.UserDeleteDevicesData)

		self.GET("/discovered", controllers.UserDiscovered)
		self.GET("/scan-now", controllers.UserScanNow)

		if hub := models.GetNotifyHub(); notify.NotifyWSEnabled() && hub != nil {
			self.GET("/notify-ws", notifyhub.HandleNotifyWS(hub))
		}
	}
	return engine
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	engine := s.Engine()

	s.mu.Lock()
	s.server = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting API server on http://%s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
