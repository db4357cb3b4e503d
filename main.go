package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moyoez/camfleet/api"
	"github.com/moyoez/camfleet/api/notifyhub"
	"github.com/moyoez/camfleet/boardcast"
	"github.com/moyoez/camfleet/camera"
	"github.com/moyoez/camfleet/fleet"
	"github.com/moyoez/camfleet/notify"
	"github.com/moyoez/camfleet/share"
	"github.com/moyoez/camfleet/store"
	"github.com/moyoez/camfleet/tool"
)

func main() {
	cfg := tool.SetFlags()

	// initialize logger
	tool.InitLogger()
	tool.SetLogMode(cfg.Log)

	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	tool.ApplyFlags(&appCfg, cfg)
	if err := tool.ValidateConfig(appCfg); err != nil {
		tool.DefaultLogger.Fatalf("Invalid config: %v", err)
	}

	st, err := store.New(appCfg.DataDir, store.Options{
		Settings: appCfg.Persistence.Settings,
		Profiles: appCfg.Persistence.Profiles,
	})
	if err != nil {
		tool.DefaultLogger.Fatalf("Failed to open data dir: %v", err)
	}
	tool.DefaultLogger.Infof("Using data dir: %s", st.Dir())

	if appCfg.NotifyWS {
		hub := notifyhub.New()
		notify.SetNotifyHub(hub)
		api.SetNotifyHub(hub)
	}

	if appCfg.MQTT.Broker != "" {
		publisher, err := notify.NewMQTTPublisher(appCfg.MQTT)
		if err != nil {
			tool.DefaultLogger.Errorf("MQTT telemetry sink disabled: %v", err)
		} else {
			notify.SetTelemetryPublisher(publisher)
			defer publisher.Close()
		}
	}

	manager := fleet.NewManager(st,
		fleet.WithClientFactory(fleet.CameraClientFactory(tool.RequestTimeout(appCfg), camera.ReconnectPolicyFromConfig(appCfg.Reconnect))),
		fleet.WithMaxConcurrent(appCfg.MaxConcurrentOperations),
		fleet.WithNotifier(notify.Notifier{}),
	)
	defer manager.Close()
	api.SetManager(manager)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		restored, err := manager.LoadFromStore(ctx)
		if err != nil {
			tool.DefaultLogger.Errorf("Failed to load cameras: %v", err)
			return
		}
		tool.DefaultLogger.Infof("Restored %d cameras", restored)
	}()

	share.SetDiscoveredTTL(time.Duration(appCfg.Discovery.TTLSeconds) * time.Second)
	sweepOpts := boardcast.SweepOptionsFromConfig(appCfg.Discovery)
	api.SetSweepPort(sweepOpts.Port)
	if appCfg.Discovery.MDNS {
		go boardcast.ListenMDNS(ctx, boardcast.BrowseOptionsFromConfig(appCfg.Discovery))
	}
	if appCfg.Discovery.Sweep {
		tool.DefaultLogger.Infof("Using Legacy Mode: subnet sweep (every %v)", sweepOpts.Interval)
		go boardcast.ListenSweep(ctx, sweepOpts, false)
	}

	apiServer := api.NewServer(appCfg.ListenPort)
	go func() {
		if err := apiServer.Start(); err != nil {
			tool.DefaultLogger.Errorf("API server startup failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	tool.DefaultLogger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		tool.DefaultLogger.Warnf("API server shutdown: %v", err)
	}
}
