package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/webrtc/v3"

	"github.com/collabora-pluto/xrrelay/apps/relay-server/internal/config"
	"github.com/collabora-pluto/xrrelay/apps/relay-server/internal/metrics"
	"github.com/collabora-pluto/xrrelay/apps/relay-server/internal/scene"
	"github.com/collabora-pluto/xrrelay/apps/relay-server/internal/session"
	"github.com/collabora-pluto/xrrelay/libs/health"
	"github.com/collabora-pluto/xrrelay/libs/signaling"
	"github.com/collabora-pluto/xrrelay/libs/wire"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	m := metrics.NewPrometheusCollector()

	iceServers := make([]webrtc.ICEServer, 0, len(cfg.WebRTC.ICEServers))
	for _, s := range cfg.WebRTC.ICEServers {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}

	broadcaster := scene.NewBroadcaster()
	downState := &session.DownMessageState{}

	mgr := session.NewManager(iceServers, broadcaster, downState, m)

	sigServer := signaling.NewServer()
	mgr.Wire(sigServer)

	mgr.OnUpMessage(func(clientID string, msg *wire.UpMessage) {
		log.Printf("relay-server: up message from %s: %+v", clientID, msg)
	})

	scenePeriod := time.Second / time.Duration(cfg.Scene.FrameRate)

	checker := health.NewChecker()
	checker.RegisterComponent("signaling", func(ctx context.Context) (health.Status, error) {
		if failures := sigServer.ConsecutiveUpgradeFailures(); failures > 3 {
			return health.StatusDegraded, fmt.Errorf("%d consecutive websocket upgrade failures", failures)
		}
		return health.StatusUp, nil
	})
	checker.RegisterComponent("scene", func(ctx context.Context) (health.Status, error) {
		since := broadcaster.SinceLastPublish()
		if since == 0 {
			return health.StatusDown, fmt.Errorf("scene loop has not published a frame yet")
		}
		if stale := 5 * scenePeriod; since > stale {
			return health.StatusDown, fmt.Errorf("last frame published %s ago, exceeds %s budget", since, stale)
		}
		return health.StatusUp, nil
	})
	checker.Start()
	defer checker.Stop()

	mux := http.NewServeMux()
	mux.Handle("/signaling", sigServer)
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/healthz", checker.HTTPHandler())

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())

	sceneLoop := &scene.Loop{
		Source:      scene.NewFakeSource(cfg.Scene.FrameRate),
		Broadcaster: broadcaster,
		DownSink:    downState,
	}
	go func() {
		if err := sceneLoop.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("relay-server: scene loop stopped: %v", err)
		}
	}()

	go func() {
		log.Printf("Starting HTTP server on %s", cfg.HTTP.Address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down relay server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown failed: %v", err)
	}

	log.Println("Relay server successfully shut down")
}
