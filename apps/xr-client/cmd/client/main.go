package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/webrtc/v3"

	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/config"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/metrics"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/passthrough"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/pipeline"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/samplequeue"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/session"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/telemetry"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/texturepool"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/xrsys/xrsimfake"
	"github.com/collabora-pluto/xrrelay/libs/health"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	m := metrics.NewPrometheusCollector()

	ring := texturepool.NewRing(4, 0x8D65) // GL_TEXTURE_EXTERNAL_OES
	queue := samplequeue.New(texturepool.SamplePool{Ring: ring})

	// A real OpenXR loader and GLES renderer are external collaborators
	// out of scope for this exercise; the fake runtime and nil renderer
	// stand in so the frame loop's own logic still runs end to end.
	runtime := xrsimfake.New()
	backend := passthrough.Select(false, false, nil)

	ctx, cancel := context.WithCancel(context.Background())

	loopStarted := make(chan struct{})

	peer := session.NewPeer(cfg.Signaling.URI, queue, ring, func(dc *webrtc.DataChannel) {
		sender := telemetry.NewDataChannelSender(dc)
		loop := pipeline.NewLoop(runtime, queue, backend, sender, nil, m)
		close(loopStarted)
		go func() {
			if err := loop.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("pipeline: frame loop stopped: %v", err)
			}
		}()
	})

	checker := health.NewChecker()
	checker.RegisterComponent("signaling", func(ctx context.Context) (health.Status, error) {
		if peer.Connected() {
			return health.StatusUp, nil
		}
		return health.StatusDown, nil
	})
	checker.RegisterComponent("frame_loop", func(ctx context.Context) (health.Status, error) {
		select {
		case <-loopStarted:
			return health.StatusUp, nil
		default:
			return health.StatusDown, nil
		}
	})
	checker.Start()
	defer checker.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/healthz", checker.HTTPHandler())

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: mux,
	}

	go func() {
		log.Printf("Starting HTTP server on %s", cfg.HTTP.Address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	if err := peer.Dial(ctx); err != nil {
		log.Fatalf("Failed to dial signaling server: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down xr-client...")

	cancel()
	if err := peer.Close(); err != nil {
		log.Printf("session: close peer: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown failed: %v", err)
	}

	log.Println("xr-client successfully shut down")
}
