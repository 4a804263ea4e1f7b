// Command memorymap runs the engine headless: it signs in with the
// credentials from the environment, loads the memory list and friend graph,
// logs marker reconciliation, and optionally serves Prometheus metrics.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"memorymap/application/location"
	"memorymap/application/ports"
	"memorymap/domain"
	"memorymap/infrastructure/config"
	"memorymap/infrastructure/di"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Headless stand-ins for the environment capabilities a UI host would
	// provide
	widget := &logWidget{}
	geolocator := &fixedGeolocator{
		lat: cfg.DefaultLatitude,
		lng: cfg.DefaultLongitude,
	}
	env := location.Environment{
		GeolocationSupported: true,
		SecureTransport:      true,
	}

	container, err := di.InitializeContainer(cfg, widget, geolocator, env)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	widget.logger = container.Logger

	if cfg.EnableMetrics {
		go serveMetrics(container)
	}

	email := os.Getenv("MEMORYMAP_EMAIL")
	password := os.Getenv("MEMORYMAP_PASSWORD")
	if email != "" && password != "" {
		if _, err := container.Sessions.SignIn(ctx, email, password); err != nil {
			container.Logger.Fatal("Sign-in failed", zap.Error(err))
		}
	}

	if err := container.Engine.Start(ctx); err != nil {
		container.Logger.Fatal("Engine start failed", zap.Error(err))
	}

	for _, m := range container.Engine.Visible() {
		container.Logger.Info("Memory",
			zap.String("id", m.ID()),
			zap.String("title", m.Title()),
			zap.Int("likes", m.LikeCount()),
		)
	}
	container.Logger.Info("Friend graph",
		zap.Int("friends", len(container.Graph.Friends())),
		zap.Int("incoming", len(container.Graph.Incoming())),
		zap.Int("outgoing", len(container.Graph.Outgoing())),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := container.Engine.SignOut(shutdownCtx); err != nil {
		container.Logger.Warn("Sign-out failed", zap.Error(err))
	}

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}
	log.Println("Stopped")
}

func serveMetrics(container *di.Container) {
	addr := os.Getenv("METRICS_ADDRESS")
	if addr == "" {
		addr = ":9090"
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(container.Metrics.Registry(), promhttp.HandlerOpts{}))
	container.Logger.Info("Serving metrics", zap.String("address", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		container.Logger.Error("Metrics server stopped", zap.Error(err))
	}
}

// logWidget renders markers and viewport changes into the log
type logWidget struct {
	logger *zap.Logger
}

func (w *logWidget) AddMarker(marker domain.Marker) ports.MarkerHandle {
	if w.logger != nil {
		w.logger.Info("Marker added",
			zap.String("memoryID", marker.MemoryID),
			zap.Float64("lat", marker.Latitude),
			zap.Float64("lng", marker.Longitude),
		)
	}
	return &logMarker{widget: w, memoryID: marker.MemoryID}
}

func (w *logWidget) SetViewport(viewport domain.Viewport) {
	if w.logger != nil {
		w.logger.Info("Viewport set",
			zap.Float64("lat", viewport.Latitude),
			zap.Float64("lng", viewport.Longitude),
			zap.Float64("zoom", viewport.Zoom),
		)
	}
}

type logMarker struct {
	widget   *logWidget
	memoryID string
}

func (m *logMarker) SetSelected(selected bool) {
	if m.widget.logger != nil {
		m.widget.logger.Info("Marker selection changed",
			zap.String("memoryID", m.memoryID),
			zap.Bool("selected", selected),
		)
	}
}

func (m *logMarker) Remove() {
	if m.widget.logger != nil {
		m.widget.logger.Info("Marker removed", zap.String("memoryID", m.memoryID))
	}
}

// fixedGeolocator reports a fixed position, standing in for a device fix
type fixedGeolocator struct {
	lat, lng float64
}

func (g *fixedGeolocator) CurrentPosition(ctx context.Context, opts ports.GeolocateOptions) (float64, float64, error) {
	return g.lat, g.lng, nil
}
