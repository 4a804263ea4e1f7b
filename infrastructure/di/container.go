package di

import (
	"go.uber.org/zap"

	"memorymap/application/engine"
	"memorymap/application/location"
	"memorymap/application/markers"
	"memorymap/application/memories"
	"memorymap/application/ports"
	"memorymap/application/social"
	"memorymap/infrastructure/config"
	"memorymap/infrastructure/supabase"
	"memorymap/pkg/observability"
)

// Container holds all engine dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Collector
	Sessions   *supabase.SessionManager
	Geocoder   ports.ReverseGeocoder
	Store      *memories.Store
	Graph      *social.Graph
	Reconciler *markers.Reconciler
	Flow       *location.Flow
	Engine     *engine.Engine
}
