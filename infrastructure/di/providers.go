package di

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"memorymap/application/engine"
	"memorymap/application/location"
	"memorymap/application/markers"
	"memorymap/application/memories"
	"memorymap/application/ports"
	"memorymap/application/social"
	"memorymap/domain"
	"memorymap/infrastructure/config"
	"memorymap/infrastructure/geocode"
	"memorymap/infrastructure/supabase"
	"memorymap/pkg/observability"
)

// ProvideLogger creates a logger honoring the configured level
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}

// ProvideMetrics creates the metrics collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("memorymap")
}

// ProvideSupabaseClient connects to the configured Supabase project
func ProvideSupabaseClient(cfg *config.Config, logger *zap.Logger) (*supabase.Client, error) {
	return supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, logger)
}

// ProvideMemoryRecords creates the memory record adapter
func ProvideMemoryRecords(client *supabase.Client) ports.MemoryRecords {
	return supabase.NewMemoryStore(client)
}

// ProvideLikeRecords creates the like record adapter
func ProvideLikeRecords(client *supabase.Client) ports.LikeRecords {
	return supabase.NewLikeStore(client)
}

// ProvideFriendRecords creates the friend record adapter
func ProvideFriendRecords(client *supabase.Client) ports.FriendRecords {
	return supabase.NewFriendStore(client)
}

// ProvideProfileRecords creates the profile adapter
func ProvideProfileRecords(client *supabase.Client) ports.ProfileRecords {
	return supabase.NewProfileStore(client)
}

// ProvideMediaStorage creates the media storage adapter
func ProvideMediaStorage(client *supabase.Client) ports.MediaStorage {
	return supabase.NewMediaStore(client)
}

// ProvideSessionManager creates the session adapter
func ProvideSessionManager(client *supabase.Client, logger *zap.Logger) *supabase.SessionManager {
	return supabase.NewSessionManager(client, logger)
}

// ProvideSessions exposes the session manager through its port
func ProvideSessions(manager *supabase.SessionManager) ports.Sessions {
	return manager
}

// ProvideGeocoder creates the reverse geocoder
func ProvideGeocoder(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) (ports.ReverseGeocoder, error) {
	return geocode.NewBigDataCloud(cfg.GeocodeEndpoint, metrics, logger)
}

// ProvideMemoryStore creates the memory store
func ProvideMemoryStore(
	records ports.MemoryRecords,
	likes ports.LikeRecords,
	media ports.MediaStorage,
	metrics *observability.Collector,
	logger *zap.Logger,
) *memories.Store {
	return memories.NewStore(records, likes, media, metrics, logger)
}

// ProvideFriendGraph creates the friend graph
func ProvideFriendGraph(
	records ports.FriendRecords,
	profiles ports.ProfileRecords,
	metrics *observability.Collector,
	logger *zap.Logger,
) *social.Graph {
	return social.NewGraph(records, profiles, metrics, logger)
}

// ProvideReconciler creates the marker reconciler for the given widget
func ProvideReconciler(widget ports.MapWidget, metrics *observability.Collector, logger *zap.Logger) *markers.Reconciler {
	return markers.NewReconciler(widget, metrics, logger)
}

// ProvideLocationFlow creates the location flow with the default attempt
// policy
func ProvideLocationFlow(
	geolocator ports.Geolocator,
	geocoder ports.ReverseGeocoder,
	env location.Environment,
	logger *zap.Logger,
) *location.Flow {
	return location.NewFlow(geolocator, geocoder, env, location.DefaultPolicy(), logger)
}

// ProvideDefaultViewport reads the configured starting viewport
func ProvideDefaultViewport(cfg *config.Config) domain.Viewport {
	return domain.Viewport{
		Latitude:  cfg.DefaultLatitude,
		Longitude: cfg.DefaultLongitude,
		Zoom:      cfg.DefaultZoom,
	}
}

// ProvideEngine assembles the top-level facade
func ProvideEngine(
	store *memories.Store,
	graph *social.Graph,
	reconciler *markers.Reconciler,
	flow *location.Flow,
	sessions ports.Sessions,
	geocoder ports.ReverseGeocoder,
	defaultViewport domain.Viewport,
	logger *zap.Logger,
) *engine.Engine {
	return engine.NewEngine(store, graph, reconciler, flow, sessions, geocoder, defaultViewport, logger)
}
