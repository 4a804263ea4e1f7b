//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"memorymap/application/location"
	"memorymap/application/ports"
	"memorymap/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideSupabaseClient,
	ProvideMemoryRecords,
	ProvideLikeRecords,
	ProvideFriendRecords,
	ProvideProfileRecords,
	ProvideMediaStorage,
	ProvideSessionManager,
	ProvideSessions,
	ProvideGeocoder,
	ProvideMemoryStore,
	ProvideFriendGraph,
	ProvideReconciler,
	ProvideLocationFlow,
	ProvideDefaultViewport,
	ProvideEngine,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The map widget and
// the geolocation capability come from the host environment and are passed
// in rather than provided.
func InitializeContainer(
	cfg *config.Config,
	widget ports.MapWidget,
	geolocator ports.Geolocator,
	env location.Environment,
) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
