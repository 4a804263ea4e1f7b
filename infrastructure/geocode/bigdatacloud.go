// Package geocode implements reverse geocoding against the BigDataCloud
// client API, with a short-lived cache keyed by rounded coordinates.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"

	"memorymap/domain"
	pkgerrors "memorymap/pkg/errors"
	"memorymap/pkg/observability"
)

const (
	// DefaultEndpoint is the free client endpoint; no API key required
	DefaultEndpoint = "https://api.bigdatacloud.net/data/reverse-geocode-client"

	requestTimeout = 10 * time.Second
	cacheTTL       = 15 * time.Minute
)

type namedEntry struct {
	Name string `json:"name"`
}

type response struct {
	City         string `json:"city"`
	Locality     string `json:"locality"`
	CountryName  string `json:"countryName"`
	LocalityInfo struct {
		Administrative []namedEntry `json:"administrative"`
		Informative    []namedEntry `json:"informative"`
	} `json:"localityInfo"`
}

// BigDataCloud resolves coordinates into place labels
type BigDataCloud struct {
	endpoint string
	client   *http.Client
	cache    *ristretto.Cache
	logger   *zap.Logger
	metrics  *observability.Collector
}

// NewBigDataCloud creates the geocoder. An empty endpoint selects the
// public client API.
func NewBigDataCloud(endpoint string, metrics *observability.Collector, logger *zap.Logger) (*BigDataCloud, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to create geocode cache").WithCause(err)
	}

	return &BigDataCloud{
		endpoint: endpoint,
		client:   &http.Client{Timeout: requestTimeout},
		cache:    cache,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Lookup resolves coordinates into best-effort place labels. Nearby lookups
// hit the cache: keys use the same 4-decimal rounding as coordinate labels,
// about 11 m of resolution.
func (g *BigDataCloud) Lookup(ctx context.Context, lat, lng float64) (domain.Place, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lng)
	if cached, ok := g.cache.Get(key); ok {
		g.metrics.GeocodeCacheHits.Inc()
		return cached.(domain.Place), nil
	}
	g.metrics.GeocodeCacheMisses.Inc()

	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%f", lat))
	query.Set("longitude", fmt.Sprintf("%f", lng))
	query.Set("localityLanguage", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return domain.Place{}, pkgerrors.NewTransportError("reverseGeocode", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.Place{}, pkgerrors.NewTransportError("reverseGeocode", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Place{}, pkgerrors.NewTransportError("reverseGeocode",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Place{}, pkgerrors.NewTransportError("reverseGeocode", err)
	}

	place := placeFromResponse(body, lat, lng)
	g.cache.SetWithTTL(key, place, 1, cacheTTL)
	return place, nil
}

// placeFromResponse maps the response, substituting labels field by field:
// the address falls back to a coordinate string, city and country to
// explicit unknowns
func placeFromResponse(body response, lat, lng float64) domain.Place {
	place := domain.Place{
		Address: fmt.Sprintf("%.4f, %.4f", lat, lng),
		City:    "Unknown City",
		Country: "Unknown Country",
	}

	if len(body.LocalityInfo.Administrative) > 0 && body.LocalityInfo.Administrative[0].Name != "" {
		place.Address = body.LocalityInfo.Administrative[0].Name
	} else if len(body.LocalityInfo.Informative) > 0 && body.LocalityInfo.Informative[0].Name != "" {
		place.Address = body.LocalityInfo.Informative[0].Name
	}

	if body.City != "" {
		place.City = body.City
	} else if body.Locality != "" {
		place.City = body.Locality
	}

	if body.CountryName != "" {
		place.Country = body.CountryName
	}
	return place
}
