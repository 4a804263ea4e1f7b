// Package engine composes the stores, the marker reconciler, and the
// location flow into the single facade an interface layer drives.
package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"memorymap/application/location"
	"memorymap/application/markers"
	"memorymap/application/memories"
	"memorymap/application/ports"
	"memorymap/application/social"
	"memorymap/domain"
	pkgerrors "memorymap/pkg/errors"
)

const (
	// focusZoom is the zoom level used when centering on a single memory
	focusZoom = 15

	geocodeTimeout     = 5 * time.Second
	sessionLoadTimeout = 30 * time.Second
)

// Engine is the top-level state-synchronization facade for one session.
// Memory state flows one way: store change -> filtered view -> marker
// reconciliation; the map widget never mutates memories directly.
type Engine struct {
	store      *memories.Store
	graph      *social.Graph
	reconciler *markers.Reconciler
	flow       *location.Flow
	sessions   ports.Sessions
	geocoder   ports.ReverseGeocoder
	logger     *zap.Logger

	mu              sync.Mutex
	query           string
	tags            []string
	pending         *domain.Location
	defaultViewport domain.Viewport
}

// NewEngine wires the collaborators together. Registering here makes the
// store the only trigger of marker reconciliation.
func NewEngine(
	store *memories.Store,
	graph *social.Graph,
	reconciler *markers.Reconciler,
	flow *location.Flow,
	sessions ports.Sessions,
	geocoder ports.ReverseGeocoder,
	defaultViewport domain.Viewport,
	logger *zap.Logger,
) *Engine {
	e := &Engine{
		store:           store,
		graph:           graph,
		reconciler:      reconciler,
		flow:            flow,
		sessions:        sessions,
		geocoder:        geocoder,
		logger:          logger,
		defaultViewport: defaultViewport,
	}
	store.OnChange(e.refresh)
	reconciler.OnMapClick(e.handleMapClick)
	sessions.OnSessionChange(e.handleSessionChange)
	return e
}

// Start resolves the current session and performs the initial load. Without
// a signed-in user the engine idles at the default viewport until a session
// change arrives.
func (e *Engine) Start(ctx context.Context) error {
	e.reconciler.PushViewport(e.defaultViewport)

	user, err := e.sessions.CurrentUser(ctx)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			e.logger.Info("No active session, waiting for sign-in")
			return nil
		}
		return pkgerrors.Wrap(err, "failed to resolve session")
	}

	e.store.SetViewer(user.ID)
	e.graph.SetViewer(user.ID)
	if _, err := e.store.Load(ctx); err != nil {
		return err
	}
	if err := e.graph.Load(ctx); err != nil {
		e.logger.Warn("Friend graph load failed at startup", zap.Error(err))
	}
	return nil
}

// SetSearch updates the active filter; the visible marker set follows
func (e *Engine) SetSearch(query string, tags []string) {
	e.mu.Lock()
	e.query = query
	e.tags = append([]string(nil), tags...)
	e.mu.Unlock()
	e.refresh()
}

// Visible returns the memories matching the active filter
func (e *Engine) Visible() []*domain.Memory {
	e.mu.Lock()
	query, tags := e.query, e.tags
	e.mu.Unlock()
	return e.store.Filter(query, tags)
}

// SelectMemory marks a memory as selected and centers the map on it
func (e *Engine) SelectMemory(id string) {
	e.store.Select(id)
	if m := e.store.Get(id); m != nil {
		loc := m.Location()
		e.reconciler.PushViewport(domain.Viewport{
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Zoom:      focusZoom,
		})
	}
}

// ClearSelection drops the active selection
func (e *Engine) ClearSelection() {
	e.store.ClearSelection()
}

// PendingLocation returns the location staged for memory creation, either
// from a map click or a confirmed acquisition
func (e *Engine) PendingLocation() (domain.Location, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		return domain.Location{}, false
	}
	return *e.pending, true
}

// ClearPendingLocation drops the staged location
func (e *Engine) ClearPendingLocation() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = nil
}

// UseAcquiredLocation confirms the location flow's resolved location and
// stages it for creation
func (e *Engine) UseAcquiredLocation() (domain.Location, error) {
	loc, err := e.flow.Confirm()
	if err != nil {
		return domain.Location{}, err
	}
	e.mu.Lock()
	e.pending = &loc
	e.mu.Unlock()
	return loc, nil
}

// CreateMemory creates a memory and clears the staged location
func (e *Engine) CreateMemory(ctx context.Context, data domain.CreateMemoryData) (*domain.Memory, error) {
	m, err := e.store.Create(ctx, data)
	if err != nil {
		return nil, err
	}
	e.ClearPendingLocation()
	return m, nil
}

// SignOut ends the session; the session-change callback resets state
func (e *Engine) SignOut(ctx context.Context) error {
	return e.sessions.SignOut(ctx)
}

// Store exposes the memory store for direct operations (likes, removal)
func (e *Engine) Store() *memories.Store {
	return e.store
}

// Graph exposes the friend graph
func (e *Engine) Graph() *social.Graph {
	return e.graph
}

// LocationFlow exposes the location acquisition flow
func (e *Engine) LocationFlow() *location.Flow {
	return e.flow
}

// refresh pushes the filtered view into the reconciler
func (e *Engine) refresh() {
	e.mu.Lock()
	query, tags := e.query, e.tags
	e.mu.Unlock()
	e.reconciler.Reconcile(e.store.Filter(query, tags), e.store.SelectedID())
}

// handleMapClick stages the clicked coordinate for creation, enriched with
// best-effort place labels
func (e *Engine) handleMapClick(lat, lng float64) {
	loc := domain.Location{Latitude: lat, Longitude: lng}

	ctx, cancel := context.WithTimeout(context.Background(), geocodeTimeout)
	defer cancel()
	place, err := e.geocoder.Lookup(ctx, lat, lng)
	if err != nil {
		e.logger.Warn("Reverse geocode for map click failed", zap.Error(err))
		place = domain.Place{
			Address: loc.CoordinateString(),
			City:    "Unknown City",
			Country: "Unknown Country",
		}
	}
	loc.Address = place.Address
	loc.City = place.City
	loc.Country = place.Country

	e.mu.Lock()
	e.pending = &loc
	e.mu.Unlock()
}

// handleSessionChange resets both stores for the new viewer and reloads
// when a user signed in
func (e *Engine) handleSessionChange(userID string) {
	e.store.SetViewer(userID)
	e.graph.SetViewer(userID)
	if userID == "" {
		e.logger.Info("Session ended, state cleared")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionLoadTimeout)
	defer cancel()
	if _, err := e.store.Load(ctx); err != nil {
		e.logger.Error("Memory load after sign-in failed", zap.Error(err))
	}
	if err := e.graph.Load(ctx); err != nil {
		e.logger.Error("Friend graph load after sign-in failed", zap.Error(err))
	}
}
