// Package markers keeps the map widget's marker set consistent with the
// visible memory list via stable diffs instead of clear-and-rebuild passes.
package markers

import (
	"sync"

	"go.uber.org/zap"

	"memorymap/application/ports"
	"memorymap/domain"
	"memorymap/pkg/observability"
)

// Feedback-loop guard thresholds: a viewport within these epsilons of the
// widget's last reported state is not pushed back into the widget.
const (
	viewportEpsilonDegrees = 1e-4
	viewportEpsilonZoom    = 0.1
)

// Reconciler owns the memory-id -> marker-handle mapping. No other code
// path touches marker handles; all mutations happen inside a
// reconciliation pass.
type Reconciler struct {
	widget  ports.MapWidget
	logger  *zap.Logger
	metrics *observability.Collector

	mu                sync.Mutex
	handles           map[string]ports.MarkerHandle
	selectedID        string
	lastReported      domain.Viewport
	hasReported       bool
	onMapClick        func(lat, lng float64)
	onViewportChanged func(domain.Viewport)
}

// NewReconciler creates a reconciler driving the given widget
func NewReconciler(widget ports.MapWidget, metrics *observability.Collector, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		widget:  widget,
		logger:  logger,
		metrics: metrics,
		handles: make(map[string]ports.MarkerHandle),
	}
}

// OnMapClick registers the callback receiving clicked coordinates. The
// reconciler never mutates markers on a click; it only reports upward.
func (r *Reconciler) OnMapClick(fn func(lat, lng float64)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onMapClick = fn
}

// OnViewportChanged registers the callback receiving the new authoritative
// viewport whenever the widget reports one
func (r *Reconciler) OnViewportChanged(fn func(domain.Viewport)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onViewportChanged = fn
}

// Reconcile diffs the desired marker set (the visible memory list) against
// the rendered handles: stale handles are removed, missing ones added, and
// handles whose selection status changed are updated in place.
func (r *Reconciler) Reconcile(visible []*domain.Memory, selectedID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	desired := make(map[string]*domain.Memory, len(visible))
	for _, m := range visible {
		desired[m.ID()] = m
	}

	removed, added := 0, 0

	// Remove handles whose memory is no longer visible
	for id, handle := range r.handles {
		if _, ok := desired[id]; !ok {
			handle.Remove()
			delete(r.handles, id)
			removed++
		}
	}

	// Add handles for newly visible memories; update selection in place on
	// survivors rather than recreating them
	for id, m := range desired {
		selected := id == selectedID
		if handle, ok := r.handles[id]; ok {
			if (id == r.selectedID) != selected {
				handle.SetSelected(selected)
			}
			continue
		}
		loc := m.Location()
		r.handles[id] = r.widget.AddMarker(domain.Marker{
			MemoryID:  id,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Selected:  selected,
		})
		added++
	}

	r.selectedID = selectedID
	r.metrics.ReconcilePasses.Inc()
	if added > 0 {
		r.metrics.MarkersAdded.Add(float64(added))
	}
	if removed > 0 {
		r.metrics.MarkersRemoved.Add(float64(removed))
	}
	r.logger.Debug("Reconciled markers",
		zap.Int("visible", len(visible)),
		zap.Int("added", added),
		zap.Int("removed", removed),
		zap.String("selectedID", selectedID),
	)
}

// MarkerIDs returns the ids of the currently rendered handles
func (r *Reconciler) MarkerIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	return ids
}

// HandleMapClick reports a clicked coordinate upward for the creation flow
// to consume
func (r *Reconciler) HandleMapClick(lat, lng float64) {
	r.mu.Lock()
	fn := r.onMapClick
	r.mu.Unlock()
	if fn != nil {
		fn(lat, lng)
	}
}

// HandleViewportReport records a viewport reported by the widget and
// forwards it upward as the new authoritative viewport. The recorded value
// suppresses re-issuing the same viewport back into the widget.
func (r *Reconciler) HandleViewportReport(v domain.Viewport) {
	r.mu.Lock()
	r.lastReported = v
	r.hasReported = true
	fn := r.onViewportChanged
	r.mu.Unlock()
	if fn != nil {
		fn(v)
	}
}

// PushViewport pushes a programmatic recentre into the widget, unless it is
// within epsilon of what the widget itself last reported
func (r *Reconciler) PushViewport(v domain.Viewport) {
	r.mu.Lock()
	if r.hasReported && v.ApproxEqual(r.lastReported, viewportEpsilonDegrees, viewportEpsilonZoom) {
		r.mu.Unlock()
		return
	}
	r.lastReported = v
	r.hasReported = true
	r.mu.Unlock()
	r.widget.SetViewport(v)
}
