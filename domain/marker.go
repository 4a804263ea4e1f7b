package domain

// Marker is the derived visual representation of a visible memory, keyed by
// memory id. Never persisted; fully recomputed from the memory list plus the
// current selection.
type Marker struct {
	MemoryID  string
	Latitude  float64
	Longitude float64
	Selected  bool
}
