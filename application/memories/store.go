// Package memories owns the canonical in-memory list of memory records,
// its derived filtered views, and optimistic like mutation.
package memories

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"memorymap/application/ports"
	"memorymap/domain"
	pkgerrors "memorymap/pkg/errors"
	"memorymap/pkg/observability"
	"memorymap/pkg/validation"
)

// mediaPathPrefix is the object key prefix in the media bucket
const mediaPathPrefix = "memories"

// Store holds the canonical memory list for one viewer session. All remote
// mutations either update state only after resolution, or optimistically
// with a rollback on failure (like toggles).
type Store struct {
	records ports.MemoryRecords
	likes   ports.LikeRecords
	media   ports.MediaStorage
	logger  *zap.Logger
	metrics *observability.Collector

	mu           sync.Mutex
	viewerID     string
	items        []*domain.Memory
	selectedID   string
	likeInflight map[string]struct{}
	onChange     func()
}

// NewStore creates a memory store for the given viewer
func NewStore(
	records ports.MemoryRecords,
	likes ports.LikeRecords,
	media ports.MediaStorage,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Store {
	return &Store{
		records:      records,
		likes:        likes,
		media:        media,
		logger:       logger,
		metrics:      metrics,
		likeInflight: make(map[string]struct{}),
	}
}

// OnChange registers a callback invoked after every settled state change.
// The callback runs without the store lock held.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// SetViewer resets the store for a new viewer session, dropping all loaded
// state
func (s *Store) SetViewer(viewerID string) {
	s.mu.Lock()
	s.viewerID = viewerID
	s.items = nil
	s.selectedID = ""
	s.likeInflight = make(map[string]struct{})
	s.mu.Unlock()
	s.notifyChange()
}

// ViewerID returns the current viewer
func (s *Store) ViewerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewerID
}

// Load fetches all memories visible to the viewer (owned or public) with
// like aggregates attached, newest first. A failure of the like sub-fetch
// degrades to zero counts instead of failing the whole load.
func (s *Store) Load(ctx context.Context) ([]*domain.Memory, error) {
	s.mu.Lock()
	viewerID := s.viewerID
	s.mu.Unlock()

	if viewerID == "" {
		return nil, pkgerrors.NewValidationError("no viewer signed in")
	}

	records, err := s.records.List(ctx, viewerID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load memories")
	}

	items := make([]*domain.Memory, 0, len(records))
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		m, err := memoryFromRecord(rec)
		if err != nil {
			s.logger.Warn("Skipping malformed memory record",
				zap.String("memoryID", rec.ID),
				zap.Error(err),
			)
			continue
		}
		items = append(items, m)
		ids = append(ids, m.ID())
	}

	// Attach like aggregates; degrade, don't abort
	if len(ids) > 0 {
		likeRecords, err := s.likes.List(ctx, ids)
		if err != nil {
			s.metrics.DegradedLoads.Inc()
			s.logger.Warn("Like aggregation failed, degrading to zero counts",
				zap.Error(pkgerrors.NewPartialFailureError("listLikes", err)),
			)
		} else {
			counts := make(map[string]int, len(ids))
			likedByViewer := make(map[string]bool)
			for _, like := range likeRecords {
				counts[like.MemoryID]++
				if like.UserID == viewerID {
					likedByViewer[like.MemoryID] = true
				}
			}
			for _, m := range items {
				m.SetLikeState(counts[m.ID()], likedByViewer[m.ID()])
			}
		}
	}

	// Most-recent-first ordering is an invariant of the list
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt().After(items[j].CreatedAt())
	})

	s.mu.Lock()
	s.items = items
	if s.selectedID != "" && s.findLocked(s.selectedID) == nil {
		s.selectedID = ""
	}
	s.mu.Unlock()

	s.metrics.MemoriesLoaded.Inc()
	s.notifyChange()
	return s.Memories(), nil
}

// Create validates the input, uploads media in order, then inserts the
// record referencing the fully-resolved URL list. Any upload failure aborts
// the whole creation; no record is inserted with missing media. The new
// memory is prepended to the list.
func (s *Store) Create(ctx context.Context, data domain.CreateMemoryData) (*domain.Memory, error) {
	if err := validation.ValidateStruct(data); err != nil {
		return nil, err
	}

	s.mu.Lock()
	viewerID := s.viewerID
	s.mu.Unlock()
	if viewerID == "" {
		return nil, pkgerrors.NewValidationError("no viewer signed in")
	}

	// Upload media first, order preserved
	urls := make([]string, 0, len(data.MediaFiles))
	for _, file := range data.MediaFiles {
		objectPath := fmt.Sprintf("%s/%s/%s%s",
			mediaPathPrefix, viewerID, uuid.NewString(), path.Ext(file.Name))

		publicURL, err := s.media.Upload(ctx, objectPath, file.ContentType, file.Data)
		if err != nil {
			return nil, pkgerrors.NewUploadError(objectPath, err)
		}
		urls = append(urls, publicURL)
	}

	rec, err := s.records.Insert(ctx, ports.MemoryInsert{
		Title:       data.Title,
		Description: data.Description,
		Latitude:    data.Location.Latitude,
		Longitude:   data.Location.Longitude,
		Address:     data.Location.Address,
		City:        data.Location.City,
		Country:     data.Location.Country,
		MediaURLs:   urls,
		Tags:        data.Tags,
		IsPublic:    data.IsPublic,
		UserID:      viewerID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create memory")
	}

	m, err := memoryFromRecord(rec)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.items = append([]*domain.Memory{m}, s.items...)
	s.mu.Unlock()

	s.metrics.MemoriesCreated.Inc()
	s.logger.Info("Memory created",
		zap.String("memoryID", m.ID()),
		zap.Int("mediaCount", len(urls)),
	)
	s.notifyChange()
	return m, nil
}

// Remove deletes a memory. Interactive confirmation is the caller's
// responsibility and must happen before this is invoked. On success the item
// leaves the list and an active selection pointing at it is cleared.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.findLocked(id) == nil {
		s.mu.Unlock()
		return pkgerrors.NewNotFoundError("memory")
	}
	s.mu.Unlock()

	if err := s.records.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(err, "failed to delete memory")
	}

	s.mu.Lock()
	for i, m := range s.items {
		if m.ID() == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	if s.selectedID == id {
		s.selectedID = ""
	}
	s.mu.Unlock()

	s.metrics.MemoriesDeleted.Inc()
	s.notifyChange()
	return nil
}

// ToggleLike flips the viewer's like on a memory optimistically, then issues
// the matching create-or-delete of the like record. On remote failure the
// optimistic flip is rolled back. Toggles on the same memory are serialized:
// a second toggle before the first settles is rejected.
func (s *Store) ToggleLike(ctx context.Context, id string) error {
	s.mu.Lock()
	m := s.findLocked(id)
	if m == nil {
		s.mu.Unlock()
		return pkgerrors.NewNotFoundError("memory")
	}
	if _, busy := s.likeInflight[id]; busy {
		s.mu.Unlock()
		return pkgerrors.NewConflictError("a like toggle for this memory is already in flight")
	}
	s.likeInflight[id] = struct{}{}

	wasLiked := m.IsLikedByViewer()
	if wasLiked {
		m.MarkUnliked()
	} else {
		m.MarkLiked()
	}
	like := ports.LikeRecord{MemoryID: id, UserID: s.viewerID}
	s.mu.Unlock()
	s.notifyChange()

	var err error
	if wasLiked {
		err = s.likes.Delete(ctx, like)
	} else {
		err = s.likes.Insert(ctx, like)
	}

	s.mu.Lock()
	delete(s.likeInflight, id)
	if err != nil {
		// Roll back to the pre-toggle state
		if wasLiked {
			m.MarkLiked()
		} else {
			m.MarkUnliked()
		}
		s.mu.Unlock()
		s.metrics.LikeRollbacks.Inc()
		s.logger.Error("Like toggle rolled back",
			zap.String("memoryID", id),
			zap.Bool("wasLiked", wasLiked),
			zap.Error(err),
		)
		s.notifyChange()
		return pkgerrors.Wrap(err, "like toggle failed")
	}
	s.mu.Unlock()

	s.metrics.LikesToggled.Inc()
	return nil
}

// Filter returns the derived view of memories matching the query and tags.
// Pure with respect to store state.
func (s *Store) Filter(query string, tags []string) []*domain.Memory {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Memory, 0, len(s.items))
	for _, m := range s.items {
		if m.MatchesFilter(query, tags) {
			out = append(out, m)
		}
	}
	return out
}

// Memories returns a snapshot of the full list, newest first
func (s *Store) Memories() []*domain.Memory {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Memory, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the memory with the given id, or nil
func (s *Store) Get(id string) *domain.Memory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id)
}

// Select marks a memory as the active selection
func (s *Store) Select(id string) {
	s.mu.Lock()
	if s.findLocked(id) == nil {
		s.mu.Unlock()
		return
	}
	s.selectedID = id
	s.mu.Unlock()
	s.notifyChange()
}

// ClearSelection drops the active selection
func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selectedID = ""
	s.mu.Unlock()
	s.notifyChange()
}

// SelectedID returns the active selection, or the empty string
func (s *Store) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

func (s *Store) findLocked(id string) *domain.Memory {
	for _, m := range s.items {
		if m.ID() == id {
			return m
		}
	}
	return nil
}

func (s *Store) notifyChange() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// memoryFromRecord converts a collaborator record into a domain memory.
// Media kinds are assigned here, once.
func memoryFromRecord(rec ports.MemoryRecord) (*domain.Memory, error) {
	media := make([]domain.Media, 0, len(rec.MediaURLs))
	for _, url := range rec.MediaURLs {
		media = append(media, domain.Media{
			Kind: domain.MediaKindFromURL(url),
			URL:  url,
		})
	}

	return domain.ReconstructMemory(
		rec.ID,
		rec.Title,
		rec.Description,
		domain.Location{
			Latitude:  rec.Latitude,
			Longitude: rec.Longitude,
			Address:   rec.Address,
			City:      rec.City,
			Country:   rec.Country,
		},
		media,
		rec.Tags,
		rec.IsPublic,
		rec.UserID,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
}
