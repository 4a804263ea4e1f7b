package memories

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"memorymap/application/ports"
	"memorymap/domain"
	pkgerrors "memorymap/pkg/errors"
	"memorymap/pkg/observability"
)

type fakeMemoryRecords struct {
	mu        sync.Mutex
	records   []ports.MemoryRecord
	listErr   error
	insertErr error
	deleteErr error
	nextID    int
}

func (f *fakeMemoryRecords) List(ctx context.Context, viewerID string) ([]ports.MemoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]ports.MemoryRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeMemoryRecords) Insert(ctx context.Context, insert ports.MemoryInsert) (ports.MemoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return ports.MemoryRecord{}, f.insertErr
	}
	f.nextID++
	rec := ports.MemoryRecord{
		ID:          fmt.Sprintf("mem-%d", f.nextID),
		Title:       insert.Title,
		Description: insert.Description,
		Latitude:    insert.Latitude,
		Longitude:   insert.Longitude,
		Address:     insert.Address,
		City:        insert.City,
		Country:     insert.Country,
		MediaURLs:   insert.MediaURLs,
		Tags:        insert.Tags,
		IsPublic:    insert.IsPublic,
		UserID:      insert.UserID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeMemoryRecords) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, rec := range f.records {
		if rec.ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			break
		}
	}
	return nil
}

type fakeLikeRecords struct {
	mu        sync.Mutex
	likes     []ports.LikeRecord
	listErr   error
	insertErr error
	deleteErr error

	// blockInsert, when set, is received from before Insert returns
	blockInsert chan struct{}
	// insertStarted, when set, is closed once Insert is entered
	insertStarted chan struct{}
}

func (f *fakeLikeRecords) List(ctx context.Context, memoryIDs []string) ([]ports.LikeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]ports.LikeRecord, len(f.likes))
	copy(out, f.likes)
	return out, nil
}

func (f *fakeLikeRecords) Insert(ctx context.Context, like ports.LikeRecord) error {
	if f.insertStarted != nil {
		close(f.insertStarted)
		f.insertStarted = nil
	}
	if f.blockInsert != nil {
		<-f.blockInsert
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.likes = append(f.likes, like)
	return nil
}

func (f *fakeLikeRecords) Delete(ctx context.Context, like ports.LikeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, l := range f.likes {
		if l.MemoryID == like.MemoryID && l.UserID == like.UserID {
			f.likes = append(f.likes[:i], f.likes[i+1:]...)
			break
		}
	}
	return nil
}

type fakeMediaStorage struct {
	mu      sync.Mutex
	uploads []string
	failOn  string
}

func (f *fakeMediaStorage) Upload(ctx context.Context, path, contentType string, data io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && strings.Contains(path, f.failOn) {
		return "", fmt.Errorf("bucket rejected upload")
	}
	f.uploads = append(f.uploads, path)
	return "https://cdn.example/" + path, nil
}

func newTestStore(t *testing.T) (*Store, *fakeMemoryRecords, *fakeLikeRecords, *fakeMediaStorage) {
	t.Helper()
	records := &fakeMemoryRecords{}
	likes := &fakeLikeRecords{}
	media := &fakeMediaStorage{}
	store := NewStore(records, likes, media, observability.NewCollector("test"), zap.NewNop())
	store.SetViewer("viewer-1")
	return store, records, likes, media
}

func seedRecord(records *fakeMemoryRecords, id, title string, age time.Duration) {
	records.records = append(records.records, ports.MemoryRecord{
		ID:        id,
		Title:     title,
		Latitude:  40.0,
		Longitude: -74.0,
		UserID:    "viewer-1",
		IsPublic:  true,
		CreatedAt: time.Now().Add(-age),
		UpdatedAt: time.Now().Add(-age),
	})
}

func TestLoad_AttachesLikeAggregates(t *testing.T) {
	store, records, likes, _ := newTestStore(t)
	seedRecord(records, "mem-1", "Sunset", 2*time.Hour)
	seedRecord(records, "mem-2", "Hike", time.Hour)
	likes.likes = []ports.LikeRecord{
		{MemoryID: "mem-1", UserID: "viewer-1"},
		{MemoryID: "mem-1", UserID: "user-2"},
	}

	items, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Newest first
	assert.Equal(t, "mem-2", items[0].ID())
	assert.Equal(t, "mem-1", items[1].ID())

	assert.Equal(t, 2, items[1].LikeCount())
	assert.True(t, items[1].IsLikedByViewer())
	assert.Equal(t, 0, items[0].LikeCount())
	assert.False(t, items[0].IsLikedByViewer())
}

func TestLoad_DegradesWhenLikeFetchFails(t *testing.T) {
	store, records, likes, _ := newTestStore(t)
	seedRecord(records, "mem-1", "Sunset", time.Hour)
	likes.listErr = fmt.Errorf("like table unavailable")

	items, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 0, items[0].LikeCount())
	assert.False(t, items[0].IsLikedByViewer())
}

func TestLoad_SkipsMalformedRecords(t *testing.T) {
	store, records, _, _ := newTestStore(t)
	seedRecord(records, "mem-1", "Sunset", time.Hour)
	records.records = append(records.records, ports.MemoryRecord{
		ID:        "mem-bad",
		Title:     "", // rejected by the domain
		UserID:    "viewer-1",
		CreatedAt: time.Now(),
	})

	items, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "mem-1", items[0].ID())
}

func TestLoad_RequiresViewer(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	store.SetViewer("")

	_, err := store.Load(context.Background())
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestCreate_UploadsMediaThenInserts(t *testing.T) {
	store, records, _, media := newTestStore(t)

	m, err := store.Create(context.Background(), domain.CreateMemoryData{
		Title:    "Sunset",
		Location: &domain.Location{Latitude: 40.0, Longitude: -74.0},
		MediaFiles: []domain.MediaFile{
			{Name: "beach.jpg", ContentType: "image/jpeg", Data: strings.NewReader("jpeg")},
			{Name: "clip.mp4", ContentType: "video/mp4", Data: strings.NewReader("mp4")},
		},
		Tags:     []string{"beach"},
		IsPublic: true,
	})
	require.NoError(t, err)

	require.Len(t, media.uploads, 2)
	assert.True(t, strings.HasPrefix(media.uploads[0], "memories/viewer-1/"))
	assert.True(t, strings.HasSuffix(media.uploads[0], ".jpg"))
	assert.True(t, strings.HasSuffix(media.uploads[1], ".mp4"))

	kinds := m.Media()
	require.Len(t, kinds, 2)
	assert.Equal(t, domain.MediaKindImage, kinds[0].Kind)
	assert.Equal(t, domain.MediaKindVideo, kinds[1].Kind)

	// Prepended to the list
	items := store.Memories()
	require.Len(t, items, 1)
	assert.Equal(t, m.ID(), items[0].ID())
	require.Len(t, records.records, 1)
}

func TestCreate_NoMedia(t *testing.T) {
	store, _, _, media := newTestStore(t)

	m, err := store.Create(context.Background(), domain.CreateMemoryData{
		Title:    "Sunset",
		Location: &domain.Location{Latitude: 40.0, Longitude: -74.0},
	})
	require.NoError(t, err)
	assert.Empty(t, m.Media())
	assert.Empty(t, media.uploads)
}

func TestCreate_AbortsWhenUploadFails(t *testing.T) {
	store, records, _, media := newTestStore(t)
	media.failOn = ".mp4"

	_, err := store.Create(context.Background(), domain.CreateMemoryData{
		Title:    "Sunset",
		Location: &domain.Location{Latitude: 40.0, Longitude: -74.0},
		MediaFiles: []domain.MediaFile{
			{Name: "beach.jpg", ContentType: "image/jpeg", Data: strings.NewReader("jpeg")},
			{Name: "clip.mp4", ContentType: "video/mp4", Data: strings.NewReader("mp4")},
		},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsUpload(err))

	// No record was inserted and the list is untouched
	assert.Empty(t, records.records)
	assert.Empty(t, store.Memories())
}

func TestCreate_RejectsInvalidInput(t *testing.T) {
	store, records, _, _ := newTestStore(t)

	_, err := store.Create(context.Background(), domain.CreateMemoryData{
		Title:    "",
		Location: &domain.Location{},
	})
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = store.Create(context.Background(), domain.CreateMemoryData{
		Title: "Sunset",
	})
	assert.True(t, pkgerrors.IsValidation(err))

	assert.Empty(t, records.records)
}

func TestRemove_ClearsSelection(t *testing.T) {
	store, records, _, _ := newTestStore(t)
	seedRecord(records, "mem-1", "Sunset", time.Hour)
	_, err := store.Load(context.Background())
	require.NoError(t, err)

	store.Select("mem-1")
	require.Equal(t, "mem-1", store.SelectedID())

	require.NoError(t, store.Remove(context.Background(), "mem-1"))
	assert.Empty(t, store.Memories())
	assert.Empty(t, store.SelectedID())
}

func TestRemove_UnknownMemory(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	err := store.Remove(context.Background(), "mem-missing")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestToggleLike_IsSelfInverse(t *testing.T) {
	store, records, likes, _ := newTestStore(t)
	seedRecord(records, "mem-1", "Sunset", time.Hour)
	_, err := store.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, store.ToggleLike(context.Background(), "mem-1"))
	m := store.Get("mem-1")
	assert.Equal(t, 1, m.LikeCount())
	assert.True(t, m.IsLikedByViewer())
	assert.Len(t, likes.likes, 1)

	require.NoError(t, store.ToggleLike(context.Background(), "mem-1"))
	assert.Equal(t, 0, m.LikeCount())
	assert.False(t, m.IsLikedByViewer())
	assert.Empty(t, likes.likes)
}

func TestToggleLike_RollsBackOnRemoteFailure(t *testing.T) {
	store, records, likes, _ := newTestStore(t)
	seedRecord(records, "mem-1", "Sunset", time.Hour)
	_, err := store.Load(context.Background())
	require.NoError(t, err)
	likes.insertErr = fmt.Errorf("like table unavailable")

	err = store.ToggleLike(context.Background(), "mem-1")
	require.Error(t, err)

	m := store.Get("mem-1")
	assert.Equal(t, 0, m.LikeCount())
	assert.False(t, m.IsLikedByViewer())

	// The failed toggle must not leave the memory stuck in flight
	likes.insertErr = nil
	require.NoError(t, store.ToggleLike(context.Background(), "mem-1"))
	assert.True(t, m.IsLikedByViewer())
}

func TestToggleLike_RejectsConcurrentToggle(t *testing.T) {
	store, records, likes, _ := newTestStore(t)
	seedRecord(records, "mem-1", "Sunset", time.Hour)
	_, err := store.Load(context.Background())
	require.NoError(t, err)

	likes.blockInsert = make(chan struct{})
	likes.insertStarted = make(chan struct{})
	started := likes.insertStarted

	done := make(chan error, 1)
	go func() {
		done <- store.ToggleLike(context.Background(), "mem-1")
	}()
	<-started

	err = store.ToggleLike(context.Background(), "mem-1")
	assert.True(t, pkgerrors.IsConflict(err))

	close(likes.blockInsert)
	require.NoError(t, <-done)
	assert.True(t, store.Get("mem-1").IsLikedByViewer())
}

func TestToggleLike_UnknownMemory(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	err := store.ToggleLike(context.Background(), "mem-missing")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestFilter(t *testing.T) {
	store, records, _, _ := newTestStore(t)
	seedRecord(records, "mem-1", "Sunset at the beach", 2*time.Hour)
	seedRecord(records, "mem-2", "Mountain hike", time.Hour)
	_, err := store.Load(context.Background())
	require.NoError(t, err)

	filtered := store.Filter("sunset", nil)
	require.Len(t, filtered, 1)
	assert.Equal(t, "mem-1", filtered[0].ID())

	assert.Len(t, store.Filter("", nil), 2)
	assert.Empty(t, store.Filter("desert", nil))
}

func TestSetViewer_ResetsState(t *testing.T) {
	store, records, _, _ := newTestStore(t)
	seedRecord(records, "mem-1", "Sunset", time.Hour)
	_, err := store.Load(context.Background())
	require.NoError(t, err)
	store.Select("mem-1")

	store.SetViewer("viewer-2")
	assert.Empty(t, store.Memories())
	assert.Empty(t, store.SelectedID())
}

func TestOnChange_FiresOnStateChanges(t *testing.T) {
	store, records, _, _ := newTestStore(t)
	seedRecord(records, "mem-1", "Sunset", time.Hour)

	var mu sync.Mutex
	calls := 0
	store.OnChange(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	_, err := store.Load(context.Background())
	require.NoError(t, err)
	store.Select("mem-1")
	store.ClearSelection()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, calls)
}
