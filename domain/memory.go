package domain

import (
	"io"
	"strings"
	"time"

	pkgerrors "memorymap/pkg/errors"
)

// Memory is the main entity representing a geotagged memory record.
// Title, description, location and media are immutable once created;
// like state is derived, viewer-scoped and mutated through MarkLiked /
// MarkUnliked only.
type Memory struct {
	// Private fields ensure encapsulation
	id          string
	title       string
	description string
	location    Location
	media       []Media
	tags        []string
	isPublic    bool
	userID      string
	createdAt   time.Time
	updatedAt   time.Time

	// Viewer-scoped like state
	likeCount     int
	likedByViewer bool
}

// ReconstructMemory reconstructs a memory from collaborator record data
func ReconstructMemory(
	id string,
	title string,
	description string,
	location Location,
	media []Media,
	tags []string,
	isPublic bool,
	userID string,
	createdAt, updatedAt time.Time,
) (*Memory, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("memory id cannot be empty")
	}
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if title == "" {
		return nil, pkgerrors.NewValidationError("title cannot be empty")
	}

	return &Memory{
		id:          id,
		title:       title,
		description: description,
		location:    location,
		media:       media,
		tags:        tags,
		isPublic:    isPublic,
		userID:      userID,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}, nil
}

// ID returns the memory's unique identifier
func (m *Memory) ID() string {
	return m.id
}

// Title returns the memory's title
func (m *Memory) Title() string {
	return m.title
}

// Description returns the memory's description
func (m *Memory) Description() string {
	return m.description
}

// Location returns where the memory was placed
func (m *Memory) Location() Location {
	return m.location
}

// Media returns the ordered media attachments
func (m *Memory) Media() []Media {
	// Return a copy to maintain encapsulation
	media := make([]Media, len(m.media))
	copy(media, m.media)
	return media
}

// Tags returns all tags
func (m *Memory) Tags() []string {
	// Return a copy to maintain encapsulation
	tags := make([]string, len(m.tags))
	copy(tags, m.tags)
	return tags
}

// IsPublic reports whether the memory is visible to non-owners
func (m *Memory) IsPublic() bool {
	return m.isPublic
}

// UserID returns the owner's ID
func (m *Memory) UserID() string {
	return m.userID
}

// CreatedAt returns when the memory was created
func (m *Memory) CreatedAt() time.Time {
	return m.createdAt
}

// UpdatedAt returns when the memory was last updated
func (m *Memory) UpdatedAt() time.Time {
	return m.updatedAt
}

// LikeCount returns the current like count, never negative
func (m *Memory) LikeCount() int {
	return m.likeCount
}

// IsLikedByViewer reports whether the viewer's own like record exists
func (m *Memory) IsLikedByViewer() bool {
	return m.likedByViewer
}

// SetLikeState sets the aggregated like state computed from raw like records
func (m *Memory) SetLikeState(count int, likedByViewer bool) {
	if count < 0 {
		count = 0
	}
	m.likeCount = count
	m.likedByViewer = likedByViewer
}

// MarkLiked applies the viewer's like. A no-op when already liked so the
// count cannot drift under repeated application.
func (m *Memory) MarkLiked() {
	if m.likedByViewer {
		return
	}
	m.likedByViewer = true
	m.likeCount++
}

// MarkUnliked removes the viewer's like, clamping the count at zero
func (m *Memory) MarkUnliked() {
	if !m.likedByViewer {
		return
	}
	m.likedByViewer = false
	if m.likeCount > 0 {
		m.likeCount--
	}
}

// MatchesFilter reports whether the memory passes a case-insensitive
// title/description substring match (OR) combined with tag membership
// (any-of) when tags are non-empty. Empty query and tags pass everything.
func (m *Memory) MatchesFilter(query string, tags []string) bool {
	matchesSearch := query == ""
	if !matchesSearch {
		q := strings.ToLower(query)
		matchesSearch = strings.Contains(strings.ToLower(m.title), q) ||
			strings.Contains(strings.ToLower(m.description), q)
	}

	matchesTags := len(tags) == 0
	if !matchesTags {
		for _, want := range tags {
			for _, have := range m.tags {
				if have == want {
					matchesTags = true
					break
				}
			}
			if matchesTags {
				break
			}
		}
	}

	return matchesSearch && matchesTags
}

// CreateMemoryData carries the user's input for a new memory.
// Validated before any collaborator call.
type CreateMemoryData struct {
	Title       string    `validate:"required,min=1,max=200"`
	Description string    `validate:"max=5000"`
	Location    *Location `validate:"required"`
	MediaFiles  []MediaFile
	Tags        []string
	IsPublic    bool
}

// MediaFile is a media attachment pending upload. Kind is resolved from the
// declared content type at upload time, never re-sniffed from the name.
type MediaFile struct {
	Name        string
	ContentType string
	Data        io.Reader
}
