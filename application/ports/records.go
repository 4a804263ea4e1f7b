// Package ports defines the collaborator interfaces the engine depends on.
// Implementations live under infrastructure/<collaborator>/.
package ports

import (
	"context"
	"io"
	"time"

	"memorymap/domain"
)

// MemoryRecord is the raw memory row shape exchanged with the persistence
// collaborator
type MemoryRecord struct {
	ID          string
	Title       string
	Description string
	Latitude    float64
	Longitude   float64
	Address     string
	City        string
	Country     string
	MediaURLs   []string
	Tags        []string
	IsPublic    bool
	UserID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MemoryInsert carries the fields of a new memory record. Media must already
// be uploaded: the record references the fully-resolved URL list.
type MemoryInsert struct {
	Title       string
	Description string
	Latitude    float64
	Longitude   float64
	Address     string
	City        string
	Country     string
	MediaURLs   []string
	Tags        []string
	IsPublic    bool
	UserID      string
}

// MemoryRecords exposes CRUD over memory records
type MemoryRecords interface {
	// List fetches all records visible to the viewer (owned or public),
	// newest first
	List(ctx context.Context, viewerID string) ([]MemoryRecord, error)
	Insert(ctx context.Context, insert MemoryInsert) (MemoryRecord, error)
	Delete(ctx context.Context, id string) error
}

// LikeRecord is one user's like on one memory
type LikeRecord struct {
	MemoryID string
	UserID   string
}

// LikeRecords exposes the raw like-record set
type LikeRecords interface {
	List(ctx context.Context, memoryIDs []string) ([]LikeRecord, error)
	Insert(ctx context.Context, like LikeRecord) error
	Delete(ctx context.Context, like LikeRecord) error
}

// FriendRecords exposes the social graph queries and mutations. Accept and
// decline delegate the atomic request-flip-plus-edge-materialization
// transaction to the collaborator; a false result means the request was
// already resolved, which is distinct from a transport error.
type FriendRecords interface {
	ListFriends(ctx context.Context, userID string) ([]domain.Friend, error)
	ListPendingRequests(ctx context.Context, userID string) ([]domain.FriendRequest, error)
	ListSentRequests(ctx context.Context, userID string) ([]domain.FriendRequest, error)
	InsertRequest(ctx context.Context, senderID, receiverID string) error
	AcceptRequest(ctx context.Context, requestID string) (bool, error)
	DeclineRequest(ctx context.Context, requestID string) (bool, error)
	// DeleteFriendEdge removes one directed row; removal of an undirected
	// edge calls it once per direction
	DeleteFriendEdge(ctx context.Context, userID, friendID string) error
}

// ProfileRecords exposes the discoverable-user pool
type ProfileRecords interface {
	// List returns all profiles except the excluded user, newest first
	List(ctx context.Context, excludeUserID string) ([]domain.UserProfile, error)
}

// MediaStorage uploads media blobs and returns their public URLs
type MediaStorage interface {
	Upload(ctx context.Context, path, contentType string, data io.Reader) (publicURL string, err error)
}

// Sessions exposes the auth collaborator
type Sessions interface {
	CurrentUser(ctx context.Context) (domain.UserProfile, error)
	// OnSessionChange registers a callback invoked with the new viewer id,
	// or the empty string on sign-out
	OnSessionChange(fn func(userID string))
	SignOut(ctx context.Context) error
}
