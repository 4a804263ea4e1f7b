package social

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"memorymap/domain"
	pkgerrors "memorymap/pkg/errors"
	"memorymap/pkg/observability"
)

type fakeFriendRecords struct {
	mu sync.Mutex

	friends  []domain.Friend
	incoming []domain.FriendRequest
	outgoing []domain.FriendRequest

	friendsErr  error
	incomingErr error
	outgoingErr error
	insertErr   error

	acceptResult  bool
	acceptErr     error
	declineResult bool
	declineErr    error

	inserted     [][2]string
	deletedEdges [][2]string
	deleteErrFor map[[2]string]error
}

func (f *fakeFriendRecords) ListFriends(ctx context.Context, userID string) ([]domain.Friend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.friendsErr != nil {
		return nil, f.friendsErr
	}
	out := make([]domain.Friend, len(f.friends))
	copy(out, f.friends)
	return out, nil
}

func (f *fakeFriendRecords) ListPendingRequests(ctx context.Context, userID string) ([]domain.FriendRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incomingErr != nil {
		return nil, f.incomingErr
	}
	out := make([]domain.FriendRequest, len(f.incoming))
	copy(out, f.incoming)
	return out, nil
}

func (f *fakeFriendRecords) ListSentRequests(ctx context.Context, userID string) ([]domain.FriendRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.outgoingErr != nil {
		return nil, f.outgoingErr
	}
	out := make([]domain.FriendRequest, len(f.outgoing))
	copy(out, f.outgoing)
	return out, nil
}

func (f *fakeFriendRecords) InsertRequest(ctx context.Context, senderID, receiverID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, [2]string{senderID, receiverID})
	f.outgoing = append(f.outgoing, domain.FriendRequest{
		ID:         fmt.Sprintf("req-%d", len(f.inserted)),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     domain.RequestStatusPending,
		CreatedAt:  time.Now(),
	})
	return nil
}

func (f *fakeFriendRecords) AcceptRequest(ctx context.Context, requestID string) (bool, error) {
	return f.acceptResult, f.acceptErr
}

func (f *fakeFriendRecords) DeclineRequest(ctx context.Context, requestID string) (bool, error) {
	return f.declineResult, f.declineErr
}

func (f *fakeFriendRecords) DeleteFriendEdge(ctx context.Context, userID, friendID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]string{userID, friendID}
	if err := f.deleteErrFor[key]; err != nil {
		return err
	}
	f.deletedEdges = append(f.deletedEdges, key)
	for i, fr := range f.friends {
		if fr.ID == friendID || fr.ID == userID {
			f.friends = append(f.friends[:i], f.friends[i+1:]...)
			break
		}
	}
	return nil
}

type fakeProfileRecords struct {
	mu       sync.Mutex
	profiles []domain.UserProfile
	listErr  error
}

func (f *fakeProfileRecords) List(ctx context.Context, excludeUserID string) ([]domain.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.UserProfile, 0, len(f.profiles))
	for _, p := range f.profiles {
		if p.ID != excludeUserID {
			out = append(out, p)
		}
	}
	return out, nil
}

func newTestGraph(t *testing.T) (*Graph, *fakeFriendRecords, *fakeProfileRecords) {
	t.Helper()
	records := &fakeFriendRecords{deleteErrFor: map[[2]string]error{}}
	profiles := &fakeProfileRecords{}
	graph := NewGraph(records, profiles, observability.NewCollector("test"), zap.NewNop())
	graph.SetViewer("viewer-1")
	return graph, records, profiles
}

func profile(id, name, email string) domain.UserProfile {
	return domain.UserProfile{ID: id, Name: name, Email: email, CreatedAt: time.Now()}
}

func TestLoad_AppliesAllFourSets(t *testing.T) {
	graph, records, profiles := newTestGraph(t)
	records.friends = []domain.Friend{{ID: "friend-1", Name: "Ada"}}
	records.incoming = []domain.FriendRequest{{ID: "req-1", SenderID: "user-2"}}
	records.outgoing = []domain.FriendRequest{{ID: "req-2", ReceiverID: "user-3"}}
	profiles.profiles = []domain.UserProfile{profile("user-4", "Dana", "dana@example.com")}

	require.NoError(t, graph.Load(context.Background()))

	assert.Len(t, graph.Friends(), 1)
	assert.Len(t, graph.Incoming(), 1)
	assert.Len(t, graph.Outgoing(), 1)
	assert.Len(t, graph.Discoverable(""), 1)
}

func TestLoad_PartialFailureKeepsOtherResults(t *testing.T) {
	graph, records, profiles := newTestGraph(t)
	records.friends = []domain.Friend{{ID: "friend-1"}}
	require.NoError(t, graph.Load(context.Background()))

	// Next load: the friends fetch fails, everything else moves on
	records.friendsErr = fmt.Errorf("rpc unavailable")
	records.incoming = []domain.FriendRequest{{ID: "req-1", SenderID: "user-2"}}
	profiles.profiles = []domain.UserProfile{profile("user-4", "Dana", "dana@example.com")}

	require.NoError(t, graph.Load(context.Background()))

	// Failed set kept its previous data
	assert.Len(t, graph.Friends(), 1)
	assert.Len(t, graph.Incoming(), 1)
}

func TestLoad_AllFourFailing(t *testing.T) {
	graph, records, profiles := newTestGraph(t)
	records.friendsErr = fmt.Errorf("down")
	records.incomingErr = fmt.Errorf("down")
	records.outgoingErr = fmt.Errorf("down")
	profiles.listErr = fmt.Errorf("down")

	err := graph.Load(context.Background())
	assert.True(t, pkgerrors.IsTransport(err))
}

func TestLoad_RequiresViewer(t *testing.T) {
	graph, _, _ := newTestGraph(t)
	graph.SetViewer("")
	assert.True(t, pkgerrors.IsValidation(graph.Load(context.Background())))
}

func TestDiscoverable_ExcludesEveryRelatedUser(t *testing.T) {
	graph, records, profiles := newTestGraph(t)
	records.friends = []domain.Friend{{ID: "friend-1", Name: "Ada"}}
	records.incoming = []domain.FriendRequest{{ID: "req-1", SenderID: "sender-1"}}
	records.outgoing = []domain.FriendRequest{{ID: "req-2", ReceiverID: "receiver-1"}}
	profiles.profiles = []domain.UserProfile{
		profile("friend-1", "Ada", "ada@example.com"),
		profile("sender-1", "Ben", "ben@example.com"),
		profile("receiver-1", "Cleo", "cleo@example.com"),
		profile("user-free", "Dana", "dana@example.com"),
	}
	require.NoError(t, graph.Load(context.Background()))

	pool := graph.Discoverable("")
	require.Len(t, pool, 1)
	assert.Equal(t, "user-free", pool[0].ID)
}

func TestDiscoverable_SearchMatchesNameOrEmail(t *testing.T) {
	graph, _, profiles := newTestGraph(t)
	profiles.profiles = []domain.UserProfile{
		profile("u1", "Dana Scully", "dana@example.com"),
		profile("u2", "Fox Mulder", "fox@example.com"),
	}
	require.NoError(t, graph.Load(context.Background()))

	assert.Len(t, graph.Discoverable("dana"), 1)
	assert.Len(t, graph.Discoverable("EXAMPLE.COM"), 2)
	assert.Empty(t, graph.Discoverable("skinner"))
}

func TestSendRequest_AddsOutgoingAndShrinksPool(t *testing.T) {
	graph, records, profiles := newTestGraph(t)
	profiles.profiles = []domain.UserProfile{profile("user-2", "Ben", "ben@example.com")}
	require.NoError(t, graph.Load(context.Background()))
	require.Len(t, graph.Discoverable(""), 1)

	require.NoError(t, graph.SendRequest(context.Background(), "user-2"))

	require.Len(t, records.inserted, 1)
	assert.Equal(t, [2]string{"viewer-1", "user-2"}, records.inserted[0])
	assert.Len(t, graph.Outgoing(), 1)
	assert.Empty(t, graph.Discoverable(""))
}

func TestSendRequest_RejectsKnownDuplicate(t *testing.T) {
	graph, records, _ := newTestGraph(t)
	records.outgoing = []domain.FriendRequest{{ID: "req-1", ReceiverID: "user-2"}}
	require.NoError(t, graph.Load(context.Background()))

	err := graph.SendRequest(context.Background(), "user-2")
	assert.True(t, pkgerrors.IsConflict(err))
	assert.Empty(t, records.inserted)
}

func TestSendRequest_RejectsSelfAndEmpty(t *testing.T) {
	graph, records, _ := newTestGraph(t)
	assert.True(t, pkgerrors.IsValidation(graph.SendRequest(context.Background(), "viewer-1")))
	assert.True(t, pkgerrors.IsValidation(graph.SendRequest(context.Background(), "")))
	assert.Empty(t, records.inserted)
}

func TestSendRequest_RemoteConflictRefreshesProjections(t *testing.T) {
	graph, records, _ := newTestGraph(t)
	require.NoError(t, graph.Load(context.Background()))
	records.insertErr = pkgerrors.NewConflictError("record already exists")
	records.outgoing = []domain.FriendRequest{{ID: "req-1", ReceiverID: "user-2"}}

	err := graph.SendRequest(context.Background(), "user-2")
	assert.True(t, pkgerrors.IsConflict(err))
	// Refreshed: the remote request now shows up locally
	assert.Len(t, graph.Outgoing(), 1)
}

func TestAcceptRequest_AlreadyResolvedIsConflict(t *testing.T) {
	graph, records, _ := newTestGraph(t)
	records.acceptResult = false

	err := graph.AcceptRequest(context.Background(), "req-1")
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestAcceptRequest_RefreshesFriendsAndIncoming(t *testing.T) {
	graph, records, _ := newTestGraph(t)
	records.incoming = []domain.FriendRequest{{ID: "req-1", SenderID: "user-2"}}
	require.NoError(t, graph.Load(context.Background()))

	records.acceptResult = true
	records.friends = []domain.Friend{{ID: "user-2", Name: "Ben"}}
	records.incoming = nil

	require.NoError(t, graph.AcceptRequest(context.Background(), "req-1"))
	assert.Len(t, graph.Friends(), 1)
	assert.Empty(t, graph.Incoming())
}

func TestDeclineRequest_AlreadyResolvedIsConflict(t *testing.T) {
	graph, records, _ := newTestGraph(t)
	records.declineResult = false
	assert.True(t, pkgerrors.IsConflict(graph.DeclineRequest(context.Background(), "req-1")))
}

func TestRemoveFriend_DeletesBothDirections(t *testing.T) {
	graph, records, _ := newTestGraph(t)
	records.friends = []domain.Friend{{ID: "friend-1", Name: "Ada"}}
	require.NoError(t, graph.Load(context.Background()))

	require.NoError(t, graph.RemoveFriend(context.Background(), "friend-1"))

	assert.Contains(t, records.deletedEdges, [2]string{"viewer-1", "friend-1"})
	assert.Contains(t, records.deletedEdges, [2]string{"friend-1", "viewer-1"})
	assert.Empty(t, graph.Friends())
}

func TestRemoveFriend_KeepsFriendWhenReverseDeleteFails(t *testing.T) {
	graph, records, _ := newTestGraph(t)
	records.friends = []domain.Friend{{ID: "friend-1", Name: "Ada"}}
	require.NoError(t, graph.Load(context.Background()))
	records.deleteErrFor[[2]string{"friend-1", "viewer-1"}] = fmt.Errorf("row locked")

	err := graph.RemoveFriend(context.Background(), "friend-1")
	require.Error(t, err)

	// The friend stays in the projection until both rows are gone
	assert.Len(t, graph.Friends(), 1)
}
