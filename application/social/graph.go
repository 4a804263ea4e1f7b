// Package social tracks the viewer's friend graph: confirmed friends,
// incoming and outgoing requests, and the discoverable-user pool. The three
// sets are disjoint by construction and every projection is recomputed from
// them on mutation.
package social

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"memorymap/application/ports"
	"memorymap/domain"
	pkgerrors "memorymap/pkg/errors"
	"memorymap/pkg/observability"
)

// Graph is the friend-graph state container for one viewer session
type Graph struct {
	records  ports.FriendRecords
	profiles ports.ProfileRecords
	logger   *zap.Logger
	metrics  *observability.Collector

	mu       sync.Mutex
	viewerID string
	friends  []domain.Friend
	incoming []domain.FriendRequest
	outgoing []domain.FriendRequest
	pool     []domain.UserProfile
}

// NewGraph creates a friend graph backed by the given collaborators
func NewGraph(
	records ports.FriendRecords,
	profiles ports.ProfileRecords,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Graph {
	return &Graph{
		records:  records,
		profiles: profiles,
		logger:   logger,
		metrics:  metrics,
	}
}

// SetViewer resets the graph for a new viewer session
func (g *Graph) SetViewer(viewerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.viewerID = viewerID
	g.friends = nil
	g.incoming = nil
	g.outgoing = nil
	g.pool = nil
}

// Load issues the four independent queries concurrently and joins before
// updating state. A failure in one query must not prevent the others'
// results from being applied: failed queries keep their previous data and
// are logged; only all four failing is a hard error.
func (g *Graph) Load(ctx context.Context) error {
	g.mu.Lock()
	viewerID := g.viewerID
	g.mu.Unlock()
	if viewerID == "" {
		return pkgerrors.NewValidationError("no viewer signed in")
	}

	var (
		wg       sync.WaitGroup
		friends  []domain.Friend
		incoming []domain.FriendRequest
		outgoing []domain.FriendRequest
		pool     []domain.UserProfile
		errs     [4]error
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		friends, errs[0] = g.records.ListFriends(ctx, viewerID)
	}()
	go func() {
		defer wg.Done()
		incoming, errs[1] = g.records.ListPendingRequests(ctx, viewerID)
	}()
	go func() {
		defer wg.Done()
		outgoing, errs[2] = g.records.ListSentRequests(ctx, viewerID)
	}()
	go func() {
		defer wg.Done()
		pool, errs[3] = g.profiles.List(ctx, viewerID)
	}()
	wg.Wait()

	failed := 0
	for i, name := range [4]string{"listFriends", "listPendingRequests", "listSentRequests", "listProfiles"} {
		if errs[i] != nil {
			failed++
			g.logger.Warn("Friend data sub-fetch failed, keeping previous data",
				zap.Error(pkgerrors.NewPartialFailureError(name, errs[i])),
			)
		}
	}
	if failed == 4 {
		return pkgerrors.NewTransportError("loadFriendData", errs[0])
	}
	if failed > 0 {
		g.metrics.DegradedLoads.Inc()
	}

	g.mu.Lock()
	if errs[0] == nil {
		g.friends = friends
	}
	if errs[1] == nil {
		g.incoming = incoming
	}
	if errs[2] == nil {
		g.outgoing = outgoing
	}
	if errs[3] == nil {
		g.pool = pool
	}
	g.mu.Unlock()
	return nil
}

// Friends returns the confirmed friend edges
func (g *Graph) Friends() []domain.Friend {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.Friend, len(g.friends))
	copy(out, g.friends)
	return out
}

// Incoming returns the pending requests sent to the viewer
func (g *Graph) Incoming() []domain.FriendRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.FriendRequest, len(g.incoming))
	copy(out, g.incoming)
	return out
}

// Outgoing returns the pending requests the viewer has sent
func (g *Graph) Outgoing() []domain.FriendRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.FriendRequest, len(g.outgoing))
	copy(out, g.outgoing)
	return out
}

// Discoverable is the derived discovery pool: every known profile minus
// anyone who is already a friend, has a pending request to the viewer, or
// has one from the viewer, filtered by a name/email substring match
func (g *Graph) Discoverable(query string) []domain.UserProfile {
	g.mu.Lock()
	defer g.mu.Unlock()

	excluded := make(map[string]bool, len(g.friends)+len(g.incoming)+len(g.outgoing))
	for _, f := range g.friends {
		excluded[f.ID] = true
	}
	for _, req := range g.incoming {
		excluded[req.SenderID] = true
	}
	for _, req := range g.outgoing {
		excluded[req.ReceiverID] = true
	}

	out := make([]domain.UserProfile, 0, len(g.pool))
	for _, p := range g.pool {
		if excluded[p.ID] {
			continue
		}
		if !p.MatchesSearch(query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SendRequest sends a friend request. The discovery pool is the first line
// of defense against duplicates; the operation itself also refuses locally
// known duplicates and tolerates the collaborator rejecting one. On success
// sent requests and the discovery pool are reloaded.
func (g *Graph) SendRequest(ctx context.Context, receiverID string) error {
	g.mu.Lock()
	viewerID := g.viewerID
	if receiverID == "" || receiverID == viewerID {
		g.mu.Unlock()
		return pkgerrors.NewValidationError("invalid receiver")
	}
	dup := g.relationExistsLocked(receiverID)
	g.mu.Unlock()
	if dup {
		return pkgerrors.NewConflictError("a friendship or pending request already exists")
	}

	if err := g.records.InsertRequest(ctx, viewerID, receiverID); err != nil {
		g.metrics.FriendOperations.WithLabelValues("send_request", "error").Inc()
		if pkgerrors.IsConflict(err) {
			// Lost a race: the relation appeared remotely. Refresh so the
			// projections exclude the receiver.
			g.reload(ctx, false, false, true, true)
			return err
		}
		return pkgerrors.Wrap(err, "failed to send friend request")
	}

	g.metrics.FriendOperations.WithLabelValues("send_request", "ok").Inc()
	g.reload(ctx, false, false, true, true)
	return nil
}

// AcceptRequest delegates the atomic flip-and-materialize transaction to
// the collaborator. A false result means the request was already resolved
// elsewhere and surfaces as a conflict, not a transport error. Friends and
// pending requests are reloaded afterwards.
func (g *Graph) AcceptRequest(ctx context.Context, requestID string) error {
	ok, err := g.records.AcceptRequest(ctx, requestID)
	if err != nil {
		g.metrics.FriendOperations.WithLabelValues("accept_request", "error").Inc()
		return pkgerrors.Wrap(err, "failed to accept friend request")
	}
	if !ok {
		g.metrics.FriendOperations.WithLabelValues("accept_request", "conflict").Inc()
		return pkgerrors.NewConflictError("friend request was already resolved")
	}

	g.metrics.FriendOperations.WithLabelValues("accept_request", "ok").Inc()
	g.reload(ctx, true, true, false, false)
	return nil
}

// DeclineRequest declines a pending request, reloading pending requests
// only
func (g *Graph) DeclineRequest(ctx context.Context, requestID string) error {
	ok, err := g.records.DeclineRequest(ctx, requestID)
	if err != nil {
		g.metrics.FriendOperations.WithLabelValues("decline_request", "error").Inc()
		return pkgerrors.Wrap(err, "failed to decline friend request")
	}
	if !ok {
		g.metrics.FriendOperations.WithLabelValues("decline_request", "conflict").Inc()
		return pkgerrors.NewConflictError("friend request was already resolved")
	}

	g.metrics.FriendOperations.WithLabelValues("decline_request", "ok").Inc()
	g.reload(ctx, false, true, false, false)
	return nil
}

// RemoveFriend deletes both directed rows of the undirected edge. The edge
// only leaves the local projection once both deletes are confirmed; if
// either fails the friend stays listed and the error reports the edge as
// still (partially) present.
func (g *Graph) RemoveFriend(ctx context.Context, friendID string) error {
	g.mu.Lock()
	viewerID := g.viewerID
	g.mu.Unlock()

	err1 := g.records.DeleteFriendEdge(ctx, viewerID, friendID)
	err2 := g.records.DeleteFriendEdge(ctx, friendID, viewerID)
	if err1 != nil || err2 != nil {
		g.metrics.FriendOperations.WithLabelValues("remove_friend", "error").Inc()
		err := err1
		if err == nil {
			err = err2
		}
		g.logger.Error("Friend edge removal incomplete, edge still present",
			zap.String("friendID", friendID),
			zap.Bool("forwardDeleted", err1 == nil),
			zap.Bool("reverseDeleted", err2 == nil),
			zap.Error(err),
		)
		return pkgerrors.Wrap(err, "friend edge not fully removed")
	}

	g.mu.Lock()
	for i, f := range g.friends {
		if f.ID == friendID {
			g.friends = append(g.friends[:i], g.friends[i+1:]...)
			break
		}
	}
	g.mu.Unlock()

	g.metrics.FriendOperations.WithLabelValues("remove_friend", "ok").Inc()
	g.reload(ctx, true, false, false, false)
	return nil
}

// relationExistsLocked reports whether any of {friend edge, incoming
// pending, outgoing pending} holds for the given user
func (g *Graph) relationExistsLocked(userID string) bool {
	for _, f := range g.friends {
		if f.ID == userID {
			return true
		}
	}
	for _, req := range g.incoming {
		if req.SenderID == userID {
			return true
		}
	}
	for _, req := range g.outgoing {
		if req.ReceiverID == userID {
			return true
		}
	}
	return false
}

// reload refreshes the selected sets, degrading on failure
func (g *Graph) reload(ctx context.Context, friends, incoming, outgoing, pool bool) {
	g.mu.Lock()
	viewerID := g.viewerID
	g.mu.Unlock()

	if friends {
		if data, err := g.records.ListFriends(ctx, viewerID); err == nil {
			g.mu.Lock()
			g.friends = data
			g.mu.Unlock()
		} else {
			g.logger.Warn("Friend list refresh failed", zap.Error(err))
		}
	}
	if incoming {
		if data, err := g.records.ListPendingRequests(ctx, viewerID); err == nil {
			g.mu.Lock()
			g.incoming = data
			g.mu.Unlock()
		} else {
			g.logger.Warn("Pending request refresh failed", zap.Error(err))
		}
	}
	if outgoing {
		if data, err := g.records.ListSentRequests(ctx, viewerID); err == nil {
			g.mu.Lock()
			g.outgoing = data
			g.mu.Unlock()
		} else {
			g.logger.Warn("Sent request refresh failed", zap.Error(err))
		}
	}
	if pool {
		if data, err := g.profiles.List(ctx, viewerID); err == nil {
			g.mu.Lock()
			g.pool = data
			g.mu.Unlock()
		} else {
			g.logger.Warn("Profile pool refresh failed", zap.Error(err))
		}
	}
}
