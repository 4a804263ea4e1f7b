package supabase

import (
	"context"
	"encoding/json"
	"time"

	"memorymap/domain"
	pkgerrors "memorymap/pkg/errors"
)

const (
	friendsTable        = "friends"
	friendRequestsTable = "friend_requests"
)

// Row shapes of the social RPCs; the profile joins happen server side
type friendRow struct {
	FriendID            string    `json:"friend_id"`
	FriendEmail         string    `json:"friend_email"`
	FriendName          string    `json:"friend_name"`
	FriendAvatarURL     string    `json:"friend_avatar_url"`
	FriendshipCreatedAt time.Time `json:"friendship_created_at"`
}

type pendingRequestRow struct {
	RequestID       string    `json:"request_id"`
	SenderID        string    `json:"sender_id"`
	SenderEmail     string    `json:"sender_email"`
	SenderName      string    `json:"sender_name"`
	SenderAvatarURL string    `json:"sender_avatar_url"`
	CreatedAt       time.Time `json:"created_at"`
}

type sentRequestRow struct {
	RequestID         string    `json:"request_id"`
	ReceiverID        string    `json:"receiver_id"`
	ReceiverEmail     string    `json:"receiver_email"`
	ReceiverName      string    `json:"receiver_name"`
	ReceiverAvatarURL string    `json:"receiver_avatar_url"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

type friendRequestInsertRow struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
}

// FriendStore implements ports.FriendRecords against the friends and
// friend_requests tables plus their RPCs
type FriendStore struct {
	client *Client
}

// NewFriendStore creates the friend record adapter
func NewFriendStore(client *Client) *FriendStore {
	return &FriendStore{client: client}
}

// ListFriends fetches the confirmed friend edges with profile fields joined
func (s *FriendStore) ListFriends(ctx context.Context, userID string) ([]domain.Friend, error) {
	result, err := s.client.rpc(ctx, "get_user_friends", map[string]interface{}{
		"user_uuid": userID,
	})
	if err != nil {
		return nil, err
	}

	var rows []friendRow
	if err := json.Unmarshal([]byte(result), &rows); err != nil {
		return nil, pkgerrors.NewTransportError("get_user_friends", err)
	}

	friends := make([]domain.Friend, 0, len(rows))
	for _, row := range rows {
		friends = append(friends, domain.Friend{
			ID:                  row.FriendID,
			Email:               row.FriendEmail,
			Name:                row.FriendName,
			AvatarURL:           row.FriendAvatarURL,
			FriendshipCreatedAt: row.FriendshipCreatedAt,
		})
	}
	return friends, nil
}

// ListPendingRequests fetches the pending requests sent to the user
func (s *FriendStore) ListPendingRequests(ctx context.Context, userID string) ([]domain.FriendRequest, error) {
	result, err := s.client.rpc(ctx, "get_pending_friend_requests", map[string]interface{}{
		"user_uuid": userID,
	})
	if err != nil {
		return nil, err
	}

	var rows []pendingRequestRow
	if err := json.Unmarshal([]byte(result), &rows); err != nil {
		return nil, pkgerrors.NewTransportError("get_pending_friend_requests", err)
	}

	requests := make([]domain.FriendRequest, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, domain.FriendRequest{
			ID:              row.RequestID,
			SenderID:        row.SenderID,
			ReceiverID:      userID,
			SenderEmail:     row.SenderEmail,
			SenderName:      row.SenderName,
			SenderAvatarURL: row.SenderAvatarURL,
			Status:          domain.RequestStatusPending,
			CreatedAt:       row.CreatedAt,
		})
	}
	return requests, nil
}

// ListSentRequests fetches the pending requests the user has sent
func (s *FriendStore) ListSentRequests(ctx context.Context, userID string) ([]domain.FriendRequest, error) {
	result, err := s.client.rpc(ctx, "get_sent_friend_requests", map[string]interface{}{
		"user_uuid": userID,
	})
	if err != nil {
		return nil, err
	}

	var rows []sentRequestRow
	if err := json.Unmarshal([]byte(result), &rows); err != nil {
		return nil, pkgerrors.NewTransportError("get_sent_friend_requests", err)
	}

	requests := make([]domain.FriendRequest, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, domain.FriendRequest{
			ID:                row.RequestID,
			SenderID:          userID,
			ReceiverID:        row.ReceiverID,
			ReceiverEmail:     row.ReceiverEmail,
			ReceiverName:      row.ReceiverName,
			ReceiverAvatarURL: row.ReceiverAvatarURL,
			Status:            domain.RequestStatus(row.Status),
			CreatedAt:         row.CreatedAt,
		})
	}
	return requests, nil
}

// InsertRequest creates a pending friend request. A unique-constraint
// rejection surfaces as a conflict.
func (s *FriendStore) InsertRequest(ctx context.Context, senderID, receiverID string) error {
	row := friendRequestInsertRow{SenderID: senderID, ReceiverID: receiverID}
	_, err := s.client.execute(ctx, "insertFriendRequest", func() ([]byte, error) {
		data, _, err := s.client.sdk.From(friendRequestsTable).
			Insert(row, false, "", "", "").
			Execute()
		return data, err
	})
	return err
}

// AcceptRequest runs the accept transaction server side. A false result
// means the request was already resolved.
func (s *FriendStore) AcceptRequest(ctx context.Context, requestID string) (bool, error) {
	return s.resolveRequest(ctx, "accept_friend_request", requestID)
}

// DeclineRequest runs the decline transaction server side
func (s *FriendStore) DeclineRequest(ctx context.Context, requestID string) (bool, error) {
	return s.resolveRequest(ctx, "decline_friend_request", requestID)
}

func (s *FriendStore) resolveRequest(ctx context.Context, rpcName, requestID string) (bool, error) {
	result, err := s.client.rpc(ctx, rpcName, map[string]interface{}{
		"request_id": requestID,
	})
	if err != nil {
		return false, err
	}

	var resolved bool
	if err := json.Unmarshal([]byte(result), &resolved); err != nil {
		return false, pkgerrors.NewTransportError(rpcName, err)
	}
	return resolved, nil
}

// DeleteFriendEdge removes one directed friendship row
func (s *FriendStore) DeleteFriendEdge(ctx context.Context, userID, friendID string) error {
	_, err := s.client.execute(ctx, "deleteFriendEdge", func() ([]byte, error) {
		data, _, err := s.client.sdk.From(friendsTable).
			Delete("", "").
			Eq("user_id", userID).
			Eq("friend_id", friendID).
			Execute()
		return data, err
	})
	return err
}
