package domain

import (
	"strings"
	"time"
)

// RequestStatus represents the state of a friend request
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusDeclined RequestStatus = "declined"
)

// Friend is one undirected, confirmed friend edge as seen from the viewer.
// The collaborator stores it as two directed rows; the engine models the pair
// as a single edge.
type Friend struct {
	ID                  string
	Email               string
	Name                string
	AvatarURL           string
	FriendshipCreatedAt time.Time
}

// FriendRequest is a directed edge sender -> receiver. Incoming requests
// carry the sender's profile fields, outgoing ones the receiver's.
type FriendRequest struct {
	ID                string
	SenderID          string
	ReceiverID        string
	SenderEmail       string
	SenderName        string
	SenderAvatarURL   string
	ReceiverEmail     string
	ReceiverName      string
	ReceiverAvatarURL string
	Status            RequestStatus
	CreatedAt         time.Time
}

// UserProfile is a discoverable user, excluding the current viewer
type UserProfile struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
	CreatedAt time.Time
}

// MatchesSearch reports a case-insensitive name/email substring match.
// An empty query matches everything.
func (p UserProfile) MatchesSearch(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Email), q)
}
