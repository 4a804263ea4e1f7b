package supabase

import (
	"context"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/supabase-community/gotrue-go/types"
	"go.uber.org/zap"

	"memorymap/domain"
	pkgerrors "memorymap/pkg/errors"
)

// SessionManager implements ports.Sessions on top of the Supabase auth
// client. Session-change listeners fire on this client's own sign-in and
// sign-out; there is no cross-client session push.
type SessionManager struct {
	client *Client
	logger *zap.Logger

	mu        sync.Mutex
	viewerID  string
	listeners []func(userID string)
}

// NewSessionManager creates the session adapter
func NewSessionManager(client *Client, logger *zap.Logger) *SessionManager {
	return &SessionManager{client: client, logger: logger}
}

// SignIn authenticates with email and password and notifies listeners
func (s *SessionManager) SignIn(ctx context.Context, email, password string) (domain.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserProfile{}, pkgerrors.NewTransportError("signIn", err)
	}

	session, err := s.client.sdk.SignInWithEmailPassword(email, password)
	if err != nil {
		return domain.UserProfile{}, pkgerrors.NewTransportError("signIn", err)
	}

	// The token subject is authoritative for the viewer id; the user object
	// may lag behind on some auth backends
	viewerID := session.User.ID.String()
	if sub, err := tokenSubject(session.AccessToken); err == nil && sub != "" {
		viewerID = sub
	}

	profile := profileFromUser(session.User)
	profile.ID = viewerID

	s.mu.Lock()
	s.viewerID = viewerID
	s.mu.Unlock()

	s.logger.Info("Signed in", zap.String("viewerID", viewerID))
	s.notify(viewerID)
	return profile, nil
}

// CurrentUser returns the signed-in user's profile
func (s *SessionManager) CurrentUser(ctx context.Context) (domain.UserProfile, error) {
	s.mu.Lock()
	viewerID := s.viewerID
	s.mu.Unlock()
	if viewerID == "" {
		return domain.UserProfile{}, pkgerrors.NewNotFoundError("session")
	}
	if err := ctx.Err(); err != nil {
		return domain.UserProfile{}, pkgerrors.NewTransportError("currentUser", err)
	}

	resp, err := s.client.sdk.Auth.GetUser()
	if err != nil {
		return domain.UserProfile{}, pkgerrors.NewTransportError("currentUser", err)
	}
	return profileFromUser(resp.User), nil
}

// OnSessionChange registers a listener invoked with the new viewer id, or
// the empty string on sign-out
func (s *SessionManager) OnSessionChange(fn func(userID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SignOut ends the session. Local state clears and listeners fire even if
// the remote logout fails; the session is gone either way.
func (s *SessionManager) SignOut(ctx context.Context) error {
	var logoutErr error
	if err := ctx.Err(); err != nil {
		logoutErr = pkgerrors.NewTransportError("signOut", err)
	} else if err := s.client.sdk.Auth.Logout(); err != nil {
		s.logger.Warn("Remote logout failed, clearing local session anyway", zap.Error(err))
		logoutErr = pkgerrors.NewTransportError("signOut", err)
	}

	s.mu.Lock()
	s.viewerID = ""
	s.mu.Unlock()
	s.notify("")
	return logoutErr
}

// notify invokes the listeners without the lock held
func (s *SessionManager) notify(userID string) {
	s.mu.Lock()
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(userID)
	}
}

// tokenSubject extracts the subject claim without verifying the signature.
// Verification is the backend's job; the engine only needs the id.
func tokenSubject(accessToken string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return "", err
	}
	return claims.GetSubject()
}

func profileFromUser(user types.User) domain.UserProfile {
	return domain.UserProfile{
		ID:        user.ID.String(),
		Email:     user.Email,
		Name:      metadataString(user.UserMetadata, "name"),
		AvatarURL: metadataString(user.UserMetadata, "avatar_url"),
		CreatedAt: user.CreatedAt,
	}
}

func metadataString(metadata map[string]interface{}, key string) string {
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}
