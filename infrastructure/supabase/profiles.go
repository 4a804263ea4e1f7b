package supabase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/supabase-community/postgrest-go"

	"memorymap/domain"
	pkgerrors "memorymap/pkg/errors"
)

const profilesTable = "profiles"

type profileRow struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileStore implements ports.ProfileRecords against the profiles table
type ProfileStore struct {
	client *Client
}

// NewProfileStore creates the profile adapter
func NewProfileStore(client *Client) *ProfileStore {
	return &ProfileStore{client: client}
}

// List fetches every profile except the excluded user, newest first
func (s *ProfileStore) List(ctx context.Context, excludeUserID string) ([]domain.UserProfile, error) {
	data, err := s.client.execute(ctx, "listProfiles", func() ([]byte, error) {
		data, _, err := s.client.sdk.From(profilesTable).
			Select("*", "", false).
			Neq("id", excludeUserID).
			Order("created_at", &postgrest.OrderOpts{Ascending: false}).
			Execute()
		return data, err
	})
	if err != nil {
		return nil, err
	}

	var rows []profileRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, pkgerrors.NewTransportError("listProfiles", err)
	}

	profiles := make([]domain.UserProfile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, domain.UserProfile{
			ID:        row.ID,
			Email:     row.Email,
			Name:      row.Name,
			AvatarURL: row.AvatarURL,
			CreatedAt: row.CreatedAt,
		})
	}
	return profiles, nil
}
