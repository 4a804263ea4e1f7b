package supabase

import (
	"context"
	"encoding/json"

	"memorymap/application/ports"
	pkgerrors "memorymap/pkg/errors"
)

const likesTable = "memory_likes"

type likeRow struct {
	MemoryID string `json:"memory_id"`
	UserID   string `json:"user_id"`
}

// LikeStore implements ports.LikeRecords against the memory_likes table
type LikeStore struct {
	client *Client
}

// NewLikeStore creates the like record adapter
func NewLikeStore(client *Client) *LikeStore {
	return &LikeStore{client: client}
}

// List fetches the raw like rows for the given memories
func (s *LikeStore) List(ctx context.Context, memoryIDs []string) ([]ports.LikeRecord, error) {
	if len(memoryIDs) == 0 {
		return nil, nil
	}

	data, err := s.client.execute(ctx, "listLikes", func() ([]byte, error) {
		data, _, err := s.client.sdk.From(likesTable).
			Select("memory_id,user_id", "", false).
			In("memory_id", memoryIDs).
			Execute()
		return data, err
	})
	if err != nil {
		return nil, err
	}

	var rows []likeRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, pkgerrors.NewTransportError("listLikes", err)
	}

	records := make([]ports.LikeRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, ports.LikeRecord{MemoryID: row.MemoryID, UserID: row.UserID})
	}
	return records, nil
}

// Insert creates one like row
func (s *LikeStore) Insert(ctx context.Context, like ports.LikeRecord) error {
	row := likeRow{MemoryID: like.MemoryID, UserID: like.UserID}
	_, err := s.client.execute(ctx, "insertLike", func() ([]byte, error) {
		data, _, err := s.client.sdk.From(likesTable).
			Insert(row, false, "", "", "").
			Execute()
		return data, err
	})
	return err
}

// Delete removes one like row
func (s *LikeStore) Delete(ctx context.Context, like ports.LikeRecord) error {
	_, err := s.client.execute(ctx, "deleteLike", func() ([]byte, error) {
		data, _, err := s.client.sdk.From(likesTable).
			Delete("", "").
			Eq("memory_id", like.MemoryID).
			Eq("user_id", like.UserID).
			Execute()
		return data, err
	})
	return err
}
