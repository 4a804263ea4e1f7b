package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"

	"memorymap/application/ports"
	pkgerrors "memorymap/pkg/errors"
)

const memoriesTable = "memories"

// memoryRow mirrors the memories table
type memoryRow struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	Country     string    `json:"country"`
	MediaURLs   []string  `json:"media_urls"`
	Tags        []string  `json:"tags"`
	IsPublic    bool      `json:"is_public"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type memoryInsertRow struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	Country     string   `json:"country"`
	MediaURLs   []string `json:"media_urls"`
	Tags        []string `json:"tags"`
	IsPublic    bool     `json:"is_public"`
	UserID      string   `json:"user_id"`
}

// MemoryStore implements ports.MemoryRecords against the memories table
type MemoryStore struct {
	client *Client
}

// NewMemoryStore creates the memory record adapter
func NewMemoryStore(client *Client) *MemoryStore {
	return &MemoryStore{client: client}
}

// List fetches every record the viewer may see: their own plus public ones,
// newest first
func (s *MemoryStore) List(ctx context.Context, viewerID string) ([]ports.MemoryRecord, error) {
	data, err := s.client.execute(ctx, "listMemories", func() ([]byte, error) {
		data, _, err := s.client.sdk.From(memoriesTable).
			Select("*", "", false).
			Or(fmt.Sprintf("user_id.eq.%s,is_public.eq.true", viewerID), "").
			Order("created_at", &postgrest.OrderOpts{Ascending: false}).
			Execute()
		return data, err
	})
	if err != nil {
		return nil, err
	}

	var rows []memoryRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, pkgerrors.NewTransportError("listMemories", err)
	}

	records := make([]ports.MemoryRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, recordFromRow(row))
	}
	return records, nil
}

// Insert creates a record and returns the stored representation
func (s *MemoryStore) Insert(ctx context.Context, insert ports.MemoryInsert) (ports.MemoryRecord, error) {
	row := memoryInsertRow{
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
	}

	data, err := s.client.execute(ctx, "insertMemory", func() ([]byte, error) {
		data, _, err := s.client.sdk.From(memoriesTable).
			Insert(row, false, "", "representation", "").
			Execute()
		return data, err
	})
	if err != nil {
		return ports.MemoryRecord{}, err
	}

	var rows []memoryRow
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return ports.MemoryRecord{}, pkgerrors.NewTransportError("insertMemory", err)
	}
	return recordFromRow(rows[0]), nil
}

// Delete removes a record by id
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.execute(ctx, "deleteMemory", func() ([]byte, error) {
		data, _, err := s.client.sdk.From(memoriesTable).
			Delete("", "").
			Eq("id", id).
			Execute()
		return data, err
	})
	return err
}

func recordFromRow(row memoryRow) ports.MemoryRecord {
	return ports.MemoryRecord{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Latitude:    row.Latitude,
		Longitude:   row.Longitude,
		Address:     row.Address,
		City:        row.City,
		Country:     row.Country,
		MediaURLs:   row.MediaURLs,
		Tags:        row.Tags,
		IsPublic:    row.IsPublic,
		UserID:      row.UserID,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
