package store

import (
	"context"
	"fmt"
	"time"
)

// EventType identifies what an event records.
type EventType string

const (
	EventUpload     EventType = "upload"
	EventValidation EventType = "validation"
	EventDownload   EventType = "download"
)

// Event is one audit log entry. Events observe processing and never
// influence its outcome; recording failures are logged and swallowed by
// callers.
type Event struct {
	ID          int64     `json:"id"`
	Type        EventType `json:"event_type"`
	Description string    `json:"description"`
	UserID      *int64    `json:"user_id"`
	FileID      *int64    `json:"uploaded_file_id"`
	Metadata    *string   `json:"metadata"`
	CreatedAt   time.Time `json:"created_at"`
}

// InsertEvent records one event.
func (s *Store) InsertEvent(ctx context.Context, e Event) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO event_log (event_type, description, user_id, uploaded_file_id, metadata)
		 VALUES ($1, $2, $3, $4, $5)`,
		string(e.Type), e.Description, e.UserID, e.FileID, e.Metadata)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}
