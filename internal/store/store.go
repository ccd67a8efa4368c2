// Package store persists uploads, parsed rows, validation findings, and
// events to PostgreSQL. The schema is provisioned outside the application;
// this package only reads and writes it.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	SendBatch(context.Context, *pgx.Batch) pgx.BatchResults
	Begin(context.Context) (pgx.Tx, error)
}

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store runs queries against a database handle.
type Store struct {
	db DBTX
}

// New creates a Store over the given database handle.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// WithTx returns a Store bound to the given transaction.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx}
}

// UploadStatus tracks an upload through its lifecycle.
type UploadStatus string

const (
	StatusPending    UploadStatus = "pending"
	StatusProcessing UploadStatus = "processing"
	StatusCompleted  UploadStatus = "completed"
	StatusFailed     UploadStatus = "failed"
)

// UploadedFile is one stored upload.
type UploadedFile struct {
	ID               int64        `json:"id"`
	Filename         string       `json:"filename"`
	OriginalFilename string       `json:"original_filename"`
	S3Key            string       `json:"s3_key"`
	FileSize         int64        `json:"file_size"`
	ContentType      string       `json:"content_type"`
	Param1           string       `json:"param1"`
	Param2           string       `json:"param2"`
	RowCount         int          `json:"row_count"`
	Status           UploadStatus `json:"upload_status"`
	UserID           int64        `json:"user_id"`
	CreatedAt        time.Time    `json:"created_at"`
}

// CSVRow is one parsed data row of an upload. Data is the row serialized
// as a JSON object mapping column name to raw cell value.
type CSVRow struct {
	ID        int64     `json:"id"`
	FileID    int64     `json:"uploaded_file_id"`
	RowNumber int       `json:"row_number"`
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// Validation is one persisted validation finding. RowNumber and ColumnName
// are nil for file-level findings.
type Validation struct {
	ID         int64     `json:"id"`
	FileID     int64     `json:"uploaded_file_id"`
	Type       string    `json:"validation_type"`
	RowNumber  *int32    `json:"row_number"`
	ColumnName *string   `json:"column_name"`
	Message    string    `json:"message"`
	Severity   string    `json:"severity"`
	CreatedAt  time.Time `json:"created_at"`
}
