package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// InsertFileParams holds the fields for a new uploaded_files record.
type InsertFileParams struct {
	Filename         string
	OriginalFilename string
	S3Key            string
	FileSize         int64
	ContentType      string
	Param1           string
	Param2           string
	RowCount         int
	Status           UploadStatus
	UserID           int64
}

// InsertFile creates an uploaded_files record and returns it with its
// generated ID and timestamp.
func (s *Store) InsertFile(ctx context.Context, p InsertFileParams) (*UploadedFile, error) {
	const q = `
		INSERT INTO uploaded_files
			(filename, original_filename, s3_key, file_size, content_type,
			 param1, param2, row_count, upload_status, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	f := UploadedFile{
		Filename:         p.Filename,
		OriginalFilename: p.OriginalFilename,
		S3Key:            p.S3Key,
		FileSize:         p.FileSize,
		ContentType:      p.ContentType,
		Param1:           p.Param1,
		Param2:           p.Param2,
		RowCount:         p.RowCount,
		Status:           p.Status,
		UserID:           p.UserID,
	}
	err := s.db.QueryRow(ctx, q,
		p.Filename, p.OriginalFilename, p.S3Key, p.FileSize, p.ContentType,
		p.Param1, p.Param2, p.RowCount, string(p.Status), p.UserID,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert uploaded file: %w", err)
	}
	return &f, nil
}

// UpdateFileStatus sets the upload_status of a file.
func (s *Store) UpdateFileStatus(ctx context.Context, fileID int64, status UploadStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE uploaded_files SET upload_status = $2 WHERE id = $1`,
		fileID, string(status))
	if err != nil {
		return fmt.Errorf("update file status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetFile returns one uploaded file by ID.
func (s *Store) GetFile(ctx context.Context, fileID int64) (*UploadedFile, error) {
	const q = `
		SELECT id, filename, original_filename, s3_key, file_size, content_type,
		       param1, param2, row_count, upload_status, user_id, created_at
		FROM uploaded_files
		WHERE id = $1`

	var f UploadedFile
	err := s.db.QueryRow(ctx, q, fileID).Scan(
		&f.ID, &f.Filename, &f.OriginalFilename, &f.S3Key, &f.FileSize,
		&f.ContentType, &f.Param1, &f.Param2, &f.RowCount, &f.Status,
		&f.UserID, &f.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get uploaded file %d: %w", fileID, err)
	}
	return &f, nil
}

// ListFiles returns uploads newest first. A nil userID lists every user's
// uploads (admin view); otherwise only the given user's.
func (s *Store) ListFiles(ctx context.Context, userID *int64, limit, offset int) ([]UploadedFile, error) {
	const q = `
		SELECT id, filename, original_filename, s3_key, file_size, content_type,
		       param1, param2, row_count, upload_status, user_id, created_at
		FROM uploaded_files
		WHERE ($1::bigint IS NULL OR user_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list uploaded files: %w", err)
	}
	defer rows.Close()

	var files []UploadedFile
	for rows.Next() {
		var f UploadedFile
		if err := rows.Scan(
			&f.ID, &f.Filename, &f.OriginalFilename, &f.S3Key, &f.FileSize,
			&f.ContentType, &f.Param1, &f.Param2, &f.RowCount, &f.Status,
			&f.UserID, &f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan uploaded file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// InsertRows stores the parsed data rows of a file in one batch.
func (s *Store) InsertRows(ctx context.Context, fileID int64, rows []CSVRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(
			`INSERT INTO csv_data (uploaded_file_id, row_number, data) VALUES ($1, $2, $3)`,
			fileID, r.RowNumber, r.Data)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()
	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert csv row: %w", err)
		}
	}
	return nil
}

// ListRows returns a file's parsed rows in row order.
func (s *Store) ListRows(ctx context.Context, fileID int64, limit, offset int) ([]CSVRow, error) {
	const q = `
		SELECT id, uploaded_file_id, row_number, data, created_at
		FROM csv_data
		WHERE uploaded_file_id = $1
		ORDER BY row_number
		LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, q, fileID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list csv rows: %w", err)
	}
	defer rows.Close()

	var out []CSVRow
	for rows.Next() {
		var r CSVRow
		if err := rows.Scan(&r.ID, &r.FileID, &r.RowNumber, &r.Data, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan csv row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertValidations stores a file's validation findings in one batch,
// preserving report order.
func (s *Store) InsertValidations(ctx context.Context, fileID int64, validations []Validation) error {
	if len(validations) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, v := range validations {
		batch.Queue(
			`INSERT INTO file_validations
				(uploaded_file_id, validation_type, row_number, column_name, message, severity)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			fileID, v.Type, v.RowNumber, v.ColumnName, v.Message, v.Severity)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()
	for range validations {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert validation: %w", err)
		}
	}
	return nil
}

// ListValidations returns a file's findings in insertion order.
func (s *Store) ListValidations(ctx context.Context, fileID int64) ([]Validation, error) {
	const q = `
		SELECT id, uploaded_file_id, validation_type, row_number, column_name,
		       message, severity, created_at
		FROM file_validations
		WHERE uploaded_file_id = $1
		ORDER BY id`

	rows, err := s.db.Query(ctx, q, fileID)
	if err != nil {
		return nil, fmt.Errorf("list validations: %w", err)
	}
	defer rows.Close()

	var out []Validation
	for rows.Next() {
		var v Validation
		if err := rows.Scan(
			&v.ID, &v.FileID, &v.Type, &v.RowNumber, &v.ColumnName,
			&v.Message, &v.Severity, &v.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan validation: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
