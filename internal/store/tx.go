package store

import (
	"context"
	"fmt"
)

// SaveUpload persists a completed upload in one transaction: the file
// record, its parsed rows, and its validation findings. The file is
// returned with upload_status already set to completed.
func (s *Store) SaveUpload(ctx context.Context, p InsertFileParams, rows []CSVRow, validations []Validation) (*UploadedFile, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin save upload: %w", err)
	}
	defer tx.Rollback(ctx)

	txStore := s.WithTx(tx)

	p.Status = StatusProcessing
	file, err := txStore.InsertFile(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := txStore.InsertRows(ctx, file.ID, rows); err != nil {
		return nil, err
	}
	if err := txStore.InsertValidations(ctx, file.ID, validations); err != nil {
		return nil, err
	}
	if err := txStore.UpdateFileStatus(ctx, file.ID, StatusCompleted); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit save upload: %w", err)
	}
	file.Status = StatusCompleted
	return file, nil
}
