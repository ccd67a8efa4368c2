package core

import (
	"context"
	"fmt"

	"github.com/onecoremx/csvgate/internal/auth"
	"github.com/onecoremx/csvgate/internal/store"
)

// ListFiles returns uploads visible to the caller, newest first. Admins
// see every user's uploads; everyone else only their own.
func (s *Service) ListFiles(ctx context.Context, claims *auth.Claims, limit, offset int) ([]store.UploadedFile, error) {
	var userID *int64
	if !claims.Role.IsAdmin() {
		id := claims.UserID
		userID = &id
	}
	return s.repo.ListFiles(ctx, userID, limit, offset)
}

// GetFile returns one upload, enforcing ownership: non-admin callers may
// only read their own files.
func (s *Service) GetFile(ctx context.Context, claims *auth.Claims, fileID int64) (*store.UploadedFile, error) {
	file, err := s.repo.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !claims.Role.IsAdmin() && file.UserID != claims.UserID {
		return nil, ErrForbidden
	}
	return file, nil
}

// FileRows returns a file's parsed rows in row order, subject to the same
// ownership rule as GetFile.
func (s *Service) FileRows(ctx context.Context, claims *auth.Claims, fileID int64, limit, offset int) ([]store.CSVRow, error) {
	if _, err := s.GetFile(ctx, claims, fileID); err != nil {
		return nil, err
	}
	return s.repo.ListRows(ctx, fileID, limit, offset)
}

// FileValidations returns a file's findings in report order, subject to
// the same ownership rule as GetFile.
func (s *Service) FileValidations(ctx context.Context, claims *auth.Claims, fileID int64) ([]store.Validation, error) {
	if _, err := s.GetFile(ctx, claims, fileID); err != nil {
		return nil, err
	}
	return s.repo.ListValidations(ctx, fileID)
}

// DownloadFile fetches a file's original content from object storage and
// records a download event.
func (s *Service) DownloadFile(ctx context.Context, claims *auth.Claims, fileID int64) (*store.UploadedFile, []byte, error) {
	file, err := s.GetFile(ctx, claims, fileID)
	if err != nil {
		return nil, nil, err
	}
	content, err := s.objects.Get(ctx, file.S3Key)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch upload %d: %w", fileID, err)
	}

	userID := claims.UserID
	s.recordEvent(ctx, store.Event{
		Type:        store.EventDownload,
		Description: fmt.Sprintf("downloaded %s", file.OriginalFilename),
		UserID:      &userID,
		FileID:      &file.ID,
	})
	return file, content, nil
}
