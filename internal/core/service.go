// Package core orchestrates uploads: it runs the validation pipeline,
// stores accepted files in object storage, and persists rows and findings.
// HTTP handlers call into this package and map its errors to status codes.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/onecoremx/csvgate/internal/config"
	"github.com/onecoremx/csvgate/internal/csvcheck"
	"github.com/onecoremx/csvgate/internal/store"
)

// Sentinel errors mapped to HTTP status codes by the web layer.
var (
	ErrMissingFilename     = errors.New("filename is required")
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	ErrEmptyFile           = errors.New("file is empty")
	ErrFileTooLarge        = errors.New("file exceeds maximum size")
	ErrForbidden           = errors.New("access denied")
)

// ValidationRejectedError is returned when an upload fails validation with
// one or more error-severity findings. The file is not stored.
type ValidationRejectedError struct {
	Report *csvcheck.Report
}

func (e *ValidationRejectedError) Error() string {
	return fmt.Sprintf("file rejected: %d validation findings", len(e.Report.Findings))
}

// Repository is the persistence surface the service needs.
type Repository interface {
	SaveUpload(ctx context.Context, p store.InsertFileParams, rows []store.CSVRow, validations []store.Validation) (*store.UploadedFile, error)
	GetFile(ctx context.Context, fileID int64) (*store.UploadedFile, error)
	ListFiles(ctx context.Context, userID *int64, limit, offset int) ([]store.UploadedFile, error)
	ListRows(ctx context.Context, fileID int64, limit, offset int) ([]store.CSVRow, error)
	ListValidations(ctx context.Context, fileID int64) ([]store.Validation, error)
	InsertEvent(ctx context.Context, e store.Event) error
}

// ObjectStore is the object storage surface the service needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Service implements the upload operations.
type Service struct {
	repo     Repository
	objects  ObjectStore
	pipeline *csvcheck.Pipeline
	limiter  *UploadLimiter
	cfg      config.UploadConfig
	log      *slog.Logger
}

// NewService wires a Service from its dependencies.
func NewService(repo Repository, objects ObjectStore, cfg config.UploadConfig, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		objects:  objects,
		pipeline: csvcheck.New(csvcheck.Options{NumericColumns: cfg.NumericColumns}),
		limiter:  NewUploadLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		cfg:      cfg,
		log:      log,
	}
}

// Limiter exposes the upload limiter for shutdown draining.
func (s *Service) Limiter() *UploadLimiter { return s.limiter }

// recordEvent writes an audit event. Failures are logged, never returned:
// the audit trail must not fail the operation it observes.
func (s *Service) recordEvent(ctx context.Context, e store.Event) {
	if err := s.repo.InsertEvent(ctx, e); err != nil {
		s.log.WarnContext(ctx, "failed to record event",
			slog.String("event_type", string(e.Type)),
			slog.String("error", err.Error()))
	}
}
