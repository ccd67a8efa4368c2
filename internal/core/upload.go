package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onecoremx/csvgate/internal/csvcheck"
	"github.com/onecoremx/csvgate/internal/store"
)

// UploadInput carries one upload request into the service.
type UploadInput struct {
	Filename    string
	ContentType string
	Content     []byte
	Param1      string
	Param2      string
	UserID      int64
}

// UploadResult is a successfully processed upload.
type UploadResult struct {
	File   *store.UploadedFile
	Report *csvcheck.Report
}

// ProcessUpload validates and stores one uploaded file.
//
// The file is checked for name, extension, and size limits, then run
// through the validation pipeline. Any error-severity finding rejects the
// upload before anything is stored; warnings are persisted alongside the
// file. Accepted files go to object storage first, then the file record,
// parsed rows, and findings are saved in one transaction.
func (s *Service) ProcessUpload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if strings.TrimSpace(in.Filename) == "" {
		return nil, ErrMissingFilename
	}
	if !s.extensionAllowed(in.Filename) {
		return nil, ErrExtensionNotAllowed
	}
	if len(in.Content) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(in.Content)) > s.cfg.MaxFileSize {
		return nil, ErrFileTooLarge
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	report := s.pipeline.Validate(in.Content)
	if report.HasErrors() {
		s.recordEvent(ctx, validationEvent(in, report, false))
		return nil, &ValidationRejectedError{Report: report}
	}

	key := objectKey(in.UserID, in.Filename)
	contentType := in.ContentType
	if contentType == "" {
		contentType = "text/csv"
	}
	if err := s.objects.Put(ctx, key, in.Content, contentType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	rows, err := dataRows(report)
	if err != nil {
		return nil, err
	}
	file, err := s.repo.SaveUpload(ctx, store.InsertFileParams{
		Filename:         filepath.Base(key),
		OriginalFilename: in.Filename,
		S3Key:            key,
		FileSize:         int64(len(in.Content)),
		ContentType:      contentType,
		Param1:           in.Param1,
		Param2:           in.Param2,
		RowCount:         report.RowCount,
		UserID:           in.UserID,
	}, rows, findingRecords(report))
	if err != nil {
		// The object is already in storage; best-effort cleanup so a
		// failed upload does not leave an orphan behind.
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.log.WarnContext(ctx, "failed to clean up object after save error",
				slog.String("key", key), slog.String("error", delErr.Error()))
		}
		return nil, err
	}

	s.recordEvent(ctx, uploadEvent(file))
	s.recordEvent(ctx, validationEvent(in, report, true))

	s.log.InfoContext(ctx, "upload processed",
		slog.Int64("file_id", file.ID),
		slog.Int64("user_id", in.UserID),
		slog.Int("rows", report.RowCount),
		slog.Int("findings", len(report.Findings)),
		slog.String("encoding", report.Encoding))

	return &UploadResult{File: file, Report: report}, nil
}

func (s *Service) extensionAllowed(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range s.cfg.AllowedExtensions {
		if ext == strings.ToLower(strings.TrimPrefix(allowed, ".")) {
			return true
		}
	}
	return false
}

// objectKey builds the storage key for an upload. Keys are namespaced per
// user and carry a timestamp plus a random suffix so names never collide.
func objectKey(userID int64, filename string) string {
	ts := time.Now().UTC().Format("20060102_150405")
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".csv"
	}
	return fmt.Sprintf("uploads/%d/%s_%s%s", userID, ts, uuid.NewString(), ext)
}

// dataRows converts the report's parsed rows to storage records. Each row
// is serialized as a JSON object mapping column name to raw cell value.
func dataRows(report *csvcheck.Report) ([]store.CSVRow, error) {
	rows := make([]store.CSVRow, 0, len(report.Table.Rows))
	for _, r := range report.Table.Rows {
		data, err := json.Marshal(r.Cells)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", r.Num, err)
		}
		rows = append(rows, store.CSVRow{RowNumber: r.Num, Data: string(data)})
	}
	return rows, nil
}

// findingRecords converts report findings to storage records, preserving
// report order.
func findingRecords(report *csvcheck.Report) []store.Validation {
	out := make([]store.Validation, 0, len(report.Findings))
	for _, f := range report.Findings {
		v := store.Validation{
			Type:     string(f.Kind),
			Message:  f.Message,
			Severity: string(f.Severity),
		}
		if f.Row > 0 {
			n := int32(f.Row)
			v.RowNumber = &n
		}
		if f.Column != "" {
			c := f.Column
			v.ColumnName = &c
		}
		out = append(out, v)
	}
	return out
}

func uploadEvent(file *store.UploadedFile) store.Event {
	fileID := file.ID
	userID := file.UserID
	return store.Event{
		Type:        store.EventUpload,
		Description: fmt.Sprintf("uploaded %s (%d rows)", file.OriginalFilename, file.RowCount),
		UserID:      &userID,
		FileID:      &fileID,
	}
}

func validationEvent(in UploadInput, report *csvcheck.Report, accepted bool) store.Event {
	userID := in.UserID
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	meta, _ := json.Marshal(map[string]any{
		"outcome":  outcome,
		"findings": len(report.Findings),
		"rows":     report.RowCount,
		"encoding": report.Encoding,
	})
	m := string(meta)
	return store.Event{
		Type:        store.EventValidation,
		Description: fmt.Sprintf("validated %s: %s", in.Filename, outcome),
		UserID:      &userID,
		Metadata:    &m,
	}
}
