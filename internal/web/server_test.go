package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onecoremx/csvgate/internal/auth"
	"github.com/onecoremx/csvgate/internal/config"
	"github.com/onecoremx/csvgate/internal/core"
	"github.com/onecoremx/csvgate/internal/csvcheck"
	"github.com/onecoremx/csvgate/internal/store"
)

const testSecret = "test-secret-at-least-16-bytes"

func makeToken(t *testing.T, userID int64, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        fmt.Sprintf("user%d", userID),
		"id_usuario": userID,
		"rol":        role,
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type fakeService struct {
	uploadResult *core.UploadResult
	uploadErr    error
	lastUpload   core.UploadInput

	files       []store.UploadedFile
	file        *store.UploadedFile
	fileErr     error
	rows        []store.CSVRow
	validations []store.Validation
	download    []byte
}

func (f *fakeService) ProcessUpload(_ context.Context, in core.UploadInput) (*core.UploadResult, error) {
	f.lastUpload = in
	return f.uploadResult, f.uploadErr
}

func (f *fakeService) ListFiles(context.Context, *auth.Claims, int, int) ([]store.UploadedFile, error) {
	return f.files, f.fileErr
}

func (f *fakeService) GetFile(context.Context, *auth.Claims, int64) (*store.UploadedFile, error) {
	return f.file, f.fileErr
}

func (f *fakeService) FileRows(context.Context, *auth.Claims, int64, int, int) ([]store.CSVRow, error) {
	return f.rows, f.fileErr
}

func (f *fakeService) FileValidations(context.Context, *auth.Claims, int64) ([]store.Validation, error) {
	return f.validations, f.fileErr
}

func (f *fakeService) DownloadFile(context.Context, *auth.Claims, int64) (*store.UploadedFile, []byte, error) {
	return f.file, f.download, f.fileErr
}

func testVerifier(t *testing.T) *auth.Verifier {
	t.Helper()
	v, err := auth.NewVerifier(testSecret)
	require.NoError(t, err)
	return v
}

func testServer(t *testing.T, svc UploadService) *Server {
	t.Helper()
	cfg := config.Config{}
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.Upload.MaxFileSize = 1 << 20
	cfg.CORS.AllowedOrigins = []string{"*"}
	// Rate limiting stays off so tests never trip it.
	return NewServer(svc, testVerifier(t), nil, cfg)
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

// ============================================================================
// Authentication
// ============================================================================

func TestAPI_RequiresBearerToken(t *testing.T) {
	srv := testServer(t, &fakeService{})

	for _, path := range []string{"/api/files/", "/api/files/1/", "/api/files/1/rows"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := doRequest(srv, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAPI_RejectsBadToken(t *testing.T) {
	srv := testServer(t, &fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/files/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := doRequest(srv, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpload_RequiresUploaderRole(t *testing.T) {
	srv := testServer(t, &fakeService{})

	body, contentType := multipartBody(t, "data.csv", []byte("a,b\n1,2\n"))
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+makeToken(t, 7, "user"))

	rec := doRequest(srv, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// ============================================================================
// Upload
// ============================================================================

func TestUpload_Success(t *testing.T) {
	svc := &fakeService{
		uploadResult: &core.UploadResult{
			File: &store.UploadedFile{
				ID:               1,
				OriginalFilename: "data.csv",
				RowCount:         2,
				Status:           store.StatusCompleted,
				UserID:           7,
			},
			Report: &csvcheck.Report{RowCount: 2, Encoding: "utf-8"},
		},
	}
	srv := testServer(t, svc)

	body, contentType := multipartBody(t, "data.csv", []byte("a,b\n1,2\n3,4\n"))
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+makeToken(t, 7, "uploader"))

	rec := doRequest(srv, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.File.ID)
	assert.Equal(t, 2, resp.RowCount)
	assert.Equal(t, "utf-8", resp.Encoding)
	assert.NotNil(t, resp.Findings)

	assert.Equal(t, "data.csv", svc.lastUpload.Filename)
	assert.Equal(t, int64(7), svc.lastUpload.UserID)
	assert.Equal(t, []byte("a,b\n1,2\n3,4\n"), svc.lastUpload.Content)
}

func TestUpload_ValidationRejection(t *testing.T) {
	report := &csvcheck.Report{
		Findings: []csvcheck.Finding{{
			Kind:     csvcheck.KindIncorrectType,
			Row:      1,
			Column:   "precio",
			Message:  "value is not numeric",
			Severity: csvcheck.SeverityError,
		}},
		RowCount: 1,
		Encoding: "utf-8",
	}
	svc := &fakeService{uploadErr: &core.ValidationRejectedError{Report: report}}
	srv := testServer(t, svc)

	body, contentType := multipartBody(t, "data.csv", []byte("id,precio\n1,abc\n"))
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+makeToken(t, 7, "uploader"))

	rec := doRequest(srv, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Error    string             `json:"error"`
		Findings []csvcheck.Finding `json:"findings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Findings, 1)
	assert.Equal(t, csvcheck.KindIncorrectType, resp.Findings[0].Kind)
}

func TestUpload_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"bad extension", core.ErrExtensionNotAllowed, http.StatusBadRequest},
		{"empty file", core.ErrEmptyFile, http.StatusBadRequest},
		{"too large", core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"too many uploads", core.ErrTooManyUploads, http.StatusTooManyRequests},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, &fakeService{uploadErr: tt.err})

			body, contentType := multipartBody(t, "data.csv", []byte("a,b\n1,2\n"))
			req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("Authorization", "Bearer "+makeToken(t, 7, "uploader"))

			rec := doRequest(srv, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestUpload_OversizeFileReaches413(t *testing.T) {
	// A file just over the limit must parse as multipart and get the
	// service's size verdict, not die in the form parser as a 400.
	svc := &fakeService{uploadErr: core.ErrFileTooLarge}
	srv := testServer(t, svc)

	oversize := make([]byte, (1<<20)+10)
	body, contentType := multipartBody(t, "data.csv", oversize)
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+makeToken(t, 7, "uploader"))

	rec := doRequest(srv, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Len(t, svc.lastUpload.Content, (1<<20)+10)
}

func TestUpload_MissingFileField(t *testing.T) {
	srv := testServer(t, &fakeService{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("param1", "x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+makeToken(t, 7, "uploader"))

	rec := doRequest(srv, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ============================================================================
// Reads
// ============================================================================

func TestListFiles(t *testing.T) {
	svc := &fakeService{files: []store.UploadedFile{{ID: 1}, {ID: 2}}}
	srv := testServer(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/files/", nil)
	req.Header.Set("Authorization", "Bearer "+makeToken(t, 7, "user"))

	rec := doRequest(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var files []store.UploadedFile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	assert.Len(t, files, 2)
}

func TestListFiles_EmptyIsArray(t *testing.T) {
	srv := testServer(t, &fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/files/", nil)
	req.Header.Set("Authorization", "Bearer "+makeToken(t, 7, "user"))

	rec := doRequest(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestGetFile_IncludesValidations(t *testing.T) {
	col := "precio"
	svc := &fakeService{
		file: &store.UploadedFile{ID: 1, UserID: 7},
		validations: []store.Validation{
			{Type: "empty_value", ColumnName: &col, Severity: "warning"},
		},
	}
	srv := testServer(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/files/1/", nil)
	req.Header.Set("Authorization", "Bearer "+makeToken(t, 7, "user"))

	rec := doRequest(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp FileDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.File.ID)
	require.Len(t, resp.Validations, 1)
	assert.Equal(t, "empty_value", resp.Validations[0].Type)
}

func TestGetFile_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"forbidden", core.ErrForbidden, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, &fakeService{fileErr: tt.err})

			req := httptest.NewRequest(http.MethodGet, "/api/files/1/", nil)
			req.Header.Set("Authorization", "Bearer "+makeToken(t, 7, "user"))

			rec := doRequest(srv, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestGetFile_InvalidID(t *testing.T) {
	srv := testServer(t, &fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/files/abc/", nil)
	req.Header.Set("Authorization", "Bearer "+makeToken(t, 7, "user"))

	rec := doRequest(srv, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFileRows_DecodesData(t *testing.T) {
	svc := &fakeService{
		file: &store.UploadedFile{ID: 1, UserID: 7},
		rows: []store.CSVRow{
			{RowNumber: 1, Data: `{"id":"1","precio":"10.5"}`},
			{RowNumber: 2, Data: `{"id":"2","precio":"20"}`},
		},
	}
	srv := testServer(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/files/1/rows", nil)
	req.Header.Set("Authorization", "Bearer "+makeToken(t, 7, "user"))

	rec := doRequest(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []struct {
		RowNumber int               `json:"row_number"`
		Data      map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].RowNumber)
	assert.Equal(t, "10.5", rows[0].Data["precio"])
}

func TestDownload(t *testing.T) {
	content := []byte("a,b\n1,2\n")
	svc := &fakeService{
		file: &store.UploadedFile{
			ID:               1,
			OriginalFilename: "ventas.csv",
			ContentType:      "text/csv",
			UserID:           7,
		},
		download: content,
	}
	srv := testServer(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/files/1/download", nil)
	req.Header.Set("Authorization", "Bearer "+makeToken(t, 7, "user"))

	rec := doRequest(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.Bytes())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `"ventas.csv"`)
}

// ============================================================================
// Health and headers
// ============================================================================

func TestHealthz_NoAuthRequired(t *testing.T) {
	srv := testServer(t, &fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := doRequest(srv, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestHealthz_DegradedWhenDBUnreachable(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.CORS.AllowedOrigins = []string{"*"}
	srv := NewServer(&fakeService{}, testVerifier(t), failingPinger{}, cfg)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := doRequest(srv, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	srv := testServer(t, &fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := doRequest(srv, req)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)

	assert.True(t, rl.allow("1.2.3.4"))
	assert.True(t, rl.allow("1.2.3.4"))
	assert.False(t, rl.allow("1.2.3.4"))
	assert.True(t, rl.allow("5.6.7.8"))
}
