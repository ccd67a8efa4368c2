package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/onecoremx/csvgate/internal/auth"
	"github.com/onecoremx/csvgate/internal/core"
	"github.com/onecoremx/csvgate/internal/csvcheck"
	"github.com/onecoremx/csvgate/internal/store"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// UploadResponse is the JSON body for a successful upload.
type UploadResponse struct {
	File     *store.UploadedFile `json:"file"`
	Findings []csvcheck.Finding  `json:"findings"`
	RowCount int                 `json:"row_count"`
	Encoding string              `json:"encoding"`
}

// FileDetailResponse is one upload with its validation findings.
type FileDetailResponse struct {
	File        *store.UploadedFile `json:"file"`
	Validations []store.Validation  `json:"validations"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}

	// Cap the body with headroom for multipart framing so oversize files
	// reach the service's size check instead of failing the form parse.
	const multipartOverhead = 1 << 20
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileSize + multipartOverhead); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "could not read file")
		return
	}

	result, err := s.service.ProcessUpload(r.Context(), core.UploadInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
		Param1:      r.FormValue("param1"),
		Param2:      r.FormValue("param2"),
		UserID:      claims.UserID,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	findings := result.Report.Findings
	if findings == nil {
		findings = []csvcheck.Finding{}
	}
	writeJSON(w, http.StatusCreated, UploadResponse{
		File:     result.File,
		Findings: findings,
		RowCount: result.Report.RowCount,
		Encoding: result.Report.Encoding,
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}

	limit, offset := pagination(r)
	files, err := s.service.ListFiles(r.Context(), claims, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if files == nil {
		files = []store.UploadedFile{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	claims, fileID, ok := s.fileRequest(w, r)
	if !ok {
		return
	}

	file, err := s.service.GetFile(r.Context(), claims, fileID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	validations, err := s.service.FileValidations(r.Context(), claims, fileID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if validations == nil {
		validations = []store.Validation{}
	}
	writeJSON(w, http.StatusOK, FileDetailResponse{File: file, Validations: validations})
}

func (s *Server) handleFileRows(w http.ResponseWriter, r *http.Request) {
	claims, fileID, ok := s.fileRequest(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	rows, err := s.service.FileRows(r.Context(), claims, fileID, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	// Each row's data is a JSON object; decode so clients get structured
	// rows rather than double-encoded strings.
	type rowResponse struct {
		RowNumber int               `json:"row_number"`
		Data      map[string]string `json:"data"`
	}
	out := make([]rowResponse, 0, len(rows))
	for _, row := range rows {
		var data map[string]string
		if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
			writeError(w, r, http.StatusInternalServerError, "corrupt row data")
			return
		}
		out = append(out, rowResponse{RowNumber: row.RowNumber, Data: data})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	claims, fileID, ok := s.fileRequest(w, r)
	if !ok {
		return
	}

	file, content, err := s.service.DownloadFile(r.Context(), claims, fileID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", file.OriginalFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// fileRequest extracts the caller's claims and the fileID path parameter.
func (s *Server) fileRequest(w http.ResponseWriter, r *http.Request) (*auth.Claims, int64, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return nil, 0, false
	}
	fileID, err := strconv.ParseInt(chi.URLParam(r, "fileID"), 10, 64)
	if err != nil || fileID <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid file ID")
		return nil, 0, false
	}
	return claims, fileID, true
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = min(n, maxPageSize)
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}
