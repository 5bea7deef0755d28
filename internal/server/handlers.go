// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pdiddy/protocol-analyzer/internal/ingest"
	"github.com/pdiddy/protocol-analyzer/internal/report"
	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

const multipartMemory = 32 << 20

// handleUpload analyzes an uploaded protocol. Request problems are 400s;
// analysis failures are a 200 carrying a failed AnalysisResult.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.respondError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.respondError(w, http.StatusBadRequest, "no file selected")
		return
	}
	if !ingest.Supported(header.Filename, s.config.AllowedExtensions) {
		s.respondError(w, http.StatusBadRequest, "only "+strings.Join(s.config.AllowedExtensions, ", ")+" files are allowed")
		return
	}

	name := filepath.Base(header.Filename)
	s.logger.Debug("upload", zap.String("filename", name), zap.Int64("size", header.Size))

	text, err := s.deps.Ingest.ExtractText(file, name)
	if err != nil {
		s.logger.Warn("document extraction failed", zap.String("filename", name), zap.Error(err))
		s.respondJSON(w, http.StatusOK, types.AnalysisResult{
			Success:   false,
			Error:     err.Error(),
			Timestamp: s.now().Format(types.TimestampLayout),
		})
		return
	}

	s.respondJSON(w, http.StatusOK, s.deps.Analyzer.Extract(r.Context(), text))
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	drug := strings.TrimSpace(chi.URLParam(r, "drug"))
	if drug == "" {
		s.respondError(w, http.StatusBadRequest, "drug name is required")
		return
	}
	condition := r.URL.Query().Get("condition")
	s.respondJSON(w, http.StatusOK, s.deps.Researcher.Aggregate(r.Context(), drug, condition))
}

// exportRequest is an AnalysisResult with optional research keyed by drug id.
type exportRequest struct {
	types.AnalysisResult
	Research map[string]types.ResearchEnvelope `json:"research,omitempty"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "no data to export")
		return
	}
	for id, env := range req.Research {
		req.Research[id] = env.Normalized()
	}

	rep, err := s.deps.Reports.Generate(r.Context(), report.Document{Analysis: req.AnalysisResult, Research: req.Research}, format)
	if err != nil {
		s.logger.Error("report generation failed", zap.String("format", string(format)), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "report generation failed: "+err.Error())
		return
	}

	url := "/api/download/" + rep.Filename
	s.respondJSON(w, http.StatusOK, map[string]string{
		string(format) + "_url": url,
		"url":                   url,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	f, rep, err := s.deps.Reports.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "file not found")
			return
		}
		s.logger.Error("opening report failed", zap.String("filename", name), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "download failed")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.Filename))
	http.ServeContent(w, r, rep.Filename, rep.CreatedAt, f)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": s.deps.Version,
		"services": map[string]bool{
			"ai":              s.deps.AIConfigured,
			"gemini_ai":       s.deps.AIConfigured,
			"pubmed":          true,
			"clinical_trials": true,
			"fda":             true,
		},
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
