package web

import (
	"bytes"
	"io"
	"net/http"
	"strings"
)

// uploadedFile reads the multipart "file" field, enforcing the configured
// size limit. The whole extract is buffered; analysis needs random access to
// columns so streaming would not help.
func (s *Server) uploadedFile(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, "", err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}

// handleRecode derives the analysis columns and echoes them back, capped at
// the configured row limit.
func (s *Server) handleRecode(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.uploadedFile(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}

	records, err := s.service.RecodeTable(r.Context(), data, filename, r.FormValue("weight_col"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, map[string]any{
		"rows": records,
		"n":    len(records),
	})
}

// handlePrevalence computes weighted prevalence, optionally grouped.
func (s *Server) handlePrevalence(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.uploadedFile(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}

	results, err := s.service.Prevalence(r.Context(), data, filename,
		r.FormValue("by"), r.FormValue("weight_col"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, results)
}

// handlePrevalencePlot renders the grouped prevalence as a PNG bar chart.
func (s *Server) handlePrevalencePlot(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.uploadedFile(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}

	// Render into a buffer so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := s.service.PrevalencePNG(r.Context(), &buf, data, filename,
		r.FormValue("by"), r.FormValue("weight_col")); err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

// handleLogit fits the weighted logistic regression.
func (s *Server) handleLogit(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.uploadedFile(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}

	result, err := s.service.Logit(r.Context(), data, filename,
		parseCovariates(r.FormValue("covars")), r.FormValue("weight_col"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, result)
}

// parseCovariates splits a comma-separated covariate list, dropping blanks.
func parseCovariates(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	covars := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			covars = append(covars, p)
		}
	}
	return covars
}
