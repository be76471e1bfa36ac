package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/jonathan/contract-auditor/internal/export"
	"github.com/jonathan/contract-auditor/internal/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// UpdateRequest represents the request body for PUT /api/contracts/{id}
type UpdateRequest struct {
	ExtractedData *types.ExtractedData `json:"extracted_data"`
	HumanApproved bool                 `json:"human_approved"`
	ReviewerNotes *string              `json:"reviewer_notes,omitempty"`
}

// HealthResponse represents the response for /health
type HealthResponse struct {
	Status          string `json:"status"`
	Database        string `json:"database"`
	ModelConfigured bool   `json:"model_configured"`
}

// RuleResponse describes one entry of the active rule table
type RuleResponse struct {
	ID           string `json:"id"`
	Field        string `json:"field"`
	Severity     string `json:"severity"`
	ReviewReason string `json:"review_reason,omitempty"`
}

// RulesResponse represents the response for /api/rules
type RulesResponse struct {
	ConfidenceThreshold float64        `json:"confidence_threshold"`
	Rules               []RuleResponse `json:"rules"`
}

// handleHealth reports store connectivity and whether a model is configured
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.service.Health(r.Context())

	resp := HealthResponse{Status: "ok", Database: "connected", ModelConfigured: h.ModelConfigured}
	status := http.StatusOK
	if !h.Store {
		resp.Status = "degraded"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
		s.logger.Warn("http.health.degraded", "error", h.StoreError)
	}
	s.jsonResponse(w, status, resp)
}

// handleRules returns the active rule table and confidence threshold
func (s *Server) handleRules(w http.ResponseWriter, _ *http.Request) {
	table := s.service.Rules()
	resp := RulesResponse{
		ConfidenceThreshold: s.service.Threshold(),
		Rules:               make([]RuleResponse, 0, len(table)),
	}
	for _, rule := range table {
		resp.Rules = append(resp.Rules, RuleResponse{
			ID:           rule.ID,
			Field:        rule.Field,
			Severity:     string(rule.Severity),
			ReviewReason: rule.ReviewReason,
		})
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleAudit runs the pipeline over an uploaded document (multipart field "file")
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+(1<<20))

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "Invalid multipart body: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		verr := &ErrValidation{Field: "file", Message: "is required"}
		s.errorResponse(w, HTTPStatus(verr), verr.Error())
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > s.maxUploadBytes {
		s.errorResponse(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Failed to read file: "+err.Error())
		return
	}

	contract, err := s.service.Audit(r.Context(), data, header.Filename)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, contract)
}

// handleListContracts lists contracts, optionally filtered by status and requires_review
func (s *Server) handleListContracts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	list, err := s.service.List(r.Context(), filter)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, list)
}

// handleExportContracts returns the filtered listing as an XLSX workbook
func (s *Server) handleExportContracts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	list, err := s.service.List(r.Context(), filter)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	data, err := export.ContractsXLSX(list.Contracts)
	if err != nil {
		s.logger.Error("http.export.failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": "contracts.xlsx"}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleGetContract returns one contract record
func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	contract, err := s.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, contract)
}

// maxUpdateBodyBytes caps a correction payload; a reviewed record is a few kilobytes.
const maxUpdateBodyBytes = 1 << 20

// handleUpdateContract applies a human correction (save or approve)
func (s *Server) handleUpdateContract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpdateBodyBytes)

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusRequestEntityTooLarge, "request body exceeds the limit")
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ExtractedData == nil {
		verr := &ErrValidation{Field: "extracted_data", Message: "is required"}
		s.errorResponse(w, HTTPStatus(verr), verr.Error())
		return
	}

	contract, err := s.service.Update(r.Context(), r.PathValue("id"), types.UpdateContractRequest{
		ExtractedData: *req.ExtractedData,
		HumanApproved: req.HumanApproved,
		ReviewerNotes: req.ReviewerNotes,
	})
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, contract)
}

// handleDeleteContract removes a contract
func (s *Server) handleDeleteContract(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleContractText returns the full cleaned text of the document
func (s *Server) handleContractText(w http.ResponseWriter, r *http.Request) {
	text, err := s.service.Text(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

// handleContractDocument returns the original uploaded bytes
func (s *Server) handleContractDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.Document(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	contentType := doc.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if disposition := mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}); disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

func parseFilter(r *http.Request) (types.ContractFilter, error) {
	var filter types.ContractFilter
	q := r.URL.Query()

	if raw := q.Get("status"); raw != "" {
		status, ok := types.ParseContractStatus(raw)
		if !ok {
			return filter, &ErrValidation{Field: "status", Message: "unknown status " + strconv.Quote(raw)}
		}
		filter.Status = &status
	}
	if raw := q.Get("requires_review"); raw != "" {
		review, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, &ErrValidation{Field: "requires_review", Message: "must be a boolean"}
		}
		filter.RequiresReview = &review
	}
	return filter, nil
}
