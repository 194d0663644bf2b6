package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/auditor"
	"formarter/compliance/pkg/checklist"
	"formarter/compliance/pkg/telemetry/logging"
)

// maxHistoryLimit caps GET /v1/audits page sizes.
const maxHistoryLimit = 500

// AuditRequest is the body of POST /v1/audits. With Text set the text is
// audited directly; otherwise DocumentID is resolved in the library.
type AuditRequest struct {
	DocumentID   string             `json:"document_id"`
	DocumentName string             `json:"document_name,omitempty"`
	Collection   string             `json:"collection,omitempty"`
	Text         string             `json:"text,omitempty"`
	Context      *checklist.Context `json:"context,omitempty"`
}

// CollectionAuditRequest is the optional body of
// POST /v1/collections/{name}/audits.
type CollectionAuditRequest struct {
	Context *checklist.Context `json:"context,omitempty"`
}

// RuleView is the catalog listing form of a rule.
type RuleView struct {
	ID            int                     `json:"item_id"`
	Category      checklist.Category      `json:"category"`
	Description   string                  `json:"description"`
	Citation      string                  `json:"citation,omitempty"`
	Severity      checklist.Severity      `json:"severity"`
	Polarity      checklist.Polarity      `json:"polarity"`
	Applicability checklist.Applicability `json:"applies_when"`
	AutoCheckable bool                    `json:"auto_checkable"`
}

// RulesResponse lists catalog rules.
type RulesResponse struct {
	Catalog string     `json:"catalog"`
	Version string     `json:"version,omitempty"`
	Rules   []RuleView `json:"rules"`
}

// HistoryResponse lists audit records.
type HistoryResponse struct {
	Records []*audit.Record `json:"records"`
	Count   int             `json:"count"`
}

func decodeBody(r *http.Request, v any, required bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && !required {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return &RequestError{Param: "body", Message: "request body is required"}
		}
		return &RequestError{Param: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

func (s *Server) handleCreateAudit(w http.ResponseWriter, r *http.Request) {
	var req AuditRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	if req.DocumentID == "" {
		writeError(w, r, &RequestError{Param: "document_id", Message: "document_id is required"})
		return
	}

	ctx := logging.WithDocumentID(r.Context(), req.DocumentID)
	var (
		rec *audit.Record
		err error
	)
	if req.Text != "" {
		rec, err = s.opts.Auditor.AuditText(ctx, auditor.TextRequest{
			DocumentID:   req.DocumentID,
			DocumentName: req.DocumentName,
			Collection:   req.Collection,
			Text:         req.Text,
			Context:      req.Context,
		})
	} else {
		rec, err = s.opts.Auditor.AuditDocument(ctx, req.DocumentID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleAuditCollection(w http.ResponseWriter, r *http.Request) {
	var req CollectionAuditRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.opts.Auditor.AuditCollection(r.Context(), r.PathValue("name"), req.Context)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := &audit.Query{
		DocumentID: q.Get("document_id"),
		Collection: q.Get("collection"),
		Status:     audit.State(q.Get("status")),
		Limit:      50,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeError(w, r, &RequestError{Param: "limit", Message: "limit must be between 1 and " + strconv.Itoa(maxHistoryLimit)})
			return
		}
		query.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, &RequestError{Param: "offset", Message: "offset must be a non-negative integer"})
			return
		}
		query.Offset = n
	}

	records, err := s.opts.Auditor.History(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []*audit.Record{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Records: records, Count: len(records)})
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	rec, err := s.opts.Auditor.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	report, err := s.opts.Auditor.Progress(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleFailingGuidance(w http.ResponseWriter, r *http.Request) {
	g, err := s.opts.Auditor.FailingGuidance(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	cat := s.opts.Auditor.Catalog()
	rules := cat.All()
	if v := r.URL.Query().Get("category"); v != "" {
		category := checklist.Category(v)
		if !category.Valid() {
			writeError(w, r, &RequestError{Param: "category", Message: "unknown category " + strconv.Quote(v)})
			return
		}
		rules = cat.ByCategory(category)
	}

	resp := RulesResponse{Catalog: cat.Name(), Version: cat.Version(), Rules: make([]RuleView, 0, len(rules))}
	for _, rule := range rules {
		resp.Rules = append(resp.Rules, RuleView{
			ID:            rule.ID,
			Category:      rule.Category,
			Description:   rule.Description,
			Citation:      rule.Citation,
			Severity:      rule.Severity,
			Polarity:      rule.Polarity,
			Applicability: rule.Applicability,
			AutoCheckable: rule.AutoCheckable,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRuleGuidance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, r, &RequestError{Param: "id", Message: "rule id must be an integer"})
		return
	}
	g, err := s.opts.Auditor.Guidance(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
