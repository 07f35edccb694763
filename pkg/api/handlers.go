package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jllopis/promptx-bridge/pkg/audit"
	perrors "github.com/jllopis/promptx-bridge/pkg/errors"
	"github.com/jllopis/promptx-bridge/pkg/promptx"
)

// TemplateHeader names the template a generated prompt came from. The
// prompt itself is the envelope data.
const TemplateHeader = "X-PromptX-Template"

const (
	msgNotInitialized = "promptx service not initialized, check the mcp configuration"
	msgUnavailable    = "promptx service unavailable"
)

// StatusResponse is the payload of GET /status.
type StatusResponse struct {
	Configured bool              `json:"configured"`
	Available  bool              `json:"available"`
	Tools      promptx.ToolNames `json:"tools"`
	Template   string            `json:"template"`
}

// GeneratePromptRequest accepts snake_case and camelCase field names.
type GeneratePromptRequest struct {
	RoleID               string `json:"role_id"`
	RoleIDCamel          string `json:"roleId"`
	RoleName             string `json:"role_name"`
	RoleNameCamel        string `json:"roleName"`
	RoleDescription      string `json:"role_description"`
	RoleDescriptionCamel string `json:"roleDescription"`
}

func (req GeneratePromptRequest) fields() (id, name, description string) {
	return firstNonEmpty(req.RoleID, req.RoleIDCamel),
		firstNonEmpty(req.RoleName, req.RoleNameCamel),
		firstNonEmpty(req.RoleDescription, req.RoleDescriptionCamel)
}

// RecallRequest is the body of POST /roles/{id}/recall. A missing query
// requests a panoramic recall.
type RecallRequest struct {
	Query *string `json:"query"`
	Mode  string  `json:"mode"`
}

// RememberRequest is the body of POST /roles/{id}/remember.
type RememberRequest struct {
	Engrams []promptx.Engram `json:"engrams"`
}

// ToolResponse is the payload of the role lifecycle endpoints.
type ToolResponse struct {
	RoleID  string             `json:"role_id"`
	Content string             `json:"content"`
	Result  promptx.ToolResult `json:"result"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Template: s.renderer.TemplatePath()}
	if s.svc != nil {
		resp.Configured = s.svc.Configured()
		resp.Available = s.svc.IsAvailable(r.Context())
		resp.Tools = s.svc.Tools()
	}
	writeOK(w, resp)
}

func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w, r) {
		return
	}
	roles, err := s.svc.Discover(r.Context())
	if err != nil {
		s.writeError(w, r, "discover roles", err)
		return
	}
	if grouped, _ := strconv.ParseBool(r.URL.Query().Get("grouped")); grouped {
		writeOK(w, promptx.GroupBySource(roles))
		return
	}
	writeOK(w, roles)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w, r) {
		return
	}
	roleID := chi.URLParam(r, "roleID")
	result, err := s.svc.Activate(r.Context(), roleID)
	if err != nil {
		s.writeError(w, r, "activate role", err)
		return
	}
	s.writeToolResult(w, r, roleID, result)
}

func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w, r) {
		return
	}
	var req RecallRequest
	if err := decodeBody(r, &req, true); err != nil {
		s.writeError(w, r, "recall", err)
		return
	}
	roleID := chi.URLParam(r, "roleID")
	result, err := s.svc.Recall(r.Context(), roleID, req.Query, promptx.RecallMode(req.Mode))
	if err != nil {
		s.writeError(w, r, "recall", err)
		return
	}
	s.writeToolResult(w, r, roleID, result)
}

func (s *Server) handleRemember(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w, r) {
		return
	}
	var req RememberRequest
	if err := decodeBody(r, &req, false); err != nil {
		s.writeError(w, r, "remember", err)
		return
	}
	if len(req.Engrams) == 0 {
		s.writeError(w, r, "remember", perrors.New(perrors.CodeInvalidInput, "at least one engram is required", nil))
		return
	}
	roleID := chi.URLParam(r, "roleID")
	result, err := s.svc.Remember(r.Context(), roleID, req.Engrams)
	if err != nil {
		s.writeError(w, r, "remember", err)
		return
	}
	s.writeToolResult(w, r, roleID, result)
}

func (s *Server) handleGeneratePrompt(w http.ResponseWriter, r *http.Request) {
	var req GeneratePromptRequest
	if err := decodeBody(r, &req, false); err != nil {
		s.writeError(w, r, "generate prompt", err)
		return
	}
	id, name, description := req.fields()
	var missing []string
	if id == "" {
		missing = append(missing, "role_id")
	}
	if name == "" {
		missing = append(missing, "role_name")
	}
	if description == "" {
		missing = append(missing, "role_description")
	}
	if len(missing) > 0 {
		s.writeError(w, r, "generate prompt", perrors.Newf(perrors.CodeInvalidInput,
			"missing required fields: %s", strings.Join(missing, ", ")))
		return
	}
	out, err := s.renderer.Render(id, name, description)
	if err != nil {
		s.writeError(w, r, "generate prompt", err)
		return
	}
	w.Header().Set(TemplateHeader, s.renderer.TemplatePath())
	writeOK(w, out)
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	writeOK(w, s.renderer.Info())
}

func (s *Server) handleTemplateReload(w http.ResponseWriter, r *http.Request) {
	if err := s.renderer.Reload(); err != nil {
		s.writeError(w, r, "reload template", err)
		return
	}
	writeOK(w, s.renderer.Info())
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeFail(w, http.StatusNotFound, "audit log disabled")
		return
	}
	q := r.URL.Query()
	filter := audit.Filter{
		Tool:    q.Get("tool"),
		Role:    q.Get("role"),
		Outcome: q.Get("outcome"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, r, "list audit", perrors.Newf(perrors.CodeInvalidInput, "invalid limit %q", raw))
			return
		}
		filter.Limit = limit
	}
	records, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, "list audit", err)
		return
	}
	if records == nil {
		records = []audit.Record{}
	}
	writeOK(w, records)
}

// ready answers 500 when no PromptX connection exists and 503 when the
// probe found no PromptX tools.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) bool {
	if s.svc == nil || !s.svc.Configured() {
		s.logger.ErrorContext(r.Context(), "api.promptx.not_initialized", "path", r.URL.Path)
		writeFail(w, http.StatusInternalServerError, msgNotInitialized)
		return false
	}
	if !s.svc.IsAvailable(r.Context()) {
		s.logger.WarnContext(r.Context(), "api.promptx.unavailable", "path", r.URL.Path)
		writeFail(w, http.StatusServiceUnavailable, msgUnavailable)
		return false
	}
	return true
}

func (s *Server) writeToolResult(w http.ResponseWriter, r *http.Request, roleID string, result promptx.ToolResult) {
	text, _, err := promptx.Extract(result)
	if err != nil {
		s.writeError(w, r, "tool call", err)
		return
	}
	writeOK(w, ToolResponse{RoleID: roleID, Content: text, Result: result})
}

// decodeBody reads a JSON body into v. With allowEmpty an absent body leaves
// v untouched.
func decodeBody(r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return perrors.New(perrors.CodeInvalidInput, "invalid JSON body", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
