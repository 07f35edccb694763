// Package prompt renders role system prompts from a Markdown template.
//
// The template is looked up in an ordered list of candidate files. The first
// one that exists wins and is re-read on every Render, so edits show up
// without restarting. When no candidate can be used the built-in template
// takes over.
package prompt

import (
	_ "embed"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	perrors "github.com/jllopis/promptx-bridge/pkg/errors"
)

const (
	TokenRoleID          = "{{ROLE_ID}}"
	TokenRoleName        = "{{ROLE_NAME}}"
	TokenRoleDescription = "{{ROLE_DESCRIPTION}}"

	// DefaultPath is reported by TemplatePath when the built-in template is active.
	DefaultPath = "default"

	// NoDescription replaces an empty role description.
	NoDescription = "no description"
)

// DefaultCandidates are the template locations probed when none are configured.
var DefaultCandidates = []string{
	"config/templates/promptx_agent_system_prompt_template.md",
	"config/templates/promptx_agent_system_prompt.md",
	"core/config/templates/promptx_agent_system_prompt_template.md",
}

//go:embed templates/default_system_prompt.md
var defaultTemplate string

// DefaultTemplate returns the built-in template.
func DefaultTemplate() string {
	return defaultTemplate
}

// Info describes the template currently in use.
type Info struct {
	Path       string    `json:"path" yaml:"path"`
	Default    bool      `json:"default" yaml:"default"`
	Candidates []string  `json:"candidates" yaml:"candidates"`
	LoadedAt   time.Time `json:"loaded_at" yaml:"loaded_at"`
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithLogger sets the renderer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFallback replaces the built-in template used when no file is readable.
func WithFallback(template string) Option {
	return func(r *Renderer) {
		if template != "" {
			r.fallback = template
		}
	}
}

// Renderer produces system prompts for roles.
type Renderer struct {
	logger   *slog.Logger
	fallback string

	mu         sync.RWMutex
	candidates []string
	path       string
	content    string
	loadedAt   time.Time
}

// NewRenderer probes candidates and keeps the first readable one. It never
// fails: without a usable file the fallback template is active.
func NewRenderer(candidates []string, opts ...Option) *Renderer {
	r := &Renderer{
		logger:     slog.Default(),
		fallback:   defaultTemplate,
		candidates: append([]string(nil), candidates...),
	}
	for _, opt := range opts {
		opt(r)
	}
	path, content, err := load(r.candidates)
	if err != nil {
		r.logger.Warn("prompt.template.fallback",
			slog.Any("candidates", r.candidates),
			slog.String("error", err.Error()),
		)
		content = r.fallback
	} else {
		r.logger.Info("prompt.template.loaded", slog.String("path", path))
	}
	r.path = path
	r.content = content
	r.loadedAt = time.Now().UTC()
	return r
}

// Render substitutes the role fields into the template. roleID and roleName
// are required; an empty description becomes NoDescription.
func (r *Renderer) Render(roleID, roleName, roleDescription string) (string, error) {
	if roleID == "" || roleName == "" {
		return "", perrors.New(perrors.CodeInvalidInput, "role id and role name are required", nil).
			WithContext("role_id", roleID).
			WithContext("role_name", roleName)
	}
	if roleDescription == "" {
		roleDescription = NoDescription
	}

	r.mu.RLock()
	path, template := r.path, r.content
	r.mu.RUnlock()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err == nil {
			template = string(raw)
		} else {
			r.logger.Warn("prompt.template.read_failed",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}

	out := strings.NewReplacer(
		TokenRoleID, roleID,
		TokenRoleName, roleName,
		TokenRoleDescription, roleDescription,
	).Replace(template)
	r.logger.Debug("prompt.render.complete",
		slog.String("role_id", roleID),
		slog.String("template", displayPath(path)),
	)
	return out, nil
}

// Reload probes the candidates again. Unlike construction it fails when no
// candidate is readable, and the previous template stays active.
func (r *Renderer) Reload() error {
	r.mu.RLock()
	candidates := append([]string(nil), r.candidates...)
	r.mu.RUnlock()

	path, content, err := load(candidates)
	if err != nil {
		r.logger.Error("prompt.template.reload_failed", slog.String("error", err.Error()))
		return err
	}

	r.mu.Lock()
	r.path = path
	r.content = content
	r.loadedAt = time.Now().UTC()
	r.mu.Unlock()
	r.logger.Info("prompt.template.reloaded", slog.String("path", path))
	return nil
}

// TemplatePath returns the active template file, or DefaultPath.
func (r *Renderer) TemplatePath() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return displayPath(r.path)
}

// SetCandidates replaces the candidate list used by the next Reload.
func (r *Renderer) SetCandidates(candidates []string) {
	r.mu.Lock()
	r.candidates = append([]string(nil), candidates...)
	r.mu.Unlock()
}

// Info reports the active template.
func (r *Renderer) Info() Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Info{
		Path:       displayPath(r.path),
		Default:    r.path == "",
		Candidates: append([]string(nil), r.candidates...),
		LoadedAt:   r.loadedAt,
	}
}

// load returns the first existing candidate and its content.
func load(candidates []string) (string, string, error) {
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		raw, err := os.ReadFile(candidate)
		if err != nil {
			return "", "", perrors.New(perrors.CodeTemplateUnreadable, "read template", err).
				WithContext("path", candidate)
		}
		return candidate, string(raw), nil
	}
	return "", "", perrors.New(perrors.CodeTemplateUnreadable, "no template found", nil).
		WithContext("candidates", candidates)
}

func displayPath(path string) string {
	if path == "" {
		return DefaultPath
	}
	return path
}
