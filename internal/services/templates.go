package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"lawdesk/internal/auth"
	"lawdesk/internal/core"
	"lawdesk/internal/storage"
)

type (
	NewTemplate struct {
		Name         string                `json:"name"`
		TemplateType core.TemplateType     `json:"template_type"`
		Content      string                `json:"content"`
		Variables    []string              `json:"variables"`
		Category     core.TemplateCategory `json:"category"`
		IsPublic     *bool                 `json:"is_public"`
	}

	TemplatePatch struct {
		Name         *string                `json:"name"`
		TemplateType *core.TemplateType     `json:"template_type"`
		Content      *string                `json:"content"`
		Variables    []string               `json:"variables"`
		Category     *core.TemplateCategory `json:"category"`
		IsPublic     *bool                  `json:"is_public"`
	}
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

type TemplateService struct {
	repo   *storage.SQLiteRepository
	policy *auth.Policy
}

func NewTemplateService(repo *storage.SQLiteRepository, policy *auth.Policy) *TemplateService {
	return &TemplateService{repo: repo, policy: policy}
}

// List returns public templates and the caller's own.
func (s *TemplateService) List(ctx context.Context, f core.TemplateFilter, lq core.ListQuery) (Page[core.Template], error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindTemplate); err != nil {
		return Page[core.Template]{}, err
	}
	f.ViewerID = principal(ctx).UserID
	items, total, err := s.repo.ListTemplates(ctx, f, normalizeQuery(lq))
	if err != nil {
		return Page[core.Template]{}, err
	}
	return Page[core.Template]{Items: items, Total: total}, nil
}

// Get hides private templates of other users behind NotFound.
func (s *TemplateService) Get(ctx context.Context, id int64) (core.Template, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindTemplate); err != nil {
		return core.Template{}, err
	}
	t, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return core.Template{}, err
	}
	p := principal(ctx)
	if !t.IsPublic && !p.IsAdmin() && !ownedBy(t, p.UserID) {
		return core.Template{}, core.NotFound("template", id)
	}
	return t, nil
}

func ownedBy(t core.Template, userID int64) bool {
	return t.CreatedBy != nil && *t.CreatedBy == userID
}

func (s *TemplateService) Create(ctx context.Context, in NewTemplate) (core.Template, error) {
	if err := s.policy.Check(ctx, auth.ActionCreate, auth.KindTemplate); err != nil {
		return core.Template{}, err
	}
	t := core.Template{
		Name:         strings.TrimSpace(in.Name),
		TemplateType: in.TemplateType,
		Content:      in.Content,
		Variables:    in.Variables,
		Category:     in.Category,
		IsPublic:     true,
		CreatedBy:    actorID(ctx),
	}
	if in.IsPublic != nil {
		t.IsPublic = *in.IsPublic
	}
	if t.Category == "" {
		t.Category = core.TemplateGeneral
	}
	if len(t.Variables) == 0 {
		t.Variables = Placeholders(t.Content)
	}
	if err := t.Validate(); err != nil {
		return core.Template{}, err
	}
	created, err := s.repo.CreateTemplate(ctx, t)
	if err != nil {
		return core.Template{}, err
	}
	slog.InfoContext(ctx, "Template created", "template_id", created.ID)
	return created, nil
}

// requireOwner allows the creator or an administrator.
func (s *TemplateService) requireOwner(ctx context.Context, t core.Template) error {
	p := principal(ctx)
	if p.IsAdmin() || ownedBy(t, p.UserID) {
		return nil
	}
	return core.Forbidden("only the template owner or an administrator may change it")
}

func (s *TemplateService) Update(ctx context.Context, id int64, p TemplatePatch) (core.Template, error) {
	if err := s.policy.Check(ctx, auth.ActionUpdate, auth.KindTemplate); err != nil {
		return core.Template{}, err
	}
	t, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return core.Template{}, err
	}
	if err := s.requireOwner(ctx, t); err != nil {
		return core.Template{}, err
	}
	trimPtr(&t.Name, p.Name)
	if p.TemplateType != nil {
		t.TemplateType = *p.TemplateType
	}
	if p.Content != nil {
		t.Content = *p.Content
	}
	if p.Variables != nil {
		t.Variables = p.Variables
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.IsPublic != nil {
		t.IsPublic = *p.IsPublic
	}
	if err := t.Validate(); err != nil {
		return core.Template{}, err
	}
	if err := s.repo.UpdateTemplate(ctx, t); err != nil {
		return core.Template{}, err
	}
	return s.repo.GetTemplate(ctx, id)
}

func (s *TemplateService) Delete(ctx context.Context, id int64) error {
	if err := s.policy.Check(ctx, auth.ActionDelete, auth.KindTemplate); err != nil {
		return err
	}
	t, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireOwner(ctx, t); err != nil {
		return err
	}
	if err := s.repo.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Template deleted", "template_id", id)
	return nil
}

// Render loads the template and fills it from values.
func (s *TemplateService) Render(ctx context.Context, id int64, values map[string]any) (string, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return Render(t.Content, values), nil
}

// Render replaces each {{key}} in content with values[key]. Keys present
// with a nil or empty value render as "", unknown keys are left untouched.
func Render(content string, values map[string]any) string {
	return placeholder.ReplaceAllStringFunc(content, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, ok := values[key]
		if !ok {
			return m
		}
		return renderValue(v)
	})
}

func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if !x {
			return ""
		}
		return "true"
	case float64:
		if x == 0 {
			return ""
		}
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", x), "0"), ".")
	default:
		return fmt.Sprint(x)
	}
}

// Placeholders lists the distinct keys referenced by content, in order of
// first appearance.
func Placeholders(content string) []string {
	seen := map[string]bool{}
	keys := []string{}
	for _, m := range placeholder.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}
