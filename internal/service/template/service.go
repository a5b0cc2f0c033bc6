package template

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/pkg/errors"
)

type TemplateServicer interface {
	CreateTemplate(ctx context.Context, tpl *model.MessageTemplate) error
	GetTemplate(ctx context.Context, id uuid.UUID) (*model.MessageTemplate, error)
	UpdateTemplate(ctx context.Context, tpl *model.MessageTemplate) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
	ListTemplates(ctx context.Context) ([]*model.MessageTemplate, error)
	Render(ctx context.Context, templateID uuid.UUID, payload map[string]interface{}) (subject, body string, err error)
}

type Service struct {
	repo repository.TemplateRepository
}

func NewService(repo repository.TemplateRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateTemplate(ctx context.Context, tpl *model.MessageTemplate) error {
	if err := validateTemplate(tpl); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*model.MessageTemplate, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) UpdateTemplate(ctx context.Context, tpl *model.MessageTemplate) error {
	if err := validateTemplate(tpl); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, tpl); err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	return nil
}

func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListTemplates(ctx context.Context) ([]*model.MessageTemplate, error) {
	return s.repo.List(ctx)
}

// placeholderPattern matches {{field}} with optional inner whitespace.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// Render substitutes {{field}} placeholders in the stored template from
// the payload. Unknown fields render as empty strings rather than
// failing the dispatch.
func (s *Service) Render(ctx context.Context, templateID uuid.UUID, payload map[string]interface{}) (string, string, error) {
	tpl, err := s.repo.Get(ctx, templateID)
	if err != nil {
		return "", "", fmt.Errorf("failed to load template: %w", err)
	}
	return substitute(tpl.Subject, payload), substitute(tpl.Body, payload), nil
}

func substitute(text string, payload map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		field := placeholderPattern.FindStringSubmatch(match)[1]
		return stringify(payload[field])
	})
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func validateTemplate(tpl *model.MessageTemplate) error {
	if strings.TrimSpace(tpl.Name) == "" {
		return errors.NewValidation("template name is required")
	}
	if !tpl.Channel.Valid() {
		return errors.NewValidation(fmt.Sprintf("unknown channel %q", tpl.Channel))
	}
	if strings.TrimSpace(tpl.Body) == "" {
		return errors.NewValidation("template body is required")
	}
	return nil
}
