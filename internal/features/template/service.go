package template

import (
	"context"
	"errors"

	"go-reporting/pkg/utils"
)

var ErrTemplateInUse = errors.New("template is referenced by a report config or generated report")

// ReferenceChecker reports whether any report config or generated report
// still points at a template. Wired in main to avoid a dependency cycle
// with the config and report features.
type ReferenceChecker interface {
	TemplateReferenced(ctx context.Context, templateID string) (bool, error)
}

type TemplateService interface {
	CreateTemplate(ctx context.Context, t *ReportTemplate) error
	GetTemplate(ctx context.Context, id string) (*ReportTemplate, error)
	ListTemplates(ctx context.Context, category string) ([]ReportTemplate, error)
	UpdateTemplate(ctx context.Context, id string, t *ReportTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
	ListVersions(ctx context.Context, id string) ([]TemplateVersion, error)
	Preview(ctx context.Context, id string, vars map[string]any) (string, error)
}

type TemplateServiceImpl struct {
	Repo TemplateRepository
	Refs ReferenceChecker
}

func NewTemplateService(repo TemplateRepository, refs ReferenceChecker) TemplateService {
	return &TemplateServiceImpl{Repo: repo, Refs: refs}
}

func (s *TemplateServiceImpl) CreateTemplate(ctx context.Context, t *ReportTemplate) error {
	if t.Name == "" {
		return errors.New("template name is required")
	}
	if t.Body == "" {
		return errors.New("template body is required")
	}
	if err := validateVariables(t.Variables); err != nil {
		return err
	}

	if claims, ok := ctx.Value(utils.UserClaimsKey).(*utils.UserClaims); ok {
		t.CreatedBy = claims.UserID
	}

	return s.Repo.Create(ctx, t)
}

func (s *TemplateServiceImpl) GetTemplate(ctx context.Context, id string) (*ReportTemplate, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *TemplateServiceImpl) ListTemplates(ctx context.Context, category string) ([]ReportTemplate, error) {
	return s.Repo.List(ctx, category)
}

// UpdateTemplate applies a versioned update: the current revision is
// snapshotted before the new body/variables replace it, and the version
// counter is bumped. Reports generated against the old revision keep their
// history through the snapshot.
func (s *TemplateServiceImpl) UpdateTemplate(ctx context.Context, id string, t *ReportTemplate) error {
	if err := validateVariables(t.Variables); err != nil {
		return err
	}

	current, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	snapshot := &TemplateVersion{
		TemplateID: current.ID,
		Version:    current.Version,
		Body:       current.Body,
		Variables:  current.Variables,
		CreatedBy:  current.CreatedBy,
	}
	if err := s.Repo.AppendVersion(ctx, snapshot); err != nil {
		return err
	}

	current.Name = pickNonEmpty(t.Name, current.Name)
	current.Category = pickNonEmpty(t.Category, current.Category)
	current.Body = t.Body
	current.Variables = t.Variables
	current.Version++

	return s.Repo.Update(ctx, current)
}

func (s *TemplateServiceImpl) DeleteTemplate(ctx context.Context, id string) error {
	t, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	referenced, err := s.Refs.TemplateReferenced(ctx, t.ID.Hex())
	if err != nil {
		return err
	}
	if referenced {
		return ErrTemplateInUse
	}

	return s.Repo.Delete(ctx, id)
}

func (s *TemplateServiceImpl) ListVersions(ctx context.Context, id string) ([]TemplateVersion, error) {
	if _, err := s.Repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.Repo.ListVersions(ctx, id)
}

// Preview renders a template against a caller-supplied variable bag using
// the same pure renderer generation uses.
func (s *TemplateServiceImpl) Preview(ctx context.Context, id string, vars map[string]any) (string, error) {
	t, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	bag, err := ResolveVariables(t.Variables, vars)
	if err != nil {
		return "", err
	}

	return Render(t.Body, bag), nil
}

func validateVariables(vars []TemplateVariable) error {
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		if v.Name == "" {
			return errors.New("template variable name is required")
		}
		if seen[v.Name] {
			return errors.New("duplicate template variable: " + v.Name)
		}
		seen[v.Name] = true
	}
	return nil
}

func pickNonEmpty(val, fallback string) string {
	if val != "" {
		return val
	}
	return fallback
}
