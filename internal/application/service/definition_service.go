package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/aflo-dev/aflo/internal/application/broker"
	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/application/validator"
	"github.com/aflo-dev/aflo/internal/application/workflow"
	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/entity"
)

const (
	patternKeyPrefix  = "pattern:"
	templateKeyPrefix = "template:"
)

// DefinitionService manages workflow patterns and ticket templates. Reads are
// served through the definition cache, so it also satisfies the engine's
// DefinitionReader.
type DefinitionService interface {
	port.DefinitionReader

	GetPatternByCode(ctx context.Context, code string) (*entity.WorkflowPattern, error)
	ListPatterns(ctx context.Context) ([]*entity.WorkflowPattern, error)
	ListTemplates(ctx context.Context) ([]*entity.TicketTemplate, error)

	CreatePattern(ctx context.Context, caller entity.Caller, pattern *entity.WorkflowPattern) error
	DeletePattern(ctx context.Context, caller entity.Caller, id string) error
	CreateTemplate(ctx context.Context, caller entity.Caller, template *entity.TicketTemplate) error
	DeleteTemplate(ctx context.Context, caller entity.Caller, id string) error

	// Seed creates the patterns and templates that do not exist yet and
	// returns how many were created.
	Seed(ctx context.Context, patterns []*entity.WorkflowPattern, templates []*entity.TicketTemplate) (int, error)
}

type definitionServiceImpl struct {
	patterns  port.PatternRepository
	templates port.TemplateRepository
	tickets   port.TicketRepository
	registry  *broker.Registry
	cache     port.DefinitionCache
	ttl       time.Duration
	logger    Logger
}

// NewDefinitionService creates a new DefinitionService
func NewDefinitionService(
	patterns port.PatternRepository,
	templates port.TemplateRepository,
	tickets port.TicketRepository,
	registry *broker.Registry,
	cache port.DefinitionCache,
	ttl time.Duration,
	logger Logger,
) DefinitionService {
	return &definitionServiceImpl{
		patterns:  patterns,
		templates: templates,
		tickets:   tickets,
		registry:  registry,
		cache:     cache,
		ttl:       ttl,
		logger:    logger,
	}
}

// GetPattern returns a live pattern by ID
func (s *definitionServiceImpl) GetPattern(ctx context.Context, id string) (*entity.WorkflowPattern, error) {
	var cached entity.WorkflowPattern
	if s.cacheGet(ctx, patternKeyPrefix+id, &cached) {
		return &cached, nil
	}
	p, err := s.patterns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, patternKeyPrefix+id, p)
	return p, nil
}

// GetTemplate returns a live template by ID
func (s *definitionServiceImpl) GetTemplate(ctx context.Context, id string) (*entity.TicketTemplate, error) {
	var cached entity.TicketTemplate
	if s.cacheGet(ctx, templateKeyPrefix+id, &cached) {
		return &cached, nil
	}
	t, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, templateKeyPrefix+id, t)
	return t, nil
}

func (s *definitionServiceImpl) GetPatternByCode(ctx context.Context, code string) (*entity.WorkflowPattern, error) {
	return s.patterns.GetByCode(ctx, code)
}

func (s *definitionServiceImpl) ListPatterns(ctx context.Context) ([]*entity.WorkflowPattern, error) {
	return s.patterns.List(ctx)
}

func (s *definitionServiceImpl) ListTemplates(ctx context.Context) ([]*entity.TicketTemplate, error) {
	return s.templates.List(ctx)
}

// CreatePattern stores a pattern after checking its graph
func (s *definitionServiceImpl) CreatePattern(ctx context.Context, caller entity.Caller, pattern *entity.WorkflowPattern) error {
	if !caller.IsAdmin {
		return apperr.Forbidden("only administrators may create workflow patterns")
	}
	return s.createPattern(ctx, pattern)
}

func (s *definitionServiceImpl) createPattern(ctx context.Context, pattern *entity.WorkflowPattern) error {
	if pattern.Code == "" {
		return apperr.InvalidParameterValue("code is required")
	}
	if err := workflow.CheckPattern(pattern.Contents); err != nil {
		return apperr.Wrap(apperr.KindInvalidParameterValue, err, "invalid workflow pattern %s", pattern.Code)
	}
	for _, st := range pattern.Contents.StatusList {
		if st.StatusCode == entity.StatusCodeError {
			return apperr.InvalidParameterValue("status code %q is reserved", entity.StatusCodeError)
		}
	}
	if pattern.ID == "" {
		pattern.ID = uuid.NewString()
	}
	if err := s.patterns.Create(ctx, pattern); err != nil {
		return err
	}
	s.logger.Info("Workflow pattern created", "id", pattern.ID, "code", pattern.Code)
	return nil
}

// DeletePattern soft-deletes a pattern no live template references
func (s *definitionServiceImpl) DeletePattern(ctx context.Context, caller entity.Caller, id string) error {
	if !caller.IsAdmin {
		return apperr.Forbidden("only administrators may delete workflow patterns")
	}
	if _, err := s.patterns.GetByID(ctx, id); err != nil {
		return err
	}
	n, err := s.templates.CountByPattern(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("workflow pattern %s is used by %d ticket templates", id, n)
	}
	if err := s.patterns.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, patternKeyPrefix+id)
	s.logger.Info("Workflow pattern deleted", "id", id)
	return nil
}

// CreateTemplate stores a template after checking it against its pattern
// and the broker registry
func (s *definitionServiceImpl) CreateTemplate(ctx context.Context, caller entity.Caller, template *entity.TicketTemplate) error {
	if !caller.IsAdmin {
		return apperr.Forbidden("only administrators may create ticket templates")
	}
	return s.createTemplate(ctx, template)
}

func (s *definitionServiceImpl) createTemplate(ctx context.Context, template *entity.TicketTemplate) error {
	if template.WorkflowPatternID == "" {
		return apperr.InvalidParameterValue("workflow_pattern_id is required")
	}
	pattern, err := s.patterns.GetByID(ctx, template.WorkflowPatternID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.InvalidParameterValue("workflow pattern %s does not exist", template.WorkflowPatternID)
		}
		return err
	}

	contents := template.Contents
	if _, ok := pattern.Contents.Status(contents.FirstStatusCode); !ok {
		return apperr.InvalidParameterValue("first_status_code %q is not declared by pattern %s", contents.FirstStatusCode, pattern.Code)
	}
	if err := validator.CheckSchema(contents.Create.Parameters); err != nil {
		return err
	}
	if err := validator.CheckSchema(contents.Update.Parameters); err != nil {
		return err
	}
	if err := s.registry.CheckActions(contents.Action); err != nil {
		return err
	}
	for timing, byStatus := range contents.Action {
		for status := range byStatus {
			if _, ok := pattern.Contents.Status(status); !ok && status != entity.StatusCodeError {
				return apperr.InvalidParameterValue("%s hooks reference undeclared status %q", timing, status)
			}
		}
	}

	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	if err := s.templates.Create(ctx, template); err != nil {
		return err
	}
	s.logger.Info("Ticket template created", "id", template.ID, "pattern_id", template.WorkflowPatternID)
	return nil
}

// DeleteTemplate soft-deletes a template no live ticket references
func (s *definitionServiceImpl) DeleteTemplate(ctx context.Context, caller entity.Caller, id string) error {
	if !caller.IsAdmin {
		return apperr.Forbidden("only administrators may delete ticket templates")
	}
	if _, err := s.templates.GetByID(ctx, id); err != nil {
		return err
	}
	n, err := s.tickets.CountByTemplate(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("ticket template %s is used by %d tickets", id, n)
	}
	if err := s.templates.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, templateKeyPrefix+id)
	s.logger.Info("Ticket template deleted", "id", id)
	return nil
}

// Seed creates missing definitions. Patterns are matched by code and
// templates by ID, so seeding is safe to repeat on every start.
func (s *definitionServiceImpl) Seed(ctx context.Context, patterns []*entity.WorkflowPattern, templates []*entity.TicketTemplate) (int, error) {
	created := 0
	for _, p := range patterns {
		_, err := s.patterns.GetByCode(ctx, p.Code)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return created, err
		}
		if err := s.createPattern(ctx, p); err != nil {
			return created, err
		}
		created++
	}
	for _, t := range templates {
		if t.ID != "" {
			_, err := s.templates.GetByID(ctx, t.ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, apperr.ErrNotFound) {
				return created, err
			}
		}
		if err := s.createTemplate(ctx, t); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// cacheGet reports a hit. Cache failures degrade to a miss.
func (s *definitionServiceImpl) cacheGet(ctx context.Context, key string, dst interface{}) bool {
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.Error("Definition cache read failed", "key", key, "error", err)
		return false
	}
	return hit
}

func (s *definitionServiceImpl) cacheSet(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Error("Definition cache write failed", "key", key, "error", err)
	}
}

func (s *definitionServiceImpl) invalidate(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Error("Definition cache invalidation failed", "key", key, "error", err)
	}
}
