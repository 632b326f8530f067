package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/iam-service/internal/core/domain"
	"github.com/campuskit/iam-service/internal/core/port"
	"github.com/campuskit/iam-service/internal/infra/logger"
	"github.com/campuskit/iam-service/internal/repository"
)

// SubjectPage is a single page of a subject listing.
type SubjectPage struct {
	Subjects []domain.Subject
	Total    int
}

// SubjectService exposes account administration operations.
type SubjectService struct {
	subjects port.SubjectRepository
	roles    port.RoleRepository
	events   port.EventPublisher
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(subjects port.SubjectRepository, roles port.RoleRepository, events port.EventPublisher) *SubjectService {
	return &SubjectService{subjects: subjects, roles: roles, events: events}
}

// GetSubject returns a subject with its assigned roles.
func (s *SubjectService) GetSubject(ctx context.Context, id string) (*domain.Subject, []domain.Role, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil, fmt.Errorf("subject id is required")
	}

	subject, err := s.subjects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrSubjectNotFound
		}
		return nil, nil, fmt.Errorf("lookup subject: %w", err)
	}

	roles, err := s.roles.ListBySubject(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list subject roles: %w", err)
	}

	sanitized := subject.Sanitized()
	return &sanitized, roles, nil
}

// ListSubjects returns a filtered, paginated subject listing.
func (s *SubjectService) ListSubjects(ctx context.Context, filter port.SubjectFilter) (*SubjectPage, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	subjects, err := s.subjects.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}

	total, err := s.subjects.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count subjects: %w", err)
	}

	for i := range subjects {
		subjects[i] = subjects[i].Sanitized()
	}

	return &SubjectPage{Subjects: subjects, Total: total}, nil
}

// UpdateStatus transitions a subject's account state. Suspended and
// inactive subjects keep their data and role assignments but cannot
// authenticate.
func (s *SubjectService) UpdateStatus(ctx context.Context, id string, status domain.SubjectStatus) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("subject id is required")
	}
	if !status.Valid() {
		return fmt.Errorf("invalid subject status %q", status)
	}

	if err := s.subjects.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSubjectNotFound
		}
		return fmt.Errorf("update subject status: %w", err)
	}

	s.publish(ctx, domain.Event{
		Kind:       domain.EventSubjectStatusChanged,
		SubjectID:  id,
		OccurredAt: time.Now().UTC(),
		Details:    map[string]any{"status": string(status)},
	})

	return nil
}

func (s *SubjectService) publish(ctx context.Context, event domain.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logger.WithContext(ctx).Warn("failed to publish event",
			zap.Error(err),
			zap.String("event_type", event.Kind),
		)
	}
}

// UpdateProfile changes a subject's display name.
func (s *SubjectService) UpdateProfile(ctx context.Context, id, displayName string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("subject id is required")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return fmt.Errorf("display name is required")
	}

	if err := s.subjects.UpdateProfile(ctx, id, displayName); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSubjectNotFound
		}
		return fmt.Errorf("update subject profile: %w", err)
	}

	return nil
}
