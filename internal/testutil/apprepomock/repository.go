package apprepomock

import (
	"context"
	"time"

	domain "goldloan-backend/internal/domain/application"
)

// Repo is a function-backed mock that satisfies domain.Repository.
// Fill in the function fields a test needs; unfilled ones return benign
// defaults.
type Repo struct {
	CreateFn                      func(ctx context.Context, a *domain.Application) error
	GetByApplicationIDFn          func(ctx context.Context, applicationID string) (*domain.Application, error)
	GetByApplicationIDForUpdateFn func(ctx context.Context, applicationID string) (*domain.Application, error)
	SaveFn                        func(ctx context.Context, a *domain.Application) error
	CreateStepInstancesFn         func(ctx context.Context, steps []*domain.StepInstance) error
	GetStepInstancesFn            func(ctx context.Context, applicationID string) ([]*domain.StepInstance, error)
	SaveStepInstanceFn            func(ctx context.Context, s *domain.StepInstance) error
	UpdateStepIfStatusFn          func(ctx context.Context, s *domain.StepInstance, expected domain.StepStatus) error
	CascadeCancelFn               func(ctx context.Context, applicationID string, afterOrder int) error
	ListPendingExpiredFn          func(ctx context.Context, now time.Time) ([]*domain.StepInstance, error)
}

var _ domain.Repository = (*Repo)(nil)

func (m *Repo) Create(ctx context.Context, a *domain.Application) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}

func (m *Repo) GetByApplicationID(ctx context.Context, applicationID string) (*domain.Application, error) {
	if m.GetByApplicationIDFn != nil {
		return m.GetByApplicationIDFn(ctx, applicationID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*domain.Application, error) {
	if m.GetByApplicationIDForUpdateFn != nil {
		return m.GetByApplicationIDForUpdateFn(ctx, applicationID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) Save(ctx context.Context, a *domain.Application) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, a)
	}
	return nil
}

func (m *Repo) CreateStepInstances(ctx context.Context, steps []*domain.StepInstance) error {
	if m.CreateStepInstancesFn != nil {
		return m.CreateStepInstancesFn(ctx, steps)
	}
	return nil
}

func (m *Repo) GetStepInstances(ctx context.Context, applicationID string) ([]*domain.StepInstance, error) {
	if m.GetStepInstancesFn != nil {
		return m.GetStepInstancesFn(ctx, applicationID)
	}
	return nil, nil
}

func (m *Repo) SaveStepInstance(ctx context.Context, s *domain.StepInstance) error {
	if m.SaveStepInstanceFn != nil {
		return m.SaveStepInstanceFn(ctx, s)
	}
	return nil
}

func (m *Repo) UpdateStepIfStatus(ctx context.Context, s *domain.StepInstance, expected domain.StepStatus) error {
	if m.UpdateStepIfStatusFn != nil {
		return m.UpdateStepIfStatusFn(ctx, s, expected)
	}
	return nil
}

func (m *Repo) CascadeCancel(ctx context.Context, applicationID string, afterOrder int) error {
	if m.CascadeCancelFn != nil {
		return m.CascadeCancelFn(ctx, applicationID, afterOrder)
	}
	return nil
}

func (m *Repo) ListPendingExpired(ctx context.Context, now time.Time) ([]*domain.StepInstance, error) {
	if m.ListPendingExpiredFn != nil {
		return m.ListPendingExpiredFn(ctx, now)
	}
	return nil, nil
}
