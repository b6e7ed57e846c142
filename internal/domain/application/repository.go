package application

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, a *Application) error
	GetByApplicationID(ctx context.Context, applicationID string) (*Application, error)
	// GetByApplicationIDForUpdate locks the application row for the
	// duration of the surrounding transaction.
	GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*Application, error)
	Save(ctx context.Context, a *Application) error

	CreateStepInstances(ctx context.Context, steps []*StepInstance) error
	GetStepInstances(ctx context.Context, applicationID string) ([]*StepInstance, error)
	SaveStepInstance(ctx context.Context, s *StepInstance) error
	// UpdateStepIfStatus persists s only if the stored row still has the
	// expected status (compare-and-set). Returns ErrConflict when another
	// transition won the race.
	UpdateStepIfStatus(ctx context.Context, s *StepInstance, expected StepStatus) error
	// CascadeCancel marks every non-terminal step with order > afterOrder
	// as cancelled. Must run inside the caller's transaction.
	CascadeCancel(ctx context.Context, applicationID string, afterOrder int) error
	// ListPendingExpired returns pending steps whose timeout has elapsed,
	// across all applications.
	ListPendingExpired(ctx context.Context, now time.Time) ([]*StepInstance, error)
}
