package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appDomain "goldloan-backend/internal/domain/application"
)

type ApplicationRepository struct{ db *gorm.DB }

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, a *appDomain.Application) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *ApplicationRepository) Save(ctx context.Context, a *appDomain.Application) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *ApplicationRepository) GetByApplicationID(ctx context.Context, applicationID string) (*appDomain.Application, error) {
	var out appDomain.Application
	res := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, appDomain.ErrNotFound
	}
	return &out, res.Error
}

// GetByApplicationIDForUpdate takes a row lock so workflow mutations are
// serialized per application for the life of the transaction.
func (r *ApplicationRepository) GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*appDomain.Application, error) {
	var out appDomain.Application
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("application_id = ?", applicationID).
		First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, appDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *ApplicationRepository) CreateStepInstances(ctx context.Context, steps []*appDomain.StepInstance) error {
	return r.db.WithContext(ctx).Create(&steps).Error
}

func (r *ApplicationRepository) GetStepInstances(ctx context.Context, applicationID string) ([]*appDomain.StepInstance, error) {
	var out []*appDomain.StepInstance
	res := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("step_order ASC").
		Find(&out)
	return out, res.Error
}

func (r *ApplicationRepository) SaveStepInstance(ctx context.Context, s *appDomain.StepInstance) error {
	return r.db.WithContext(ctx).Save(s).Error
}

// UpdateStepIfStatus is a compare-and-set on the step's stored status;
// zero rows affected means another transition won the race.
func (r *ApplicationRepository) UpdateStepIfStatus(ctx context.Context, s *appDomain.StepInstance, expected appDomain.StepStatus) error {
	res := r.db.WithContext(ctx).
		Model(&appDomain.StepInstance{}).
		Where("id = ? AND status = ?", s.ID, expected).
		Updates(map[string]any{
			"status":       s.Status,
			"assigned_to":  s.AssignedTo,
			"started_at":   s.StartedAt,
			"completed_at": s.CompletedAt,
			"timeout_at":   s.TimeoutAt,
			"remarks":      s.Remarks,
			"data":         s.Data,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return appDomain.ErrConflict
	}
	return nil
}

func (r *ApplicationRepository) CascadeCancel(ctx context.Context, applicationID string, afterOrder int) error {
	return r.db.WithContext(ctx).
		Model(&appDomain.StepInstance{}).
		Where("application_id = ? AND step_order > ?", applicationID, afterOrder).
		Where("status NOT IN ?", []appDomain.StepStatus{appDomain.StepCompleted, appDomain.StepRejected, appDomain.StepCancelled}).
		Update("status", appDomain.StepCancelled).Error
}

func (r *ApplicationRepository) ListPendingExpired(ctx context.Context, now time.Time) ([]*appDomain.StepInstance, error) {
	var out []*appDomain.StepInstance
	res := r.db.WithContext(ctx).
		Where("status = ? AND timeout_at IS NOT NULL AND timeout_at < ?", appDomain.StepPending, now).
		Order("application_id ASC, step_order ASC").
		Find(&out)
	return out, res.Error
}
