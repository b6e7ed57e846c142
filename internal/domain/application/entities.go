package application

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("application not found")
	ErrAlreadyInitialized = errors.New("workflow already initialized for application")
	ErrNoPendingStep      = errors.New("no pending workflow step for application")
	ErrPermissionDenied   = errors.New("actor role not allowed for this step")
	ErrConflict           = errors.New("workflow step changed concurrently, refetch and retry")
	ErrState              = errors.New("action not valid for current workflow state")
	ErrValidation         = errors.New("invalid workflow action")
)

type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusCancelled   Status = "cancelled"
)

type StepStatus string

const (
	StepWaiting       StepStatus = "waiting"
	StepPending       StepStatus = "pending"
	StepInfoRequested StepStatus = "info_requested"
	StepVerified      StepStatus = "verified"
	StepCompleted     StepStatus = "completed"
	StepRejected      StepStatus = "rejected"
	StepTimedOut      StepStatus = "timed_out"
	StepCancelled     StepStatus = "cancelled"
)

// Terminal reports whether a step can never transition again.
func (s StepStatus) Terminal() bool {
	switch s {
	case StepCompleted, StepRejected, StepCancelled:
		return true
	}
	return false
}

type Application struct {
	ID                 uint64          `gorm:"primaryKey;column:id" json:"-"`
	ApplicationID      string          `gorm:"size:32;uniqueIndex:ux_applications_app_id_active" json:"application_id"`
	CustomerID         string          `gorm:"size:32;index:idx_applications_customer" json:"customer_id"`
	RequestedAmount    decimal.Decimal `gorm:"type:decimal(18,2)" json:"requested_amount"`
	GoldWeightGrams    decimal.Decimal `gorm:"type:decimal(10,3)" json:"gold_weight_grams"`
	EstimatedGoldValue decimal.Decimal `gorm:"type:decimal(18,2)" json:"estimated_gold_value"`
	Status             Status          `gorm:"type:enum('draft','submitted','under_review','approved','rejected','cancelled');default:'draft'" json:"status"`
	ApprovedAmount     decimal.Decimal `gorm:"type:decimal(18,2)" json:"approved_amount"`
	AnnualInterestRate decimal.Decimal `gorm:"type:decimal(6,4)" json:"annual_interest_rate"`
	TenureMonths       int             `json:"tenure_months"`
	FieldAgentID       string          `gorm:"size:32" json:"field_agent_id,omitempty"`
	RejectionReason    string          `gorm:"type:text" json:"rejection_reason,omitempty"`
	VerifiedBy         string          `gorm:"size:32" json:"verified_by,omitempty"`
	VerifiedAt         *time.Time      `json:"verified_at,omitempty"`
	StatusUpdatedAt    time.Time       `gorm:"autoCreateTime" json:"status_updated_at"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Application) TableName() string { return "loan_applications" }

// StepInstance is one gated stage of an application's review pipeline.
// Data is an opaque key/value payload (agent assignment, verification
// photos, requested documents) serialized as JSON.
type StepInstance struct {
	ID            uint64     `gorm:"primaryKey;column:id" json:"-"`
	ApplicationID string     `gorm:"size:32;index:idx_steps_application;uniqueIndex:ux_steps_app_step" json:"application_id"`
	StepID        string     `gorm:"size:64;uniqueIndex:ux_steps_app_step" json:"step_id"`
	StepOrder     int        `gorm:"column:step_order" json:"order"`
	Status        StepStatus `gorm:"type:enum('waiting','pending','info_requested','verified','completed','rejected','timed_out','cancelled');default:'waiting'" json:"status"`
	AssignedTo    string     `gorm:"size:32" json:"assigned_to,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	TimeoutAt     *time.Time `gorm:"index:idx_steps_timeout" json:"timeout_at,omitempty"`
	Remarks       string     `gorm:"type:text" json:"remarks,omitempty"`
	Data          StepData   `gorm:"type:json;serializer:json" json:"data,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StepInstance) TableName() string { return "workflow_step_instances" }

type StepData map[string]string
