package uow

import (
	"context"

	"goldloan-backend/internal/domain/application"
	"goldloan-backend/internal/domain/loanbook"
)

type Repos struct {
	Applications application.Repository
	Loans        loanbook.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the application row first, then pass it in.
	// Serializes all workflow mutations per application.
	WithinApplicationTx(ctx context.Context, applicationID string, fn func(r Repos, a *application.Application) error) error
}
