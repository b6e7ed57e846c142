package main

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	httpadp "goldloan-backend/internal/adapter/http"
	"goldloan-backend/internal/adapter/middleware"
	"goldloan-backend/internal/adapter/notify"
	"goldloan-backend/internal/adapter/repository/mysql"
	"goldloan-backend/internal/calculator"
	"goldloan-backend/internal/config"
	"goldloan-backend/internal/infrastructure/cache"
	"goldloan-backend/internal/infrastructure/db"
	"goldloan-backend/internal/workflow"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatal(err)
	}
	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}

	apps := mysql.NewApplicationRepository(gdb)
	tx := mysql.NewGormUoW(gdb)

	engine := workflow.NewEngine(
		workflow.DefaultGoldLoanPipeline(),
		tx,
		notify.NewLogGateway(),
		workflow.Policy{
			OverseerRole:         cfg.OverseerRole,
			Method:               calculator.MethodReducingBalance,
			ProcessingFeePercent: cfg.ProcessingFeePercent,
			PenaltyRatePercent:   cfg.PenaltyRatePercent,
			GracePeriodDays:      cfg.GracePeriodDays,
		},
	)

	h := httpadp.NewHandler()
	appH := httpadp.NewApplicationHandler(apps, engine, cfg.MaxLTVPercent)
	wfH := httpadp.NewWorkflowHandler(engine)
	loanH := httpadp.NewLoanHandler(tx, httpadp.LoanPolicy{
		Method:             calculator.MethodReducingBalance,
		PenaltyRatePercent: cfg.PenaltyRatePercent,
		GracePeriodDays:    cfg.GracePeriodDays,
	})

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())

	idem := middleware.Idempotency(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second)

	e.GET("/health", h.Health)
	e.POST("/applications", appH.CreateApplication, idem)
	e.GET("/applications/:application_id", appH.GetApplication)
	e.POST("/applications/:application_id/actions", wfH.PostAction, idem)
	e.GET("/applications/:application_id/workflow", wfH.GetStatus)
	e.POST("/internal/workflow/check-timeouts", wfH.CheckTimeouts)
	e.GET("/loans/:loan_id", loanH.GetLoan)
	e.GET("/loans/:loan_id/status", loanH.GetLoanStatus)
	e.POST("/loans/:loan_id/payments", loanH.PostPayment, idem)

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
