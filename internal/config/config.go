package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	// Workflow / financial policy
	OverseerRole         string
	MaxLTVPercent        decimal.Decimal
	BaseRatePercent      decimal.Decimal
	PenaltyRatePercent   decimal.Decimal
	ProcessingFeePercent decimal.Decimal
	GracePeriodDays      int
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getdec(k, d string) decimal.Decimal {
	v, err := decimal.NewFromString(getenv(k, d))
	if err != nil {
		v, _ = decimal.NewFromString(d)
	}
	return v
}

func Load() *Config {
	// .env is optional; deployments usually set the environment directly.
	_ = godotenv.Load()

	c := &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "goldloan"),
		MySQLUser: getenv("MYSQL_USER", "goldloan"),
		MySQLPass: getenv("MYSQL_PASS", "goldloan"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		IdempTTLSecs: 300,

		OverseerRole:         getenv("WORKFLOW_OVERSEER_ROLE", "operations_head"),
		MaxLTVPercent:        getdec("MAX_LTV_PERCENT", "75"),
		BaseRatePercent:      getdec("BASE_RATE_PERCENT", "12"),
		PenaltyRatePercent:   getdec("PENALTY_RATE_PERCENT", "24"),
		ProcessingFeePercent: getdec("PROCESSING_FEE_PERCENT", "1"),
		GracePeriodDays:      7,
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	if v := os.Getenv("IDEMPOTENCY_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.IdempTTLSecs = n
		}
	}
	if v := os.Getenv("GRACE_PERIOD_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.GracePeriodDays = n
		}
	}
	return c
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.MaxLTVPercent.LessThanOrEqual(decimal.Zero) {
		return errors.New("MAX_LTV_PERCENT must be positive")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
