package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	ProcessorBaseURL  string `env:"PROCESSOR_BASE_URL" envDefault:"http://mock-processor:8081"`
	ProcessorClientID string `env:"PROCESSOR_CLIENT_ID,required"`
	ProcessorSecret   string `env:"PROCESSOR_SECRET,required"`
	ProcessorMode     string `env:"PROCESSOR_MODE" envDefault:"sandbox"`
	ProcessorTimeoutS int    `env:"PROCESSOR_TIMEOUT_S" envDefault:"10"`

	Currency          string `env:"PAYMENT_CURRENCY" envDefault:"EUR"`
	ApprovalReturnURL string `env:"APPROVAL_RETURN_URL" envDefault:"http://localhost:8080/api/v1/payments/execute"`
	ApprovalCancelURL string `env:"APPROVAL_CANCEL_URL" envDefault:"http://localhost:8080/api/v1/payments/cancel"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
