package config

import "time"

type App struct {
	Port          string        `env:"APP_PORT" envDefault:"8080"`
	DatabaseURL   string        `env:"DATABASE_URL,required"`
	JWTSecret     string        `env:"JWT_SECRET" envDefault:"local_dev_secret"`
	ScorerURL     string        `env:"SCORER_URL" envDefault:"http://localhost:5001/predict"`
	ScorerTimeout time.Duration `env:"SCORER_TIMEOUT" envDefault:"2s"`
	SweepInterval time.Duration `env:"OVERDUE_SWEEP_INTERVAL" envDefault:"10m"`
	Env           string        `env:"APP_ENV" envDefault:"dev"`
}
